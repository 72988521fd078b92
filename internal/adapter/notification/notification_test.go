package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"hpc-portal/internal/pkg/config"
)

type mockNotifier struct {
	mock.Mock
	mu   sync.Mutex
	sent []*NotificationMessage
}

func (m *mockNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestDispatcher_DeliversAndDrainsOnStop(t *testing.T) {
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(nil)

	d := NewDispatcher(n, zap.NewNop(), 10)
	d.Start(2)
	for i := 0; i < 5; i++ {
		assert.NoError(t, d.Send(context.Background(), &NotificationMessage{Type: NotifyAllocationCreated}))
	}
	d.Stop()

	assert.Equal(t, 5, n.count())
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	d := NewDispatcher(n, zap.NewNop(), 1)
	d.Start(1)
	err := d.Send(context.Background(), &NotificationMessage{Type: NotifyProjectDecided})
	d.Stop()

	assert.NoError(t, err)
	assert.Equal(t, 1, n.count())
}

func TestDispatcher_NotRunningDrops(t *testing.T) {
	n := &mockNotifier{}
	d := NewDispatcher(n, zap.NewNop(), 1)

	assert.NoError(t, d.Send(context.Background(), &NotificationMessage{}))
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, n.count())
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestMultiNotifier_ContinuesOnError(t *testing.T) {
	failing := &mockNotifier{}
	failing.On("Send", mock.Anything, mock.Anything).Return(errors.New("boom"))
	ok := &mockNotifier{}
	ok.On("Send", mock.Anything, mock.Anything).Return(nil)

	m := NewMultiNotifier(zap.NewNop(), failing, ok)
	err := m.Send(context.Background(), &NotificationMessage{})

	assert.Error(t, err)
	assert.Equal(t, 1, ok.count())
}

func TestLarkNotifier_SkipsNonReviewerMessages(t *testing.T) {
	n := NewLarkNotifier("http://127.0.0.1:0/unreachable", zap.NewNop())
	assert.NoError(t, n.Send(context.Background(), MembershipDecidedMessage("a@b.c", "scw0001", "Authorised")))
}

func TestMessages(t *testing.T) {
	msg := SupervisorApprovalMessage("sup@swansea.ac.uk", "Dr Smith", "scw0001", "Climate", "alice", "https://portal/approve?token=x")
	assert.Equal(t, []string{"sup@swansea.ac.uk"}, msg.Recipients)
	assert.Contains(t, msg.Content, "https://portal/approve?token=x")

	digest := PendingDigestMessage([]string{"r@x"}, []string{"#1 scw0001", "#2 scw0002"})
	assert.Equal(t, "2 allocation requests awaiting approval", digest.Title)
}

func TestLarkNotifier_PostsReviewerMessages(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewLarkNotifier(srv.URL, zap.NewNop())
	assert.NoError(t, n.Send(context.Background(), AllocationCreatedMessage([]string{"r@x"}, 1, "scw0001", "Climate")))
	assert.Equal(t, 1, hits)
}

func TestLarkNotifier_ReplyCodeIsChecked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var card larkCard
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&card))
		assert.Equal(t, "orange", card.Card.Header.Template)
		_, _ = w.Write([]byte(`{"code":19021,"msg":"sign match fail"}`))
	}))
	defer srv.Close()

	n := NewLarkNotifier(srv.URL, zap.NewNop())
	err := n.Send(context.Background(), PendingDigestMessage([]string{"r@x"}, []string{"#1 scw0001"}))
	assert.ErrorContains(t, err, "19021")
}

func TestNewFromConfig(t *testing.T) {
	assert.IsType(t, &LogNotifier{}, NewFromConfig(config.NotificationConfig{}, zap.NewNop()))
	assert.IsType(t, &MailNotifier{}, NewFromConfig(config.NotificationConfig{Enabled: true, Provider: "mail"}, zap.NewNop()))
	assert.IsType(t, &MultiNotifier{}, NewFromConfig(config.NotificationConfig{LarkWebhook: "http://lark"}, zap.NewNop()))
}
