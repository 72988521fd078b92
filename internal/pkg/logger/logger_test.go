package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hpc-portal/internal/pkg/config"
)

func TestInit_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "portal.log")
	require.NoError(t, Init(&config.LogConfig{Level: "warn", Format: "json", Output: "file", FilePath: path}))
	t.Cleanup(func() { Log, log = zap.NewNop(), zap.NewNop() })

	Info("不应输出")
	Warn("项目待审批", zap.String("code", "scw1000"))
	GetWriter().Printf("SELECT %d", 1)
	_ = Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.NotContains(t, content, "不应输出")
	assert.Contains(t, content, `"msg":"项目待审批"`)
	assert.Contains(t, content, `"code":"scw1000"`)
	assert.Contains(t, content, "SELECT 1\n")
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.log")
	require.NoError(t, Init(&config.LogConfig{Level: "verbose", Format: "json", Output: "file", FilePath: path}))
	t.Cleanup(func() { Log, log = zap.NewNop(), zap.NewNop() })

	Debug("debug")
	Named("scheduler").Info("info")
	_ = Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"msg":"debug"`)
	assert.Contains(t, string(data), `"logger":"scheduler"`)
}
