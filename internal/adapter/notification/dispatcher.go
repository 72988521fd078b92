package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher 异步投递, 入队不阻塞请求, 发送失败只记日志
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration

	queue    chan *NotificationMessage
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
}

// NewDispatcher 创建投递器
func NewDispatcher(notifier Notifier, logger *zap.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		timeout:  30 * time.Second,
		queue:    make(chan *NotificationMessage, queueSize),
		stopChan: make(chan struct{}),
	}
}

// Start 启动 workers 个发送协程
func (d *Dispatcher) Start(workers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		d.logger.Warn("通知投递器已在运行中")
		return
	}
	if workers <= 0 {
		workers = 1
	}

	d.running = true
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.logger.Info("通知投递器已启动", zap.Int("workers", workers))
}

// Stop 停止接收并发送完队列中的消息
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopChan)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("通知投递器已停止")
}

// Send 入队, 队列满或未启动时丢弃
func (d *Dispatcher) Send(_ context.Context, msg *NotificationMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		d.logger.Warn("通知投递器未运行,丢弃通知", zap.String("type", string(msg.Type)))
		return nil
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("通知队列已满,丢弃通知", zap.String("type", string(msg.Type)), zap.String("title", msg.Title))
	}
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.stopChan:
			// 排空剩余消息
			for {
				select {
				case msg := <-d.queue:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg *NotificationMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Send(ctx, msg); err != nil {
		d.logger.Error("通知发送失败",
			zap.String("type", string(msg.Type)),
			zap.Strings("recipients", msg.Recipients),
			zap.Error(err))
	}
}
