package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hpc-portal/internal/pkg/config"
)

const (
	jobTokenPurge    = "token_purge"
	jobPendingDigest = "pending_digest"

	defaultTokenPurgeCron    = "0 0 3 * * *"   // 每天凌晨3点
	defaultPendingDigestCron = "0 0 9 * * 1-5" // 工作日上午9点
)

// TokenPurger 清理过期审批Token
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// DigestSender 汇总长时间未处理的资源申请
type DigestSender interface {
	SendPendingDigest(ctx context.Context, olderThan time.Duration) (int, error)
}

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	cfg           config.SchedulerConfig
	logger        *zap.Logger
	purger        TokenPurger
	digest        DigestSender
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(cfg config.SchedulerConfig, purger TokenPurger, digest DigestSender, logger *zap.Logger) *Scheduler {
	// 创建 cron 实例（带秒级支持）
	c := cron.New(cron.WithSeconds())

	return &Scheduler{
		cron:          c,
		cfg:           cfg,
		logger:        logger,
		purger:        purger,
		digest:        digest,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 注册任务并启动调度器
func (s *Scheduler) Start() error {
	log := s.logger.Sugar()

	log.Info("启动定时任务调度器...")

	// cron 表达式格式: 秒 分 时 日 月 周
	if err := s.register(jobTokenPurge, s.cfg.TokenPurgeCron, defaultTokenPurgeCron, s.PurgeTokens); err != nil {
		return err
	}
	if err := s.register(jobPendingDigest, s.cfg.PendingDigestCron, defaultPendingDigestCron, s.SendDigest); err != nil {
		return err
	}

	// 启动 cron
	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

func (s *Scheduler) register(name, expr, fallback string, job func()) error {
	log := s.logger.Sugar()
	if expr == "" {
		expr = fallback
		log.Warnf("未配置%s的cron表达式，使用默认值: %s", name, expr)
	}

	entryID, err := s.cron.AddFunc(expr, job)
	if err != nil {
		log.Errorf("注册定时任务 %s: %v 失败: %v", name, expr, err)
		return err
	}

	s.cronSchedules[name] = entryID
	log.Infof("定时任务已注册: %s %s entry_id=%d", name, expr, entryID)
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// PurgeTokens 清理过期审批Token, 也可手动触发
func (s *Scheduler) PurgeTokens() {
	n, err := s.purger.PurgeExpiredTokens(context.Background())
	if err != nil {
		s.logger.Error("清理过期审批Token失败", zap.Error(err))
		return
	}
	s.logger.Info("执行定时任务: 清理过期审批Token", zap.Int64("deleted", n))
}

// SendDigest 发送待审批汇总
func (s *Scheduler) SendDigest() {
	age := time.Duration(s.cfg.PendingDigestAge) * time.Hour
	n, err := s.digest.SendPendingDigest(context.Background(), age)
	if err != nil {
		s.logger.Error("发送待审批汇总失败", zap.Error(err))
		return
	}
	s.logger.Info("执行定时任务: 待审批汇总", zap.Int("pending", n))
}

// Entries 已注册的任务
func (s *Scheduler) Entries() map[string]cron.EntryID {
	return s.cronSchedules
}
