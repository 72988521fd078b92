package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/adapter/storage"
	"hpc-portal/internal/api/router"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/database"
	"hpc-portal/internal/pkg/logger"
	"hpc-portal/internal/scheduler"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"

	_ "hpc-portal/docs" // Swagger docs
)

// @title HPC Portal API
// @version 1.0
// @description HPC 资源申请门户 API 文档
// @description 提供项目申请、资源申请、导师与资助审批、成员授权等功能

// @contact.name API Support
// @contact.email support@example.com

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var (
	configFile = flag.String("config", "", "配置文件路径, 如 -config=configs/config.yaml")
	envFile    = flag.String("env", ".env", "环境变量文件, 不存在时忽略")
	version    = flag.Bool("version", false, "显示版本信息")
)

const (
	appVersion      = "1.0.0"
	appName         = "hpc-portal"
	defaultConfig   = "configs/config.yaml"
	shutdownTimeout = 5 * time.Second
)

func main() {
	flag.Parse()
	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		return
	}

	// .env 中的变量可覆盖配置文件, 例如 DATABASE_URL
	envLoaded := godotenv.Load(*envFile) == nil

	configPath, source := resolveConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		fmt.Fprintf(os.Stderr, "可通过 -config 参数或 CONFIG_FILE 环境变量指定, 默认 %s\n", defaultConfig)
		os.Exit(1)
	}
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	logger.Info("配置已加载", zap.String("file", configPath), zap.String("source", source), zap.Bool("dotenv", envLoaded))

	if err := run(cfg); err != nil {
		logger.Error("服务异常退出", zap.Error(err))
		_ = logger.Close()
		os.Exit(1)
	}
	_ = logger.Close()
}

func run(cfg *config.Config) error {
	logger.Info(fmt.Sprintf("服务 %s 启动中...", appName), zap.String("version", appVersion))

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("初始化数据库: %w", err)
	}
	defer func() { _ = database.Close() }()
	db := database.GetDB()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("数据库迁移: %w", err)
	}
	logger.Info("数据库连接成功", zap.String("driver", db.Dialector.Name()))

	store, err := storage.NewDocumentStore(cfg.Storage.MediaRoot, cfg.Storage.MaxFileSize, logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("初始化附件存储: %w", err)
	}

	dispatcher := notification.NewDispatcher(notification.NewFromConfig(cfg.Notification, logger.Named("notify")), logger.Named("dispatcher"), cfg.Notification.QueueSize)
	dispatcher.Start(cfg.Notification.Workers)
	// 请求处理完后再排空通知队列
	defer dispatcher.Stop()

	utils.RegisterJSONTagName()
	services := service.NewServices(db, cfg, store, dispatcher, logger.Log)

	if file := cfg.Seed.InstitutionsFile; file != "" {
		n, err := services.Institution.LoadSeed(afero.NewOsFs(), file)
		if err != nil {
			return fmt.Errorf("导入机构 %s: %w", file, err)
		}
		logger.Info("机构导入完成", zap.Int("count", n))
	}

	if cfg.Scheduler.Enabled {
		jobs := scheduler.NewScheduler(cfg.Scheduler, services.Approval, services.Allocation, logger.Named("scheduler"))
		if err := jobs.Start(); err != nil {
			logger.Warn("定时任务调度器启动失败", zap.Error(err))
		} else {
			defer jobs.Stop()
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(cfg, services, logger.Log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("%s 服务启动成功", cfg.Server.Name), zap.String("address", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("服务正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	logger.Info("服务已关闭")
	return nil
}

// resolveConfigPath 命令行参数 > CONFIG_FILE 环境变量 > 默认路径
func resolveConfigPath() (path, source string) {
	if *configFile != "" {
		return *configFile, "命令行参数"
	}
	if env := os.Getenv("CONFIG_FILE"); env != "" {
		return env, "环境变量"
	}
	return defaultConfig, "默认配置"
}
