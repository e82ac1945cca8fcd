package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/conf"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

// defaultSweepSpec 每天凌晨 2 点执行过期清扫 (秒级表达式)
const defaultSweepSpec = "0 0 2 * * *"

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

// CronApp Cron 应用结构
type CronApp struct {
	subscriptionUsecase *biz.SubscriptionUsecase
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	// 初始化应用
	app, cleanup, err := wireApp(&bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	sweepSpec := defaultSweepSpec
	if bc.Gym != nil && bc.Gym.SweepSpec != "" {
		sweepSpec = bc.Gym.SweepSpec
	}

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 订阅过期清扫: active → expired 单调翻转, 幂等, 多实例由分布式锁去重
	_, err = cronScheduler.AddFunc(sweepSpec, func() {
		log.Println("[CRON] Starting expired subscription sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := app.subscriptionUsecase.SweepExpired(ctx)
		if err != nil {
			log.Printf("[CRON] Error sweeping expired subscriptions: %v", err)
		} else {
			log.Printf("[CRON] Swept %d expired subscriptions", count)
			log.Println("[CRON] Finished expired subscription sweep")
		}
	})
	if err != nil {
		log.Printf("Failed to add sweep job: %v", err)
	}

	// 启动定时任务
	cronScheduler.Start()
	log.Println("========================================")
	log.Println("Cron jobs started successfully")
	log.Println("Scheduled jobs:")
	log.Printf("  - Expired subscription sweep: %s", sweepSpec)
	log.Println("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		log.Println("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Println("Cron jobs forced to stop after timeout")
	}
}
