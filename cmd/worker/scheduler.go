package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mobiwave/mobiwave-gateway/internal/config"
	"github.com/mobiwave/mobiwave-gateway/internal/db"
	"github.com/mobiwave/mobiwave-gateway/internal/logger"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
	"github.com/mobiwave/mobiwave-gateway/internal/worker"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run scheduler worker (stages due campaigns into the outbox)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		dbx, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		schedulesRepo := repository.NewSchedulesRepository(dbx)
		campaignsRepo := repository.NewCampaignsRepository(dbx)
		outboxRepo := repository.NewOutboxRepository(dbx)

		s := worker.NewScheduler(
			schedulesRepo,
			campaignsRepo,
			outboxRepo,
			cfg.Kafka.Topic,
			cfg.Scheduler.PollInterval,
			cfg.Scheduler.BatchSize,
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> scheduler started topic=%s poll=%s batch=%d",
			cfg.Kafka.Topic, s.PollInterval, s.BatchSize)

		return s.Run(ctx)
	},
}
