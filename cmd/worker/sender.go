package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mobiwave/mobiwave-gateway/internal/campaign"
	"github.com/mobiwave/mobiwave-gateway/internal/config"
	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/db"
	"github.com/mobiwave/mobiwave-gateway/internal/kafka"
	"github.com/mobiwave/mobiwave-gateway/internal/ledger"
	"github.com/mobiwave/mobiwave-gateway/internal/logger"
	"github.com/mobiwave/mobiwave-gateway/internal/metrics"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
	"github.com/mobiwave/mobiwave-gateway/internal/worker"
)

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Run sender worker (executes dispatched scheduled campaigns)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		metrics.MustRegister(prometheus.DefaultRegisterer)

		if cfg.Pricing.CostPerMessage <= 0 {
			return fmt.Errorf("invalid pricing: cost_per_message=%d", cfg.Pricing.CostPerMessage)
		}

		dbx, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		accountsRepo := repository.NewAccountsRepository(dbx)
		credentialsRepo := repository.NewCredentialsRepository(dbx)
		campaignsRepo := repository.NewCampaignsRepository(dbx)
		messagesRepo := repository.NewMessagesRepository(dbx)
		schedulesRepo := repository.NewSchedulesRepository(dbx)
		ledgerRepo := repository.NewLedgerRepository()

		client := mspace.NewClient(cfg.Provider.BaseURL, cfg.Provider.TimeoutMs)
		resolver := credential.NewResolver(
			credential.FromConfig(cfg.Provider),
			credential.FromStore(credentialsRepo, "mspace"),
		)
		writer := ledger.NewWriter(dbx, messagesRepo, campaignsRepo, accountsRepo, ledgerRepo, cfg.Pricing.CostPerMessage)

		orch := campaign.NewOrchestrator(
			dbx, accountsRepo, campaignsRepo, schedulesRepo,
			writer, resolver, client,
			cfg.Provider.SenderID, cfg.Provider.MaxRetries, cfg.Scheduler.WorkerCount,
		)

		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "mobiwave-sender"
		}

		consumer := kafka.NewConsumerFromConfig(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topic,
			GroupID:        groupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		w := worker.NewSender(consumer, orch, cfg.Scheduler.WorkerCount)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> sender started topic=%s group=%s workers=%d",
			cfg.Kafka.Topic, groupID, w.Workers)

		return w.Run(ctx)
	},
}
