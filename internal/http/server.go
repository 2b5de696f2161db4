package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mobiwave/mobiwave-gateway/internal/campaign"
	"github.com/mobiwave/mobiwave-gateway/internal/config"
	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/http/middleware"
	"github.com/mobiwave/mobiwave-gateway/internal/ledger"
	"github.com/mobiwave/mobiwave-gateway/internal/metrics"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	accountsRepo := repository.NewAccountsRepository(mysqlDB)
	credentialsRepo := repository.NewCredentialsRepository(mysqlDB)
	campaignsRepo := repository.NewCampaignsRepository(mysqlDB)
	messagesRepo := repository.NewMessagesRepository(mysqlDB)
	schedulesRepo := repository.NewSchedulesRepository(mysqlDB)
	ledgerRepo := repository.NewLedgerRepository()

	// repos (ClickHouse)
	archiveRepo := repository.NewArchiveRepository(clickhouseDB)

	// provider plumbing
	client := mspace.NewClient(cfg.Provider.BaseURL, cfg.Provider.TimeoutMs)
	resolver := credential.NewResolver(
		credential.FromConfig(cfg.Provider),
		credential.FromStore(credentialsRepo, "mspace"),
	)

	// services
	writer := ledger.NewWriter(mysqlDB, messagesRepo, campaignsRepo, accountsRepo, ledgerRepo, cfg.Pricing.CostPerMessage)
	dist := ledger.NewDistributor(mysqlDB, accountsRepo, ledgerRepo, client, resolver, cfg.Provider.MaxRetries)
	orch := campaign.NewOrchestrator(
		mysqlDB, accountsRepo, campaignsRepo, schedulesRepo,
		writer, resolver, client,
		cfg.Provider.SenderID, cfg.Provider.MaxRetries, cfg.Scheduler.WorkerCount,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.BearerAuthMiddleware(accountsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:      rds,
		DefaultRPS: cfg.RateLimit.RPS,
		KeyPrefix:  "rl:acct:",
		Window:     time.Second,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/sms/send", sendSMSHandler(orch))
	v1.POST("/accounts", accountsHandler(client, resolver, dist, cfg.Provider.MaxRetries))
	v1.GET("/balance", balanceHandler(client, resolver, rds, cfg.Provider.MaxRetries))
	v1.POST("/delivery", deliveryHandler(client, resolver, messagesRepo, cfg.Provider.MaxRetries))
	v1.POST("/credits/distribute", distributeHandler(dist))
	v1.POST("/credits/purchase", purchaseHandler(dist))
	v1.GET("/reports/messages", listMessagesHandler(archiveRepo))
	v1.POST("/campaigns/:id/cancel", cancelCampaignHandler(orch))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
