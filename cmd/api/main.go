package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/billing"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/config"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/dispatch"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/handlers"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/lookup"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider/drivers"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/queue"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/render"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/repository"
	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/prom"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/redis"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/secrets"
)

func main() {
	if err := config.Load(argContainsEnvPath()); err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

	host, _ := os.Hostname()
	if err := prom.Create(host, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to register metrics", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.TimeoutMiddleware(time.Second * 30))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)

	readConf := pg.Config{
		User:     cfg.PostgresReadUser,
		Host:     cfg.PostgresReadHost,
		Port:     cfg.PostgresReadPort,
		Password: cfg.PostgresReadPassword,
		Database: cfg.PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}

	db, err := pg.CreateReadWrite(readConf, writeConf, cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewAdapter("default", cfg.RedisKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "api",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	dispatchQueue, err := queue.New(redisAdap, queue.Config{
		Stream:            cfg.QueueName,
		Group:             cfg.QueueConsumerGroup,
		Consumer:          cfg.QueueConsumerName,
		MaxAttempts:       cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		DeadLetter:        cfg.QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	cipher, err := secrets.NewCipher(cfg.EncryptionSecret)
	if err != nil {
		logger.Error("invalid gateway encryption secret", "error", err)
		return
	}

	messageRepo := repository.NewMessageRepository(db)
	gatewayRepo := repository.NewGatewayRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	senderRepo := repository.NewSenderIDRepository(db)
	optOutRepo := repository.NewOptOutRepository(db)
	rateRepo := repository.NewRateRepository(db)

	registry := provider.NewRegistry(gatewayRepo, cipher)
	drivers.RegisterBuiltins(registry)

	billingSvc := billing.NewService(accountRepo, rateRepo)
	lookupSvc := lookup.NewService(rateRepo)

	engine := dispatch.NewEngine(
		messageRepo, gatewayRepo, accountRepo, senderRepo, optOutRepo,
		registry, billingSvc, lookupSvc, render.New(),
	)

	messageHandler := handlers.NewMessageHandler(engine, messageRepo, dispatchQueue)
	webhookHandler := handlers.NewWebhookHandler(gatewayRepo, registry, engine)
	gatewayHandler := handlers.NewGatewayHandler(gatewayRepo, registry, cipher)
	healthHandler := handlers.NewHealthHandler(nil)

	g := s.Router.Group("/api/v1")
	handlers.RegisterMessageRoutes(g, messageHandler)
	handlers.RegisterGatewayRoutes(g, gatewayHandler)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/metrics", prom.Handler)

	hooks := s.Router.Group("/webhooks")
	handlers.RegisterWebhookRoutes(hooks, webhookHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file: " + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
