package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/billing"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/config"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/dispatch"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/lookup"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider/drivers"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/queue"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/render"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/repository"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/prom"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/redis"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/secrets"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/worker"
)

func main() {
	if err := config.Load(argContainsEnvPath()); err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

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
		ClientName: "worker",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
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

	engine := dispatch.NewEngine(
		messageRepo, gatewayRepo, accountRepo, senderRepo, optOutRepo,
		registry, billing.NewService(accountRepo, rateRepo),
		lookup.NewService(rateRepo), render.New(),
	)

	consumerName := cfg.QueueConsumerName
	if host, err := os.Hostname(); err == nil {
		consumerName = consumerName + "-" + host
	}

	dispatchQueue, err := queue.New(redisAdap, queue.Config{
		Stream:            cfg.QueueName,
		Group:             cfg.QueueConsumerGroup,
		Consumer:          consumerName,
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

	pool := worker.NewPool(cfg.WorkerBufferSize, cfg.WorkerCount, nil)
	pool.SetWorker(func(workerIndex int, raw interface{}) {
		job, ok := raw.(*queue.Job)
		if !ok {
			return
		}
		processJob(engine, job)
	})
	go func() {
		// Start blocks until the pool exits
		_ = pool.Start()
	}()

	err = dispatchQueue.Consume(func(ctx context.Context, job *queue.Job) error {
		pool.Enqueue(job)
		return queue.ErrAsync
	})
	if err != nil {
		logger.Error("failed starting queue consumer", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to register metrics", "error", err)
		return
	}
	go func() {
		if err := prom.ListenAndServe(":9100", "/metrics"); err != nil {
			logger.Error("metrics listener failed", "error", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	if err := dispatchQueue.Stop(10 * time.Second); err != nil {
		logger.Error("queue shutdown timed out", "error", err)
	}
	pool.Exit()
}

// processJob advances one queued message. Rows already past queued were
// handled by another worker; their jobs just get acked.
func processJob(engine *dispatch.Engine, job *queue.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := engine.ProcessMessage(ctx, job.MessageID)
	switch {
	case err == nil, errors.Is(err, dispatch.ErrNotQueued):
		if ackErr := job.Ack(); ackErr != nil {
			logger.Error("job ack failed", "message_id", job.MessageID, "error", ackErr)
		}
	case errors.Is(err, dispatch.ErrProviderRejected), errors.Is(err, dispatch.ErrProviderUnavailable):
		// outcome recorded on the row; an explicit Retry re-queues it
		if ackErr := job.Ack(); ackErr != nil {
			logger.Error("job ack failed", "message_id", job.MessageID, "error", ackErr)
		}
	default:
		// infrastructure failure before the row changed state: leave the
		// job pending so the reclaim loop redelivers it
		logger.Warn("dispatch attempt failed",
			"message_id", job.MessageID, "attempt", job.Attempt, "error", err)
	}
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
