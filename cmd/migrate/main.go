package main

import (
	"os"
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/config"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
)

func main() {
	if err := config.Load(argContainsEnvPath()); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()

	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}

	if err := pg.Migrate(writeConf, cfg.MigrationsDir); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "dir", cfg.MigrationsDir)
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
