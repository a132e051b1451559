package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/rankreport/rankreport-backend/internal/config"
	"github.com/rankreport/rankreport-backend/internal/database"
	"github.com/rankreport/rankreport-backend/internal/migration"
	"github.com/rankreport/rankreport-backend/internal/repository"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", "", "config file path (default configs/config.<APP_ENV>.yaml)")
	dryRun := flag.Bool("dry-run", false, "show which billing cycles would be set without writing")
	skipSchema := flag.Bool("skip-schema", false, "skip AutoMigrate and only backfill")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	config.LoadDotEnv()
	pkglogger.Init()
	pkglogger.InitStructured("local")

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.Database, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if !*skipSchema {
		if *dryRun {
			pkglogger.Info("[dry-run] would AutoMigrate users, clients, reports")
		} else if err := migration.Run(db); err != nil {
			log.Fatalf("Schema migration failed: %v", err)
		} else {
			pkglogger.Info("Schema up to date")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := migration.BackfillBillingCycles(ctx, repository.NewUserRepository(db), cfg.Billing.CycleDays, *dryRun, time.Now().UTC())
	if err != nil {
		log.Fatalf("Billing cycle backfill failed: %v", err)
	}
	pkglogger.Info("Backfill done: scanned=%d updated=%d dry_run=%v", result.Scanned, result.Updated, result.DryRun)
}
