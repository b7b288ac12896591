package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noticeflow/internal/batch"
	"noticeflow/internal/eligibility"
	"noticeflow/internal/engine"
	"noticeflow/internal/notice"
	"noticeflow/internal/platform/config"
	"noticeflow/internal/platform/httpserver"
	"noticeflow/internal/platform/logger"
	"noticeflow/internal/platform/metrics"
	"noticeflow/internal/platform/postgres"
	platformredis "noticeflow/internal/platform/redis"
	"noticeflow/internal/refdata"
	"noticeflow/internal/registry"
	"noticeflow/internal/suspension"
	suspensionhandler "noticeflow/internal/suspension/handler"
	"noticeflow/internal/syncer"
	"noticeflow/internal/tracking"
	httptransport "noticeflow/internal/transport/http"
)

// main wires the batch scheduler, the dirty-sync sweeper and the ops HTTP
// surface. Business rules live in the internal services.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "development").Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.Environment)

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open primary store: %v", err)
	}
	defer db.Close()

	replica, err := platformredis.New(cfg.ReplicaRedisURL)
	if err != nil {
		log.Fatalf("open replica store: %v", err)
	}
	if replica == nil {
		log.Warn("replica not configured, notices will accumulate dirty sync flags")
	} else {
		defer replica.Close()
	}

	m := metrics.New()
	notices := notice.NewPostgres(db)
	trackings := tracking.NewPostgres(db)
	history := suspension.NewPostgresHistory(db)
	refdataSource := refdata.NewPostgresLoader(db, 5*time.Minute)

	suspender := suspension.NewService(notices, history, refdataSource, m, log)
	eng := engine.New(notices, trackings, refdataSource, suspender, m, log)
	gate := eligibility.NewGate(m, log)

	var target syncer.Target
	if replica != nil {
		target = syncer.NewRedisTarget(replica)
	}
	syncService := syncer.New(notices, target, m, log)
	sweeper := syncer.NewSweeper(notices, syncService, 500, log)

	// The registry collaborator is deployed separately; until its endpoint is
	// wired the contact source runs enrichment-less and the eligibility gate
	// holds mandatory identity types.
	contacts := batch.NewRegistryContactSource(registry.NewRetrying(noopProvider{}, log), nil)

	driver := batch.NewDriver(notices, contacts, gate, eng, suspender, syncService, cfg.BatchWorkers, m, log)
	scheduler := batch.NewScheduler(driver, sweeper, nil, log)
	if err := scheduler.Start(cfg.CronStageRun, cfg.CronDirtySweep); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}

	suspHandler := suspensionhandler.New(suspender, log)
	var health httptransport.HealthChecker
	if replica != nil {
		health = replica
	}
	router := httptransport.NewRouter(suspHandler, health, log)
	srv := httpserver.New(cfg.OpsAddr, router)

	log.Infof("noticed listening on %s", cfg.OpsAddr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ops server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

// noopProvider stands in until the registry collaborator endpoint is wired.
type noopProvider struct{}

func (noopProvider) Lookup(context.Context, registry.Key) (*registry.ContactRecord, error) {
	return nil, nil
}
