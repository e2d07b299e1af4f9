// Command audit-retention runs one audit log retention purge and exits. It is meant for
// cron when the in-process retention worker is disabled.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/bootstrap"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/config"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/service"
)

func main() {
	days := flag.Int("days", 0, "Override AUDIT_RETENTION_DAYS")
	actorID := flag.Uint("actor", 0, "Override AUDIT_RETENTION_ACTOR_ID")
	timeout := flag.Duration("timeout", 5*time.Minute, "Give up after this long")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *days > 0 {
		cfg.AuditRetentionDays = *days
	}
	if *actorID > 0 {
		cfg.AuditRetentionActorID = *actorID
	}
	if cfg.AuditRetention() <= 0 {
		log.Println("Audit retention disabled (AUDIT_RETENTION_DAYS=0); nothing to do")
		return
	}
	if cfg.AuditRetentionActorID == 0 {
		log.Fatal("AUDIT_RETENTION_ACTOR_ID must name an account holding admin.audit.purge")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	store := repository.NewStore(db)
	authz := service.NewAuthorizer(store)
	audit := service.NewAuditService(store, authz, service.NewAuditRecorder())
	job := service.NewRetentionJob(audit, cfg.AuditRetentionActorID, cfg.AuditRetention(), cfg.AuditRetentionInterval)

	res, err := job.RunOnce(ctx)
	if err != nil {
		log.Fatalf("Audit retention purge failed: %v", err)
	}
	log.Printf("Removed %d audit entries older than %s (purge recorded as entry %d)",
		res.Removed, res.Cutoff.Format(time.RFC3339), res.EntryID)
}
