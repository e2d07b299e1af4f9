// Command migrate manages the comments schema and the permission catalogue.
//
//	migrate up            apply pending SQL migrations, then sync the catalogue
//	migrate auto          AutoMigrate the models (no triggers), then sync the catalogue
//	migrate status        print the schema plan, pending migrations and missing guards
//	migrate down <v>      roll back migration v
//	migrate catalogue     insert missing permissions, groups and initial grants
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/config"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/database"

	"gorm.io/gorm"
)

type command struct {
	summary string
	run     func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error
}

var commands = map[string]command{
	"up":        {"apply SQL migrations and sync the catalogue", migrateUp},
	"auto":      {"AutoMigrate models and sync the catalogue", migrateAuto},
	"status":    {"show schema plan and pending migrations", migrateStatus},
	"down":      {"roll back one migration version", migrateDown},
	"catalogue": {"sync permissions and groups", func(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error { return syncCatalogue(ctx, db) }},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: migrate <command> [args]\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-10s %s\n", name, commands[name].summary)
	}
	return fmt.Errorf("%s", b.String())
}

func run() error {
	flag.Parse()
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(flag.Arg(0)))]
	if !ok {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	return cmd.run(context.Background(), db, cfg, flag.Args()[1:])
}

func migrateUp(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	log.Println("sql migrations applied")
	return syncCatalogue(ctx, db)
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto schema apply failed: %w", err)
	}
	log.Println("automigrations applied")
	return syncCatalogue(ctx, db)
}

func migrateStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		log.Printf("pending: %s", m)
	}
	for _, guard := range status.MissingGuards {
		log.Printf("missing guard: %s", guard)
	}
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("rolled back migration %d", version)
	return nil
}

// syncCatalogue inserts missing permissions, groups and their initial grants.
func syncCatalogue(ctx context.Context, db *gorm.DB) error {
	res, err := database.SyncCatalogue(ctx, db)
	if err != nil {
		return fmt.Errorf("catalogue sync failed: %w", err)
	}
	log.Printf("catalogue synced: %d permissions, %d groups, %d grants created",
		len(res.PermissionsCreated), len(res.GroupsCreated), res.GrantsCreated)
	return nil
}
