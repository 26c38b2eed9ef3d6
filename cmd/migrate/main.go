package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/printfarm-backend/pkg/bootstrap"
	"github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|embedded|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk; empty uses the set compiled into this binary (create/validate default to "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create/validate/embedded never touch the database
	diskDir := *dir
	if diskDir == "" {
		diskDir = migrate.DefaultDir
	}
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(diskDir, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(diskDir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return

	case "embedded":
		versions, err := migrate.EmbeddedVersions()
		if err != nil {
			fail("read embedded migrations: %v", err)
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return

	case "version":
		if *version == "" {
			fail("missing -version for version command")
		}
	case "up", "down", "status":
	default:
		fail("unknown -cmd value: %s", *cmd)
	}

	rt, err := bootstrap.Load("migrate")
	if err == nil {
		err = run(rt, *cmd, *dir, *version)
	}
	rt.Exit(err)
}

func run(rt *bootstrap.Runtime, cmd, dir, version string) error {
	logg := rt.Logger
	source := dir
	if source == "" {
		source = "embedded"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    rt.Config.App.Env,
		"cmd":    cmd,
		"source": source,
	})

	dbClient, err := db.New(ctx, rt.Config.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	rt.OnClose("database", dbClient.Close)

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	dialect := migrate.DialectFor(rt.Config.DB.Driver)
	logg.Info(logg.WithField(ctx, "dialect", dialect), "migrate ready")

	if cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, dir, version)
	}
	return migrate.Run(ctx, sqlDB, dialect, dir, cmd)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
