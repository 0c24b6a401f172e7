package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
	out     io.Writer
}

// offline commands never open a database connection.
var offline = map[string]func(options) error{
	"create": func(o options) error {
		if o.name == "" {
			return errors.New("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err != nil {
			return err
		}
		fmt.Fprintln(o.out, "created", path)
		return nil
	},
	"validate": func(o options) error {
		if err := migrate.ValidateDir(o.dir); err != nil {
			return err
		}
		fmt.Fprintln(o.out, "migrations ok")
		return nil
	},
}

var online = map[string]func(context.Context, *migrate.Migrator, options) error{
	"up": func(ctx context.Context, m *migrate.Migrator, _ options) error {
		return m.Up(ctx)
	},
	"down": func(ctx context.Context, m *migrate.Migrator, _ options) error {
		return m.Down(ctx)
	},
	"status": func(ctx context.Context, m *migrate.Migrator, o options) error {
		return printStatus(ctx, m, o.out)
	},
	"version": func(ctx context.Context, m *migrate.Migrator, o options) error {
		if o.version == "" {
			current, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(o.out, current)
			return nil
		}
		target, err := migrate.ParseVersion(o.version)
		if err != nil {
			return err
		}
		return m.To(ctx, target)
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	opts := options{out: os.Stdout}
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version; empty prints the current one")
	flag.Parse()

	if err := run(*cmd, opts, logg); err != nil {
		logg.Error(context.Background(), "migrate.failed", err)
		os.Exit(1)
	}
}

func run(cmd string, opts options, logg *logger.Logger) error {
	if do, ok := offline[cmd]; ok {
		return do(opts)
	}
	do, ok := online[cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd %q", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	migrator, err := migrate.New(sqlDB, opts.dir, logg)
	if err != nil {
		return err
	}
	return do(ctx, migrator, opts)
}

func printStatus(ctx context.Context, m *migrate.Migrator, out io.Writer) error {
	statuses, err := m.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, filepath.Base(st.Source.Path))
	}
	return w.Flush()
}
