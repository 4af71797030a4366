package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fakehospital/portal/internal/adapters/passhash"
	"github.com/fakehospital/portal/internal/bootstrap"
	"github.com/fakehospital/portal/internal/devseed"
)

type dbSeedOptions struct {
	Timeout     time.Duration
	Password    string
	AllowRemote bool
}

func parseDBSeedFlags(args []string) (dbSeedOptions, error) {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dbSeedOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for seeding to complete",
	)
	fs.StringVar(&opts.Password, "password", devseed.DefaultPassword, "Password for every seeded account")
	fs.BoolVar(
		&opts.AllowRemote,
		"allow-remote",
		false,
		"Permit running against database hosts that do not look local",
	)

	if err := fs.Parse(args); err != nil {
		return dbSeedOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbSeedOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBSeedFlags(args)
	if err != nil {
		return err
	}
	if guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, "seed demo accounts on the configured database"); guardErr != nil {
		return guardErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("ensuring database migrations are current")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}

		svcs := devseed.NewServices(db)
		svcs.Hasher = passhash.New(cmdCtx.Config.Auth.BcryptCost)
		res, seedErr := devseed.Seed(ctx, svcs, devseed.Options{Password: opts.Password, Logger: cmdCtx.Logger})
		if seedErr != nil {
			return fmt.Errorf("seed data: %w", seedErr)
		}
		for _, email := range res.Created {
			if err := fprintf(cmdCtx.Out, "created  %s\n", email); err != nil {
				return err
			}
		}
		for _, email := range res.Existing {
			if err := fprintf(cmdCtx.Out, "exists   %s\n", email); err != nil {
				return err
			}
		}
		return nil
	})
}
