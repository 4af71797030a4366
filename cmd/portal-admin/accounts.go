package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fakehospital/portal/internal/adapters/passhash"
	"github.com/fakehospital/portal/internal/data"
	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
	httpx "github.com/fakehospital/portal/internal/http"
	"github.com/fakehospital/portal/internal/service"
)

type createAdminOptions struct {
	Email   string
	First   string
	Last    string
	Timeout time.Duration
}

func parseCreateAdminFlags(args []string) (createAdminOptions, error) {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := createAdminOptions{Timeout: time.Minute}
	fs.StringVar(&opts.Email, "email", "", "Email address of the new admin (required)")
	fs.StringVar(&opts.First, "first", "", "First name (required)")
	fs.StringVar(&opts.Last, "last", "", "Last name (required)")
	fs.DurationVar(&opts.Timeout, "timeout", time.Minute, "Maximum duration to wait for the database")

	if err := fs.Parse(args); err != nil {
		return createAdminOptions{}, err
	}

	var missing []string
	if strings.TrimSpace(opts.Email) == "" {
		missing = append(missing, "--email")
	}
	if strings.TrimSpace(opts.First) == "" {
		missing = append(missing, "--first")
	}
	if strings.TrimSpace(opts.Last) == "" {
		missing = append(missing, "--last")
	}
	if len(missing) > 0 {
		return createAdminOptions{}, fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	if opts.Timeout <= 0 {
		return createAdminOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

// provisioner is the slice of StaffService create-admin uses.
type provisioner interface {
	Provision(ctx context.Context, in service.StaffInput) (*service.ProvisionResult, error)
}

func runCreateAdmin(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateAdminFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		staff, svcErr := service.NewStaffService(service.StaffServiceOptions{
			Identities: data.NewIdentityRepo(db),
			Hasher:     passhash.New(cmdCtx.Config.Auth.BcryptCost),
			Config:     service.StaffConfig{Obs: service.Observability{Logger: cmdCtx.Logger}},
		})
		if svcErr != nil {
			return svcErr
		}
		return createAdmin(ctx, cmdCtx.Out, staff, opts)
	})
}

// createAdminFlags maps provisioning field errors back to the flag that set them.
var createAdminFlags = map[string]string{
	"firstName": "first",
	"lastName":  "last",
	"email":     "email",
}

func createAdmin(ctx context.Context, w io.Writer, staff provisioner, opts createAdminOptions) error {
	res, err := staff.Provision(ctx, service.StaffInput{
		FirstName: opts.First,
		LastName:  opts.Last,
		Email:     opts.Email,
		Role:      domainauth.RoleAdmin,
	})
	if err != nil {
		if flagName, ok := createAdminFlags[apperrors.GetField(err)]; ok {
			return fmt.Errorf("create admin: --%s: %w", flagName, err)
		}
		return fmt.Errorf("create admin: %w", err)
	}
	if err := fprintf(w, "Created admin %s (%s)\n", res.Identity.Email, res.Identity.ID); err != nil {
		return err
	}
	if err := fprintf(w, "Temporary credential: %s\n", res.Credential); err != nil {
		return err
	}
	return fprintf(w, "It will not be shown again. Share it with the account holder securely.\n")
}

func runRoles(cmdCtx *commandContext, _ []string) error {
	return printRoles(cmdCtx.Out, httpx.DefaultAuthorizationTable())
}

func printRoles(w io.Writer, table *httpx.AuthorizationTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := fprintf(tw, "PREFIX\tROLE\tHOME\n"); err != nil {
		return fmt.Errorf("print roles header: %w", err)
	}
	for _, rule := range table.Rules() {
		if err := fprintf(tw, "%s\t%s\t%s\n", rule.Prefix, rule.Role, domainauth.DestinationFor(rule.Role)); err != nil {
			return fmt.Errorf("print role rule: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush roles table: %w", err)
	}
	return fprintf(w, "\nPaths without a rule are public. The longest matching prefix wins.\n")
}
