package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/app"
	"github.com/healthfin/healthfin/internal/auth"
	"github.com/healthfin/healthfin/internal/statement"
	"github.com/healthfin/healthfin/jobs"
)

// Deps opens the resources commands need. Each opener returns a cleanup
// function that must be called when the command finishes.
type Deps struct {
	Config     func() (*app.Config, error)
	Statements func(ctx context.Context) (Generator, func(), error)
	Reconciler func(ctx context.Context) (*jobs.StatementReconcileJob, func(), error)
	Jobs       func() (*JobsCLI, error)
}

// NewRootCmd builds the healthfinctl command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "healthfinctl",
		Short:         "Operate the healthfin reporting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		statementCmd(deps),
		reconcileCmd(deps),
		jobsCmd(deps),
		tokenCmd(deps),
	)
	return root
}

type filterFlags struct {
	scope       string
	scopeID     int64
	projectType string
	periodID    int64
	quarter     int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scope, "scope", "", "country, province, district or facility")
	cmd.Flags().Int64Var(&f.scopeID, "scope-id", 0, "ID of the province, district or facility")
	cmd.Flags().StringVar(&f.projectType, "project", "", "program, e.g. HIV, Malaria or TB")
	cmd.Flags().Int64Var(&f.periodID, "period", 0, "reporting period ID (default: active period)")
	cmd.Flags().IntVar(&f.quarter, "quarter", 0, "render a single quarter (1-4)")
}

func (f *filterFlags) filter() access.ScopeFilter {
	filter := access.ScopeFilter{Scope: access.Scope(strings.ToLower(f.scope)), ProjectType: f.projectType}
	if f.scopeID > 0 {
		filter.ScopeID = &f.scopeID
	}
	if f.periodID > 0 {
		filter.PeriodID = &f.periodID
	}
	if f.quarter > 0 {
		filter.Quarter = &f.quarter
	}
	return filter
}

func statementCmd(deps Deps) *cobra.Command {
	var (
		flags      filterFlags
		entityType string
		format     string
	)
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Render a budget or execution statement",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, cleanup, err := deps.Statements(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			req := statement.Request{Filter: flags.filter(), EntityType: entityType}
			return WriteStatement(cmd.Context(), cmd.OutOrStdout(), gen, req, format)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&entityType, "entity", "execution", "planning or execution")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "table or json")
	return cmd
}

func reconcileCmd(deps Deps) *cobra.Command {
	var payload reconcileFlags
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check statement identities synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, cleanup, err := deps.Reconciler(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			report, err := job.Run(cmd.Context(), payload.payload())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "period %d: %d statements, %d mismatches\n", report.Period.ID, report.Statements, len(report.Mismatches))
			for _, m := range report.Mismatches {
				fmt.Fprintf(out, "  %s %s district=%d facility=%d expected=%s actual=%s\n",
					m.Check, m.ProjectType, m.DistrictID, m.FacilityID, m.Expected, m.Actual)
			}
			return err
		},
	}
	payload.register(cmd)
	return cmd
}

type reconcileFlags struct {
	periodID     int64
	projectTypes []string
	districtIDs  []int64
}

func (f *reconcileFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.periodID, "period", 0, "reporting period ID (default: active period)")
	cmd.Flags().StringSliceVar(&f.projectTypes, "project", nil, "programs to check (default: all)")
	cmd.Flags().Int64SliceVar(&f.districtIDs, "district", nil, "districts to check (default: all)")
}

func (f *reconcileFlags) payload() jobs.StatementReconcilePayload {
	p := jobs.StatementReconcilePayload{ProjectTypes: f.projectTypes, DistrictIDs: f.districtIDs}
	if f.periodID > 0 {
		p.PeriodID = &f.periodID
	}
	return p
}

func jobsCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Manage background jobs"}

	var payload reconcileFlags
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a task, e.g. " + jobs.TaskStatementReconcile,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := deps.Jobs()
			if err != nil {
				return err
			}
			defer cli.Close()
			info, err := cli.Trigger(cmd.Context(), args[0], payload.payload())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	payload.register(trigger)

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := deps.Jobs()
			if err != nil {
				return err
			}
			defer cli.Close()
			s, err := cli.InspectQueue()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
	cmd.AddCommand(trigger, stats)
	return cmd
}

func tokenCmd(deps Deps) *cobra.Command {
	var (
		user access.UserContext
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.Config()
			if err != nil {
				return err
			}
			if strings.TrimSpace(user.UserID) == "" {
				return fmt.Errorf("--user is required")
			}
			token, err := auth.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer).Issue(user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.UserID, "user", "", "subject of the token")
	cmd.Flags().StringVar(&user.Role, "role", "", "role claim, e.g. admin")
	cmd.Flags().Int64SliceVar(&user.AccessibleFacilityIDs, "facilities", nil, "accessible facility IDs")
	cmd.Flags().StringSliceVar(&user.Permissions, "permissions", nil, "permission claims")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
