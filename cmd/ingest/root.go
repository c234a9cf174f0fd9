package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"xetra_etl/internal/app/di"
	"xetra_etl/internal/feature/report/transport/http/dto"
	"xetra_etl/internal/platform/config"
	jwtmw "xetra_etl/internal/platform/jwt"
	"xetra_etl/internal/platform/logger"
)

const defaultConfigPath = "config.yaml"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "xetra-etl",
		Short:         "Daily Xetra OHLC report pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the YAML job configuration")

	root.AddCommand(runCmd(opts))
	root.AddCommand(planCmd(opts))
	root.AddCommand(ledgerCmd(opts))
	root.AddCommand(tokenCmd())
	return root
}

func runCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Extract pending dates, write the report and update the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *di.App) error {
				res, err := app.Report.Run(ctx)
				if res != nil {
					if werr := writeJSON(cmd.OutOrStdout(), dto.NewRunResponse(res, err)); werr != nil && err == nil {
						err = werr
					}
				}
				return err
			})
		},
	}
}

func planCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show which dates the next run would extract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *di.App) error {
				wm, err := app.Report.Plan(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), dto.NewWatermarkResponse(wm))
			})
		},
	}
}

func ledgerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "Print the ledger of processed source dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *di.App) error {
				entries, err := app.Ledger.Entries(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), dto.NewLedgerResponse(entries))
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for POST /runs (signed with JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			token, err := jwtmw.NewGenerator(env.JWTSecret, ttl).GenerateToken(subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// withApp loads the configuration, wires the application and runs fn.
func withApp(ctx context.Context, opts *rootOptions, fn func(context.Context, *di.App) error) error {
	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		return err
	}
	log, logCloser, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()

	app, err := di.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			log.Warn("failed to close resources", "error", cerr)
		}
	}()
	return fn(ctx, app)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
