package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lms-progress-api/internal/app"
	"github.com/noah-isme/lms-progress-api/internal/config"
	"github.com/noah-isme/lms-progress-api/internal/dto"
)

// opener is swapped in tests to avoid dialing real services.
type opener func(ctx context.Context, cfg config.Config) (*app.Container, error)

func defaultOpener(ctx context.Context, cfg config.Config) (*app.Container, error) {
	return app.Open(ctx, cfg, app.NewLogger(cfg, nil))
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(defaultOpener)
}

func buildRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Operator tooling for the LMS progress service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("database-url", "", "Postgres DSN (overrides LMS_DATABASE_URL)")
	root.PersistentFlags().String("redis-url", "", "Redis URL (overrides LMS_REDIS_URL)")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Overall command timeout")

	root.AddCommand(newMigrateCmd(open))
	root.AddCommand(newRecomputeCmd(open))

	return root
}

// resolveConfig loads the environment configuration and applies flag overrides.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadWithoutSecret()
	if err != nil {
		return config.Config{}, err
	}

	if dsn, _ := cmd.Flags().GetString("database-url"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	if url, _ := cmd.Flags().GetString("redis-url"); url != "" {
		cfg.RedisURL = url
	}

	return cfg, nil
}

func withContainer(cmd *cobra.Command, open opener, run func(ctx context.Context, container *app.Container) error) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	container, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	return run(ctx, container)
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the progress tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, open, func(ctx context.Context, container *app.Container) error {
				if err := container.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newRecomputeCmd(open opener) *cobra.Command {
	var req dto.RecomputeRequest

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild chapter, course and enrollment progress for one student and course",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, open, func(ctx context.Context, container *app.Container) error {
				detail, err := container.Progress.Recompute(ctx, req)
				if err != nil {
					return fmt.Errorf("recompute student %d course %d: %w", req.Student, req.Course, err)
				}
				return printJSON(cmd.OutOrStdout(), detail)
			})
		},
	}

	cmd.Flags().UintVar(&req.Student, "student", 0, "Student id")
	cmd.Flags().UintVar(&req.Course, "course", 0, "Course id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("course")

	return cmd
}

func printJSON(out io.Writer, value interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
