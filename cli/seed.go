package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plcvisualizer/models"
	"plcvisualizer/services"
)

func newSeedCmd() *cobra.Command {
	var (
		adminUser     string
		adminPassword string
		withSamples   bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and the demo parameter set",
		Long: `Migrates the schema (PostgreSQL backend), ensures an admin account exists
and inserts the demo parameters that the sensor simulator publishes.
Existing accounts and parameters are left untouched.`,
		Example: `  plcvisualizer seed --admin-password s3cret-pass
  plcvisualizer seed --admin-user ops --admin-password s3cret-pass --samples=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminPassword == "" {
				return fmt.Errorf("--admin-password is required")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := ensureAdmin(ctx, a, adminUser, adminPassword); err != nil {
				return err
			}
			if withSamples {
				return seedParameters(ctx, a)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminUser, "admin-user", "admin", "admin username")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "admin password (min 8 characters)")
	cmd.Flags().BoolVar(&withSamples, "samples", true, "insert the demo parameter set")

	return cmd
}

func ensureAdmin(ctx context.Context, a *app, username, password string) error {
	if auth, ok := a.auth.(*services.AuthService); ok {
		created, err := auth.EnsureAdmin(ctx, username, password)
		if err != nil {
			return fmt.Errorf("failed to ensure admin: %w", err)
		}
		a.logger.Info("Admin account checked", zap.String("username", username), zap.Bool("created", created))
		return nil
	}

	users, err := a.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		if u.Username == username {
			a.logger.Info("Admin account checked", zap.String("username", username), zap.Bool("created", false))
			return nil
		}
	}
	if _, err := a.users.CreateUser(ctx, username, password, models.RoleAdmin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	a.logger.Info("Admin account checked", zap.String("username", username), zap.Bool("created", true))
	return nil
}

func seedParameters(ctx context.Context, a *app) error {
	existing, err := a.backend.FetchParameters(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch parameters: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.ID] = true
	}

	inserted := 0
	for _, p := range services.SampleParameters() {
		if have[p.ID] {
			continue
		}
		p := p
		if _, err := a.backend.CreateParameter(ctx, &p); err != nil {
			if errors.Is(err, models.ErrValidation) {
				a.logger.Warn("Skipping sample parameter", zap.String("id", p.ID), zap.Error(err))
				continue
			}
			return fmt.Errorf("failed to insert %s: %w", p.ID, err)
		}
		inserted++
	}
	a.logger.Info("Sample parameters seeded", zap.Int("inserted", inserted), zap.Int("existing", len(existing)))
	return nil
}
