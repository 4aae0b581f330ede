package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plcvisualizer/export"
	"plcvisualizer/models"
)

func newExportCmd() *cobra.Command {
	var (
		since  time.Duration
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <parameter-id>",
		Short: "Write the recorded history of a parameter to an XLSX file",
		Example: `  plcvisualizer export oven-temperature
  plcvisualizer export oven-temperature --since 168h --output oven.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			params, err := a.backend.FetchParameters(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch parameters: %w", err)
			}
			param, ok := findParameter(params, args[0])
			if !ok {
				return fmt.Errorf("parameter %s: %w", args[0], models.ErrNotFound)
			}

			now := time.Now()
			readings, err := a.backend.GetReadings(ctx, param.ID, now.Add(-since), now, limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			buf, err := export.ExportXLSX([]models.Parameter{param}, readings)
			if err != nil {
				return err
			}
			if output == "" {
				output = export.FileName(param, now)
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			a.logger.Info("History exported",
				zap.String("parameter", param.Name),
				zap.Int("readings", len(readings)),
				zap.String("file", output),
			)
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to export")
	cmd.Flags().IntVar(&limit, "limit", 10000, "maximum number of readings")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <name>-history-<time>.xlsx)")

	return cmd
}

// findParameter matches by id first, then by name
func findParameter(params []models.Parameter, key string) (models.Parameter, bool) {
	for _, p := range params {
		if p.ID == key {
			return p, true
		}
	}
	for _, p := range params {
		if p.Name == key {
			return p, true
		}
	}
	return models.Parameter{}, false
}
