package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// addExportCommands adds the CSV export command.
func addExportCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExportCmd(app))
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export holdings to a CSV file",
		Long: `Export holdings to a CSV file.

The file uses a semicolon delimiter and comma decimal separators, with a
UTF-8 byte order mark, so spreadsheet applications with Spanish locale
settings open it correctly. Quotes are refreshed first when no snapshot
is held; a holding without a quote exports as "Sin datos".`,
		Example: `  stocks export
  stocks export -o my-portfolio.csv
  stocks export -o - > portfolio.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			if len(app.Controller.Quotes()) == 0 {
				if err := app.Controller.Refresh(cmd.Context()); err != nil {
					output.Error("Quote refresh failed: %v", err)
					return err
				}
			}

			path, _ := cmd.Flags().GetString("output")
			if path == "-" {
				if err := app.Controller.ExportCSV(cmd.OutOrStdout()); err != nil {
					output.Error("Export failed: %v", err)
					return err
				}
				return nil
			}

			if path == "" {
				path = fmt.Sprintf("portfolio_%s.csv", time.Now().Format("2006-01-02"))
			}

			f, err := os.Create(path)
			if err != nil {
				output.Error("Cannot create %s: %v", path, err)
				return err
			}
			defer f.Close()

			if err := app.Controller.ExportCSV(f); err != nil {
				output.Error("Export failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"file": path})
			}
			output.Success("✓ Exported %d holding(s) to %s", len(app.Controller.Holdings()), path)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "output file path (\"-\" for stdout)")

	return cmd
}
