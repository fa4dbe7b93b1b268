package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/manumarlats408/stocks/internal/models"
	"github.com/manumarlats408/stocks/pkg/utils"
)

// addAlertCommands adds price alert commands.
func addAlertCommands(rootCmd *cobra.Command, app *App) {
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage price alerts",
		Long: `Manage price alerts.

An alert fires once: during a quote refresh, when the live price reaches
the target, it is marked triggered and never fires again. Create a new
alert to watch the same level a second time.`,
	}

	alertCmd.AddCommand(newAlertAddCmd(app))
	alertCmd.AddCommand(newAlertListCmd(app))
	alertCmd.AddCommand(newAlertEditCmd(app))
	alertCmd.AddCommand(newAlertRmCmd(app))

	rootCmd.AddCommand(alertCmd)
}

func newAlertAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <symbol> <above|below> <target-price>",
		Short: "Create a price alert",
		Example: `  stocks alert add AAPL above 200
  stocks alert add TSLA below 180,50`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			condition := models.AlertCondition(strings.ToLower(args[1]))
			target, err := parseAmount("target_price", args[2])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			alert, err := app.Controller.AddAlert(cmd.Context(), args[0], condition, target)
			if err != nil {
				output.Error("Failed to create alert: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(alert)
			}
			output.Success("✓ Alert set: %s %s %s",
				alert.Symbol, alert.Condition, utils.FormatUSD(alert.TargetPrice))
			return nil
		},
	}
}

func newAlertListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List price alerts",
		Example: `  stocks alert list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			alerts := app.Controller.Alerts()
			if output.IsJSON() {
				return output.JSON(alerts)
			}

			if len(alerts) == 0 {
				output.Info("No alerts. Create one with 'stocks alert add <symbol> above|below <price>'")
				return nil
			}

			renderAlerts(output, alerts)
			return nil
		},
	}
}

func renderAlerts(output *Output, alerts []models.PriceAlert) {
	triggered := 0
	table := NewTable(output, "ID", "SYMBOL", "CONDITION", "TARGET", "STATUS")
	for _, a := range alerts {
		status := output.Yellow("watching")
		if a.Triggered {
			status = output.Green("triggered")
			triggered++
		}
		table.AddRow(
			shortID(a.ID),
			a.Symbol,
			string(a.Condition),
			utils.FormatUSD(a.TargetPrice),
			status,
		)
	}
	table.Render()

	if triggered > 0 {
		output.Println()
		banner := color.New(color.FgBlack, color.BgYellow, color.Bold)
		banner.Fprintf(output.writer, " %d alert(s) have triggered ", triggered)
		fmt.Fprintln(output.writer)
		output.Dim("Triggered alerts stay silent until you remove or recreate them.")
	}
}

func newAlertEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an alert's condition or target price",
		Long: `Edit an alert's condition or target price.

Editing does not reset the triggered flag. A triggered alert stays
triggered; remove it and add a new one to re-arm the level.`,
		Example: `  stocks alert edit 9b2d --target 210
  stocks alert edit 9b2d --condition below`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			current, err := findAlert(app, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			condition := current.Condition
			target := current.TargetPrice

			if v, _ := cmd.Flags().GetString("condition"); v != "" {
				condition = models.AlertCondition(strings.ToLower(v))
			}
			if v, _ := cmd.Flags().GetString("target"); v != "" {
				target, err = parseAmount("target_price", v)
				if err != nil {
					output.Error("%v", err)
					return err
				}
			}

			alert, err := app.Controller.UpdateAlert(cmd.Context(), current.ID, condition, target)
			if err != nil {
				output.Error("Failed to update alert: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(alert)
			}
			output.Success("✓ Alert updated: %s %s %s",
				alert.Symbol, alert.Condition, utils.FormatUSD(alert.TargetPrice))
			return nil
		},
	}

	cmd.Flags().String("condition", "", "new condition (above or below)")
	cmd.Flags().String("target", "", "new target price")

	return cmd
}

func newAlertRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Short:   "Remove an alert",
		Example: `  stocks alert rm 9b2d`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			alert, err := findAlert(app, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if err := app.Controller.DeleteAlert(cmd.Context(), alert.ID); err != nil {
				output.Error("Failed to remove alert: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": alert.ID, "symbol": alert.Symbol})
			}
			output.Success("✓ Removed alert on %s", alert.Symbol)
			return nil
		},
	}
}

// findAlert resolves a full or prefix record id to an alert.
func findAlert(app *App, id string) (*models.PriceAlert, error) {
	var match *models.PriceAlert
	for _, a := range app.Controller.Alerts() {
		a := a
		if a.ID == id {
			return &a, nil
		}
		if strings.HasPrefix(a.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("id %q is ambiguous", id)
			}
			match = &a
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no alert with id %q", id)
	}
	return match, nil
}
