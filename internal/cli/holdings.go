package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manumarlats408/stocks/internal/models"
	"github.com/manumarlats408/stocks/internal/portfolio"
	"github.com/manumarlats408/stocks/pkg/utils"
)

// addHoldingCommands adds portfolio holding commands.
func addHoldingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAddCmd(app))
	rootCmd.AddCommand(newListCmd(app))
	rootCmd.AddCommand(newEditCmd(app))
	rootCmd.AddCommand(newRmCmd(app))
}

func newAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol> <shares> <purchase-price>",
		Short: "Add a holding to the portfolio",
		Long: `Add a holding to the portfolio.

Shares and purchase price accept both "." and "," as decimal separator.
The symbol is uppercased before it is stored.`,
		Example: `  stocks add AAPL 10 150.25
  stocks add tsla 2,5 220,10 --name "Tesla Inc"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			shares, err := parseAmount("shares", args[1])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			price, err := parseAmount("purchase_price", args[2])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			name, _ := cmd.Flags().GetString("name")

			holding, err := app.Controller.AddHolding(cmd.Context(), args[0], name, shares, price)
			if err != nil {
				output.Error("Failed to add holding: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(holding)
			}
			output.Success("✓ Added %s: %s shares at %s",
				holding.Symbol,
				utils.FormatCommaDecimal(holding.Shares, 2),
				utils.FormatUSD(holding.PurchasePrice))
			return nil
		},
	}

	cmd.Flags().String("name", "", "company name (defaults to the symbol)")

	return cmd
}

func newListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List holdings with current prices",
		Long: `List holdings with current prices and valuation.

Pass --refresh to fetch fresh quotes before listing. Without it, the last
quote snapshot held in memory is used, which is empty at process start.`,
		Example: `  stocks list
  stocks list --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			refresh, _ := cmd.Flags().GetBool("refresh")
			if refresh {
				if err := app.Controller.Refresh(cmd.Context()); err != nil {
					output.Error("Quote refresh failed: %v", err)
					return err
				}
			}

			holdings := app.Controller.Holdings()
			quotesMap := app.Controller.Quotes()
			summary := app.Controller.Summary()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"holdings": holdings,
					"quotes":   quotesMap,
					"summary":  summary,
				})
			}

			if len(holdings) == 0 {
				output.Info("No holdings yet. Add one with 'stocks add <symbol> <shares> <price>'")
				return nil
			}

			renderHoldings(output, holdings, quotesMap)
			output.Println()
			renderSummary(output, summary)

			if last := app.Controller.LastUpdate(); !last.IsZero() {
				output.Println()
				output.Dim("Prices as of %s", last.Format("02 Jan 2006 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().Bool("refresh", false, "fetch fresh quotes before listing")

	return cmd
}

func renderHoldings(output *Output, holdings []models.Holding, quotesMap map[string]models.Quote) {
	table := NewTable(output, "ID", "SYMBOL", "NAME", "SHARES", "BUY PRICE", "PRICE", "CHANGE %", "VALUE", "GAIN/LOSS", "WEIGHT")
	for _, h := range holdings {
		price := "Sin datos"
		change := "-"
		value := "-"
		gain := "-"
		weight := "-"
		if q, ok := quotesMap[h.Symbol]; ok {
			price = utils.FormatUSD(q.Price)
			change = output.ColoredString(output.PnLColor(q.ChangePercent), utils.FormatPercent(q.ChangePercent))
		}
		if v, ok := portfolio.HoldingValue(h, quotesMap); ok {
			value = utils.FormatUSD(v)
		}
		if g, ok := portfolio.HoldingGain(h, quotesMap); ok {
			gain = output.ColoredString(output.PnLColor(g), utils.FormatUSD(g))
		}
		if s, ok := portfolio.DiversificationShare(h, holdings, quotesMap); ok {
			weight = utils.FormatCommaDecimal(s, 1) + "%"
		}
		table.AddRow(
			shortID(h.ID),
			h.Symbol,
			truncate(h.Name, 24),
			utils.FormatCommaDecimal(h.Shares, 2),
			utils.FormatUSD(h.PurchasePrice),
			price,
			change,
			value,
			gain,
			weight,
		)
	}
	table.Render()
}

func renderSummary(output *Output, s portfolio.Summary) {
	output.Bold("Portfolio Summary")
	output.Printf("  Holdings:       %d\n", s.HoldingCount)
	output.Printf("  Total Value:    %s\n", utils.FormatUSD(s.TotalValue))
	output.Printf("  Total Invested: %s\n", utils.FormatUSD(s.TotalInvested))
	gain := fmt.Sprintf("%s (%s)", utils.FormatUSD(s.GainLoss), utils.FormatPercent(s.GainLossPercent))
	output.Printf("  Gain/Loss:      %s\n", output.ColoredString(output.PnLColor(s.GainLoss), gain))
	output.Printf("  Refresh cost:   %d API call(s)\n", s.APICallEstimate)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a holding",
		Long: `Edit a holding's symbol, name, share count, or purchase price.

Only the flags you pass are changed. The id may be the full record id or
its first characters, as shown by 'stocks list'.`,
		Example: `  stocks edit 3f1c9a2e --shares 15
  stocks edit 3f1c9a2e --symbol MSFT --price 310,50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			current, err := findHolding(app, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			symbol := current.Symbol
			name := current.Name
			shares := current.Shares
			price := current.PurchasePrice

			if v, _ := cmd.Flags().GetString("symbol"); v != "" {
				symbol = v
			}
			if v, _ := cmd.Flags().GetString("name"); v != "" {
				name = v
			}
			if v, _ := cmd.Flags().GetString("shares"); v != "" {
				shares, err = parseAmount("shares", v)
				if err != nil {
					output.Error("%v", err)
					return err
				}
			}
			if v, _ := cmd.Flags().GetString("price"); v != "" {
				price, err = parseAmount("purchase_price", v)
				if err != nil {
					output.Error("%v", err)
					return err
				}
			}

			holding, err := app.Controller.UpdateHolding(cmd.Context(), current.ID, symbol, name, shares, price)
			if err != nil {
				output.Error("Failed to update holding: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(holding)
			}
			output.Success("✓ Updated %s", holding.Symbol)
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "new ticker symbol")
	cmd.Flags().String("name", "", "new company name")
	cmd.Flags().String("shares", "", "new share count")
	cmd.Flags().String("price", "", "new purchase price")

	return cmd
}

func newRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Short:   "Remove a holding",
		Example: `  stocks rm 3f1c9a2e`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			holding, err := findHolding(app, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if err := app.Controller.DeleteHolding(cmd.Context(), holding.ID); err != nil {
				output.Error("Failed to remove holding: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"removed":   holding.ID,
					"symbol":    holding.Symbol,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			output.Success("✓ Removed %s", holding.Symbol)
			return nil
		},
	}
}

// findHolding resolves a full or prefix record id to a holding.
func findHolding(app *App, id string) (*models.Holding, error) {
	var match *models.Holding
	for _, h := range app.Controller.Holdings() {
		h := h
		if h.ID == id {
			return &h, nil
		}
		if strings.HasPrefix(h.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("id %q is ambiguous", id)
			}
			match = &h
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no holding with id %q", id)
	}
	return match, nil
}
