package cli

import (
	"bufio"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manumarlats408/stocks/internal/models"
	"github.com/manumarlats408/stocks/internal/portfolio"
	"github.com/manumarlats408/stocks/pkg/utils"
)

// addQuoteCommands adds quote refresh, symbol search, and history commands.
func addQuoteCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRefreshCmd(app))
	rootCmd.AddCommand(newSearchCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
}

func newRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch fresh quotes for all holdings",
		Long: `Fetch fresh quotes for all holdings.

Symbols are fetched in groups of up to 8 per provider call. A failure in
any group aborts the refresh and the previous quote snapshot is kept.
Price alerts are evaluated against the new prices after a successful
refresh.`,
		Example: `  stocks refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadController(cmd, output); err != nil {
				return err
			}

			holdings := app.Controller.Holdings()
			if len(holdings) == 0 {
				output.Info("No holdings to refresh.")
				return nil
			}

			if err := app.Controller.Refresh(cmd.Context()); err != nil {
				output.Error("Refresh failed: %v", err)
				return err
			}

			quotesMap := app.Controller.Quotes()
			summary := app.Controller.Summary()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"quotes":  quotesMap,
					"summary": summary,
					"alerts":  app.Controller.Alerts(),
				})
			}

			renderQuotes(output, quotesMap)
			output.Println()
			renderSummary(output, summary)

			alerts := app.Controller.Alerts()
			if n := countTriggered(alerts); n > 0 {
				output.Println()
				renderAlerts(output, alerts)
			}
			return nil
		},
	}
}

func renderQuotes(output *Output, quotesMap map[string]models.Quote) {
	table := NewTable(output, "SYMBOL", "NAME", "PRICE", "CHANGE", "CHANGE %", "MARKET")
	for _, q := range sortedQuotes(quotesMap) {
		marketLabel := "closed"
		if q.IsMarketOpen {
			marketLabel = "open"
		}
		table.AddRow(
			q.Symbol,
			truncate(q.Name, 24),
			utils.FormatUSD(q.Price),
			output.ColoredString(output.PnLColor(q.Change), utils.FormatUSD(q.Change)),
			output.ColoredString(output.PnLColor(q.ChangePercent), utils.FormatPercent(q.ChangePercent)),
			marketLabel,
		)
	}
	table.Render()
}

// sortedQuotes returns quotes in symbol order for stable output.
func sortedQuotes(quotesMap map[string]models.Quote) []models.Quote {
	symbols := make([]string, 0, len(quotesMap))
	for s := range quotesMap {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	out := make([]models.Quote, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, quotesMap[s])
	}
	return out
}

func countTriggered(alerts []models.PriceAlert) int {
	n := 0
	for _, a := range alerts {
		if a.Triggered {
			n++
		}
	}
	return n
}

func newSearchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for ticker symbols",
		Long: `Search for ticker symbols by name or prefix.

The query must be at least 2 characters. At most 10 matches are shown.

With --interactive, queries are read line by line from stdin and executed
after a short typing pause; an empty line exits.`,
		Example: `  stocks search apple
  stocks search MSF
  stocks search --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireController(output); err != nil {
				return err
			}

			interactive, _ := cmd.Flags().GetBool("interactive")
			if interactive {
				return runInteractiveSearch(cmd, app, output)
			}

			if len(args) == 0 {
				return cmd.Usage()
			}
			query := strings.Join(args, " ")
			matches, err := app.Controller.SearchSymbols(cmd.Context(), query)
			if err != nil {
				output.Error("Search failed: %v", err)
				return err
			}
			renderMatches(output, query, matches)
			return nil
		},
	}

	cmd.Flags().BoolP("interactive", "i", false, "read queries from stdin with debounce")

	return cmd
}

func renderMatches(output *Output, query string, matches []models.SymbolMatch) {
	if output.IsJSON() {
		output.JSON(matches)
		return
	}
	if len(matches) == 0 {
		output.Info("No matches for %q", query)
		return
	}
	table := NewTable(output, "SYMBOL", "NAME", "EXCHANGE")
	for _, m := range matches {
		table.AddRow(m.Symbol, truncate(m.Name, 40), m.Exchange)
	}
	table.Render()
}

// runInteractiveSearch reads queries line by line, debouncing so a quick
// correction replaces the pending search instead of spending a provider
// call on the typo.
func runInteractiveSearch(cmd *cobra.Command, app *App, output *Output) error {
	debouncer := portfolio.NewSearchDebouncer(portfolio.DefaultSearchDelay)
	defer debouncer.Cancel()

	output.Info("Type a query and press enter; empty line exits.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		output.Printf("search> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			return nil
		}
		scheduled := debouncer.Trigger(query, func(q string) {
			matches, err := app.Controller.SearchSymbols(cmd.Context(), q)
			if err != nil {
				output.Error("Search failed: %v", err)
				return
			}
			renderMatches(output, q, matches)
		})
		if !scheduled {
			output.Warning("Query must be at least 2 characters.")
		}
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past refresh snapshots",
		Long: `Show past refresh snapshots recorded in the local store.

Each successful refresh records the portfolio value at that moment, so
history doubles as a coarse performance log.`,
		Example: `  stocks history
  stocks history --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			limit, _ := cmd.Flags().GetInt("limit")
			snaps, err := app.Recorder.History(limit)
			if err != nil {
				output.Error("Failed to read history: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(snaps)
			}

			if len(snaps) == 0 {
				output.Info("No refresh history yet. Run 'stocks refresh' first.")
				return nil
			}

			table := NewTable(output, "TIME", "SYMBOLS", "API CALLS", "VALUE", "INVESTED", "GAIN/LOSS")
			for _, s := range snaps {
				table.AddRow(
					s.Timestamp.Format("02 Jan 15:04"),
					strings.Join(s.Symbols, ","),
					strconv.Itoa(s.APICalls),
					utils.FormatUSD(s.TotalValue),
					utils.FormatUSD(s.TotalInvested),
					output.ColoredString(output.PnLColor(s.GainLoss), utils.FormatUSD(s.GainLoss)),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum snapshots to show")

	return cmd
}
