package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// portfolioCmd shows the live valuation of the confirmed portfolio
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "현재 포트폴리오 평가 (실시간 시세)",
	RunE:  runPortfolio,
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	val, err := a.runs.CurrentPortfolio(ctx)
	if err != nil {
		return err
	}
	if val == nil {
		PrintInfo("No confirmed portfolio yet")
		return nil
	}

	PrintHeader(fmt.Sprintf("Portfolio (run #%d, %s)", val.RunID, formatTime(val.ValuedAt.In(a.location))))
	widths := []int{8, 10, 12, 12, 14, 14, 9}
	PrintTableHeader([]string{"SYMBOL", "SHARES", "AVG", "LIVE", "VALUE", "PNL", "PNL %"}, widths)
	for _, p := range val.Positions {
		live := "n/a"
		if p.LivePrice != nil {
			live = p.LivePrice.StringFixed(2)
		}
		PrintTableRow([]string{
			p.Symbol,
			contracts.FormatShares(p.Shares),
			p.AvgPrice.StringFixed(2),
			live,
			usd(p.CurrentValue),
			usd(p.PnL),
			pct(p.PnLPercent),
		}, widths)
	}

	PrintSeparator()
	fmt.Printf("  Cash      : %s\n", usd(val.Cash))
	fmt.Printf("  Entry     : %s\n", usd(val.TotalEntry))
	fmt.Printf("  Current   : %s\n", usd(val.TotalCurrent))
	fmt.Printf("  PnL       : %s (%s)\n", usd(val.PnL), pct(val.PnLPercent))
	if !val.Complete() {
		PrintWarning(fmt.Sprintf("No live price for %v (valued at entry price)", val.MissingPrices))
	}
	return nil
}
