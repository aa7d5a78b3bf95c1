package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CedricEugeni/MoMentor/internal/brain"
	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "런 생성/조회/확인",
	Long: `런(목표 포트폴리오 + 리밸런싱 계획)을 관리합니다.

Subcommands:
  generate  - 새 런 생성 (pending)
  list      - 최근 런 목록
  show      - 런 상세 (배분, cashflow/swap 주문, 확인 내역)
  confirm   - 실제 체결 포지션 확인

Example:
  go run ./cmd/momentor run generate --mode manual --capital 10000
  go run ./cmd/momentor run generate --mode manual --capital 5000 --currency EUR
  go run ./cmd/momentor run generate --mode monthly
  go run ./cmd/momentor run confirm 3 --file positions.yaml`,
}

var (
	runGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "새 런 생성",
		RunE:  runGenerate,
	}

	runListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 런 목록",
		RunE:  runList,
	}

	runShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "런 상세",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}

	runConfirmCmd = &cobra.Command{
		Use:   "confirm [run_id]",
		Short: "실제 체결 포지션 확인",
		Long: `실제 체결된 포지션을 YAML 파일로 제출합니다.

positions.yaml:
  positions:
    - symbol: VOO
      shares: 6
      avg_price: 500.12
    - symbol: NVDA
      shares: 17.5
      avg_price: 99.80
  cash: 12.34

허용 오차(기본 10%)를 넘으면 경고만 표시하고 런은 pending 으로 남습니다.
--force 로 그대로 확정할 수 있습니다.`,
		Args: cobra.ExactArgs(1),
		RunE: runConfirm,
	}
)

var (
	generateMode     string
	generateCapital  string
	generateCurrency string
	listLimit        int
	confirmFile      string
	confirmForce     bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runGenerateCmd)
	runCmd.AddCommand(runListCmd)
	runCmd.AddCommand(runShowCmd)
	runCmd.AddCommand(runConfirmCmd)

	runGenerateCmd.Flags().StringVar(&generateMode, "mode", "manual", "monthly | manual | test")
	runGenerateCmd.Flags().StringVar(&generateCapital, "capital", "", "투자 금액 (생략 시 마지막 확인 포트폴리오의 현재 가치)")
	runGenerateCmd.Flags().StringVar(&generateCurrency, "currency", "USD", "USD | EUR")

	runListCmd.Flags().IntVar(&listLimit, "limit", 20, "최대 개수")

	runConfirmCmd.Flags().StringVarP(&confirmFile, "file", "f", "", "포지션 YAML 파일")
	runConfirmCmd.Flags().BoolVar(&confirmForce, "force", false, "허용 오차/시세 누락 무시하고 확정")
	runConfirmCmd.MarkFlagRequired("file")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req := brain.GenerateRequest{Mode: generateMode, Currency: generateCurrency}
	if generateCapital != "" {
		capital, err := decimal.NewFromString(generateCapital)
		if err != nil {
			return fmt.Errorf("invalid --capital %q: %w", generateCapital, err)
		}
		req.Capital = &capital
	}

	fmt.Println("Generating run (fetching universe and price history)...")
	res, err := a.runs.Generate(ctx, req)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	printRun(res.Run)
	if res.Pipeline != nil {
		fmt.Println()
		for _, s := range res.Pipeline.Stages {
			fmt.Printf("  %-4s %4d → %-4d %6dms\n", s.Stage.ShortName(), s.InputCount, s.OutputCount, s.DurationMs)
		}
	}
	fmt.Println()
	PrintSuccess(fmt.Sprintf("Run #%d generated (pending confirmation)", res.Run.ID))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.runs.ListRuns(ctx, listLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		PrintInfo("No runs yet")
		return nil
	}

	widths := []int{6, 12, 8, 10, 16, 8, 6}
	PrintTableHeader([]string{"ID", "DATE", "TRIGGER", "STATUS", "CAPITAL", "INPUT", "MARKET"}, widths)
	for _, r := range list {
		market := "closed"
		if r.MarketOpen {
			market = "open"
		}
		PrintTableRow([]string{
			strconv.FormatInt(r.ID, 10),
			formatDate(r.RunDate),
			string(r.TriggerType),
			string(r.Status),
			usd(r.TotalCapital),
			r.InputCurrency,
			market,
		}, widths)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	details, err := a.runs.GetRun(ctx, id)
	if err != nil {
		return err
	}

	printRun(details.Run)
	if c := details.Confirmation; c != nil {
		PrintHeader(fmt.Sprintf("Confirmation (%s)", formatTime(c.ConfirmedAt)))
		widths := []int{8, 12, 12, 14}
		PrintTableHeader([]string{"SYMBOL", "SHARES", "AVG PRICE", "ENTRY"}, widths)
		for _, h := range c.Holdings {
			PrintTableRow([]string{h.Symbol, contracts.FormatShares(h.Shares), h.AvgPrice.StringFixed(2), usd(h.EntryValue())}, widths)
		}
		fmt.Printf("\n  Cash: %s\n", usd(c.Cash))
	}
	return nil
}

func runConfirm(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}

	sub, err := readSubmission(confirmFile)
	if err != nil {
		return err
	}
	if confirmForce {
		sub.Force = true
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.runs.Confirm(ctx, id, sub)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	switch outcome.Kind {
	case contracts.OutcomeConfirmed:
		msg := fmt.Sprintf("Run #%d confirmed", id)
		if outcome.Replayed {
			msg += " (already confirmed with the same positions)"
		}
		PrintSuccess(msg)
	case contracts.OutcomeWarning:
		PrintWarning(outcome.Message)
		PrintInfo("Re-run with --force to confirm anyway")
	case contracts.OutcomeMarketDataUnavailable:
		PrintWarning(outcome.Message)
		PrintInfo("Re-run with --force to confirm with your entered prices")
	}
	return nil
}

// readSubmission decodes a positions YAML file
func readSubmission(path string) (*contracts.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var sub contracts.Submission
	if err := yaml.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sub, nil
}

func parseRunID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", raw)
	}
	return id, nil
}

// printRun prints allocations and both move orderings
func printRun(r *contracts.Run) {
	PrintHeader(fmt.Sprintf("Run #%d  %s  [%s / %s]", r.ID, formatDate(r.RunDate), r.TriggerType, r.Status))
	fmt.Printf("  Capital   : %s", usd(r.TotalCapital))
	if r.InputCurrency != contracts.BaseCurrency {
		fmt.Printf("  (%s @ %s)", r.InputCurrency, r.FXRateToUSD.String())
	}
	fmt.Println()
	if r.MarketOpen {
		fmt.Println("  Market    : open (index above MA)")
	} else {
		fmt.Println("  Market    : closed → defensive")
	}

	PrintHeader("Target allocation")
	widths := []int{8, 8, 14, 16}
	PrintTableHeader([]string{"SYMBOL", "WEIGHT", "AMOUNT", "REASON"}, widths)
	for _, al := range r.Allocations {
		PrintTableRow([]string{al.Symbol, weight(al.Weight), usd(al.Amount), al.Reason}, widths)
	}

	PrintHeader("Cashflow order (sell first)")
	for _, m := range r.CashflowMoves {
		fmt.Printf("  %2d. %-4s %10s %-6s %14s\n", m.OrderIndex, m.Action, contracts.FormatShares(m.Shares), m.Symbol, usd(m.Value))
	}

	PrintHeader("Swap order")
	for _, m := range r.SwapMoves {
		fmt.Printf("  %2d. %-40s %14s\n", m.OrderIndex, m.Description(), usd(m.Value))
	}
	if !r.AllocationResidualCash.IsZero() {
		fmt.Printf("\n  Unallocated cash: %s\n", usd(r.AllocationResidualCash))
	}
}
