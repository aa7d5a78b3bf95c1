package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "momentor",
	Short: "MoMentor - 모멘텀/변동성 월간 리밸런싱",
	Long: `MoMentor Unified CLI

S&P 500 ∩ Nasdaq-100 종목을 모멘텀/변동성 점수로 순위화하고
VOO 30% + 상위 4종목 70% 목표 포트폴리오와 리밸런싱 계획을 생성합니다.

Usage:
  go run ./cmd/momentor [command]

Examples:
  go run ./cmd/momentor api
  go run ./cmd/momentor run generate --mode manual --capital 10000
  go run ./cmd/momentor run confirm 1 --file positions.yaml
  go run ./cmd/momentor portfolio`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: STRATEGY_CONFIG or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
