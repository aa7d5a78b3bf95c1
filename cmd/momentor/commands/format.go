package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintHeader prints a titled block header
func PrintHeader(title string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for _, w := range widths {
		totalWidth += w + 2
	}
	fmt.Println(strings.Repeat("─", totalWidth-2))
}

// PrintTableRow prints one table row
func PrintTableRow(cells []string, widths []int) {
	for i, cell := range cells {
		fmt.Printf("%-*s", widths[i], cell)
		if i < len(cells)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// usd renders a base-currency amount
func usd(d decimal.Decimal) string {
	return contracts.FormatMoney(d, contracts.BaseCurrency)
}

// pct renders a percentage with sign
func pct(d decimal.Decimal) string {
	return fmt.Sprintf("%+.2f%%", d.InexactFloat64())
}

// weight renders a 0-1 weight as a percentage
func weight(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
