package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// universeCmd prints the investable universe
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "투자 가능 종목 조회 (S1)",
	RunE:  runUniverse,
}

func init() {
	rootCmd.AddCommand(universeCmd)
}

func runUniverse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.universe.Build(ctx, time.Now().In(a.location))
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("Universe (%s): %d symbols", u.Source, u.Count()))
	for i := 0; i < len(u.Symbols); i += 10 {
		end := i + 10
		if end > len(u.Symbols) {
			end = len(u.Symbols)
		}
		fmt.Printf("  %s\n", strings.Join(u.Symbols[i:end], " "))
	}

	if len(u.Excluded) > 0 {
		excluded := make([]string, 0, len(u.Excluded))
		for s, reason := range u.Excluded {
			excluded = append(excluded, fmt.Sprintf("%s (%s)", s, reason))
		}
		sort.Strings(excluded)
		fmt.Printf("\n  Excluded: %s\n", strings.Join(excluded, ", "))
	}
	return nil
}
