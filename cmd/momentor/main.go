package main

import (
	"os"

	"github.com/CedricEugeni/MoMentor/cmd/momentor/commands"
)

// main is the entry point for the MoMentor CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/momentor [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
