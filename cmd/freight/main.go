package main

import (
	"os"

	"github.com/wonny/freightcast/backend/cmd/freight/commands"
)

// main is the entry point for the freightcast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/freight [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
