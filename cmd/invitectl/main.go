package main

import (
	"fmt"
	"os"

	"github.com/aussiebroadwan/propinvite/internal/invitectl"
)

func main() {
	if err := invitectl.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(invitectl.ExitCode(err))
	}
}
