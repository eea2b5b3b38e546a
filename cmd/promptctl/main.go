// Command promptctl previews and commits prompt imports, follows enrichment
// runs and signs development bearer tokens.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"promptvault/internal/infra"
)

func main() {
	infra.LoadDotEnv()
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
