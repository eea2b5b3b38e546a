package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type cliContext struct {
	server string
	token  string
}

func (c *cliContext) baseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.server), "/")
}

func (c *cliContext) requireToken() (string, error) {
	token := strings.TrimSpace(c.token)
	if token == "" {
		return "", errors.New("a bearer token is required (--token or PROMPTVAULT_TOKEN)")
	}
	return token, nil
}

func newRootCommand() *cobra.Command {
	ctx := &cliContext{}

	rootCmd := &cobra.Command{
		Use:           "promptctl",
		Short:         "Prompt library command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("PROMPTVAULT_URL")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&ctx.server, "server", server, "API base URL")
	rootCmd.PersistentFlags().StringVar(&ctx.token, "token", os.Getenv("PROMPTVAULT_TOKEN"), "Bearer token for the API")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newEnrichCommand(ctx))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}
