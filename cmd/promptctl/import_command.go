package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"promptvault/internal/domain"
	"promptvault/internal/promptimport"
)

type importReply struct {
	Strategy promptimport.StrategyName `json:"strategy"`
	Drafts   []domain.Draft            `json:"drafts"`
	Prompts  []domain.Prompt           `json:"prompts"`
}

func newImportCommand(ctx *cliContext) *cobra.Command {
	var commit bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Split pasted prompts into drafts; reads stdin without a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readImportInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("nothing to import")
			}

			out := cmd.OutOrStdout()
			if !commit {
				res := promptimport.Import(text)
				fmt.Fprintf(out, "Strategy: %s (%d drafts)\n", res.Strategy, len(res.Drafts))
				fmt.Fprintln(out, renderDrafts(res.Drafts))
				return nil
			}

			token, err := ctx.requireToken()
			if err != nil {
				return err
			}
			reply, err := commitImport(cmd.Context(), ctx.baseURL(), token, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Strategy: %s (%d saved)\n", reply.Strategy, len(reply.Prompts))
			fmt.Fprintln(out, renderSaved(reply.Prompts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "Save the drafts through the API instead of only previewing")
	return cmd
}

func readImportInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(raw), nil
}

func commitImport(ctx context.Context, baseURL, token, text string) (*importReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/prompts/import?commit=true", bytes.NewBufferString(text))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("import request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		return nil, fmt.Errorf("import failed: status %d: %s", resp.StatusCode, apiErr.Message)
	}
	var reply importReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode import reply: %w", err)
	}
	return &reply, nil
}

func renderDrafts(drafts []domain.Draft) string {
	rows := make([][]string, 0, len(drafts))
	for i, d := range drafts {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			d.Title,
			d.Category,
			string(d.Complexity),
			d.SuggestedTitle,
			strings.Join(d.Tags, ", "),
		})
	}
	return renderTable(
		[]string{"#", "Title", "Category", "Complexity", "Suggested", "Tags"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func renderSaved(prompts []domain.Prompt) string {
	rows := make([][]string, 0, len(prompts))
	for _, p := range prompts {
		rows = append(rows, []string{p.ID, p.Title, p.Category})
	}
	return renderTable([]string{"ID", "Title", "Category"}, rows, nil)
}
