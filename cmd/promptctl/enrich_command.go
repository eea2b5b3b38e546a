package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"promptvault/internal/enrichclient"
)

func newEnrichCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Generate preview images for prompts that lack one and follow progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := ctx.requireToken()
			if err != nil {
				return err
			}
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			progress := newProgressPrinter(out, isTerminal(out))
			consumer := enrichclient.New(enrichclient.Options{
				BaseURL:    ctx.baseURL(),
				Token:      token,
				OnProgress: progress.update,
				OnNotice: func(n enrichclient.Notice) {
					progress.interrupt()
					fmt.Fprintf(errOut, "warning: %s (%s); %d generated, %d failed of %d\n", n.Message, n.Kind, n.Generated, n.Failed, n.Total)
				},
			})

			if err := consumer.Start(sigCtx); err != nil {
				return err
			}
			select {
			case <-consumer.Done():
			case <-sigCtx.Done():
			}
			if sigCtx.Err() != nil {
				consumer.Cancel()
				<-consumer.Done()
				progress.interrupt()
				fmt.Fprintln(out, "Stopped following; the server keeps generating in the background.")
				return context.Canceled
			}

			progress.interrupt()
			return reportRun(out, consumer.Snapshot())
		},
	}
}

func reportRun(out io.Writer, snap enrichclient.Snapshot) error {
	if snap.Message != "" {
		fmt.Fprintln(out, snap.Message)
	} else {
		fmt.Fprintf(out, "Generated %d, failed %d of %d\n", snap.Generated, snap.Failed, snap.Total)
	}
	if len(snap.Errors) > 0 {
		rows := make([][]string, 0, len(snap.Errors))
		for _, f := range snap.Errors {
			rows = append(rows, []string{f.Title, string(f.Kind), f.Message})
		}
		fmt.Fprintln(out, renderTable([]string{"Prompt", "Kind", "Error"}, rows, nil))
	}
	if snap.State == enrichclient.StateErrored {
		return fmt.Errorf("enrichment stopped: %s", snap.Fatal)
	}
	return nil
}

// progressPrinter redraws one status line on a terminal and prints a line
// per processed prompt otherwise.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	tty     bool
	last    int
	drawing bool
}

func newProgressPrinter(out io.Writer, tty bool) *progressPrinter {
	return &progressPrinter{out: out, tty: tty}
}

func (p *progressPrinter) update(snap enrichclient.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.Current == p.last || snap.Total == 0 {
		return
	}
	p.last = snap.Current
	line := fmt.Sprintf("%s %d/%d  ok %d  failed %d  %s",
		progressBar(snap.Current, snap.Total, 20), snap.Current, snap.Total, snap.Generated, snap.Failed, snap.CurrentPrompt)
	if p.tty {
		fmt.Fprintf(p.out, "\r\033[K%s", line)
		p.drawing = true
		return
	}
	fmt.Fprintln(p.out, line)
}

// interrupt ends the redrawn line so other output starts on a fresh one.
func (p *progressPrinter) interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawing {
		fmt.Fprintln(p.out)
		p.drawing = false
	}
}

func progressBar(current, total, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat("-", width) + "]"
	}
	filled := min(width, current*width/total)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "] " + strconv.Itoa(current*100/total) + "%"
}
