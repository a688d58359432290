package main

import (
	"context"
	"fmt"
	"html"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"FundPulse/internal/analysis"
	"FundPulse/internal/model"
	"FundPulse/internal/notifier"
)

func runCmd() *cobra.Command {
	var (
		window      string
		codes       []string
		noNarrative bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one analysis and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			req := analysis.Request{
				Codes:    a.holdings.Codes(),
				Window:   a.holdings.Window(),
				Narrate:  !noNarrative,
				Holdings: a.holdings.Holdings(),
			}
			if len(codes) > 0 {
				req.Codes = codes
			}
			if window != "" {
				w, ok := model.ParsePeriodWindow(window)
				if !ok {
					return fmt.Errorf("unknown window %q", window)
				}
				req.Window = w
			}

			out := cmd.OutOrStdout()
			streamed := false
			orch := analysis.New(a.collector, a.narrator,
				analysis.WithLogger(a.log),
				analysis.WithMetrics(a.metrics),
				analysis.WithHooks(analysis.Hooks{
					OnProgress: func(pct int, label string) {
						fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", pct, label)
					},
					OnDelta: func(text string) {
						if !streamed {
							fmt.Fprintln(out, "\n🤖 AI 深度分析")
							streamed = true
						}
						fmt.Fprint(out, text)
					},
				}),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := orch.Run(ctx, req)
			if err != nil {
				return err
			}
			if streamed {
				fmt.Fprintln(out)
			}
			if res.NarrativeErr != "" {
				fmt.Fprintln(out, res.Narrative)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, plainText(notifier.FormatAnalysisReport(res, req.Holdings)))

			if err := a.recorder.RecordRun(res); err != nil {
				a.log.Error().Err(err).Msg("record run")
			}
			a.holdings.UpdateNames(res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&window, "window", "w", "", "Analysis window: 1week, 1month, 3month, 6month")
	cmd.Flags().StringSliceVar(&codes, "codes", nil, "Fund codes to analyze (defaults to the holdings file)")
	cmd.Flags().BoolVar(&noNarrative, "no-narrative", false, "Skip the AI commentary")
	return cmd
}

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "")

// plainText turns a Telegram HTML message into terminal text.
func plainText(s string) string {
	return html.UnescapeString(tagStripper.Replace(s))
}

