package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/ns-gamming/ns-tracker-sub000/internal/ai"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/spf13/cobra"
)

func newAdviseCommand(a *app) *cobra.Command {
	var userID string
	var raw bool

	cmd := &cobra.Command{
		Use:   "advise [question]",
		Short: "Ask the AI advisor about a user's finances and render the answer",
		Long: "Without a question, advise prints the user's insights. With one, it " +
			"runs a chat turn that is stored in the user's history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AI.APIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required")
			}

			ctx, cancel := a.context(2 * time.Minute)
			defer cancel()

			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			gemini, err := ai.NewGemini(ctx, a.cfg.AI.APIKey, a.cfg.AI.Model)
			if err != nil {
				return err
			}
			advisor := ai.NewAdvisor(gemini)
			svc := finance.NewService(store, advisor, nil, nil, nil, a.log)
			assistant := finance.NewAssistant(svc, advisor)

			var markdown string
			if question := strings.TrimSpace(strings.Join(args, " ")); question != "" {
				reply, err := assistant.Chat(ctx, userID, question)
				if err != nil {
					return err
				}
				markdown = reply.Reply
			} else {
				insights, err := assistant.Insights(ctx, userID)
				if err != nil {
					return err
				}
				markdown = InsightsMarkdown(insights)
			}

			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), markdown)
				return nil
			}
			out, err := glamour.Render(markdown, "auto")
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

// InsightsMarkdown formats insights as a markdown list headed by the score.
func InsightsMarkdown(in *ai.Insights) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Financial health: %d/100\n\n", in.Score)
	if len(in.Insights) == 0 {
		b.WriteString("_No insights yet. Add some transactions first._\n")
		return b.String()
	}
	for _, i := range in.Insights {
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", i.Title, i.Severity, i.Detail)
	}
	return b.String()
}
