package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rmehta/studyflow/internal/llm"
	"github.com/rmehta/studyflow/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect gateway invocation events",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent invocation events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		agent, _ := cmd.Flags().GetString("agent")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		events, err := s.Events().Recent(ctx, limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No invocation events found.")
			return nil
		}

		// Header.
		fmt.Printf("%-5s  %-19s  %-10s  %-10s  %-28s  %-6s  %-6s  %-7s  %-5s  %s\n",
			"ID", "Timestamp", "Agent", "Backend", "Model", "In", "Out", "Ms", "Cache", "OK")
		fmt.Println(strings.Repeat("─", 120))

		for _, e := range events {
			if agent != "" && e.AgentKind != agent {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			cached := ""
			if e.FromCache {
				cached = "✓"
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-10s  %-10s  %-28s  %-6d  %-6d  %-7d  %-5s  %s\n",
				e.ID,
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.AgentKind,
				e.Backend,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				cached,
				ok,
			)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View a single invocation event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		e, err := s.Events().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		fmt.Printf("ID:        %d\n", e.ID)
		fmt.Printf("Time:      %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Agent:     %s\n", e.AgentKind)
		fmt.Printf("Backend:   %s\n", e.Backend)
		fmt.Printf("Model:     %s\n", e.Model)
		fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		fmt.Printf("Latency:   %dms\n", e.LatencyMs)
		fmt.Printf("Cached:    %v\n", e.FromCache)
		fmt.Printf("Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", e.ErrorMessage)
		}

		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		stats, err := s.Events().Stats(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		if len(stats) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Println("Usage and Estimated Cost (USD)")
		fmt.Println(strings.Repeat("─", 100))
		fmt.Printf("%-10s  %-28s  %6s  %5s  %6s  %10s  %10s  %8s  %9s\n",
			"Backend", "Model", "Calls", "Fail", "Cached", "Input", "Output", "Avg Ms", "Cost")
		fmt.Println(strings.Repeat("─", 100))

		var totalCost float64
		var unknownModels []string
		for _, st := range stats {
			costStr := "?"
			if cost := llm.LookupCost(st.Model); cost != nil {
				c := cost.Cost(int(st.InputTokens), int(st.OutputTokens))
				totalCost += c
				costStr = formatCost(c)
			} else {
				unknownModels = append(unknownModels, st.Model)
			}
			fmt.Printf("%-10s  %-28s  %6d  %5d  %6d  %10d  %10d  %8.0f  %9s\n",
				st.Backend, truncate(st.Model, 28), st.Calls, st.Failures, st.CacheHits,
				st.InputTokens, st.OutputTokens, st.AvgLatencyMs, costStr)
		}

		fmt.Println(strings.Repeat("─", 100))
		label := "TOTAL"
		if len(unknownModels) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Printf("%-40s  %48s  %9s\n", label, "", formatCost(totalCost))

		if len(unknownModels) > 0 {
			fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
		}

		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("agent", "a", "", "Filter by agent kind (e.g. marker, teacher, coach)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
