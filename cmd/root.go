package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rmehta/studyflow/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "studyflow",
	Short: "Adaptive study scheduling and resilient LLM marking",
	Long: "Studyflow builds spaced-repetition study plans around an exam date,\n" +
		"scores the trustworthiness of AI marking output, and routes LLM calls\n" +
		"through a multi-backend gateway with retry, circuit breaking and cache\n" +
		"fallback.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides STUDYFLOW_DB env var)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(llmCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then STUDYFLOW_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
