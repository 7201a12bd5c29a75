package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rmehta/studyflow/internal/gateway"
	"github.com/rmehta/studyflow/internal/llm"
	"github.com/rmehta/studyflow/internal/store"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Send one prompt through the invocation gateway",
	Long: "Routes a prompt through the configured backend priority list with\n" +
		"retry, circuit breaking and cache fallback, and records the outcome\n" +
		"to the event log. Intended for smoke-testing a deployment's backends.",
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _ := cmd.Flags().GetString("agent")
		prompt, _ := cmd.Flags().GetString("prompt")
		system, _ := cmd.Flags().GetString("system")
		cacheKey, _ := cmd.Flags().GetString("cache-key")
		maxTokens, _ := cmd.Flags().GetInt("max-tokens")

		ctx := context.Background()

		gwCfg := gateway.ConfigFromEnv()
		llmCfg := llm.ConfigFromEnv()

		backends := make([]gateway.Backend, 0, len(gwCfg.Backends))
		for _, name := range gwCfg.Backends {
			p, err := llm.NewProvider(ctx, name, llmCfg)
			if err != nil {
				return fmt.Errorf("initialize backend %s: %w", name, err)
			}
			backends = append(backends, gateway.Backend{Name: name, Provider: p})
		}

		cache, err := openCache(ctx)
		if err != nil {
			return err
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

		gw, err := gateway.New(gwCfg, backends, cache, s.Events())
		if err != nil {
			return fmt.Errorf("build gateway: %w", err)
		}

		result, err := gw.Invoke(ctx, gateway.Request{
			AgentKind: agent,
			Prompt:    prompt,
			System:    system,
			MaxTokens: maxTokens,
			CacheKey:  cacheKey,
		})
		if err != nil {
			return fmt.Errorf("invoke: %w", err)
		}

		source := result.SourceBackend
		if result.ServedFromCache {
			source += " (cached)"
		}
		fmt.Fprintf(os.Stderr, "source: %s, tokens: %d in / %d out\n",
			source, result.Usage.InputTokens, result.Usage.OutputTokens)
		fmt.Println(string(result.Content))
		return nil
	},
}

// openCache selects the gateway cache: Redis when STUDYFLOW_REDIS_ADDR is
// set, otherwise in-memory.
func openCache(ctx context.Context) (gateway.Cache, error) {
	addr := os.Getenv("STUDYFLOW_REDIS_ADDR")
	if addr == "" {
		return gateway.NewMemoryCache(), nil
	}
	db := 0
	if v := os.Getenv("STUDYFLOW_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	client, err := gateway.OpenRedis(ctx, addr, os.Getenv("STUDYFLOW_REDIS_PASSWORD"), db)
	if err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return gateway.NewRedisCache(client), nil
}

func init() {
	invokeCmd.Flags().StringP("agent", "a", "teacher", "Agent kind (marker, teacher, coach, planner)")
	invokeCmd.Flags().StringP("prompt", "p", "", "Prompt text")
	invokeCmd.Flags().String("system", "", "System prompt")
	invokeCmd.Flags().String("cache-key", "", "Cache key enabling cache fallback")
	invokeCmd.Flags().Int("max-tokens", 0, "Response token cap (0 = default)")
	invokeCmd.MarkFlagRequired("prompt")

	rootCmd.AddCommand(invokeCmd)
}
