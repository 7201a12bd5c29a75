package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmehta/studyflow/internal/schedule"
	"github.com/rmehta/studyflow/internal/store"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Create and manage study plans",
}

var planCreateCmd = &cobra.Command{
	Use:   "create <topic>...",
	Short: "Create a study plan for a set of topics and an exam date",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		examStr, _ := cmd.Flags().GetString("exam")
		hours, _ := cmd.Flags().GetFloat64("hours")
		topicsFile, _ := cmd.Flags().GetString("topics-file")

		examDate, err := time.ParseInLocation("2006-01-02", examStr, time.Local)
		if err != nil {
			return fmt.Errorf("invalid exam date %q (want YYYY-MM-DD): %w", examStr, err)
		}

		topics, err := loadTopics(args, topicsFile)
		if err != nil {
			return err
		}

		engine := schedule.NewEngine(schedule.ConfigFromEnv())
		plan, err := engine.CreatePlan(topics, examDate, hours)
		if err != nil {
			return fmt.Errorf("create plan: %w", err)
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

		if err := s.Plans().Save(context.Background(), plan); err != nil {
			return fmt.Errorf("save plan: %w", err)
		}

		fmt.Printf("Created plan %s: %d topics over %d days, exam %s\n",
			plan.ID, len(plan.Easiness), plan.TotalDays, plan.ExamDate.Format("2006-01-02"))
		printPlan(plan)
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show a plan's day-by-day schedule",
	Args:  cobra.ExactArgs(1),
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

		plan, err := s.Plans().Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}

		fmt.Printf("Plan %s  (%s)\n", plan.ID, plan.Status)
		fmt.Printf("Exam:  %s  (%d days, %.1f h/day)\n",
			plan.ExamDate.Format("2006-01-02"), plan.TotalDays, plan.HoursPerDay)
		printPlan(plan)
		return nil
	},
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plans",
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

		plans, err := s.Plans().List(context.Background())
		if err != nil {
			return fmt.Errorf("list plans: %w", err)
		}
		if len(plans) == 0 {
			fmt.Println("No plans found.")
			return nil
		}

		fmt.Printf("%-36s  %-10s  %-5s  %-10s  %s\n", "ID", "Exam", "Days", "Status", "Created")
		fmt.Println(strings.Repeat("─", 84))
		for _, p := range plans {
			fmt.Printf("%-36s  %-10s  %-5d  %-10s  %s\n",
				p.ID, p.ExamDate.Format("2006-01-02"), p.TotalDays, p.Status,
				p.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var planProgressCmd = &cobra.Command{
	Use:   "progress <plan-id> <topic=score>...",
	Short: "Record a completed day's performance and reschedule",
	Long: "Records per-topic scores (0-100) for the given day, updates the\n" +
		"easiness factors, moves upcoming reviews, and marks the day complete.\n" +
		"The whole update is rejected if any score or topic is invalid.",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dayIndex, _ := cmd.Flags().GetInt("day")
		if dayIndex < 1 {
			return fmt.Errorf("--day is required and must be positive")
		}

		performance := make(map[string]int, len(args)-1)
		for _, pair := range args[1:] {
			topic, scoreStr, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid score %q (want topic=score)", pair)
			}
			score, err := strconv.Atoi(scoreStr)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", pair, err)
			}
			performance[topic] = score
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
		plan, err := s.Plans().Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}

		engine := schedule.NewEngine(schedule.ConfigFromEnv())
		plan, err = engine.UpdateProgress(plan, dayIndex, performance)
		if err != nil {
			return fmt.Errorf("update progress: %w", err)
		}

		if err := s.Plans().Save(ctx, plan); err != nil {
			return fmt.Errorf("save plan: %w", err)
		}

		fmt.Printf("Recorded day %d for plan %s (%s)\n", dayIndex, plan.ID, plan.Status)
		printPlan(plan)
		return nil
	},
}

var planAbandonCmd = &cobra.Command{
	Use:   "abandon <plan-id>",
	Short: "Mark a plan abandoned",
	Args:  cobra.ExactArgs(1),
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

		if err := s.Plans().SetStatus(context.Background(), args[0], schedule.StatusAbandoned); err != nil {
			return fmt.Errorf("abandon plan: %w", err)
		}
		fmt.Printf("Plan %s abandoned.\n", args[0])
		return nil
	},
}

// loadTopics builds the topic set from positional IDs or a JSON file.
// The file form carries explicit relations; bare IDs rely on section
// prefixes alone.
func loadTopics(args []string, file string) ([]schedule.Topic, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read topics file: %w", err)
		}
		var topics []schedule.Topic
		if err := json.Unmarshal(data, &topics); err != nil {
			return nil, fmt.Errorf("parse topics file: %w", err)
		}
		return topics, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no topics given: pass topic IDs or --topics-file")
	}
	topics := make([]schedule.Topic, 0, len(args))
	for _, id := range args {
		topics = append(topics, schedule.Topic{ID: id})
	}
	return topics, nil
}

func printPlan(plan *schedule.StudyPlan) {
	fmt.Printf("\n%-5s  %-10s  %-8s  %-22s  %s\n", "Day", "Date", "Interval", "Activities", "Topics")
	fmt.Println(strings.Repeat("─", 90))
	for i := range plan.Days {
		d := &plan.Days[i]
		done := ""
		if d.Completed {
			done = " ✓"
		}
		acts := make([]string, len(d.Activities))
		for j, a := range d.Activities {
			acts[j] = string(a)
		}
		fmt.Printf("%-5d  %-10s  %-8d  %-22s  %s%s\n",
			d.DayIndex, d.Date.Format("2006-01-02"), d.Interval,
			strings.Join(acts, ","), strings.Join(d.Topics, ", "), done)
	}
}

func init() {
	planCreateCmd.Flags().String("exam", "", "Exam date (YYYY-MM-DD)")
	planCreateCmd.Flags().Float64("hours", 2, "Study hours per day")
	planCreateCmd.Flags().String("topics-file", "", "JSON file of topics with explicit relations")
	planCreateCmd.MarkFlagRequired("exam")

	planProgressCmd.Flags().Int("day", 0, "Day index being completed")
	planProgressCmd.MarkFlagRequired("day")

	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planProgressCmd)
	planCmd.AddCommand(planAbandonCmd)
}
