package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmehta/studyflow/internal/confidence"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score the trustworthiness of a marking result",
	Long: "Runs the confidence estimator over one marking result and prints\n" +
		"the weighted score, the per-signal breakdown, and whether the result\n" +
		"should go to human review. Pure heuristic, no model call.",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxMarks, _ := cmd.Flags().GetInt("max-marks")
		awarded, _ := cmd.Flags().GetInt("awarded")
		scheme, _ := cmd.Flags().GetStringArray("scheme")
		evaluation, _ := cmd.Flags().GetBool("evaluation")
		feedbackFile, _ := cmd.Flags().GetString("feedback-file")
		answerFile, _ := cmd.Flags().GetString("answer-file")

		feedback, err := os.ReadFile(feedbackFile)
		if err != nil {
			return fmt.Errorf("read feedback file: %w", err)
		}
		answer, err := os.ReadFile(answerFile)
		if err != nil {
			return fmt.Errorf("read answer file: %w", err)
		}

		estimator := confidence.NewEstimator(confidence.ConfigFromEnv())
		assessment := estimator.Assess(
			confidence.MarkResult{AwardedMarks: awarded, Feedback: string(feedback)},
			confidence.Question{
				MaxMarks:           maxMarks,
				MarkScheme:         scheme,
				RequiresEvaluation: evaluation,
			},
			string(answer),
		)

		out, err := json.MarshalIndent(assessment, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal assessment: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	assessCmd.Flags().Int("max-marks", 0, "Maximum marks for the question")
	assessCmd.Flags().Int("awarded", 0, "Marks the marker awarded")
	assessCmd.Flags().StringArray("scheme", nil, "Mark scheme point (repeatable)")
	assessCmd.Flags().Bool("evaluation", false, "Question command word demands evaluation")
	assessCmd.Flags().String("feedback-file", "", "File containing the marker's feedback")
	assessCmd.Flags().String("answer-file", "", "File containing the student answer")
	assessCmd.MarkFlagRequired("max-marks")
	assessCmd.MarkFlagRequired("feedback-file")
	assessCmd.MarkFlagRequired("answer-file")
}
