package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mindtrack-backend/internal/catalog"
	"mindtrack-backend/internal/scoring"
	"mindtrack-backend/internal/service"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

type scoreOptions struct {
	platform  string
	responses string
	asJSON    bool
	legacy    bool
}

func newScoreCmd() *cobra.Command {
	var opts scoreOptions
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a response file offline",
		Long:  "Score a JSON object of question id to answer value. Use --responses - to read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.platform, "platform", "", "platform the answers belong to")
	cmd.Flags().StringVar(&opts.responses, "responses", "", "path to the responses JSON file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print machine readable JSON")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "print the keyword based fallback analysis")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("responses")
	return cmd
}

func runScore(stdin io.Reader, out io.Writer, opts scoreOptions) error {
	cat := catalog.Default()
	def, ok := cat.Platform(opts.platform)
	if !ok {
		return fmt.Errorf("unsupported platform %q (choose from %v)", opts.platform, cat.Names())
	}

	var data []byte
	var err error
	if opts.responses == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(opts.responses)
	}
	if err != nil {
		return fmt.Errorf("read responses: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("responses must be a JSON object: %w", err)
	}
	responses := service.CoerceResponses(raw)
	engine := scoring.NewEngine(cat)
	platform := string(def.Name)

	if opts.legacy {
		analysis := engine.FallbackAnalysis(platform, responses)
		if opts.asJSON {
			return writeJSON(out, analysis)
		}
		fmt.Fprintf(out, "%s %s (legacy analysis)\n", bold("Platform:"), def.DisplayName)
		printScores(out, analysis.OverallScore, analysis.MoodScore, analysis.UsageScore, analysis.ComparisonScore, analysis.RiskLevel)
		fmt.Fprintf(out, "\n%s\n", analysis.KeyInsight)
		printRecommendations(out, analysis.Recommendations)
		return nil
	}

	result, recs := engine.Assess(platform, responses)
	if opts.asJSON {
		return writeJSON(out, struct {
			Result          scoring.Result           `json:"result"`
			Recommendations []scoring.Recommendation `json:"recommendations"`
		}{result, recs})
	}

	fmt.Fprintf(out, "%s %s  %s\n", bold("Platform:"), def.DisplayName,
		gray(fmt.Sprintf("%d%% confidence, %d answered", result.ConfidenceScore, result.AnsweredQuestions)))
	printScores(out, result.OverallScore, result.MoodScore, result.UsageScore, result.ComparisonScore, result.RiskLevel)
	fmt.Fprintf(out, "\n%s\n", result.PersonalizedInsight)
	printRecommendations(out, recs)
	return nil
}

func printScores(out io.Writer, overall, mood, usage, comparison float64, risk scoring.RiskLevel) {
	fmt.Fprintf(out, "  Overall     %4.1f\n", overall)
	fmt.Fprintf(out, "  Mood        %4.1f\n", mood)
	fmt.Fprintf(out, "  Usage       %4.1f\n", usage)
	fmt.Fprintf(out, "  Comparison  %4.1f\n", comparison)
	fmt.Fprintf(out, "  Risk        %s\n", colorRisk(risk))
}

func printRecommendations(out io.Writer, recs []scoring.Recommendation) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", bold("Recommendations"))
	for i, r := range recs {
		fmt.Fprintf(out, "  %d. %s %s\n     %s\n", i+1, r.Title, gray("["+string(r.Impact)+"]"), r.Description)
	}
}

func colorRisk(risk scoring.RiskLevel) string {
	switch risk {
	case scoring.RiskLow:
		return green(string(risk))
	case scoring.RiskHigh:
		return red(string(risk))
	default:
		return yellow(string(risk))
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
