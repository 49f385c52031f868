package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/pipeline"
)

var (
	answerReference string
	answerSources   string
	answerJSON      bool
	answerTimeout   time.Duration
	noWikipedia     bool
)

// answerCmd represents the answer command
var answerCmd = &cobra.Command{
	Use:   "answer <question>",
	Short: "Answer a temporal question",
	Long: `Answer a single question:
- Recognize dates and ordinals and build the structured temporal form
- Resolve implicit constraints ("during World War 2") with sub-questions
- Retrieve KB facts and Wikipedia evidences for the question entities
- Keep the evidences faithful to the constraint and rank the answers

Example:
  tempora answer "who was president of the United States in 1995"
  tempora answer "who led the UK during World War 2" --sources kb,info
  tempora answer "who won the first World Cup" --json > answer.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnswer,
}

func init() {
	rootCmd.AddCommand(answerCmd)

	answerCmd.Flags().StringVar(&answerReference, "reference-time", "", "reference date YYYY-MM-DD (default: today)")
	answerCmd.Flags().StringVar(&answerSources, "sources", "", "comma separated evidence sources (kb,text,table,info)")
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "print the answered instance as JSON")
	answerCmd.Flags().DurationVar(&answerTimeout, "timeout", 5*time.Minute, "timeout for answering")
	answerCmd.Flags().BoolVar(&noWikipedia, "no-wikipedia", false, "disable Wikipedia evidence retrieval")
}

func runAnswer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Pipeline.Sources, err = parseSources(answerSources, cfg.Pipeline.Sources); err != nil {
		return err
	}
	if noWikipedia {
		cfg.Wikipedia.Enabled = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
	defer cancel()

	p, err := pipeline.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Failed to flush cache: %v\n", err)
		}
	}()

	in := &model.Instance{
		Question:      strings.Join(args, " "),
		ReferenceTime: answerReference,
	}
	out, err := p.Answer(ctx, in)
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}

	if answerJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printAnswer(out)
	return nil
}

// printAnswer renders an answered instance for the terminal
func printAnswer(in *model.Instance) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", in.Question)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	if in.Form != nil {
		fmt.Printf("  Form:        %s\n", in.Form)
	}
	for _, sq := range in.Subquestions {
		fmt.Printf("  Sub-question (depth %d): %s → %s\n", sq.Depth, sq.Question, strings.Join(sq.Timestamps, ", "))
	}
	fmt.Printf("  Evidences:   %d candidate, %d faithful\n", len(in.Evidences), len(in.Faithful))
	fmt.Println()

	if len(in.RankedAnswers) == 0 {
		fmt.Println("  ✗ No answer found")
		fmt.Println()
		return
	}
	for _, a := range in.RankedAnswers {
		label := a.Answer.Label
		if label == "" {
			label = a.Answer.ID
		}
		fmt.Printf("  %2d. %-40s %-12s %.2f\n", a.Rank, label, a.Answer.ID, a.Score)
	}
	fmt.Println()
}
