package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/pipeline"
	"github.com/ppiankov/tempora/internal/score"
	"github.com/ppiankov/tempora/internal/worker"
)

var (
	concurrency  int
	outputFile   string
	batchTimeout time.Duration
	batchSources string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Answer many questions from a file in parallel",
	Long: `Batch answers the questions of a file concurrently:
- One question per line, either plain text or a JSON instance
  ({"id": ..., "question": ..., "reference_time": ..., "answers": [...]})
- Questions are answered with a bounded worker pool
- Answered instances are written as JSON lines, in input order
- When gold answers are given, answer presence in the evidences is reported

Example:
  tempora batch questions.txt
  tempora batch dev.jsonl --concurrency 10 --output answered.jsonl
  tempora batch dev.jsonl --sources kb --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", worker.DefaultWorkers, "number of concurrent workers")
	batchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output JSON lines file (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchSources, "sources", "", "comma separated evidence sources (kb,text,table,info)")
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Pipeline.Sources, err = parseSources(batchSources, cfg.Pipeline.Sources); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	runID := uuid.NewString()
	log := zap.L().With(zap.String("component", "batch"), zap.String("run", runID))

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Tempora Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Run:          %s\n", runID)
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Sources:      %v\n", cfg.Pipeline.Sources)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	instances, err := worker.ReadInstancesFromFile(file)
	if err != nil {
		return fmt.Errorf("error reading questions: %w", err)
	}
	if len(instances) == 0 {
		return fmt.Errorf("no questions found in %s", file)
	}
	fmt.Fprintf(os.Stderr, "  Loaded %d questions\n\n", len(instances))

	p, err := pipeline.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(context.Background()); cerr != nil {
			fmt.Fprintf(os.Stderr, "⚠ Failed to flush cache: %v\n", cerr)
		}
	}()

	var out io.Writer = os.Stdout
	if outputFile != "" {
		f, createErr := os.Create(outputFile)
		if createErr != nil {
			return fmt.Errorf("error creating output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		out = f
	}

	startTime := time.Now()
	results := worker.NewBatchProcessor(p, concurrency).ProcessInstances(ctx, instances)
	duration := time.Since(startTime)

	enc := json.NewEncoder(out)
	var succeeded, failed, withGold, present, answered int
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", result.Question, result.Error)
			log.Warn("question failed", zap.String("question", result.Question), zap.Error(result.Error))
			continue
		}
		succeeded++
		if len(result.Instance.RankedAnswers) > 0 {
			answered++
		}
		if len(result.Instance.Answers) > 0 {
			withGold++
			if ok, _ := score.AnswerPresence(result.Instance.Evidences, result.Instance.Answers); ok {
				present++
			}
		}
		if err := enc.Encode(result.Instance); err != nil {
			return fmt.Errorf("error writing result: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Processing Summary\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total questions:  %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  ✓ Succeeded:      %d\n", succeeded)
	fmt.Fprintf(os.Stderr, "  ✗ Failed:         %d\n", failed)
	fmt.Fprintf(os.Stderr, "  With an answer:   %d\n", answered)
	if withGold > 0 {
		fmt.Fprintf(os.Stderr, "  Answer presence:  %d/%d (%.1f%%)\n", present, withGold, 100*float64(present)/float64(withGold))
	}
	fmt.Fprintf(os.Stderr, "  Duration:         %v\n", duration.Round(time.Millisecond))
	if len(results) > 0 {
		fmt.Fprintf(os.Stderr, "  Avg per question: %v\n", (duration / time.Duration(len(results))).Round(time.Millisecond))
	}
	if p.Cache() != nil {
		stats := p.Cache().Stats()
		fmt.Fprintf(os.Stderr, "  Cache:            %d entries, %d pending\n", stats.Entries, stats.Pending)
	}
	fmt.Fprintf(os.Stderr, "\n")

	log.Info("batch finished",
		zap.Int("total", len(results)),
		zap.Int("failed", failed),
		zap.Duration("duration", duration))
	return nil
}
