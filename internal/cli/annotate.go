package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tempora/internal/pipeline"
)

var (
	annotateMethod    string
	annotateReference string
)

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate <sentence>",
	Short: "Find the dates and ordinals of a sentence",
	Long: `Annotate a sentence with its temporal values:
- dates normalized to [begin, end] timespans
- ordinals ("first", "2nd", "third") normalized to ranks

The regex method runs locally; sutime and sutime_regex call the
date-tagging service configured under datetag.base_url.

Example:
  tempora annotate "Obama was elected in November 2008"
  tempora annotate "the second world war ended on 2 September 1945" --method sutime_regex
  tempora annotate "last year" --method sutime --reference-time 2020-06-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().StringVar(&annotateMethod, "method", "", "annotation method (regex, sutime, sutime_regex)")
	annotateCmd.Flags().StringVar(&annotateReference, "reference-time", "", "reference date YYYY-MM-DD (default: today)")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if annotateMethod != "" {
		cfg.Annotate.Method = annotateMethod
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	annotator, err := pipeline.NewAnnotator(cfg)
	if err != nil {
		return err
	}

	sentence := strings.Join(args, " ")
	ann, err := annotator.Annotate(context.Background(), sentence, annotateReference)
	if err != nil {
		return fmt.Errorf("annotate: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ %d date(s), %d ordinal(s) [%s]\n", len(ann.Dates), len(ann.Ordinals), annotator.Method())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ann)
}
