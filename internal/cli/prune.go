package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/prune"
	"github.com/ppiankov/tempora/internal/score"
)

var (
	pruneSources string
	pruneRank    bool
)

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune <instance.json|->",
	Short: "Keep the evidences faithful to a question's temporal constraint",
	Long: `Prune the candidate evidences of an answered instance against its
structured temporal form (tsf). The instance is read as JSON from a file
or from stdin ("-"), and written back with faithful_evidences set.

Example:
  tempora answer "who was president of the United States in 1995" --json > q.json
  tempora prune q.json --sources kb,info
  cat q.json | tempora prune - --rank`,
	Args: cobra.ExactArgs(1),
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneSources, "sources", "", "comma separated evidence sources (kb,text,table,info)")
	pruneCmd.Flags().BoolVar(&pruneRank, "rank", false, "re-rank answers from the faithful evidences")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	names, err := parseSources(pruneSources, cfg.Pipeline.Sources)
	if err != nil {
		return err
	}
	sources, err := model.NewSourceSet(names...)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open instance: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var in model.Instance
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decode instance: %w", err)
	}

	in.Faithful = prune.New().PruneInstance(&in, sources)
	if pruneRank {
		in.RankedAnswers = score.NewScorer().Rank(&in, 10)
	}

	fmt.Fprintf(os.Stderr, "✓ Kept %d of %d evidences\n", len(in.Faithful), len(in.Evidences))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(in)
}
