// Diagnostic program printing the Wikipedia evidences retrieved for KB items
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/pipeline"
	"github.com/ppiankov/tempora/internal/util"
)

var (
	sources   string
	reference string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "wiki-evidence <item-id>...",
	Short: "Print the Wikipedia evidences retrieved for KB items",
	Example: `  wiki-evidence Q76
  wiki-evidence Q76 Q9682 --sources info`,
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          run,
}

func main() {
	rootCmd.Flags().StringVar(&sources, "sources", "text,table,info", "comma separated evidence sources")
	rootCmd.Flags().StringVar(&reference, "reference-time", "", "reference date for relative dates (YYYY-MM-DD)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "total timeout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if _, err := util.InitLogger("warn", "console"); err != nil {
		return err
	}

	allowed, err := model.NewSourceSet(strings.Split(sources, ",")...)
	if err != nil {
		return err
	}

	cfg := model.DefaultConfig()
	cfg.Wikipedia.SkipFrequentEntities = false
	annotator, err := pipeline.NewAnnotator(cfg)
	if err != nil {
		return err
	}
	retriever := pipeline.NewWikipediaFromConfig(cfg, nil, annotator)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Println("=== Wikipedia Evidence ===")
	fmt.Println()

	for _, id := range args {
		fmt.Printf("Item: %s\n", id)
		fmt.Println(strings.Repeat("-", 60))

		evidences, err := retriever.Evidences(ctx, []model.KBItem{{ID: id, Label: id}}, reference, allowed)
		if err != nil {
			fmt.Printf("  ✗ %v\n\n", err)
			continue
		}
		if len(evidences) == 0 {
			fmt.Println("  No evidences")
		}
		for _, ev := range evidences {
			fmt.Printf("  [%s] %s\n", ev.Source, ev.Text)
			if ev.TempInfo != nil {
				spans := make([]string, len(ev.TempInfo.Timespans))
				for i, s := range ev.TempInfo.Timespans {
					spans[i] = s.String()
				}
				fmt.Printf("         dates: %s\n", strings.Join(spans, " "))
			}
		}
		fmt.Println()
	}
	return nil
}
