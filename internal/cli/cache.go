package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/cache"
	"github.com/ppiankov/tempora/internal/kb"
	"github.com/ppiankov/tempora/internal/llm"
	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/worker"
)

var flushTimeout time.Duration

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the search-space cache",
	Long: `Maintain the KB search-space cache kept under cache.path.

The cache maps a question query to the KB search space retrieved for it.
Processes sharing the cache merge their writes on flush.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		c, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close(ctx) }()

		stats := c.Stats()
		version := stats.Version
		if version == "" {
			version = "(never written)"
		}
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Search Space Cache")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Printf("  Backend:   %s\n", cfg.Cache.Backend)
		fmt.Printf("  Path:      %s\n", cache.ExpandHome(cfg.Cache.Path))
		fmt.Printf("  Entries:   %d\n", stats.Entries)
		fmt.Printf("  Version:   %s\n", version)
		fmt.Println()
		return nil
	},
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every cached search space",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		c, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close(ctx) }()

		entries := c.Stats().Entries
		if err := c.Reset(ctx); err != nil {
			return err
		}
		fmt.Printf("✓ Removed %d cached search spaces\n", entries)
		return nil
	},
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush [questions-file]",
	Short: "Retrieve search spaces for questions and flush them to the store",
	Long: `Flush writes buffered search spaces to the persistent store.

With a questions file, the search space of every question is retrieved
first (cached ones are skipped), so later runs start from a warm cache.

Example:
  tempora cache flush
  tempora cache flush dev.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheFlush,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheResetCmd)
	cacheCmd.AddCommand(cacheFlushCmd)

	cacheFlushCmd.Flags().DurationVar(&flushTimeout, "timeout", 30*time.Minute, "timeout for retrieving search spaces")
}

func runCacheFlush(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	before := c.Stats().Entries

	var failed int
	if len(args) == 1 {
		failed, err = warmCache(ctx, cfg, c, args[0])
		if err != nil {
			_ = c.Close(context.Background())
			return err
		}
	}

	pending := c.Stats().Pending
	if err := c.Close(context.Background()); err != nil {
		return err
	}

	fmt.Printf("✓ Flushed %d search spaces (%d cached before)\n", pending, before)
	if failed > 0 {
		fmt.Printf("✗ %d questions could not be retrieved\n", failed)
	}
	return nil
}

// warmCache retrieves the search space of every question of file into c
func warmCache(ctx context.Context, cfg *model.Config, c *cache.SearchSpaceCache, file string) (int, error) {
	instances, err := worker.ReadInstancesFromFile(file)
	if err != nil {
		return 0, fmt.Errorf("error reading questions: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  Retrieving search spaces for %d questions\n", len(instances))

	retriever := kb.NewRetriever(kb.NewHTTPClient(cfg.KB), c, cfg.KB)
	forms := llm.RuleFormGenerator{}
	log := zap.L().With(zap.String("component", "cache"))

	failures, _ := worker.Map(ctx, cfg.Pipeline.Workers, instances, func(ctx context.Context, i int, in *model.Instance) (bool, error) {
		form, _ := forms.GenerateForm(ctx, in.Question)
		if _, err := retriever.SearchSpace(ctx, form.Query()); err != nil {
			log.Warn("search space unavailable", zap.String("question", in.Question), zap.Error(err))
			return true, nil
		}
		return false, nil
	})
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var failed int
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return failed, nil
}
