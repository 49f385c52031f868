package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/temporal"
)

var normalizeFormat string

// normalizeCmd represents the normalize command
var normalizeCmd = &cobra.Command{
	Use:   "normalize <date text>",
	Short: "Normalize a date text to a timespan",
	Long: `Normalize a date or date range to a [begin, end] timespan.

Without --format every known text and numeric format is tried.
Formats: year, ymd, mdy, dmy, ym, my, text_dmy, text_mdy, text_ymd,
timespan1 .. timespan8, timestamp.

Example:
  tempora normalize "4 August 1961"
  tempora normalize 1939-1945
  tempora normalize 03/04/2001 --format dmy`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		var (
			span   model.Timespan
			format = temporal.Format(normalizeFormat)
			ok     bool
		)
		if format == "" {
			span, format, ok = temporal.NormalizeAny(text)
		} else {
			span, ok = temporal.Normalize(text, format)
		}
		if !ok {
			return fmt.Errorf("could not normalize %q", text)
		}

		fmt.Printf("%s\t%s\t%s\t%s\n", text, format, span.Begin, span.End)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringVar(&normalizeFormat, "format", "", "date format hint (default: detect)")
}
