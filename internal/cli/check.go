package cli

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"guide/internal/usecase"
)

var checkQuiet bool

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the guideline corpus",
		Long: `Load every guideline document strictly and report unparsable files,
invalid scope patterns and duplicate document ids. Exits non-zero when
any problem is found, regardless of corpus.skip_invalid.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
	cmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "do not show progress")

	return cmd
}

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var progress usecase.ProgressFunc
	if !checkQuiet {
		progress = newProgress(cmd)
	}

	ws, err := openWorkspace(cmd.Context(), false, progress)
	if err != nil {
		problems := []error{errors.Unwrap(err)}
		var multi interface{ Unwrap() []error }
		if errors.As(err, &multi) {
			problems = multi.Unwrap()
		}
		if problems[0] == nil {
			problems = []error{err}
		}
		for _, p := range problems {
			fmt.Fprintf(out, "  x %v\n", p)
		}
		return fmt.Errorf("corpus check failed: %d problem(s)", len(problems))
	}
	defer ws.Close()

	fmt.Fprintf(out, "Corpus OK: %d documents (%d parsed, %d cached, %d removed)\n",
		ws.engine.Snapshot().Len(), ws.result.FilesParsed, ws.result.FilesCached, ws.result.FilesDeleted)
	fmt.Fprintf(out, "Parse cache: %d entries\n", ws.result.CacheEntries)
	return nil
}

// newProgress renders corpus parsing progress on stderr.
func newProgress(cmd *cobra.Command) usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(processed, total int, current string) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Parsing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		}

		bar.Set(processed)

		elapsed := time.Since(startTime)
		if rate := float64(processed) / elapsed.Seconds(); rate > 0 && processed < total {
			eta := time.Duration(float64(total-processed)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Parsing[reset] ETA: %s", formatDuration(eta)))
		}
	}
}
