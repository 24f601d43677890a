package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"guide/internal/domain"
)

var queryJSON bool

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <file>...",
		Short: "Show the guidance that applies to files",
		Long: `Compose the guideline sections that apply to each file. Paths are
matched relative to the root directory; absolute paths inside it are
converted.

Examples:
  guide query src/app/app.component.ts
  guide query --json src/main.go docs/index.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}
	cmd.Flags().BoolVar(&queryJSON, "json", false, "output JSON")

	return cmd
}

func init() {
	rootCmd.AddCommand(newQueryCmd())
}

func runQuery(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context(), GetConfig().Corpus.SkipInvalid, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	results := make([]domain.CompositionResult, 0, len(args))
	for _, arg := range args {
		results = append(results, ws.engine.Query(displayPath(GetRootDir(), arg)))
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printResult(out, res)
	}
	return nil
}

func printResult(w io.Writer, res domain.CompositionResult) {
	fmt.Fprintf(w, "%s\n", res.FilePath)
	if len(res.AppliedDocuments) == 0 {
		fmt.Fprintf(w, "  no guidelines apply\n")
		return
	}
	fmt.Fprintf(w, "  applied: %s\n", strings.Join(res.AppliedDocuments, ", "))

	for _, s := range res.MergedSections {
		fmt.Fprintln(w)
		origin := s.SourceDocumentID
		switch {
		case s.ConflictsWith != "":
			origin += ", conflicts with " + s.ConflictsWith
		case s.Conflict:
			origin += ", conflicting"
		}
		if s.Title != "" {
			fmt.Fprintf(w, "## %s (%s)\n", s.Title, origin)
		} else {
			fmt.Fprintf(w, "(%s)\n", origin)
		}
		fmt.Fprintln(w, s.Body)
	}
}
