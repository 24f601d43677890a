package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listJSON bool

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loaded guideline documents",
		Long: `List every loaded guideline document with its scope patterns, effective
precedence and section titles.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
	cmd.Flags().BoolVar(&listJSON, "json", false, "output JSON")

	return cmd
}

func init() {
	rootCmd.AddCommand(newListCmd())
}

func runList(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context(), GetConfig().Corpus.SkipInvalid, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	catalog := ws.engine.Catalog()
	out := cmd.OutOrStdout()

	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}

	if len(catalog) == 0 {
		fmt.Fprintln(out, "No guideline documents found.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Patterns", "Precedence", "Sections", "Source"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	for _, doc := range catalog {
		table.Append([]string{
			doc.ID,
			strings.Join(doc.Patterns, ", "),
			strconv.Itoa(doc.Precedence),
			strconv.Itoa(len(doc.Sections)),
			displayPath(GetRootDir(), doc.Source),
		})
	}
	table.SetFooter([]string{"", "", "", "", fmt.Sprintf("%d documents", len(catalog))})
	table.Render()
	return nil
}
