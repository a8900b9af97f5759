package commands

import (
	"fmt"
	"strings"

	"github.com/gnomegl/wagroups/internal/filter"
	"github.com/spf13/cobra"
)

func init() {
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Inspect the group keyword filter",
		Long: `Inspect the keywords used to select groups from the admin group export.

Keyword modes:
- substring: case-insensitive containment in the group name or description
- word: case-insensitive whole-word match (boundary_keywords)`,
	}

	listFiltersCmd := &cobra.Command{
		Use:   "list",
		Short: "List the configured keywords",
		Args:  cobra.NoArgs,
		RunE:  runListFilters,
	}

	testFilterCmd := &cobra.Command{
		Use:   "test [text]",
		Short: "Show which keywords match a group name or description",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTestFilter,
	}

	filterCmd.AddCommand(listFiltersCmd, testFilterCmd)
	rootCmd.AddCommand(filterCmd)
}

func loadFilter() (*filter.Filter, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return filter.New(cfg.Keywords, cfg.BoundaryKeywords)
}

func runListFilters(cmd *cobra.Command, args []string) error {
	f, err := loadFilter()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Group Keywords:")
	fmt.Fprintln(out, "===============")
	for i, m := range f.Matchers() {
		fmt.Fprintf(out, "%d | Keyword: %s | Mode: %s\n", i+1, m.Keyword(), m.Mode())
	}
	return nil
}

func runTestFilter(cmd *cobra.Command, args []string) error {
	f, err := loadFilter()
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	matched := f.MatchedKeywords(text, "")

	out := cmd.OutOrStdout()
	if len(matched) == 0 {
		fmt.Fprintf(out, "No keywords match %q\n", text)
		return nil
	}
	fmt.Fprintf(out, "%q matches: %s\n", text, strings.Join(matched, ", "))
	return nil
}
