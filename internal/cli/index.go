package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dormguide/internal/index"
)

var statusJSON bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the index from the documents directory",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the index state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(statusCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	res, err := a.guide.Rebuild()
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	out := cmd.OutOrStdout()
	if res.Outcome == index.NoDocuments {
		fmt.Fprintf(out, "No documents found in %s; index left unchanged.\n", cfg.Corpus.DocsDir)
		return nil
	}
	fmt.Fprintf(out, "Indexed %d documents (%d terms) into %s\n", res.Documents, res.Terms, res.Path)
	if res.Summary != "" {
		fmt.Fprintf(out, "\nCorpus summary:\n%s\n", res.Summary)
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	// pick up a blob already on disk without building one
	_, _ = a.manager.Snapshot()
	st := a.guide.Status()

	out := cmd.OutOrStdout()
	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	fmt.Fprintf(out, "State:     %s\n", st.State)
	fmt.Fprintf(out, "Path:      %s\n", st.Path)
	fmt.Fprintf(out, "Documents: %d\n", st.Documents)
	fmt.Fprintf(out, "Terms:     %d\n", st.Terms)
	if st.BuiltAt != nil {
		fmt.Fprintf(out, "Built at:  %s\n", st.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
