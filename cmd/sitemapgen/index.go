package main

import (
	"fmt"
	"os"

	"github.com/jonathan/sitemap-writer/internal/pipeline"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild sitemap.xml from existing sitemap files",
	Long:  "Writes <dir>/sitemap.xml referencing every <dir>/sitemap/*.xml file, using each file's modification time as its lastmod.",
	RunE:  runIndex,
}

var (
	indexDir      string
	indexBaseURL  string
	indexNoIndent bool
)

func init() {
	indexCmd.Flags().StringVarP(&indexDir, "dir", "d", ".", "Directory containing the sitemap/ subdirectory")
	indexCmd.Flags().StringVarP(&indexBaseURL, "base-url", "b", "", "Base URL the sitemap/ subdirectory is served under (required)")
	indexCmd.Flags().BoolVar(&indexNoIndent, "no-indent", false, "Write compact XML")

	if err := indexCmd.MarkFlagRequired("base-url"); err != nil {
		panic(fmt.Sprintf("failed to mark base-url flag as required: %v", err))
	}

	rootCmd.AddCommand(indexCmd)
}

func runIndex(_ *cobra.Command, _ []string) error {
	if info, err := os.Stat(indexDir); err != nil || !info.IsDir() {
		return fmt.Errorf("directory not found: %s", indexDir)
	}

	opts := sitemap.DefaultIndexOptions()
	opts.Indent = !indexNoIndent

	groups, err := pipeline.RebuildIndex(indexDir, indexBaseURL, opts)
	if err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	if len(groups) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "No sitemap files found; index not written\n")
		return nil
	}

	_, _ = fmt.Fprintf(os.Stdout, "Indexed %d file(s)\n", len(groups))
	return nil
}
