// Package main provides the sitemapgen CLI, which writes sitemap protocol
// files and their index from flat files, databases and HTML trees.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sitemapgen",
	Short: "Sitemap protocol file generator",
	Long:  "sitemapgen writes sitemap url set files, rotated at a configurable size, and the sitemap index referencing them.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
