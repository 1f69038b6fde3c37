package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jonathan/sitemap-writer/internal/config"
	"github.com/jonathan/sitemap-writer/internal/pipeline"
	"github.com/jonathan/sitemap-writer/internal/verify"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate sitemap files and the sitemap index",
	Long: `Reads every configured site from its source (a CSV, JSON lines, YAML or text file, a SQL query, or a directory of HTML pages),
writes <out>/sitemap/<name>.xml files rotated every --max-urls entries, then writes <out>/sitemap.xml referencing them.

Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.
Without --config the flags describe a single site.`,
	RunE: runGenerate,
}

var (
	generateConfigPath  string
	generateOut         string
	generateName        string
	generateWebsite     string
	generateInput       string
	generateHTMLDir     string
	generateQuery       string
	generateDatabaseURL string
	generateIndexURL    string
	generateMaxURLs     int
	generateBufferSize  int
	generateIndent      bool
	generateOmitDefault bool
	generateChangeFreq  string
	generatePriority    float64
	generateVerbose     bool
	generateCheck       bool
)

func init() {
	// Config file flag (processed first)
	generateCmd.Flags().StringVar(&generateConfigPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Output directory (default \".\")")
	generateCmd.Flags().StringVar(&generateIndexURL, "index-url", "", "Base URL for index locations (defaults to the first site's website)")
	generateCmd.Flags().IntVar(&generateMaxURLs, "max-urls", 0, "Entries per sitemap file, at most 50000 (default 40000)")
	generateCmd.Flags().IntVar(&generateBufferSize, "buffer-size", 0, "Records buffered between writes (default 1000)")
	generateCmd.Flags().BoolVar(&generateIndent, "indent", true, "Pretty-print the XML")
	generateCmd.Flags().BoolVar(&generateOmitDefault, "omit-default-priority", false, "Skip <priority> when it equals 0.5")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print detailed debug information")
	generateCmd.Flags().BoolVar(&generateCheck, "check", false, "Verify the written files against the sitemap protocol")

	// Single-site flags, used when no config file is given
	generateCmd.Flags().StringVarP(&generateName, "name", "n", "sitemap", "Base name of the sitemap files")
	generateCmd.Flags().StringVarP(&generateWebsite, "website", "w", "", "Website prefixed to relative locations")
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "Flat file of locations (.csv, .jsonl, .yaml, .txt)")
	generateCmd.Flags().StringVar(&generateHTMLDir, "html-dir", "", "Directory of HTML pages to discover")
	generateCmd.Flags().StringVar(&generateQuery, "query", "", "SQL query returning a loc column")
	generateCmd.Flags().StringVar(&generateChangeFreq, "changefreq", "", "Default change frequency")
	generateCmd.Flags().Float64Var(&generatePriority, "priority", 0.5, "Default priority")

	// Database URL for query sources
	generateCmd.Flags().StringVar(&generateDatabaseURL, "db-url", "", "Database URL for --query (optional, defaults to "+config.DatabaseURLEnv+" env var)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := generateConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}

	result, err := pipeline.RunPipeline(ctx, pipeline.RunOptions{Config: cfg})
	if err != nil {
		return err
	}

	urls := 0
	for _, s := range result.Sites {
		urls += len(s.Report.URLs)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Wrote %d URLs across %d file(s)\n", urls, len(result.Groups))
	if len(result.Groups) > 0 {
		_, _ = fmt.Fprintf(os.Stdout, "Index: %s\n", result.IndexPath)
	}

	if generateCheck && len(result.Groups) > 0 {
		results, err := verify.Dir(cfg.OutputDir)
		if err != nil {
			return fmt.Errorf("generated files failed verification: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Verified %d file(s)\n", len(results))
	}
	return nil
}

// generateConfig merges the config file, explicitly set flags, the
// environment and defaults, then validates the result.
func generateConfig(changed func(string) bool) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if generateConfigPath != "" {
		loadedCfg, err := config.LoadConfig(generateConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if generateVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", generateConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if changed("out") {
		cfg.OutputDir = generateOut
	}
	if changed("index-url") {
		cfg.IndexURL = generateIndexURL
	}
	if changed("max-urls") {
		cfg.MaxURLs = generateMaxURLs
	}
	if changed("buffer-size") {
		cfg.BufferSize = generateBufferSize
	}
	if changed("indent") {
		indent := generateIndent
		cfg.Indent = &indent
	}
	if changed("omit-default-priority") {
		cfg.OmitDefaultPriority = generateOmitDefault
	}
	if changed("verbose") {
		cfg.Verbose = generateVerbose
	}
	if changed("db-url") {
		cfg.DatabaseURL = generateDatabaseURL
	}

	// Step 3: Single site from flags
	if changed("website") || changed("input") || changed("html-dir") || changed("query") {
		if generateConfigPath != "" {
			return cfg, fmt.Errorf("site flags cannot be combined with --config; describe sites in the config file")
		}
		site := config.Site{
			Name:            generateName,
			Website:         generateWebsite,
			Input:           generateInput,
			HTMLDir:         generateHTMLDir,
			Query:           generateQuery,
			ChangeFrequency: generateChangeFreq,
		}
		if changed("priority") {
			p := generatePriority
			site.Priority = &p
		}
		cfg.Sites = []config.Site{site}
	}
	if len(cfg.Sites) == 0 {
		return cfg, fmt.Errorf("either --config or --website with one of --input, --html-dir or --query must be provided")
	}

	// Step 4: Database URL handling
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv(config.DatabaseURLEnv)
	}

	// Step 5: Apply defaults for unset values, then validate
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
