package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/sitemap-writer/internal/observability"
	"github.com/jonathan/sitemap-writer/internal/verify"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Verify sitemap files against the sitemap protocol",
	Long:  "Checks the given files, or the index and every sitemap/*.xml file under --dir, for well-formedness, namespace, field order and value rules, size and record limits.",
	RunE:  runCheck,
}

var checkDir string

func init() {
	checkCmd.Flags().StringVarP(&checkDir, "dir", "d", ".", "Directory containing sitemap.xml and sitemap/ (ignored when files are given)")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	printer := observability.NewPrinter(os.Stdout)

	results, err := checkPaths(checkDir, args)
	printer.PrintVerifyResults(results)
	if err != nil {
		var verr *verify.Error
		if errors.As(err, &verr) {
			printer.PrintVerifyError(verr)
		}
		// Return error to indicate violations were found (exit code 1)
		return fmt.Errorf("check failed: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Check passed: %d file(s)\n", len(results))
	return nil
}

// checkPaths verifies files when given, otherwise the directory layout.
// Results of the files checked before a failure are returned with it.
func checkPaths(dir string, files []string) ([]*verify.Result, error) {
	if len(files) == 0 {
		return verify.Dir(dir)
	}
	var results []*verify.Result
	for _, f := range files {
		res, err := verify.File(f)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
