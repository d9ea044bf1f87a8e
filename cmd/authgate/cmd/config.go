package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgellow/authgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration tools",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and report errors and warnings",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, result, err := config.Load(envFile)
		if result == nil {
			return fmt.Errorf("error during validation: %w", err)
		}
		return printValidation(cmd.OutOrStdout(), envFile, result)
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// printValidation writes a human readable report. Warnings fail validation too.
func printValidation(w io.Writer, source string, result *config.ValidationResult) error {
	if source == "" {
		source = "environment"
	}
	fmt.Fprintf(w, "Validating: %s\n", source)

	printIssues(w, "Errors", result.Errors)
	printIssues(w, "Warnings", result.Warnings)

	fmt.Fprintln(w)
	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Fprintln(w, "Result: PASS")
	case len(result.Errors) == 0:
		fmt.Fprintln(w, "Result: FAIL (warnings present)")
	default:
		fmt.Fprintln(w, "Result: FAIL")
	}

	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	}
	return nil
}

func printIssues(w io.Writer, title string, issues []config.ValidationError) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  - %s\n", issue.String())
	}
}
