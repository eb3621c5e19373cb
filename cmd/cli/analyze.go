
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"accessiai/internal/analyzer"
	"accessiai/internal/report"
)

type analyzeOptions struct {
	patch       bool
	format      string
	output      string
	saveDefault bool
	patchedPath string
}

func analyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze one page and print its accessibility report",
		Example: `  accessiai analyze https://example.com
  accessiai analyze https://example.com --format markdown --output report.md
  accessiai analyze https://example.com --patch --patched-output fixed.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.patch, "patch", false, "also produce markup with suggested fixes applied")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "report format: json, yaml, markdown, html (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.saveDefault, "save", false, "write the report under reports/ with a timestamped name")
	cmd.Flags().StringVar(&opts.patchedPath, "patched-output", "", "file for the patched markup (implies --patch)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, url string) error {
	format := opts.format
	if format == "" {
		format = root.cfg.Output.Format
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}

	a, closeFn, err := analyzer.FromConfig(root.cfg, root.log)
	if err != nil {
		return err
	}
	defer closeFn()

	patch := opts.patch || opts.patchedPath != "" || root.cfg.Analysis.Patch
	res := a.Analyze(cmd.Context(), url, analyzer.Options{Patch: patch})
	for _, msg := range res.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", msg)
	}
	if !res.Success {
		return fmt.Errorf("analysis failed")
	}

	switch {
	case opts.output != "" || opts.saveDefault:
		path, err := report.Export(res.Report, f, opts.output)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", path)
	default:
		if err := report.Render(cmd.OutOrStdout(), res.Report, f); err != nil {
			return err
		}
	}

	if opts.patchedPath != "" && res.PatchedMarkup != "" {
		if err := os.WriteFile(opts.patchedPath, []byte(res.PatchedMarkup), 0o644); err != nil {
			return fmt.Errorf("write patched markup: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "patched markup written to %s\n", opts.patchedPath)
	}
	return nil
}
