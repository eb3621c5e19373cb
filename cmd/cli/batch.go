
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"accessiai/internal/analyzer"
	"accessiai/internal/ioformats"
)

type batchOptions struct {
	input       string
	output      string
	concurrency int
	patch       bool
	noProgress  bool
}

func batchCmd(root *rootOptions) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every URL in a CSV or NDJSON file",
		Long: `batch reads URLs from a CSV file with a "url" column or from NDJSON
(one URL or {"url": "..."} per line) and writes one NDJSON record per URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input file (csv with 'url' column or ndjson)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output NDJSON file (default stdout)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "pages analyzed at once")
	cmd.Flags().BoolVar(&opts.patch, "patch", false, "include patched markup in each record")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "hide the progress bar")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *batchOptions) error {
	urls, err := ioformats.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	out := ioformats.NewWriter(w)

	a, closeFn, err := analyzer.FromConfig(root.cfg, root.log)
	if err != nil {
		return err
	}
	defer closeFn()

	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(24),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetVisibility(!opts.noProgress),
		progressbar.OptionClearOnFinish(),
	)

	patch := opts.patch || root.cfg.Analysis.Patch
	var failed int
	results := make(chan bool, len(urls))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(opts.concurrency, 1))
	for _, u := range urls {
		g.Go(func() error {
			res := a.Analyze(ctx, u, analyzer.Options{Patch: patch})
			results <- res.Success
			_ = bar.Add(1)
			return out.Write(ioformats.NewRecord(u, res))
		})
	}
	err = g.Wait()
	close(results)
	_ = bar.Finish()
	for ok := range results {
		if !ok {
			failed++
		}
	}
	if err != nil {
		return err
	}
	root.log.Infof("batch finished: %d urls, %d failed", len(urls), failed)
	return nil
}
