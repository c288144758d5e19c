package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/logging"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/pipeline"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/workbook"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitReadFailed  = 1
	exitWriteFailed = 2
)

// exitError carries the process exit code for a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err, plus the support code and suggested action when
// the error is a known one, and returns the process exit code.
func reportError(w io.Writer, err error) int {
	fmt.Fprintf(w, "ERROR: %v\n", err)
	if core.IsUserFacing(err) {
		fmt.Fprintf(w, "       %s\n", core.FormatUserError(err))
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitReadFailed
}

type options struct {
	input     string
	output    string
	sheet     string
	logLevel  string
	logFormat string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract Sponsored Products ID maps from a bulk export",
		Long: `Read the Sponsored Products sheet of an Amazon Ads bulk export and write
a workbook with five ID maps: keyword targeting, advertised products, PAT,
category and auto targeting.

Example: extract -i bulk.xlsx -o SP_IDs.xlsx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupWriter(stderr, opts.logLevel, opts.logFormat)
			return run(cmd.Context(), opts, stdout)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "Path to the bulk export (.xlsx or .csv)")
	f.StringVarP(&opts.output, "output", "o", workbook.DefaultOutputName, "Path to the output workbook")
	f.StringVarP(&opts.sheet, "sheet", "s", workbook.DefaultSheet, "Sheet to read from an .xlsx input")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text|json")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := os.Open(opts.input)
	if err != nil {
		return &exitError{exitReadFailed, fmt.Errorf("failed to read '%s' sheet '%s': %w: %w", opts.input, opts.sheet, core.ErrSourceRead, err)}
	}
	defer file.Close()

	service := pipeline.NewService(nil, nil, pipeline.Options{DefaultSheet: opts.sheet})
	extracted, err := service.Extract(ctx, pipeline.Request{FileName: opts.input, Body: file})
	if err != nil {
		return &exitError{exitReadFailed, fmt.Errorf("failed to read '%s' sheet '%s': %w", opts.input, opts.sheet, err)}
	}

	res := extracted.Result
	fmt.Fprintln(stdout, res.Diagnostics.Summary())

	if err := workbook.WriteFile(opts.output, res); err != nil {
		return &exitError{exitWriteFailed, fmt.Errorf("failed to write '%s': %w", opts.output, err)}
	}

	fmt.Fprintf(stdout, "Created '%s' with sheets:\n", opts.output)
	for _, t := range res.Tables {
		fmt.Fprintf(stdout, " - %s\n", t.Sheet)
	}
	return nil
}
