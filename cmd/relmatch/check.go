package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"relmatch/internal/scan"
	"relmatch/internal/shape"
	"relmatch/internal/storage"
)

type checkOptions struct {
	shapes  string
	input   string
	output  string
	matches string
	misses  string
	workers int
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Scan a JSONL file of relationships against shapes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.shapes, "shapes", "", "Shape file (YAML or JSON)")
	flags.StringVar(&opts.input, "input", "", "Input JSONL file of relationships")
	flags.StringVar(&opts.output, "output", "results.jsonl", "Output file path (combined)")
	flags.StringVar(&opts.matches, "matches", "", "Output file path for matches")
	flags.StringVar(&opts.misses, "misses", "", "Output file path for misses")
	flags.IntVar(&opts.workers, "workers", 4, "Number of workers")
	_ = cmd.MarkFlagRequired("shapes")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsRequiredTogether("matches", "misses")
	cmd.MarkFlagsMutuallyExclusive("output", "matches")
	cmd.MarkFlagsMutuallyExclusive("output", "misses")

	return cmd
}

func runCheck(opts checkOptions) error {
	shapes, err := shape.Load(opts.shapes)
	if err != nil {
		return err
	}

	in, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	emitter, err := openEmitter(opts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	zap.S().Infof("Checking %s against %d shapes with %d workers...", opts.input, len(shapes), opts.workers)
	start := time.Now()

	scanner := scan.NewScanner(opts.workers, shapes, emitter)
	stats, runErr := scanner.Run(ctx, storage.NewJSONLReader(in))
	if err := emitter.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close output: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	zap.S().Infof("Done in %v.", time.Since(start))
	return printJSON(stats)
}

func openEmitter(opts checkOptions) (storage.Emitter, error) {
	if opts.matches != "" {
		matchFile, err := os.Create(opts.matches)
		if err != nil {
			return nil, fmt.Errorf("failed to create matches file: %w", err)
		}
		missFile, err := os.Create(opts.misses)
		if err != nil {
			matchFile.Close()
			return nil, fmt.Errorf("failed to create misses file: %w", err)
		}
		return storage.NewSplitJSONLEmitter(matchFile, missFile), nil
	}

	outFile, err := os.Create(opts.output)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return storage.NewJSONLEmitter(outFile), nil
}
