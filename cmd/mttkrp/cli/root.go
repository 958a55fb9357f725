// Package cli implements the mttkrp command: benchmark or verify the
// MTTKRP kernel against a .tns tensor file, mirroring
// original_source/hacoo_mttkrp.cpp's two CUnit modes (bench, verify)
// as cobra flags over the mttkrpbench helper package.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/pngwen/hacoo-go/ingest"
	"github.com/pngwen/hacoo-go/internal/mttkrpbench"
	"github.com/pngwen/hacoo-go/workerpool"
	"github.com/spf13/cobra"
)

var (
	inputPath     string
	zeroBased     bool
	rank          int
	mode          string
	algorithm     string
	threads       int
	iterations    int
	nnzEstimate   int
	bench         bool
	factorsPath   string
	expectedPath  string
	verifyEpsilon float64
)

// Execute builds and runs the mttkrp root command.
func Execute(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:   "mttkrp",
		Short: "Benchmark or verify the MTTKRP kernel against a tensor file",
		Example: `  mttkrp -i tensor.tns -b -r 16 -a parallel -t 8 -n 5
  mttkrp -i tensor.tns -f factors.txt -e expected.txt`,
		RunE: runMTTKRP,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&inputPath, "input", "i", "", "input tensor file (.tns) (required)")
	flags.BoolVarP(&zeroBased, "zero-based", "z", false, "assume input tensor is zero-based (default: one-based)")
	flags.IntVarP(&rank, "rank", "r", 16, "rank")
	flags.StringVarP(&mode, "target-mode", "m", "all", "target mode of tensor, or \"all\"")
	flags.StringVarP(&algorithm, "algorithm", "a", "serial", "serial or parallel")
	flags.IntVarP(&threads, "number-threads", "t", 1, "number of worker threads")
	flags.IntVarP(&iterations, "iterations", "n", 1, "number of timed iterations (first is warm-up)")
	flags.IntVarP(&nnzEstimate, "nnz", "v", 128, "estimated nonzero count (reserved for future preallocation use)")
	flags.BoolVarP(&bench, "bench", "b", false, "run benchmark mode instead of verify mode")
	flags.StringVarP(&factorsPath, "factors", "f", "", "path to factor matrices (verify mode)")
	flags.StringVarP(&expectedPath, "expected", "e", "", "path to expected MTTKRP answers (verify mode)")
	flags.Float64Var(&verifyEpsilon, "epsilon", 1e-6, "tolerance used to compare verify-mode results")

	if err := rootCmd.MarkFlagRequired("input"); err != nil {
		return err
	}

	return rootCmd.ExecuteContext(ctx)
}

func runMTTKRP(cmd *cobra.Command, args []string) error {
	if algorithm != "serial" && algorithm != "parallel" {
		return fmt.Errorf("invalid algorithm %q: must be \"serial\" or \"parallel\"", algorithm)
	}
	parallel := algorithm == "parallel"

	base := 1
	if zeroBased {
		base = 0
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open tensor file: %w", err)
	}
	t, err := ingest.ParseTNS(f, base)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse tensor file: %w", err)
	}
	slog.Info("tensor ingested", "path", inputPath, "modes", t.NumModes(), "nnz", t.NNZ())

	n := threads
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	pool := workerpool.New(n)
	defer pool.Close()

	if bench {
		factors := mttkrpbench.GenerateRandomFactors(t, rank)
		slog.Info("benchmark starting", "rank", rank, "threads", n, "mode", mode, "iterations", iterations)

		if mode == "all" {
			timings, err := mttkrpbench.BenchAllModes(pool, t, factors, iterations, parallel)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			for _, tm := range timings {
				fmt.Printf("Mode %d MTTKRP avg time (excluding warm-up): %s\n", tm.Mode, tm.AvgExcludingWarmup())
			}
			return nil
		}

		targetMode, err := strconv.Atoi(mode)
		if err != nil {
			return fmt.Errorf("invalid target mode %q: %w", mode, err)
		}
		timing, err := mttkrpbench.BenchMode(pool, t, factors, targetMode, iterations, parallel)
		if err != nil {
			return fmt.Errorf("benchmark: %w", err)
		}
		fmt.Printf("Mode %d MTTKRP avg time (excluding warm-up): %s\n", timing.Mode, timing.AvgExcludingWarmup())
		return nil
	}

	if factorsPath == "" || expectedPath == "" {
		return fmt.Errorf("verify mode requires --factors and --expected")
	}

	ff, err := os.Open(factorsPath)
	if err != nil {
		return fmt.Errorf("open factors file: %w", err)
	}
	factors, err := ingest.ReadMatrices(ff)
	ff.Close()
	if err != nil {
		return fmt.Errorf("read factors: %w", err)
	}

	ef, err := os.Open(expectedPath)
	if err != nil {
		return fmt.Errorf("open expected file: %w", err)
	}
	expected, err := ingest.ReadMatrices(ef)
	ef.Close()
	if err != nil {
		return fmt.Errorf("read expected results: %w", err)
	}

	results, err := mttkrpbench.VerifyAll(pool, t, factors, expected, parallel, verifyEpsilon)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	allPassed := true
	for i, ok := range results {
		if ok {
			fmt.Printf("Mode %d: PASS\n", i)
		} else {
			fmt.Printf("Mode %d: FAIL\n", i)
			allPassed = false
		}
	}
	if !allPassed {
		return fmt.Errorf("one or more modes failed verification")
	}
	return nil
}
