// Package cli implements the cpd command: run CPD-ALS over a .tns
// tensor file and emit its factor matrices and lambda vector.
//
// Grounded on the pack's go-mizu/blueprints/*/cli convention
// (newXCmd() factory, PersistentFlags/Flags bound to package-scope
// option vars, RunE returning wrapped errors, Execute(ctx) entrypoint)
// collapsed to a single command, since cpd is a one-shot tool with no
// subcommand structure.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pngwen/hacoo-go/cpd"
	"github.com/pngwen/hacoo-go/ingest"
	"github.com/pngwen/hacoo-go/workerpool"
	"github.com/spf13/cobra"
)

var (
	rank    int
	maxIter int
	tol     float64
	base    int
	outDir  string
	threads int
)

// Execute builds and runs the cpd root command.
func Execute(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:   "cpd <tensor.tns>",
		Short: "Compute a Canonical Polyadic Decomposition via ALS",
		Long: `cpd reads a sparse tensor in .tns format, runs CPD-ALS to the given
rank and iteration bound, and emits the recovered factor matrices and
lambda vector.`,
		Example: `  cpd tensor.tns --rank 10 --max_iter 200
  cpd tensor.tns --rank 4 --base 1 --out ./result`,
		Args: cobra.ExactArgs(1),
		RunE: runCPD,
	}

	rootCmd.Flags().IntVar(&rank, "rank", 10, "decomposition rank")
	rootCmd.Flags().IntVar(&maxIter, "max_iter", 100, "maximum ALS iterations")
	rootCmd.Flags().Float64Var(&tol, "tol", 1e-4, "convergence tolerance (reserved for future use)")
	rootCmd.Flags().IntVar(&base, "base", 0, "tensor coordinate base (0 or 1)")
	rootCmd.Flags().StringVar(&outDir, "out", "", "directory to write factor_mode_<k>.tsv/lambdas.tsv into; empty prints the factors and lambda to stdout")
	rootCmd.Flags().IntVar(&threads, "threads", 0, "worker pool size (0 = GOMAXPROCS)")

	return rootCmd.ExecuteContext(ctx)
}

func runCPD(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open tensor file: %w", err)
	}
	defer f.Close()

	t, err := ingest.ParseTNS(f, base)
	if err != nil {
		return fmt.Errorf("parse tensor file: %w", err)
	}
	slog.Info("tensor ingested", "path", path, "modes", t.NumModes(), "nnz", t.NNZ())

	n := threads
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	pool := workerpool.New(n)
	defer pool.Close()

	result, err := cpd.Run(pool, t, rank, maxIter)
	if err != nil {
		return fmt.Errorf("run cpd: %w", err)
	}
	slog.Info("cpd complete", "rank", rank, "max_iter", maxIter)

	if outDir == "" {
		for k, factor := range result.Factors {
			fmt.Printf("Mode %d factor (%dx%d):\n", k, factor.Rows, factor.Cols)
			if err := ingest.WriteFactorTSV(os.Stdout, factor); err != nil {
				return fmt.Errorf("write mode %d factor: %w", k, err)
			}
		}
		fmt.Println("Lambda:")
		return ingest.WriteLambdaTSV(os.Stdout, result.Lambda)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for k, factor := range result.Factors {
		factorPath := filepath.Join(outDir, fmt.Sprintf("factor_mode_%d.tsv", k))
		if err := writeTSVFile(factorPath, func(w *os.File) error { return ingest.WriteFactorTSV(w, factor) }); err != nil {
			return err
		}
	}
	lambdaPath := filepath.Join(outDir, "lambdas.tsv")
	if err := writeTSVFile(lambdaPath, func(w *os.File) error { return ingest.WriteLambdaTSV(w, result.Lambda) }); err != nil {
		return err
	}
	slog.Info("factors written", "dir", outDir)
	return nil
}

func writeTSVFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
