// Command corrrepair reads a raw correlation matrix as a JSON array of rows, repairs it into a
// valid correlation matrix and writes a JSON report. With -series the input rows are sample
// series instead, null marking a missing observation, and the raw matrix is estimated from
// the pairwise overlaps.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/aouyang1/go-correlation"
	mat_ "github.com/aouyang1/go-correlation/mat"
	"github.com/aouyang1/go-correlation/stats"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"gonum.org/v1/gonum/mat"
)

var ErrNoInput = errors.New("no input matrix, set -in")

type config struct {
	in         string
	series     bool
	outliers   bool
	method     string
	rank       int
	out        string
	plot       string
	table      bool
	cpuProfile string
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("corrrepair", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.in, "in", "", "JSON file holding the raw matrix as an array of rows, - reads stdin")
	fs.BoolVar(&cfg.series, "series", false, "input rows are sample series with null for missing observations")
	fs.BoolVar(&cfg.outliers, "outliers", false, "mask outliers of each series before estimating correlations")
	fs.StringVar(&cfg.method, "method", string(correlation.MethodEzi), "repair method: ezn, ezi, sap or sap-nm")
	fs.IntVar(&cfg.rank, "rank", 0, "maximal rank of the repaired matrix, 0 keeps every positive eigenvalue")
	fs.StringVar(&cfg.out, "out", "", "JSON report path, stdout when empty")
	fs.StringVar(&cfg.plot, "plot", "", "HTML diagnostics path")
	fs.BoolVar(&cfg.table, "table", false, "print a summary table to stderr")
	fs.StringVar(&cfg.cpuProfile, "cpuprofile", "", "directory receiving a CPU profile")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.in == "" {
		return nil, ErrNoInput
	}
	return cfg, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	if cfg.cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.cpuProfile), profile.Quiet).Stop()
	}

	raw, err := readInput(cfg, stdin)
	if err != nil {
		return err
	}

	method, err := correlation.ParseMethod(cfg.method)
	if err != nil {
		return err
	}
	opt := correlation.NewDefaultOptions()
	opt.Method = method
	opt.MaxRank = cfg.rank
	opt.RecordDiagnostics = cfg.plot != ""

	r, err := correlation.New(opt)
	if err != nil {
		return err
	}
	res, err := r.Repair(raw)
	if err != nil {
		return err
	}
	slog.Debug("repaired correlation matrix",
		"method", res.Method,
		"rank", res.Rank,
		"iterations", res.Iterations,
		"converged", res.Converged,
		"distance", res.Distance,
	)
	if !res.Converged {
		slog.Warn("repair did not converge", "method", res.Method, "iterations", res.Iterations)
	}

	report := res.Report()
	if cfg.table {
		if err := report.TablePrint(stderr, "", "  "); err != nil {
			return fmt.Errorf("unable to print table, %w", err)
		}
	}

	if cfg.plot != "" {
		if err := r.PlotDiagnostics(cfg.plot, res); err != nil {
			return fmt.Errorf("unable to plot diagnostics, %w", err)
		}
	}

	return writeReport(cfg.out, stdout, report)
}

func readInput(cfg *config, stdin io.Reader) (mat.Matrix, error) {
	var data []byte
	var err error
	if cfg.in == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(cfg.in)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read input, %w", err)
	}

	if cfg.series {
		return estimate(data, cfg.outliers)
	}

	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unable to decode input, %w", err)
	}
	raw, err := mat_.NewDenseFromArray(rows)
	if err != nil {
		return nil, fmt.Errorf("invalid input matrix, %w", err)
	}
	return raw, nil
}

// estimate decodes sample series and returns their pairwise correlations
func estimate(data []byte, outliers bool) (mat.Matrix, error) {
	var rows [][]*float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unable to decode input series, %w", err)
	}
	series := make([][]float64, len(rows))
	for i, row := range rows {
		series[i] = make([]float64, len(row))
		for j, v := range row {
			series[i][j] = math.NaN()
			if v != nil {
				series[i][j] = *v
			}
		}
	}

	opt := &stats.PairwiseOptions{}
	if outliers {
		opt.OutlierOptions = stats.NewDefaultOutlierOptions()
	}
	raw, err := stats.PairwiseCorrelation(series, opt)
	if err != nil {
		return nil, fmt.Errorf("unable to estimate correlations, %w", err)
	}
	return raw, nil
}

func writeReport(path string, stdout io.Writer, report correlation.Report) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode report, %w", err)
	}
	out = append(out, '\n')

	if path == "" {
		_, err := stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
