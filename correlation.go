// Package correlation repairs raw correlation estimates into valid correlation matrices,
// symmetric with a unit diagonal and no negative eigenvalues, using one of the
// decompositions of the decomposer package.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/aouyang1/go-correlation/decomposer"
	"github.com/aouyang1/go-correlation/optimizer"
	"github.com/aouyang1/go-correlation/stats"
	"github.com/go-echarts/go-echarts/v2/components"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var ErrNoResults = errors.New("no repair results")

// Repairer replaces raw correlation matrices with valid ones. It is safe for concurrent use.
type Repairer struct {
	opt        *Options
	decomposer decomposer.Decomposer
}

// New creates a new instance of a Repairer using the provided options. If no options are
// provided a default is used.
func New(opt *Options) (*Repairer, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	d, err := opt.newDecomposer()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize %s decomposer, %w", opt.Method, err)
	}
	return &Repairer{
		opt:        opt,
		decomposer: d,
	}, nil
}

// Method returns the decomposition used by the repairer
func (r *Repairer) Method() Method {
	return r.opt.Method
}

// Repair decomposes the lower triangle of raw and returns the repaired matrix along with the
// diagnostics of the decomposition
func (r *Repairer) Repair(raw mat.Matrix) (*Results, error) {
	return r.repair(raw, nil)
}

func (r *Repairer) repair(raw mat.Matrix, ws decomposer.Workspace) (*Results, error) {
	b, state, err := r.decomposer.Decompose(raw, &decomposer.CallOptions{Workspace: ws})
	if err != nil {
		return nil, fmt.Errorf("unable to decompose with %s, %w", r.opt.Method, err)
	}

	n, rank := b.Dims()
	corr := mat.NewSymDense(n, nil)
	corr.SymOuterK(1.0, b)
	// rows of b are unit length up to rounding
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1.0)
	}

	sym, err := stats.AsSymmetric(raw)
	if err != nil {
		return nil, err
	}
	rawEig, err := stats.Eigenvalues(sym)
	if err != nil {
		return nil, fmt.Errorf("unable to compute raw eigenvalues, %w", err)
	}
	eig, err := stats.Eigenvalues(corr)
	if err != nil {
		return nil, fmt.Errorf("unable to compute repaired eigenvalues, %w", err)
	}
	if eig[0] < -r.opt.Tolerance {
		slog.Warn("repaired matrix has a negative eigenvalue",
			"method", r.opt.Method,
			"min_eigenvalue", eig[0],
			"tolerance", r.opt.Tolerance,
		)
	}

	res := &Results{
		Decomposed:     b,
		Correlation:    corr,
		Method:         r.opt.Method,
		Rank:           rank,
		Converged:      true,
		Distance:       stats.FrobeniusDistance(corr, sym),
		MinEigenvalue:  eig[0],
		Eigenvalues:    eig,
		RawEigenvalues: rawEig,
		State:          state,
	}
	switch s := state.(type) {
	case *decomposer.EziState:
		res.Iterations = s.Iterations
		res.Converged = s.Converged
	case *decomposer.SapState:
		res.Iterations = s.Optimizer.Iterations
		res.Converged = s.Optimizer.Status == optimizer.ProperResult
	}
	return res, nil
}

// RepairBatch repairs every raw matrix concurrently with at most Parallelization repairs in
// flight. Workspaces are reused across items of the same dimension. The first failure cancels
// the remaining items.
func (r *Repairer) RepairBatch(ctx context.Context, raws []mat.Matrix) ([]*Results, error) {
	limit := r.opt.Parallelization
	if limit == 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	if r.sharedSource() && limit > 1 {
		slog.Debug("praxis source is shared, repairing sequentially", "parallelization", limit)
		limit = 1
	}
	limit = min(limit, max(len(raws), 1))

	workspaces := make(chan decomposer.Workspace, limit)
	for range limit {
		workspaces <- nil
	}

	res := make([]*Results, len(raws))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, raw := range raws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ws := <-workspaces
			defer func() { workspaces <- ws }()
			if raw != nil {
				if n, _ := raw.Dims(); n > 0 && (ws == nil || ws.Dim() != n) {
					ws = r.decomposer.NewWorkspace(n)
				}
			}

			out, err := r.repair(raw, ws)
			if err != nil {
				slog.Error("unable to repair batch item", "index", i, "error", err)
				return fmt.Errorf("batch item %d, %w", i, err)
			}
			res[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// sharedSource reports whether every PRAXIS run draws from the same random source
func (r *Repairer) sharedSource() bool {
	return r.opt.Method == MethodSap && r.opt.Praxis != nil && r.opt.Praxis.Source != nil
}

// PlotDiagnostics uses the Apache Echarts library to generate an html file comparing the raw
// and repaired spectra. EZI results recorded with RecordDiagnostics also show the distance
// between iterates and SAP results show the objective before and after refinement.
func (r *Repairer) PlotDiagnostics(path string, res *Results) error {
	if res == nil {
		return ErrNoResults
	}

	page := components.NewPage()
	page.AddCharts(
		BarSeries(
			"Eigenvalues",
			[]string{"Raw", "Repaired"},
			[][]float64{res.RawEigenvalues, res.Eigenvalues},
		),
	)

	switch s := res.State.(type) {
	case *decomposer.EziState:
		if len(s.NormHistory) > 0 {
			page.AddCharts(
				LineSeries("EZI Iterate Distance", []string{"Distance"}, [][]float64{s.NormHistory}),
			)
		}
	case *decomposer.SapState:
		page.AddCharts(
			BarSeries(
				"SAP Objective",
				[]string{"Initial", "Final"},
				[][]float64{{s.InitialObjective}, {s.FinalObjective}},
			),
		)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create diagnostics file, %w", err)
	}
	defer file.Close()

	return page.Render(file)
}
