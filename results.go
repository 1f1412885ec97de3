package correlation

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aouyang1/go-correlation/decomposer"
	"gonum.org/v1/gonum/mat"
)

// Results holds a repaired correlation matrix with its decomposition and diagnostics
type Results struct {
	// Decomposed is the n×rank matrix B with unit rows such that Correlation = B·Bᵀ
	Decomposed  *mat.Dense
	Correlation *mat.SymDense

	Method     Method
	Rank       int
	Iterations int
	Converged  bool

	// Distance is the Frobenius distance between the repaired and the raw matrix
	Distance      float64
	MinEigenvalue float64

	// ascending spectra of the repaired and the raw matrix
	Eigenvalues    []float64
	RawEigenvalues []float64

	State decomposer.State
}

// Report converts the results into a serializable summary
func (r *Results) Report() Report {
	n, _ := r.Correlation.Dims()
	return Report{
		Method:         r.Method,
		Dim:            n,
		Rank:           r.Rank,
		Iterations:     r.Iterations,
		Converged:      r.Converged,
		Distance:       r.Distance,
		MinEigenvalue:  r.MinEigenvalue,
		Correlation:    matrixRows(r.Correlation),
		Decomposed:     matrixRows(r.Decomposed),
		Eigenvalues:    r.Eigenvalues,
		RawEigenvalues: r.RawEigenvalues,
		State:          r.State,
	}
}

// Report is the JSON representation of a repair
type Report struct {
	Method     Method `json:"method"`
	Dim        int    `json:"dim"`
	Rank       int    `json:"rank"`
	Iterations int    `json:"iterations"`
	Converged  bool   `json:"converged"`

	Distance      float64 `json:"distance"`
	MinEigenvalue float64 `json:"min_eigenvalue"`

	Correlation [][]float64 `json:"correlation"`
	Decomposed  [][]float64 `json:"decomposed"`

	Eigenvalues    []float64 `json:"eigenvalues,omitempty"`
	RawEigenvalues []float64 `json:"raw_eigenvalues,omitempty"`

	// State is the method specific diagnostics record. It is only written.
	State decomposer.State `json:"state,omitempty"`
}

// TablePrint prints the repair summary followed by the repaired matrix in tabular form
func (r Report) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sRepair:\n", prefix, IndentExpand(indent, 0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sMethod: %s\n", prefix, IndentExpand(indent, 1), r.Method); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sDimension: %d    Rank: %d\n",
		prefix, IndentExpand(indent, 1),
		r.Dim, r.Rank); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sIterations: %d    Converged: %t\n",
		prefix, IndentExpand(indent, 1),
		r.Iterations, r.Converged); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sDistance: %.3f    Min Eigenvalue: %.3f\n",
		prefix, IndentExpand(indent, 1),
		r.Distance, r.MinEigenvalue); err != nil {
		return err
	}
	return tablePrintMatrix(w, "Correlation", r.Correlation, prefix, indent)
}

func tablePrintMatrix(w io.Writer, name string, rows [][]float64, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%s%s:\n", prefix, IndentExpand(indent, 0), name); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, row := range rows {
		if _, err := fmt.Fprintf(tbl, "%s%s", prefix, IndentExpand(indent, 1)); err != nil {
			return err
		}
		for _, v := range row {
			if _, err := fmt.Fprintf(tbl, "%.3f\t", v); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(tbl); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
