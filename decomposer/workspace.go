package decomposer

// Workspace holds the scratch buffers of one decomposer family for n×n inputs. A Workspace
// must not be used by more than one goroutine at a time.
type Workspace interface {
	Dim() int
}

// eziWorkspace adds the iterates of EZI
type eziWorkspace struct {
	*eigenWorkspace

	p     []float64 // previous iterate
	q     []float64 // current reconstruction
	qNorm []float64 // reconstruction of the row normalized decomposition
	bNorm []float64 // row normalized decomposition
}

func newEziWorkspace(n int) *eziWorkspace {
	return &eziWorkspace{
		eigenWorkspace: newEigenWorkspace(n),
		p:              make([]float64, n*n),
		q:              make([]float64, n*n),
		qNorm:          make([]float64, n*n),
		bNorm:          make([]float64, n*n),
	}
}

func (ws *eziWorkspace) Dim() int {
	if ws == nil {
		return 0
	}
	return ws.eigenWorkspace.Dim()
}

// sapWorkspace adds the buffers of the angle objective
type sapWorkspace struct {
	*eigenWorkspace

	raw   []float64 // symmetrized target
	b     []float64 // initial decomposition, n×rank
	param []float64 // parametric matrix of the current angles, n×rank
	bbt   []float64
	theta []float64
}

func newSapWorkspace(n int) *sapWorkspace {
	return &sapWorkspace{
		eigenWorkspace: newEigenWorkspace(n),
		raw:            make([]float64, n*n),
		b:              make([]float64, n*n),
		param:          make([]float64, n*n),
		bbt:            make([]float64, n*n),
		theta:          make([]float64, n*n),
	}
}

func (ws *sapWorkspace) Dim() int {
	if ws == nil {
		return 0
	}
	return ws.eigenWorkspace.Dim()
}
