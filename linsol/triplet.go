package linsol

// Triplet accumulates Jacobian entries in coordinate form. A sparse
// Jacobian callback calls Start once and then Put for each nonzero;
// duplicate positions are summed on conversion.
type Triplet struct {
	dim int
	pos int
	i   []int
	j   []int
	v   []float64
}

// NewTriplet allocates a triplet for a dim×dim matrix with room for max
// entries.
func NewTriplet(dim, max int) *Triplet {
	return &Triplet{
		dim: dim,
		i:   make([]int, max),
		j:   make([]int, max),
		v:   make([]float64, max),
	}
}

// Dim returns the matrix dimension.
func (t *Triplet) Dim() int { return t.dim }

// Len returns the number of entries put since the last Start.
func (t *Triplet) Len() int { return t.pos }

// Start resets the triplet so a fresh Jacobian can be assembled.
func (t *Triplet) Start() { t.pos = 0 }

// Put adds value v at position (i, j). It panics when the position is out
// of range or the triplet is full, both of which indicate a broken
// Jacobian callback rather than a runtime condition.
func (t *Triplet) Put(i, j int, v float64) {
	if i < 0 || i >= t.dim || j < 0 || j >= t.dim {
		panic("linsol: triplet entry out of range")
	}
	if t.pos >= len(t.v) {
		panic("linsol: triplet capacity exceeded; check nnz")
	}
	t.i[t.pos], t.j[t.pos], t.v[t.pos] = i, j, v
	t.pos++
}

// ccMatrix is a compressed sparse column matrix.
type ccMatrix struct {
	dim    int
	colptr []int
	rowind []int
	val    []float64
}

// compress converts the triplet to compressed sparse column form, summing
// duplicates.
func (t *Triplet) compress(dst *ccMatrix) *ccMatrix {
	if dst == nil {
		dst = &ccMatrix{}
	}
	dst.dim = t.dim
	if cap(dst.colptr) < t.dim+1 {
		dst.colptr = make([]int, t.dim+1)
	}
	dst.colptr = dst.colptr[:t.dim+1]
	for k := range dst.colptr {
		dst.colptr[k] = 0
	}
	for k := 0; k < t.pos; k++ {
		dst.colptr[t.j[k]+1]++
	}
	for c := 0; c < t.dim; c++ {
		dst.colptr[c+1] += dst.colptr[c]
	}
	if cap(dst.rowind) < t.pos {
		dst.rowind = make([]int, t.pos)
		dst.val = make([]float64, t.pos)
	}
	dst.rowind = dst.rowind[:t.pos]
	dst.val = dst.val[:t.pos]
	next := make([]int, t.dim)
	copy(next, dst.colptr[:t.dim])
	for k := 0; k < t.pos; k++ {
		p := next[t.j[k]]
		dst.rowind[p] = t.i[k]
		dst.val[p] = t.v[k]
		next[t.j[k]]++
	}
	dst.sumDuplicates()
	return dst
}

// sumDuplicates merges repeated row indices within each column.
func (c *ccMatrix) sumDuplicates() {
	w := make([]int, c.dim)
	for i := range w {
		w[i] = -1
	}
	nz := 0
	for col := 0; col < c.dim; col++ {
		start := nz
		end := c.colptr[col+1]
		for p := c.colptr[col]; p < end; p++ {
			r := c.rowind[p]
			if w[r] >= start {
				c.val[w[r]] += c.val[p]
				continue
			}
			w[r] = nz
			c.rowind[nz] = r
			c.val[nz] = c.val[p]
			nz++
		}
		c.colptr[col] = start
	}
	c.colptr[c.dim] = nz
	c.rowind = c.rowind[:nz]
	c.val = c.val[:nz]
}

// mulVec computes dst = A·x (trans false) or dst = Aᵀ·x (trans true).
func (c *ccMatrix) mulVec(dst, x []float64, trans bool) {
	for i := range dst {
		dst[i] = 0
	}
	for col := 0; col < c.dim; col++ {
		if trans {
			s := 0.0
			for p := c.colptr[col]; p < c.colptr[col+1]; p++ {
				s += c.val[p] * x[c.rowind[p]]
			}
			dst[col] = s
			continue
		}
		xc := x[col]
		for p := c.colptr[col]; p < c.colptr[col+1]; p++ {
			dst[c.rowind[p]] += c.val[p] * xc
		}
	}
}
