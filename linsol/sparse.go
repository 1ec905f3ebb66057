package linsol

import (
	"fmt"

	"gonum.org/v1/exp/linsolve"
	"gonum.org/v1/gonum/mat"
)

// Sparse solves the stage systems matrix-free: the Jacobian is kept in
// compressed sparse column form and the shifted operators are applied on
// the fly inside a restarted GMRES iteration. Nothing of order dim² is
// ever formed, so the back-end scales with the number of Jacobian
// nonzeros.
//
// It requires a user-supplied sparse Jacobian; the integrator falls back
// to the dense back-end otherwise.
type Sparse struct {
	dim        int
	mass       Mass
	numThreads int // advisory only

	jac *ccMatrix

	// shifts of the current factorization
	g, al, be float64

	work []float64 // dim scratch for operator products
	b    *mat.VecDense
	bc   *mat.VecDense
}

// NewSparse allocates a sparse back-end for a system of size dim whose
// Jacobian has at most nnz structural nonzeros.
func NewSparse(dim int, mass Mass, nnz, numThreads int) *Sparse {
	return &Sparse{
		dim:        dim,
		mass:       mass,
		numThreads: numThreads,
		work:       make([]float64, dim),
		b:          mat.NewVecDense(dim, nil),
		bc:         mat.NewVecDense(2*dim, nil),
	}
}

// SetJacobian compresses the assembled triplet into the back-end.
func (s *Sparse) SetJacobian(t *Triplet) {
	s.jac = t.compress(s.jac)
}

// Factor implements Backend. The sparse back-end has no explicit
// factorization; it records the shifts the operators need.
func (s *Sparse) Factor(h, gamma, alpha, beta float64) error {
	if s.jac == nil {
		return fmt.Errorf("linsol: sparse back-end has no jacobian")
	}
	s.g, s.al, s.be = gamma/h, alpha/h, beta/h
	return nil
}

// realOp applies (γ/h)M − J.
type realOp struct{ s *Sparse }

func (op realOp) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	s := op.s
	xv := make([]float64, s.dim)
	for i := range xv {
		xv[i] = x.AtVec(i)
	}
	s.jac.mulVec(s.work, xv, trans)
	for i := 0; i < s.dim; i++ {
		dst.SetVec(i, s.g*s.mass.diag(i, s.dim)*xv[i]-s.work[i])
	}
}

// cplxOp applies the real block form of ((α+iβ)/h)M − J to stacked
// (re, im) vectors.
type cplxOp struct{ s *Sparse }

func (op cplxOp) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	s := op.s
	n := s.dim
	be := s.be
	if trans {
		be = -be
	}
	re := make([]float64, n)
	im := make([]float64, n)
	for i := 0; i < n; i++ {
		re[i] = x.AtVec(i)
		im[i] = x.AtVec(n + i)
	}
	s.jac.mulVec(s.work, re, trans)
	for i := 0; i < n; i++ {
		mi := s.mass.diag(i, n)
		dst.SetVec(i, s.al*mi*re[i]-be*mi*im[i]-s.work[i])
	}
	s.jac.mulVec(s.work, im, trans)
	for i := 0; i < n; i++ {
		mi := s.mass.diag(i, n)
		dst.SetVec(n+i, be*mi*re[i]+s.al*mi*im[i]-s.work[i])
	}
}

func (s *Sparse) iterate(op linsolve.MulVecToer, b *mat.VecDense, r []float64) error {
	result, err := linsolve.Iterative(op, b, &linsolve.GMRES{}, &linsolve.Settings{
		MaxIterations: 20 * len(r),
		Tolerance:     1e-13,
	})
	if err != nil {
		return fmt.Errorf("linsol: sparse solve: %w", err)
	}
	copy(r, result.X.RawVector().Data)
	return nil
}

// SolveReal implements Backend.
func (s *Sparse) SolveReal(r []float64) error {
	copy(s.b.RawVector().Data, r)
	return s.iterate(realOp{s}, s.b, r)
}

// SolveComplex implements Backend.
func (s *Sparse) SolveComplex(re, im []float64) error {
	raw := s.bc.RawVector().Data
	copy(raw[:s.dim], re)
	copy(raw[s.dim:], im)
	sol := make([]float64, 2*s.dim)
	if err := s.iterate(cplxOp{s}, s.bc, sol); err != nil {
		return err
	}
	copy(re, sol[:s.dim])
	copy(im, sol[s.dim:])
	return nil
}

// Free implements Backend.
func (s *Sparse) Free() {
	s.jac = nil
	s.work, s.b, s.bc = nil, nil, nil
}
