package linsol

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dense solves the stage systems with LU factorizations with partial
// pivoting. The complex system is handled as an equivalent real block
// system of order 2·dim,
//	[ (α/h)M − J   −(β/h)M    ]
//	[  (β/h)M      (α/h)M − J ]
// acting on the stacked (re, im) parts.
type Dense struct {
	dim  int
	mass Mass

	jac *mat.Dense // current Jacobian, written by the provider
	mr  *mat.Dense // (γ/h)M − J
	mc  *mat.Dense // real block form of ((α+iβ)/h)M − J

	luR mat.LU
	luC mat.LU

	br, xr *mat.VecDense // real rhs/solution scratch
	bc, xc *mat.VecDense // block rhs/solution scratch
}

// NewDense allocates a dense back-end for a system of size dim.
func NewDense(dim int, mass Mass) *Dense {
	return &Dense{
		dim:  dim,
		mass: mass,
		jac:  mat.NewDense(dim, dim, nil),
		mr:   mat.NewDense(dim, dim, nil),
		mc:   mat.NewDense(2*dim, 2*dim, nil),
		br:   mat.NewVecDense(dim, nil),
		xr:   mat.NewVecDense(dim, nil),
		bc:   mat.NewVecDense(2*dim, nil),
		xc:   mat.NewVecDense(2*dim, nil),
	}
}

// Jacobian exposes the back-end's Jacobian storage. The provider fills it
// before requesting a factorization.
func (d *Dense) Jacobian() *mat.Dense { return d.jac }

// Factor implements Backend.
func (d *Dense) Factor(h, gamma, alpha, beta float64) error {
	n := d.dim
	g, al, be := gamma/h, alpha/h, beta/h
	for i := 0; i < n; i++ {
		mi := d.mass.diag(i, n)
		for j := 0; j < n; j++ {
			v := -d.jac.At(i, j)
			d.mr.Set(i, j, v)
			d.mc.Set(i, j, v)
			d.mc.Set(n+i, n+j, v)
			d.mc.Set(i, n+j, 0)
			d.mc.Set(n+i, j, 0)
		}
		d.mr.Set(i, i, d.mr.At(i, i)+g*mi)
		d.mc.Set(i, i, d.mc.At(i, i)+al*mi)
		d.mc.Set(n+i, n+i, d.mc.At(n+i, n+i)+al*mi)
		d.mc.Set(i, n+i, -be*mi)
		d.mc.Set(n+i, i, be*mi)
	}
	d.luR.Factorize(d.mr)
	if singularLU(&d.luR) {
		return ErrSingular
	}
	d.luC.Factorize(d.mc)
	if singularLU(&d.luC) {
		return ErrSingular
	}
	return nil
}

// singularLU reports a vanished pivot without the under/overflow traps of
// a plain determinant.
func singularLU(lu *mat.LU) bool {
	ld, sign := lu.LogDet()
	return sign == 0 || math.IsInf(ld, -1) || math.IsNaN(ld)
}

// SolveReal implements Backend.
func (d *Dense) SolveReal(r []float64) error {
	copy(d.br.RawVector().Data, r)
	if err := d.luR.SolveVecTo(d.xr, false, d.br); err != nil {
		if _, conditioned := err.(mat.Condition); !conditioned {
			return ErrSingular
		}
	}
	copy(r, d.xr.RawVector().Data)
	return nil
}

// SolveComplex implements Backend.
func (d *Dense) SolveComplex(re, im []float64) error {
	raw := d.bc.RawVector().Data
	copy(raw[:d.dim], re)
	copy(raw[d.dim:], im)
	if err := d.luC.SolveVecTo(d.xc, false, d.bc); err != nil {
		if _, conditioned := err.(mat.Condition); !conditioned {
			return ErrSingular
		}
	}
	sol := d.xc.RawVector().Data
	copy(re, sol[:d.dim])
	copy(im, sol[d.dim:])
	return nil
}

// Free implements Backend.
func (d *Dense) Free() {
	d.jac, d.mr, d.mc = nil, nil, nil
	d.br, d.xr, d.bc, d.xc = nil, nil, nil, nil
}
