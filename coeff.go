package radau5

import "math"

// Three-stage Radau IIA data. The collocation nodes are the roots of the
// Radau polynomial, the last row of the Butcher matrix doubles as the
// quadrature weights, and e1..e3 weight the embedded error estimate.
// gamma and alpha±i·beta are the eigenvalues of the inverse Butcher
// matrix; t/ti realise its real block diagonalization
//	A⁻¹ = T · diag(gamma, [alpha −beta; beta alpha]) · T⁻¹
// in the normalisation with t32 = 1, t33 = 0. Everything is computed once
// at package load.
var (
	c1, c2 float64 // nodes; the third node is 1

	e1, e2, e3 float64

	gamma, alpha, beta float64

	t11, t12, t13 float64
	t21, t22, t23 float64
	t31, t32, t33 float64

	ti11, ti12, ti13 float64
	ti21, ti22, ti23 float64
	ti31, ti32, ti33 float64

	// butcherA and butcherB are not used while stepping; they anchor the
	// coefficient tests.
	butcherA [3][3]float64
	butcherB [3]float64
)

func init() {
	sq6 := math.Sqrt(6)
	c1 = (4 - sq6) / 10
	c2 = (4 + sq6) / 10

	e1 = (-13 - 7*sq6) / 3
	e2 = (-13 + 7*sq6) / 3
	e3 = -1. / 3

	st9 := math.Cbrt(9)
	u1 := (6 + st9*(st9-1)) / 30
	al := (12 - st9*(st9-1)) / 60
	be := st9 * (st9 + 1) * math.Sqrt(3) / 60
	cno := al*al + be*be
	gamma = 1 / u1
	alpha = al / cno
	beta = be / cno

	t11, t12, t13 = 9.1232394870892942792e-02, -0.14125529502095420843, -3.0029194105147424492e-02
	t21, t22, t23 = 0.24171793270710701896, 0.20412935229379993199, 0.38294211275726193779
	t31, t32, t33 = 0.96604818261509293619, 1.0, 0.0

	ti11, ti12, ti13 = 4.3255798900631553510, 0.33919925181580986954, 0.54177053993587487119
	ti21, ti22, ti23 = -4.1787185915519047273, -0.32768282076106238708, 0.47662355450055045196
	ti31, ti32, ti33 = -0.50287263494578687595, 2.5719269498556054292, -0.59603920482822492497

	butcherA = [3][3]float64{
		{(88 - 7*sq6) / 360, (296 - 169*sq6) / 1800, (-2 + 3*sq6) / 225},
		{(296 + 169*sq6) / 1800, (88 + 7*sq6) / 360, (-2 - 3*sq6) / 225},
		{(16 - sq6) / 36, (16 + sq6) / 36, 1. / 9},
	}
	butcherB = butcherA[2]
}
