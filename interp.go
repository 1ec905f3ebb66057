package radau5

// buildPoly rebuilds the collocation polynomial from the accepted stage
// increments by divided differences over the nodes (c1, c2, 1).
func (sol *Solver) buildPoly() {
	for i := 0; i < sol.dim; i++ {
		q2 := sol.z1[i] / c1
		q1 := (sol.z1[i] - sol.z2[i]) / (c1 - c2)
		q0 := (sol.z2[i] - sol.z3[i]) / (c2 - 1)
		q2 = (q1 - q2) / c2
		q1 = (q1 - q0) / (c1 - 1)
		q2 = q1 - q2
		sol.p0[i], sol.p1[i], sol.p2[i] = q0, q1, q2
	}
	sol.hasPoly = true
}

// contOut evaluates the collocation polynomial at time t into dst. The
// polynomial is anchored at (t_new, y_new) with tau = (t − t_new)/h_old, so
// tau = 0 reproduces y_new exactly.
func (sol *Solver) contOut(dst []float64, t float64) {
	tau := (t - sol.tnew) / sol.hold
	for i := 0; i < sol.dim; i++ {
		dst[i] = sol.yc[i] + tau*(sol.p0[i]+(tau-c2+1)*(sol.p1[i]+(tau-c1+1)*sol.p2[i]))
	}
}
