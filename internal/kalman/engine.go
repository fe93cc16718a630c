package kalman

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDimMismatch is a precondition violation: a step was invoked with
// matrices whose dimensions don't agree with the filter's state
// dimension. The caller should treat this as a fatal programming
// error, not a degraded-quality result.
var ErrDimMismatch = errors.New("kalman: dimension mismatch")

// Extrapolate propagates (x_k, P_k) forward under transition (F, Q):
//
//	x_{k+1|k} = F . x_k
//	P_{k+1|k} = F . P_k . F^T + Q
//
// The resulting covariance is symmetrized before return.
func Extrapolate(x *mat.VecDense, p *mat.SymDense, f, q *mat.Dense) (*mat.VecDense, *mat.SymDense, error) {
	n, _ := f.Dims()
	if x.Len() != n || p.SymmetricDim() != n {
		return nil, nil, fmt.Errorf("%w: extrapolate wants n=%d, got x.Len=%d P.Dim=%d", ErrDimMismatch, n, x.Len(), p.SymmetricDim())
	}

	xOut := mat.NewVecDense(n, nil)
	xOut.MulVec(f, x)

	var fp mat.Dense
	fp.Mul(f, p)

	var fpft mat.Dense
	fpft.Mul(&fp, f.T())

	var pOut mat.Dense
	pOut.Add(&fpft, q)

	return xOut, symmetrize(&pOut), nil
}

// BatchedCorrect applies all present observations in one solve:
//
//	S = H . P . H^T + R                 (m x m)
//	K = P . H^T . S^-1                  (n x m)
//	x_{k+1} = x_{k+1|k} + K . (z - H . x_{k+1|k})
//	P_{k+1} = (I - K.H) . P_{k+1|k}
//
// S is solved via Cholesky; if it is not positive definite, ok is
// false and the extrapolated (x, P) are returned unchanged — a
// numerical failure, not an error.
func BatchedCorrect(x *mat.VecDense, p *mat.SymDense, h, r *mat.Dense, z *mat.VecDense) (xOut *mat.VecDense, pOut *mat.SymDense, k *mat.Dense, ok bool, err error) {
	n := x.Len()
	m, hc := h.Dims()
	if hc != n {
		return nil, nil, nil, false, fmt.Errorf("%w: H has %d cols, want %d", ErrDimMismatch, hc, n)
	}
	if z.Len() != m {
		return nil, nil, nil, false, fmt.Errorf("%w: z has len %d, want %d", ErrDimMismatch, z.Len(), m)
	}
	rr, rc := r.Dims()
	if rr != m || rc != m {
		return nil, nil, nil, false, fmt.Errorf("%w: R is %dx%d, want %dx%d", ErrDimMismatch, rr, rc, m, m)
	}

	var hp mat.Dense
	hp.Mul(h, p)

	var hpht mat.Dense
	hpht.Mul(&hp, h.T())

	var sDense mat.Dense
	sDense.Add(&hpht, r)

	sSym := symmetrize(&sDense)

	var chol mat.Cholesky
	if !chol.Factorize(sSym) {
		return x, p, nil, false, nil
	}

	sInv := mat.NewSymDense(m, nil)
	if err := chol.InverseTo(sInv); err != nil {
		return x, p, nil, false, nil
	}

	var pht mat.Dense
	pht.Mul(p, h.T())

	kGain := mat.NewDense(n, m, nil)
	kGain.Mul(&pht, sInv)

	var hx mat.VecDense
	hx.MulVec(h, x)

	innovation := mat.NewVecDense(m, nil)
	innovation.SubVec(z, &hx)

	var correction mat.VecDense
	correction.MulVec(kGain, &innovation)

	xNew := mat.NewVecDense(n, nil)
	xNew.AddVec(x, &correction)

	ident := identity(n)
	var kh mat.Dense
	kh.Mul(kGain, h)

	var ikh mat.Dense
	ikh.Sub(ident, &kh)

	var pNew mat.Dense
	pNew.Mul(&ikh, p)

	return xNew, symmetrize(&pNew), kGain, true, nil
}

// ScalarCorrect applies a single observation row h (length n) with
// scalar variance r against z, for the diagonal-R case. Used by
// scalar-sequential correction to avoid an m x m solve when
// observations are mutually independent.
//
//	s = h . P . h^T + r
//	k = P . h^T / s
//	x <- x + k.(z - h.x)
//	P <- (I - k.h) . P
func ScalarCorrect(x *mat.VecDense, p *mat.SymDense, h *mat.VecDense, r, z float64) (xOut *mat.VecDense, pOut *mat.SymDense, k *mat.VecDense, ok bool) {
	n := x.Len()

	var ph mat.VecDense
	ph.MulVec(p, h)

	s := mat.Dot(h, &ph) + r
	if s <= 0 {
		return x, p, nil, false
	}

	kVec := mat.NewVecDense(n, nil)
	kVec.ScaleVec(1/s, &ph)

	hx := mat.Dot(h, x)
	innovation := z - hx

	xNew := mat.NewVecDense(n, nil)
	xNew.AddScaledVec(x, innovation, kVec)

	var kh mat.Dense
	kh.Outer(1, kVec, h)

	ident := identity(n)
	var ikh mat.Dense
	ikh.Sub(ident, &kh)

	var pNew mat.Dense
	pNew.Mul(&ikh, p)

	return xNew, symmetrize(&pNew), kVec, true
}

func identity(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}
