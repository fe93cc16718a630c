package kalman

import "gonum.org/v1/gonum/mat"

// filterPresent reduces h (m x n), z (length m), and r (m x m) down to
// the rows/entries/rows-and-columns selected by present, preserving
// relative order. present must have length m. The returned rowIndex
// slice maps each row of the filtered matrices back to its original
// (unfiltered) observation index, for ObsIndex bookkeeping.
func filterPresent(h *mat.Dense, r *mat.Dense, z *mat.VecDense, present []bool) (hf, rf *mat.Dense, zf *mat.VecDense, rowIndex []int) {
	_, n := h.Dims()

	rowIndex = make([]int, 0, len(present))
	for j, ok := range present {
		if ok {
			rowIndex = append(rowIndex, j)
		}
	}

	mf := len(rowIndex)
	hf = mat.NewDense(mf, n, nil)
	zf = mat.NewVecDense(mf, nil)
	rf = mat.NewDense(mf, mf, nil)

	for fi, j := range rowIndex {
		for c := 0; c < n; c++ {
			hf.Set(fi, c, h.At(j, c))
		}
		zf.SetVec(fi, z.AtVec(j))

		for fk, k := range rowIndex {
			rf.Set(fi, fk, r.At(j, k))
		}
	}

	return hf, rf, zf, rowIndex
}

// rowVec extracts row j of h as a length-n vector, for scalar
// sequential correction.
func rowVec(h *mat.Dense, j int) *mat.VecDense {
	_, n := h.Dims()
	out := mat.NewVecDense(n, nil)
	for c := 0; c < n; c++ {
		out.SetVec(c, h.At(j, c))
	}
	return out
}
