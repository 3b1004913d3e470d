package tracker

import (
	"errors"
)

// largeCost is used as infinity while searching for minima
const largeCost = 1000000.0

// lapjv holds the working state of the Jonker-Volgenant solver for a dense
// n x n cost matrix
type lapjv struct {
	n    int
	cost [][]float64
	// x[i] is the column assigned to row i
	x []int
	// y[j] is the row assigned to column j
	y []int
	// v holds the column dual variables
	v []float64
}

// lapjvInternal solves the dense LAP (Linear Assignment Problem) for the
// n x n cost matrix writing the row and column solutions into x and y.  It
// returns the number of rows left unassigned, zero on success.
func lapjvInternal(n int, cost [][]float64, x, y []int) (int, error) {

	s := &lapjv{
		n:    n,
		cost: cost,
		x:    x,
		y:    y,
		v:    make([]float64, n),
	}

	freeRows := make([]int, n)

	nFree := s.columnReduction(freeRows)

	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = s.augmentingRowReduction(nFree, freeRows)
	}

	if nFree > 0 {
		if err := s.augment(freeRows[:nFree]); err != nil {
			return nFree, err
		}
	}

	return 0, nil
}

// columnReduction assigns every column to its cheapest row and transfers
// the reduction to rows assigned once.  The free rows are written to
// freeRows and their count returned.
func (s *lapjv) columnReduction(freeRows []int) int {

	n := s.n
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		s.x[i] = -1
		s.v[i] = largeCost
		s.y[i] = 0
		unique[i] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := s.cost[i][j]; c < s.v[j] {
				s.v[j] = c
				s.y[j] = i
			}
		}
	}

	// walk columns backwards so the lowest column wins a shared row
	for j := n - 1; j >= 0; j-- {
		i := s.y[j]
		if s.x[i] < 0 {
			s.x[i] = j
		} else {
			unique[i] = false
			s.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if s.x[i] < 0 {
			freeRows[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := s.x[i]
		minVal := largeCost

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}
			if c := s.cost[i][j2] - s.v[j2]; c < minVal {
				minVal = c
			}
		}

		s.v[j] -= minVal
	}

	return nFree
}

// augmentingRowReduction tries to assign each free row to its cheapest
// reduced column, displacing the current owner when it lowers the dual.
// It returns the number of rows still free.
func (s *lapjv) augmentingRowReduction(nFree int, freeRows []int) int {

	n := s.n
	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := freeRows[current]
		current++

		// lowest and second lowest reduced cost of the row
		j1 := 0
		v1 := s.cost[freeI][0] - s.v[0]
		j2 := -1
		v2 := largeCost

		for j := 1; j < n; j++ {
			c := s.cost[freeI][j] - s.v[j]
			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		i0 := s.y[j1]
		v1New := s.v[j1] - (v2 - v1)
		v1Lowers := v1New < s.v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				s.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = s.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					freeRows[current] = i0
				} else {
					freeRows[newFree] = i0
					newFree++
				}
			}
		} else if i0 >= 0 {
			freeRows[newFree] = i0
			newFree++
		}

		s.x[freeI] = j1
		s.y[j1] = freeI
	}

	return newFree
}

// augment assigns each remaining free row along a shortest augmenting path
func (s *lapjv) augment(freeRows []int) error {

	n := s.n
	pred := make([]int, n)

	for _, freeI := range freeRows {

		j := s.findPath(freeI, pred)

		if j < 0 || j >= n {
			return errors.New("lapjv: augmenting path not found")
		}

		i := -1

		for k := 0; i != freeI; k++ {

			if k >= n {
				return errors.New("lapjv: augmenting path is cyclic")
			}

			i = pred[j]
			s.y[j] = i
			j, s.x[i] = s.x[i], j
		}
	}

	return nil
}

// findPath runs a single iteration of the modified Dijkstra shortest path
// search from startI and returns the free column reached
func (s *lapjv) findPath(startI int, pred []int) int {

	n := s.n
	lo, hi := 0, 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = startI
		d[j] = s.cost[startI][j] - s.v[j]
	}

	for finalJ == -1 {

		// no columns left on the SCAN list
		if lo == hi {
			nReady = lo
			hi = s.findMin(lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; s.y[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = s.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for _, j := range cols[:nReady] {
		s.v[j] += d[j] - mind
	}

	return finalJ
}

// findMin moves the columns with minimum d from cols[lo:] to the front of
// that range and returns the end of the moved block
func (s *lapjv) findMin(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < s.n; k++ {

		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scan relaxes the TODO columns cols[hi:] through the SCAN columns
// cols[lo:hi].  It returns a free column reached at minimum distance or -1.
func (s *lapjv) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := s.y[j]
		mind := d[j]
		h := s.cost[i][j] - s.v[j] - mind

		for k := *hi; k < s.n; k++ {

			j = cols[k]
			credIJ := s.cost[i][j] - s.v[j] - h

			if credIJ >= d[j] {
				continue
			}

			d[j] = credIJ
			pred[j] = i

			if credIJ == mind {
				if s.y[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				*hi++
			}
		}
	}

	return -1
}
