package tracker

import (
	"fmt"

	"github.com/charles-haynes/munkres"
)

// Solver solves the square linear assignment problem.  rowsol[i] is the
// column assigned to row i.
type Solver interface {
	Solve(cost [][]float64) (rowsol []int, err error)
}

// NewSolver returns the named solver, lapjv (the default) or munkres
func NewSolver(name string) (Solver, error) {
	switch name {
	case "", "lapjv":
		return LapjvSolver{}, nil
	case "munkres":
		return MunkresSolver{}, nil
	}
	return nil, fmt.Errorf("unknown assignment solver %q", name)
}

// LapjvSolver uses the Jonker-Volgenant shortest augmenting path algorithm
type LapjvSolver struct{}

// Solve implements Solver
func (LapjvSolver) Solve(cost [][]float64) ([]int, error) {

	n := len(cost)
	x := make([]int, n)
	y := make([]int, n)

	ret, err := lapjvInternal(n, cost, x, y)

	if err != nil {
		return nil, err
	}

	if ret != 0 {
		return nil, fmt.Errorf("lapjv left %d rows unassigned", ret)
	}

	return x, nil
}

// MunkresSolver uses the Hungarian (Kuhn-Munkres) algorithm
type MunkresSolver struct{}

// Solve implements Solver
func (MunkresSolver) Solve(cost [][]float64) ([]int, error) {

	ha, err := munkres.NewHungarianAlgorithm(cost)

	if err != nil {
		return nil, fmt.Errorf("error creating hungarian solver: %w", err)
	}

	return ha.Execute(), nil
}

// linearAssignment matches rows (tracks) to columns (detections) with
// minimum total cost, never pairing a row and column whose cost exceeds
// costLimit.  The problem is extended to (rows+cols) square with dummy
// entries costing costLimit/2 so any row or column may stay unmatched.
func linearAssignment(solver Solver, cost [][]float64, nRows, nCols int,
	costLimit float64) (matchesIdx [][2]int, unmatchTrackIdx, unmatchDetectionIdx []int, err error) {

	if nRows == 0 || nCols == 0 {
		for i := 0; i < nRows; i++ {
			unmatchTrackIdx = append(unmatchTrackIdx, i)
		}
		for i := 0; i < nCols; i++ {
			unmatchDetectionIdx = append(unmatchDetectionIdx, i)
		}
		return
	}

	n := nRows + nCols
	extended := make([][]float64, n)

	for i := range extended {
		extended[i] = make([]float64, n)

		for j := range extended[i] {
			switch {
			case i < nRows && j < nCols:
				extended[i][j] = cost[i][j]
			case i >= nRows && j >= nCols:
				extended[i][j] = 0
			default:
				extended[i][j] = costLimit / 2
			}
		}
	}

	rowsol, err := solver.Solve(extended)

	if err != nil {
		return nil, nil, nil, fmt.Errorf("error solving assignment: %w", err)
	}

	matchedCol := make([]bool, nCols)

	for i := 0; i < nRows; i++ {

		j := -1

		if i < len(rowsol) {
			j = rowsol[i]
		}

		if j >= 0 && j < nCols && cost[i][j] <= costLimit {
			matchesIdx = append(matchesIdx, [2]int{i, j})
			matchedCol[j] = true
			continue
		}

		unmatchTrackIdx = append(unmatchTrackIdx, i)
	}

	for j, matched := range matchedCol {
		if !matched {
			unmatchDetectionIdx = append(unmatchDetectionIdx, j)
		}
	}

	return matchesIdx, unmatchTrackIdx, unmatchDetectionIdx, nil
}
