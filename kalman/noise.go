package kalman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DiscreteWhiteNoise returns the process noise matrix of a piecewise white
// noise model for a kinematic chain of order dim (2 = position/velocity,
// 3 = position/velocity/acceleration), repeated blockSize times along the
// diagonal.  The state layout is [p, v(, a)] per block.
func DiscreteWhiteNoise(dim int, dt, variance float64, blockSize int) (*mat.Dense, error) {

	var block [][]float64

	switch dim {
	case 2:
		block = [][]float64{
			{.25 * dt * dt * dt * dt, .5 * dt * dt * dt},
			{.5 * dt * dt * dt, dt * dt},
		}
	case 3:
		block = [][]float64{
			{.25 * dt * dt * dt * dt, .5 * dt * dt * dt, .5 * dt * dt},
			{.5 * dt * dt * dt, dt * dt, dt},
			{.5 * dt * dt, dt, 1},
		}
	default:
		return nil, fmt.Errorf("%w: white noise order %d not supported", ErrDimension, dim)
	}

	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size %d", ErrDimension, blockSize)
	}

	n := dim * blockSize
	q := mat.NewDense(n, n, nil)

	for b := 0; b < blockSize; b++ {
		off := b * dim
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				q.Set(off+i, off+j, block[i][j]*variance)
			}
		}
	}

	return q, nil
}
