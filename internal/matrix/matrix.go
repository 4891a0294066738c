// Package matrix builds travel cost matrices between geographic points,
// preferring street network distances and degrading to great-circle
// distances per pair.
package matrix

import (
	"errors"
	"fmt"
)

// Common matrix errors.
var (
	// ErrNoPoints indicates an empty point list.
	ErrNoPoints = errors.New("no points to build matrix from")

	// ErrNotSquare indicates a malformed matrix.
	ErrNotSquare = errors.New("matrix is not square")

	// ErrNegativeCost indicates a negative entry.
	ErrNegativeCost = errors.New("matrix contains a negative cost")

	// ErrDiagonalNotZero indicates a nonzero self-distance.
	ErrDiagonalNotZero = errors.New("matrix diagonal is not zero")
)

// Matrix holds pairwise travel costs in whole meters. Entry [i][j] is the
// cost of traveling from point i to point j; the diagonal is zero.
type Matrix [][]int

// New allocates an n by n zero matrix.
func New(n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	return m
}

// Size returns the number of points the matrix covers.
func (m Matrix) Size() int {
	return len(m)
}

// Validate checks that the matrix is square, non-negative and has a zero
// diagonal.
func (m Matrix) Validate() error {
	n := len(m)
	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("row %d has %d entries, want %d: %w", i, len(row), n, ErrNotSquare)
		}
		for j, cost := range row {
			if cost < 0 {
				return fmt.Errorf("entry [%d][%d] = %d: %w", i, j, cost, ErrNegativeCost)
			}
			if i == j && cost != 0 {
				return fmt.Errorf("entry [%d][%d] = %d: %w", i, j, cost, ErrDiagonalNotZero)
			}
		}
	}
	return nil
}
