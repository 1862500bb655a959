package planner

import "math"

// exactMatch finds the row-to-column permutation minimizing the summed cost
// over all rows via exhaustive depth-first search. The search is iterative
// with an explicit used-column array rather than call-stack recursion, so
// depth is bounded by the slot count alone. Ties keep the permutation
// discovered first, which with in-order column expansion favors lower column
// indices. Factorial in the matrix size; callers guard the slot count.
func exactMatch(cost [][]int) ([]int, int) {
	n := len(cost)
	if n == 0 {
		return nil, 0
	}

	used := make([]bool, n)
	choice := make([]int, n)
	running := make([]int, n+1)
	best := make([]int, n)
	bestTotal := math.MaxInt

	row, col := 0, 0
	for {
		if col < n {
			if used[col] {
				col++
				continue
			}
			running[row+1] = running[row] + cost[row][col]
			if row == n-1 {
				if running[row+1] < bestTotal {
					bestTotal = running[row+1]
					choice[row] = col
					copy(best, choice)
				}
				col++
				continue
			}
			used[col] = true
			choice[row] = col
			row++
			col = 0
			continue
		}
		if row == 0 {
			break
		}
		row--
		col = choice[row]
		used[col] = false
		col++
	}

	return best, bestTotal
}
