package planner

// greedyMatch approximates exactMatch in quadratic time. Rows are processed
// in slot order; each row takes the cheapest column not yet claimed. Ties
// keep the lowest column index (strict comparison during the scan). Choices
// are final, there is no backtracking.
func greedyMatch(cost [][]int) ([]int, int) {
	n := len(cost)
	perm := make([]int, n)
	used := make([]bool, n)
	total := 0

	for row := 0; row < n; row++ {
		bestCol := -1
		for col := 0; col < n; col++ {
			if used[col] {
				continue
			}
			if bestCol == -1 || cost[row][col] < cost[row][bestCol] {
				bestCol = col
			}
		}
		used[bestCol] = true
		perm[row] = bestCol
		total += cost[row][bestCol]
	}

	return perm, total
}
