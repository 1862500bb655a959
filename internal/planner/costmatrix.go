package planner

// buildCostMatrix computes the slot-pairing cost between the previous tier's
// slot-ordered assignment and the current tier's candidate group. Cell (i, j)
// is the combined ballot weight drawn by the previous tier's slot-i
// presentation and candidate j if both ran concurrently. The sum is additive:
// shared interest between two co-voted presentations is not weighted above
// the plain total of their independent popularity, a known approximation.
func buildCostMatrix(ballots [][]int, prev, candidates []int) [][]int {
	n := len(prev)
	cost := make([][]int, n)
	for i := range cost {
		row := make([]int, n)
		for j := range row {
			row[j] = combinedInterest(ballots, prev[i], candidates[j])
		}
		cost[i] = row
	}
	return cost
}

func combinedInterest(ballots [][]int, a, b int) int {
	total := 0
	for _, ballot := range ballots {
		total += ballot[a] + ballot[b]
	}
	return total
}
