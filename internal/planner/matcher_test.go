package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactMatchMinimizesTotal(t *testing.T) {
	cost := [][]int{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}

	perm, total := exactMatch(cost)
	assert.Equal(t, []int{1, 0, 2}, perm)
	assert.Equal(t, 5, total)
}

func TestExactMatchSingleSlot(t *testing.T) {
	perm, total := exactMatch([][]int{{7}})
	assert.Equal(t, []int{0}, perm)
	assert.Equal(t, 7, total)
}

func TestExactMatchTiesKeepFirstPermutation(t *testing.T) {
	cost := [][]int{
		{1, 1},
		{1, 1},
	}

	perm, total := exactMatch(cost)
	assert.Equal(t, []int{0, 1}, perm)
	assert.Equal(t, 2, total)
}

func TestGreedyMatchRowWiseSelection(t *testing.T) {
	cost := [][]int{
		{1, 9, 9},
		{1, 2, 9},
		{1, 2, 3},
	}

	perm, total := greedyMatch(cost)
	assert.Equal(t, []int{0, 1, 2}, perm)
	assert.Equal(t, 6, total)
}

func TestGreedyMatchTiesKeepLowestColumn(t *testing.T) {
	cost := [][]int{
		{5, 5, 5},
		{5, 5, 5},
		{5, 5, 5},
	}

	perm, _ := greedyMatch(cost)
	assert.Equal(t, []int{0, 1, 2}, perm)
}

// The heuristic never beats the exhaustive search on minimization.
func TestExactNeverWorseThanGreedy(t *testing.T) {
	matrices := [][][]int{
		{
			{4, 1, 3},
			{2, 0, 5},
			{3, 2, 2},
		},
		{
			// Greedy grabs the cheap corner first and pays for it later.
			{1, 2, 3},
			{2, 4, 10},
			{3, 10, 4},
		},
		{
			{6, 6},
			{6, 6},
		},
		{
			{3},
		},
	}

	for _, cost := range matrices {
		_, exactTotal := exactMatch(cost)
		_, greedyTotal := greedyMatch(cost)
		assert.LessOrEqual(t, exactTotal, greedyTotal)
	}
}

func TestMatchersAreDeterministic(t *testing.T) {
	cost := [][]int{
		{2, 2, 7},
		{7, 2, 2},
		{2, 7, 2},
	}

	exactFirst, exactTotal := exactMatch(cost)
	greedyFirst, greedyTotal := greedyMatch(cost)

	for i := 0; i < 5; i++ {
		perm, total := exactMatch(cost)
		require.Equal(t, exactFirst, perm)
		require.Equal(t, exactTotal, total)

		perm, total = greedyMatch(cost)
		require.Equal(t, greedyFirst, perm)
		require.Equal(t, greedyTotal, total)
	}
}
