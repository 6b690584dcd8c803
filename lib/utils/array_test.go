package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatch(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		size  int
		want  [][]int
	}{
		{name: "empty", input: []int{}, size: 3, want: [][]int{}},
		{name: "zero size", input: []int{1, 2}, size: 0, want: [][]int{}},
		{name: "exact", input: []int{1, 2, 3, 4}, size: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", input: []int{1, 2, 3, 4, 5}, size: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "bigger than input", input: []int{1, 2}, size: 10, want: [][]int{{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Batch(tt.input, tt.size))
		})
	}
}

func TestBatchDoesNotLeakCapacity(t *testing.T) {
	input := []int{1, 2, 3, 4}
	batches := Batch(input, 2)

	first := append(batches[0], 99)

	assert.Equal(t, []int{1, 2, 99}, first)
	assert.Equal(t, []int{1, 2, 3, 4}, input)
}
