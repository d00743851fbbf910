package data_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/styleshift/internal/data"
)

func TestPrepareData_PadsAndMasks(t *testing.T) {
	b, err := data.PrepareData([]data.Example{
		{Source: []int{5, 6, 7}, Target: []int{8}, Label: 1},
		{Source: []int{9}, Target: []int{3, 4}, Label: 0},
	}, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, b.Size())
	assert.Equal(t, 4, b.SourceLen())
	assert.Equal(t, 3, b.TargetLen())
	assert.Equal(t, []int{1, 0}, b.Labels)

	assert.Equal(t, [][]int{{5, 9}, {6, 0}, {7, 0}, {0, 0}}, b.X)
	assert.Equal(t, [][]float64{{1, 1}, {1, 1}, {1, 0}, {1, 0}}, b.XMask)
	assert.Equal(t, [][]int{{8, 3}, {0, 4}, {0, 0}}, b.Y)
	assert.Equal(t, [][]float64{{1, 1}, {1, 1}, {0, 1}}, b.YMask)

	assert.Equal(t, []int{5, 6, 7}, b.Source(0))
	assert.Equal(t, []int{3, 4}, b.Target(1))
}

func TestPrepareData_FiltersByMaxLen(t *testing.T) {
	b, err := data.PrepareData([]data.Example{
		{Source: []int{2, 2, 2}, Target: []int{2}},
		{Source: []int{2}, Target: []int{2, 2}, Label: 1},
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Size())
	assert.Equal(t, []int{1}, b.Labels)
}

func TestPrepareData_EmptyBatch(t *testing.T) {
	_, err := data.PrepareData([]data.Example{
		{Source: []int{2, 2, 2}, Target: []int{2}},
	}, 2)
	assert.True(t, errors.Is(err, data.ErrEmptyBatch))

	_, err = data.PrepareData(nil, 0)
	assert.True(t, errors.Is(err, data.ErrEmptyBatch))
}
