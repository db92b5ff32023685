package ta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLast(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 4.0, Last(s, 0))
	assert.Equal(t, 3.0, Last(s, 1))
	assert.Equal(t, 1.0, Last(s, 3))
}

func TestLastValues(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, []float64{4, 5}, LastValues(s, 2))
	// 序列不足时原样返回
	assert.Equal(t, s, LastValues(s, 10))
}

func TestCrossover(t *testing.T) {
	// 上一根仍在下方，本根突破
	assert.True(t, Crossover([]float64{1, 3}, []float64{2, 2}))
	// 持续在上方不算突破
	assert.False(t, Crossover([]float64{3, 4}, []float64{2, 2}))
	assert.False(t, Crossover([]float64{1, 2}, []float64{2, 2}))
}

func TestCrossunder(t *testing.T) {
	assert.True(t, Crossunder([]float64{3, 1}, []float64{2, 2}))
	// 持续在下方不算破位
	assert.False(t, Crossunder([]float64{1, 1}, []float64{2, 2}))
	assert.False(t, Crossunder([]float64{3, 4}, []float64{2, 2}))
}

func TestChange(t *testing.T) {
	s := []float64{100, 110, 121}
	assert.InDelta(t, 0.21, Change(s, 2), 1e-9)
	assert.InDelta(t, 0.1, Change(s, 1), 1e-9)
	// 序列不足或基准为零时返回0
	assert.Equal(t, 0.0, Change(s, 5))
	assert.Equal(t, 0.0, Change([]float64{0, 10}, 1))
}
