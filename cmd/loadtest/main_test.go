package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	data := []float64{5, 1, 4, 2, 3, 10, 9, 8, 7, 6}
	assert.Equal(t, 5.0, percentile(data, 50))
	assert.Equal(t, 10.0, percentile(data, 95))
	assert.Equal(t, 1.0, percentile(data, 0))
	assert.Equal(t, 7.0, percentile([]float64{7}, 99))
}
