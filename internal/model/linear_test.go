package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_Predict(t *testing.T) {
	l, err := NewLinear([][]float64{{1, 2}, {0, -1}}, []float64{10, 0.5}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, l.NumOutputs())

	out, err := l.Predict([]float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{21, -3.5}, out)
}

func TestLinear_DefaultIntercepts(t *testing.T) {
	l, err := NewLinear([][]float64{{2}}, nil, 1)
	require.NoError(t, err)

	out, err := l.Predict([]float64{4})
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, out)
}

func TestNewLinear_Invalid(t *testing.T) {
	_, err := NewLinear(nil, nil, 2)
	require.ErrorIs(t, err, ErrInvalidArtifact)

	_, err = NewLinear([][]float64{{1, 2}, {1}}, nil, 2)
	require.ErrorIs(t, err, ErrInvalidArtifact)
	assert.Contains(t, err.Error(), "row 1")

	_, err = NewLinear([][]float64{{1, 2}}, []float64{1, 2}, 2)
	require.ErrorIs(t, err, ErrInvalidArtifact)
	assert.Contains(t, err.Error(), "2 intercepts for 1 outputs")
}

func TestLinear_Importances(t *testing.T) {
	l, err := NewLinear([][]float64{{-3, 1, 0}, {100, 100, 100}}, nil, 3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.75, 0.25, 0}, l.Importances(), 1e-12)
}
