package app

import (
	"testing"

	"biometric/domain/selection"
	"biometric/internal/config"
	"biometric/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(newGatedPort(false), nil, config.Default().Debounce, nil)

	a := r.Open(selection.KindCorrelation, "s1")
	b := r.Open(selection.KindFrequency, "s1")
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, config.DefaultCorrelationDebounce, a.debouncer.Duration())
	assert.Equal(t, config.DefaultDescriptiveDebounce, b.debouncer.Duration())

	got, err := r.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, r.Close(a.ID()))
	_, err = r.Get(a.ID())
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(r.Close(a.ID())))
	assert.ErrorIs(t, a.SetVariables([]string{"x"}), ErrViewClosed)

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, b.Refresh(), ErrViewClosed)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Excel")
	require.NoError(t, err)
	assert.Equal(t, FormatExcel, f)
	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	_, err = ParseFormat("csv")
	assert.Error(t, err)
}
