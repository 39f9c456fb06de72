package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadParsesRecords(t *testing.T) {
	src := "b 0 0.1\n\na 0 0\n  c\t10   10 \nd 1e1 10.1\n"
	ds, err := NewReader().Read(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, ds.Keys())
	i, _ := ds.Index("d")
	assert.Equal(t, []float64{10, 10.1}, ds.Vector(i))
}

func TestReadDuplicateKeyKeepsLast(t *testing.T) {
	ds, err := NewReader().Read(strings.NewReader("a 1 1\na 2 2\n"))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, []float64{2, 2}, ds.Vector(0))
}

func TestReadEmptyInput(t *testing.T) {
	ds, err := NewReader().Read(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Zero(t, ds.Len())
}

func TestReadRejectsMalformedRecords(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"key only", "a 1 2\nlonely\n", "line 2"},
		{"not a number", "a 1 x\n", `"x" is not a number`},
		{"nan", "a 1 NaN\n", "not finite"},
		{"inf", "a +Inf 1\n", "not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader().Read(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("x 1 2 3\ny 4 5 6\n"), 0o600))

	ds, err := NewReader().ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	_, err = NewReader().ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, apperrors.ErrInputUnavailable)
}

func TestValidate(t *testing.T) {
	ds, err := NewReader().Read(strings.NewReader("a 1 2\nb 1 2 3\n"))
	require.NoError(t, err)

	assert.NoError(t, Validate(ds, config.InputConfig{}))

	err = Validate(ds, config.InputConfig{StrictDimensions: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDimensionMismatch)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "dimensions")

	err = Validate(ds, config.InputConfig{MaxDimensions: 2})
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "limit is 2")
}
