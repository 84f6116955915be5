// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(dtypes.Complex64, 4, 1024)
	assert.True(t, s.Ok())
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 4, s.Rows())
	assert.Equal(t, 1024, s.Cols())
	assert.Equal(t, 4096, s.Size())
	assert.Equal(t, uintptr(4096*8), s.Memory())
	assert.Equal(t, 1024, s.Dim(-1))
	assert.Equal(t, "(Complex64)[4 1024]", s.String())

	require.Panics(t, func() { _ = Make(dtypes.Float32, 3, 0) })
	require.Panics(t, func() { _ = s.Dim(2) })
}

func TestRowsCols(t *testing.T) {
	scalar := Make(dtypes.Int16)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Rows())
	assert.Equal(t, 1, scalar.Cols())
	assert.Equal(t, 1, scalar.Size())

	vector := Make(dtypes.Float64, 7)
	assert.Equal(t, 1, vector.Rows())
	assert.Equal(t, 7, vector.Cols())

	assert.False(t, Invalid().Ok())
}

func TestEqualAndCheck(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	s2 := s.Clone()
	s2.Dimensions[0] = 5
	assert.False(t, s.Equal(s2))
	assert.True(t, s.Equal(Make(dtypes.Float32, 2, 3)))
	assert.False(t, s.Equal(Make(dtypes.Float64, 2, 3)))

	require.NoError(t, s.Check(dtypes.Float32, 2, -1))
	require.Error(t, s.Check(dtypes.Float64, 2, 3))
	require.Error(t, s.CheckDims(2))
	require.Error(t, s.CheckDims(2, 4))
}
