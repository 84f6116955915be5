// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typebridge

import (
	"testing"

	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	for _, deviceType := range dtypes.All {
		streamType, err := FromDeviceType(deviceType)
		require.NoError(t, err, "device type %s", deviceType)
		back, err := ToDeviceType(streamType)
		require.NoError(t, err)
		assert.Equal(t, deviceType, back)
	}
	for _, streamType := range stream.AllScalar {
		deviceType, err := ToDeviceType(streamType)
		if IsDenied(streamType) {
			require.ErrorIs(t, err, ErrUnsupportedType, "stream type %s", streamType)
			continue
		}
		require.NoError(t, err, "stream type %s", streamType)
		back, err := FromDeviceType(deviceType)
		require.NoError(t, err)
		assert.Equal(t, streamType, back)
	}

	deviceType, err := ToDeviceType(stream.Float32.WithDimension(4))
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float32, deviceType)
	_, err = FromDeviceType(dtypes.InvalidDType)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidateDenylist(t *testing.T) {
	matrices := []Support{SupportAll, SupportFloat, SupportComplex, SupportReal, {Int: true}, {Uint: true}, {}}
	for _, denied := range Denylist {
		for _, support := range matrices {
			err := Validate(denied, support)
			require.ErrorIs(t, err, ErrUnsupportedType, "%s with %+v", denied, support)
			assert.Contains(t, err.Error(), "do not support")
		}
		require.ErrorIs(t, Validate(denied.WithDimension(2), SupportAll), ErrUnsupportedType)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(stream.Int16, Support{Int: true}))
	require.NoError(t, Validate(stream.Uint64, Support{Uint: true}))
	require.NoError(t, Validate(stream.Float16, SupportFloat))
	require.NoError(t, Validate(stream.ComplexFloat64.WithDimension(3), SupportComplex))

	require.ErrorIs(t, Validate(stream.Int16, SupportFloat), ErrUnsupportedType)
	require.ErrorIs(t, Validate(stream.Float32, Support{}), ErrUnsupportedType)
	require.ErrorIs(t, Validate(stream.Float32, SupportComplex), ErrUnsupportedType)
	require.ErrorIs(t, Validate(stream.ComplexFloat32, SupportReal), ErrUnsupportedType)
	require.ErrorIs(t, Validate(stream.Uint8, Support{Int: true}), ErrUnsupportedType)
}

func TestValidateComplexFloatPair(t *testing.T) {
	require.NoError(t, ValidateComplexFloatPair(stream.ComplexFloat32, stream.Float32))
	require.NoError(t, ValidateComplexFloatPair(stream.ComplexFloat64, stream.Float64))
	require.ErrorIs(t, ValidateComplexFloatPair(stream.ComplexFloat32, stream.Float64), ErrIncompatibleTypes)
	require.ErrorIs(t, ValidateComplexFloatPair(stream.ComplexFloat64, stream.Float32), ErrIncompatibleTypes)
	require.ErrorIs(t, ValidateComplexFloatPair(stream.Float32, stream.Float32), ErrIncompatibleTypes)
}
