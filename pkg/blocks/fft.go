// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blocks

import (
	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/kernels"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Names of the FFT and RFFT parameters and signals.
const (
	FFTSetterNorm                 = "norm"
	FFTNormalizationFactorChanged = "normalizationFactorChanged"
)

// fftBase holds what FFT and RFFT have in common: numBins, the channels and the normalization factor.
type fftBase struct {
	*block.Block
	numBins     int
	numChannels int
	inverse     bool
	norm        param[float64]
}

// newFFTBase validates the parameters, creates the block, and declares the output slab size to hold the
// outBins elements of outType produced per invocation.
func newFFTBase(ctx *device.Context, name string, numBins int, norm float64, numChannels int, inverse bool,
	inType, outType stream.DType, outBins int) (*fftBase, error) {
	if numBins <= 0 {
		return nil, errors.Errorf("%s: invalid number of bins %d", name, numBins)
	}
	if numChannels <= 0 {
		return nil, errors.Errorf("%s: invalid number of channels %d", name, numChannels)
	}
	if norm < 0 {
		return nil, errors.Errorf("%s: invalid normalization factor %g", name, norm)
	}
	if !kernels.IsPowerOfTwo(numBins) {
		klog.Warningf("%s: this node is most efficient when numBins is a power of 2, got %d", name, numBins)
	}
	n := &fftBase{
		Block:       block.New(ctx, name),
		numBins:     numBins,
		numChannels: numChannels,
		inverse:     inverse,
	}
	for range numChannels {
		n.SetupInput(inType)
		n.SetupOutput(outType)
	}
	if err := n.Sizing().Declare(outBins * outType.Size()); err != nil {
		return nil, err
	}
	n.RegisterSignal(FFTNormalizationFactorChanged)
	n.RegisterSetter(FFTSetterNorm, func(value string) error {
		f, err := parseFloat(FFTSetterNorm, value)
		if err != nil {
			return err
		}
		return n.SetNormalizationFactor(f)
	})
	if err := n.SetNormalizationFactor(norm); err != nil {
		return nil, err
	}
	return n, nil
}

// NumBins returns the number of bins of each transform.
func (n *fftBase) NumBins() int { return n.numBins }

// NumChannels returns the number of channels (input and output port pairs).
func (n *fftBase) NumChannels() int { return n.numChannels }

// Inverse returns whether the node computes the inverse transform.
func (n *fftBase) Inverse() bool { return n.inverse }

// NormalizationFactor returns the current normalization factor.
func (n *fftBase) NormalizationFactor() float64 { return n.norm.Get() }

// SetNormalizationFactor changes the normalization factor, and emits FFTNormalizationFactorChanged.
func (n *fftBase) SetNormalizationFactor(norm float64) error {
	if norm < 0 {
		return errors.Errorf("invalid normalization factor %g", norm)
	}
	n.norm.Set(norm)
	n.EmitSignal(FFTNormalizationFactorChanged, norm)
	return nil
}

// waitForBins returns adapter.ErrEmptyInput until every channel has inBins elements available.
func (n *fftBase) waitForBins(inBins int) error {
	if adapter.MinInputElements(n.Inputs()) < inBins {
		return adapter.ErrEmptyInput
	}
	return nil
}

// FFT computes the complex FFT (or inverse FFT) of numBins elements of each of its channels.
//
// All channels are batched in one array, with one row per channel, and transformed in parallel.
// The forward transform is multiplied by the normalization factor, and the inverse transform by the
// normalization factor divided by numBins.
type FFT struct {
	*fftBase
	kernel kernels.FFTFunc
}

// NewFFT creates an FFT node for the complex float type dtype.
func NewFFT(ctx *device.Context, dtype stream.DType, numBins int, norm float64, numChannels int, inverse bool) (*FFT, error) {
	dtype = dtype.Scalar()
	deviceType, err := deviceTypeFor(ctx, backends.OpTypeFFT, dtype, typebridge.SupportComplex)
	if err != nil {
		return nil, err
	}
	kernel, err := kernels.FFT(deviceType, inverse)
	if err != nil {
		return nil, err
	}
	name := "fft"
	if inverse {
		name = "ifft"
	}
	base, err := newFFTBase(ctx, name, numBins, norm, numChannels, inverse, dtype, dtype, numBins)
	if err != nil {
		return nil, err
	}
	checkOnSwitch(base.Block, backends.OpTypeFFT, deviceType)
	return &FFT{fftBase: base, kernel: kernel}, nil
}

// Work runs one invocation of the node.
func (n *FFT) Work() error {
	return n.Invoke(n.work)
}

func (n *FFT) work() error {
	if err := n.waitForBins(n.numBins); err != nil {
		return err
	}
	ctx := n.Context()
	array, err := adapter.ReadBatchedN(ctx, n.Inputs(), n.numBins)
	if err != nil {
		return err
	}
	if err := n.kernel(array, n.NormalizationFactor()); err != nil {
		return err
	}
	return adapter.WriteBatched(ctx, n.Outputs(), array)
}

// RFFT computes the real FFT of each of its channels.
//
// The forward transform takes numBins real elements per channel and emits kernels.RFFTBins(numBins)
// complex coefficients. The inverse transform takes kernels.RFFTBins(numBins) complex coefficients and
// emits numBins real elements.
type RFFT struct {
	*fftBase
	kernel kernels.RFFTFunc
	inBins int
}

// NewRFFT creates an RFFT node. dtype is the real float type: the forward transform takes dtype and emits
// its complex type, and the inverse transform takes the complex type and emits dtype.
func NewRFFT(ctx *device.Context, dtype stream.DType, numBins int, norm float64, numChannels int, inverse bool) (*RFFT, error) {
	floatType := dtype.Scalar()
	if _, err := deviceTypeFor(ctx, backends.OpTypeRFFT, floatType, typebridge.SupportFloat); err != nil {
		return nil, err
	}
	floatDeviceType, _ := typebridge.ToDeviceType(floatType)
	complexType, err := typebridge.FromDeviceType(floatDeviceType.ComplexDType())
	if err != nil {
		return nil, errors.WithMessagef(err, "rfft of %s", floatType)
	}
	if err := typebridge.ValidateComplexFloatPair(complexType, floatType); err != nil {
		return nil, err
	}

	inType, outType := floatType, complexType
	inBins, outBins := numBins, kernels.RFFTBins(numBins)
	kernelType := floatDeviceType
	if inverse {
		inType, outType = complexType, floatType
		inBins, outBins = outBins, inBins
		kernelType = floatDeviceType.ComplexDType()
	}
	if err := kernels.CheckSupported(ctx, backends.OpTypeRFFT, kernelType); err != nil {
		return nil, err
	}
	kernel, _, err := kernels.RFFT(kernelType, inverse)
	if err != nil {
		return nil, err
	}
	name := "rfft"
	if inverse {
		name = "irfft"
	}
	base, err := newFFTBase(ctx, name, numBins, norm, numChannels, inverse, inType, outType, outBins)
	if err != nil {
		return nil, err
	}
	checkOnSwitch(base.Block, backends.OpTypeRFFT, kernelType)
	return &RFFT{fftBase: base, kernel: kernel, inBins: inBins}, nil
}

// Work runs one invocation of the node.
func (n *RFFT) Work() error {
	return n.Invoke(n.work)
}

func (n *RFFT) work() error {
	if err := n.waitForBins(n.inBins); err != nil {
		return err
	}
	ctx := n.Context()
	array, err := adapter.ReadBatchedN(ctx, n.Inputs(), n.inBins)
	if err != nil {
		return err
	}
	result, err := n.kernel(ctx, array, n.numBins, n.NormalizationFactor())
	if err != nil {
		return err
	}
	return adapter.WriteBatched(ctx, n.Outputs(), result)
}
