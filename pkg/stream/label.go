// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Label is an in-band control marker attached to a stream element.
//
// Index is the offset of the labeled element, relative to the front of the input port (when read with
// InputPort.Labels) or to the next element emitted by the output port (when posted with
// OutputPort.PostLabel).
type Label struct {
	ID    string
	Data  any
	Index int
}

// String implements fmt.Stringer.
func (l Label) String() string {
	return fmt.Sprintf("Label(%q@%d=%v)", l.ID, l.Index, l.Data)
}

// Float64 converts the label data to a float64.
// Numeric data (any integer or float type) and strings holding a number are accepted.
func (l Label) Float64() (float64, error) {
	switch v := l.Data.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case float16.Float16:
		return float64(v.Float32()), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "label %q data %q is not a number", l.ID, v)
		}
		return f, nil
	default:
		return 0, errors.Errorf("label %q data (%T) cannot be converted to float64", l.ID, l.Data)
	}
}
