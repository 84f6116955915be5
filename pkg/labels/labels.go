// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package labels implements the label driven parameter protocol: an upstream node attaches a label with a
// new parameter value to a specific element, and the node receiving it applies the value starting exactly
// at that element.
//
// Each invocation scans the labels of the input, in order, up to the number of elements about to be
// processed:
//
//   - A matching label at index 0 is applied immediately, for the whole batch, and the scan continues.
//   - A matching label at index > 0 ends the batch right before it, and the scan stops. On the next
//     invocation that label is at index 0, so it is applied from its element on.
//   - Labels with other ids are ignored.
//
// The protocol is only defined for nodes with a single input.
package labels

import (
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/pkg/errors"
)

// ApplyFunc applies the payload of a matching label found at index 0.
type ApplyFunc func(label stream.Label) error

// Protocol scans labels with the configured ID. An empty ID disables it.
type Protocol struct {
	ID string
}

// Enabled returns whether the protocol has an ID to look for.
func (p Protocol) Enabled() bool { return p.ID != "" }

// Scan runs the protocol over labels (ordered by index) for a batch of elems elements.
// It calls apply for matching labels at index 0, and returns the number of elements to process in this
// invocation, which is at most elems.
//
// If apply fails, Scan stops and returns the error.
func (p Protocol) Scan(labels []stream.Label, elems int, apply ApplyFunc) (int, error) {
	if !p.Enabled() || elems <= 0 {
		return elems, nil
	}
	s := &scanner{id: p.ID, labels: labels, elems: elems, apply: apply}
	for state := scanNext; state != nil; {
		state = state(s)
	}
	if s.err != nil {
		return 0, s.err
	}
	return s.elems, nil
}

// scanner holds the state of one Scan.
type scanner struct {
	id     string
	labels []stream.Label
	pos    int
	elems  int
	apply  ApplyFunc
	err    error
}

// stateFn is one state of the scan, it returns the next state or nil when done.
type stateFn func(s *scanner) stateFn

// scanNext looks for the next matching label within the batch.
func scanNext(s *scanner) stateFn {
	for ; s.pos < len(s.labels); s.pos++ {
		label := s.labels[s.pos]
		if label.Index >= s.elems {
			return nil
		}
		if label.Index < 0 || label.ID != s.id {
			continue
		}
		if label.Index == 0 {
			return applyFront
		}
		return truncate
	}
	return nil
}

// applyFront applies the label at the front of the batch and resumes scanning.
func applyFront(s *scanner) stateFn {
	label := s.labels[s.pos]
	if err := s.apply(label); err != nil {
		s.err = errors.WithMessagef(err, "failed to apply label %s", label)
		return nil
	}
	s.pos++
	return scanNext
}

// truncate ends the batch right before the current label.
func truncate(s *scanner) stateFn {
	s.elems = s.labels[s.pos].Index
	return nil
}
