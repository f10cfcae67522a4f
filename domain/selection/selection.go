// Package selection models the user's current intent for a statistical view.
package selection

import (
	"fmt"
	"slices"
	"strings"

	"biometric/domain/filter"
	"biometric/internal/errors"
)

// State is a snapshot of what the user asked for. It is a value: callers
// Clone before sharing it across goroutines.
type State struct {
	SessionID         string         `json:"session_id"`
	Kind              Kind           `json:"kind"`
	Variables         []string       `json:"variables"`
	Methods           []Method       `json:"methods"`
	SegmentBy         string         `json:"segment_by,omitempty"`
	Filters           filter.RuleSet `json:"filters"`
	CustomPercentiles []float64      `json:"custom_percentiles,omitempty"`
}

// New returns an empty selection of the given kind
func New(kind Kind, sessionID string) State {
	return State{
		SessionID: strings.TrimSpace(sessionID),
		Kind:      kind,
		Methods:   DefaultMethods(kind),
		Filters:   filter.NewRuleSet(),
	}
}

// Clone returns a deep copy
func (s State) Clone() State {
	s.Variables = slices.Clone(s.Variables)
	s.Methods = slices.Clone(s.Methods)
	s.CustomPercentiles = slices.Clone(s.CustomPercentiles)
	s.Filters = s.Filters.Clone()
	return s
}

// Validate reports why no request can be issued yet. The error is always a
// ValidationError: the selection is incomplete, not wrong.
func (s State) Validate() error {
	if s.SessionID == "" {
		return errors.ValidationError("no dataset session")
	}
	if need := s.Kind.MinimumVariables(); len(s.Variables) < need {
		return errors.ValidationError(fmt.Sprintf("%s needs at least %d variable(s), have %d", s.Kind, need, len(s.Variables)))
	}
	if len(s.Methods) == 0 {
		return errors.ValidationError("no method selected")
	}
	return nil
}

// SelfSegmented reports a segmentation column that is also an analysed variable.
// Such a selection is still sent; the aggregator decides what it means.
func (s State) SelfSegmented() bool {
	return s.SegmentBy != "" && slices.Contains(s.Variables, s.SegmentBy)
}

// UniqueVariables trims names, drops blanks and duplicates, keeping first-seen order
func UniqueVariables(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// NormalizeMethods validates methods against the view kind, dropping duplicates
func NormalizeMethods(kind Kind, methods []Method) ([]Method, error) {
	out := make([]Method, 0, len(methods))
	for _, m := range methods {
		switch {
		case kind == KindCorrelation && !m.IsCorrelation():
			return nil, errors.InvalidInput(fmt.Sprintf("method %q is not a correlation method", m))
		case kind == KindSmartTable && m != Descriptive:
			return nil, errors.InvalidInput(fmt.Sprintf("descriptive views only support %q", Descriptive))
		case kind == KindFrequency && m != Frequency:
			return nil, errors.InvalidInput(fmt.Sprintf("frequency views only support %q", Frequency))
		}
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, errors.InvalidInput("at least one method is required")
	}
	return out, nil
}
