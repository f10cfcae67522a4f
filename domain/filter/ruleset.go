// Package filter holds the composable row filters a user attaches to a statistical view.
//
// A RuleSet is forwarded verbatim to the statistics service; the only evaluation done
// locally is Matches, which the development aggregator uses to apply the same semantics.
package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"biometric/domain/core"
	"biometric/internal/errors"
)

// Rule is one atomic predicate: column operator value
type Rule struct {
	ID       core.ID  `json:"id"`
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Field names an editable part of a rule
type Field string

const (
	FieldColumn   Field = "column"
	FieldOperator Field = "operator"
	FieldValue    Field = "value"
)

// RuleSet is an ordered list of rules joined by a single combine mode.
// The zero value is an empty, disabled set combined with AND.
type RuleSet struct {
	rules   []Rule
	mode    CombineMode
	enabled bool
}

// NewRuleSet returns an empty disabled set
func NewRuleSet() RuleSet {
	return RuleSet{mode: And}
}

// AddRule appends a rule on defaultColumn with operator > and value 0
func (s *RuleSet) AddRule(defaultColumn string) Rule {
	rule := Rule{
		ID:       core.NewID(),
		Column:   defaultColumn,
		Operator: OpGreater,
		Value:    0,
	}
	s.rules = append(s.rules, rule)
	return rule
}

// RemoveLastRule drops the most recently added rule
func (s *RuleSet) RemoveLastRule() bool {
	if len(s.rules) == 0 {
		return false
	}
	s.rules = s.rules[:len(s.rules)-1]
	return true
}

// RemoveRule drops the rule with the given id
func (s *RuleSet) RemoveRule(id core.ID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.rules = append(s.rules[:i:i], s.rules[i+1:]...)
	return true
}

// UpdateRule sets one field of a rule from its textual form
func (s *RuleSet) UpdateRule(id core.ID, field Field, value string) error {
	i := s.index(id)
	if i < 0 {
		return errors.NotFound(fmt.Sprintf("filter rule %s", id))
	}

	rule := s.rules[i]
	switch field {
	case FieldColumn:
		column := strings.TrimSpace(value)
		if column == "" {
			return errors.InvalidInput("filter column cannot be empty")
		}
		rule.Column = column
	case FieldOperator:
		op, err := ParseOperator(value)
		if err != nil {
			return errors.WithCode(errors.CodeInvalidInput, err)
		}
		rule.Operator = op
	case FieldValue:
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return errors.InvalidInput(fmt.Sprintf("filter value %q is not a number", value))
		}
		rule.Value = v
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown filter field %q", field))
	}

	s.rules[i] = rule
	return nil
}

// Clear removes every rule; enabled and mode are kept
func (s *RuleSet) Clear() {
	s.rules = nil
}

func (s *RuleSet) SetEnabled(enabled bool) { s.enabled = enabled }
func (s *RuleSet) SetMode(mode CombineMode) { s.mode = mode }

func (s RuleSet) Enabled() bool { return s.enabled }
func (s RuleSet) Len() int      { return len(s.rules) }

// Mode returns the combine mode, defaulting to AND
func (s RuleSet) Mode() CombineMode {
	if s.mode == "" {
		return And
	}
	return s.mode
}

// Rules returns a copy of the rules in display order
func (s RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// EvaluateEnabled reports whether the set restricts anything.
// An enabled set with no rules has no effect.
func (s RuleSet) EvaluateEnabled() bool {
	return s.enabled && len(s.rules) > 0
}

// Effective returns the rules to send, which is none when the set is disabled
func (s RuleSet) Effective() []Rule {
	if !s.enabled {
		return []Rule{}
	}
	return s.Rules()
}

// Clone returns an independent copy
func (s RuleSet) Clone() RuleSet {
	s.rules = s.Rules()
	return s
}

// Matches evaluates the effective rules against one row. lookup returns the
// row's value for a column and false when the value is missing; a missing
// value fails its rule.
func (s RuleSet) Matches(lookup func(column string) (float64, bool)) bool {
	if !s.EvaluateEnabled() {
		return true
	}

	for _, rule := range s.rules {
		v, ok := lookup(rule.Column)
		hit := ok && rule.Operator.Evaluate(v, rule.Value)
		if s.Mode() == Or && hit {
			return true
		}
		if s.Mode() == And && !hit {
			return false
		}
	}
	return s.Mode() == And
}

func (s RuleSet) index(id core.ID) int {
	for i, rule := range s.rules {
		if rule.ID == id {
			return i
		}
	}
	return -1
}

type ruleSetJSON struct {
	Rules       []Rule      `json:"rules"`
	CombineMode CombineMode `json:"combine_mode"`
	Enabled     bool        `json:"enabled"`
}

func (s RuleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleSetJSON{Rules: s.Rules(), CombineMode: s.Mode(), Enabled: s.enabled})
}

func (s *RuleSet) UnmarshalJSON(data []byte) error {
	var raw ruleSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.rules = raw.Rules
	s.mode = raw.CombineMode
	s.enabled = raw.Enabled
	return nil
}

// FromRules builds a set, assigning ids to rules that lack one
func FromRules(rules []Rule, mode CombineMode, enabled bool) RuleSet {
	set := RuleSet{mode: mode, enabled: enabled}
	for _, r := range rules {
		if r.ID.IsEmpty() {
			r.ID = core.NewID()
		}
		set.rules = append(set.rules, r)
	}
	return set
}
