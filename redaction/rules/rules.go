// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

// Package rules holds the declarative redaction rule table: for a fixed
// set of known wiki tables, what "scrubbed" means. The table is loaded
// once at startup and never mutated at runtime.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wikifarm/scrubd/internal/sqlutil"
)

// Kind is the mutation a rule performs.
type Kind string

const (
	// KindUpdate scrubs columns in place.
	KindUpdate Kind = "update"
	// KindDelete removes rows whose entire purpose is tied to the
	// identity.
	KindDelete Kind = "delete"
)

// Binding names a value from the redaction target that a predicate or
// replacement is bound to at execution time.
type Binding string

const (
	// BindActorID is the identity's per-database actor reference.
	BindActorID Binding = "actor_id"
	// BindUserID is the identity's local numeric user ID.
	BindUserID Binding = "user_id"
	// BindOldName is the display name being retired.
	BindOldName Binding = "old_name"
	// BindNewName is the current display name.
	BindNewName Binding = "new_name"
)

// IPPlaceholder is the sentinel non-routable address IP-shaped columns
// are scrubbed to.
const IPPlaceholder = "0.0.0.0"

// Replacement is the new value an update rule writes into a column:
// a literal, a binding (the new display name), or SQL NULL when both
// are unset.
type Replacement struct {
	Literal *string
	Bind    Binding
}

// Null reports whether the replacement writes SQL NULL.
func (r Replacement) Null() bool {
	return r.Literal == nil && r.Bind == ""
}

func (r *Replacement) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*r = Replacement{}
			return nil
		}
		var literal string
		if err := value.Decode(&literal); err != nil {
			return err
		}
		*r = Replacement{Literal: &literal}
		return nil
	case yaml.MappingNode:
		var aux struct {
			Bind Binding `yaml:"bind"`
		}
		if err := value.Decode(&aux); err != nil {
			return err
		}
		if aux.Bind != BindNewName {
			return fmt.Errorf("replacement may only bind %q, not %q", BindNewName, aux.Bind)
		}
		*r = Replacement{Bind: aux.Bind}
		return nil
	default:
		return fmt.Errorf("replacement must be a scalar, null or {bind: ...}")
	}
}

// Predicate binds one column in a rule's where clause to either a literal
// value or a redaction target binding. Predicates in one rule are ANDed.
type Predicate struct {
	Column string  `yaml:"column"`
	Value  *string `yaml:"value,omitempty"`
	Bind   Binding `yaml:"bind,omitempty"`
}

// Rule is one mutation unit against one table. Rules are independent of
// each other except that all deletes run before all updates.
type Rule struct {
	Table string `yaml:"table"`
	Kind  Kind   `yaml:"kind"`
	// Feature tags extension rules; empty means platform core. Rules
	// for features not deployed on the farm are skipped entirely.
	Feature string                 `yaml:"feature,omitempty"`
	Set     map[string]Replacement `yaml:"set,omitempty"`
	Where   []Predicate            `yaml:"where"`
}

// SetColumns returns the scrubbed columns in deterministic order.
func (r *Rule) SetColumns() []string {
	columns := make([]string, 0, len(r.Set))
	for column := range r.Set {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// UsesBinding reports whether any predicate of the rule uses the binding.
func (r *Rule) UsesBinding(b Binding) bool {
	for _, p := range r.Where {
		if p.Bind == b {
			return true
		}
	}
	return false
}

// SelectRule is the read-shaped derivation of an update rule, used by the
// PII exporter: same predicates, reading the columns the rule would scrub.
type SelectRule struct {
	Table   string
	Feature string
	Fields  []string
	Where   []Predicate
}

// UsesBinding reports whether any predicate of the select rule uses the binding.
func (r *SelectRule) UsesBinding(b Binding) bool {
	for _, p := range r.Where {
		if p.Bind == b {
			return true
		}
	}
	return false
}

// RuleSet is the full loaded rule table.
type RuleSet struct {
	Version int    `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

//go:embed ruleset.yaml
var defaultRuleSet []byte

// LoadDefault loads the built-in rule table.
func LoadDefault() (*RuleSet, error) {
	return load(defaultRuleSet)
}

// LoadFile loads a rule table from a yaml file, for farms that carry
// extra extension tables.
func LoadFile(path string) (*RuleSet, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return load(contents)
}

func load(contents []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(contents, &rs); err != nil {
		return nil, fmt.Errorf("parsing rule table: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate rejects rule tables that could not execute safely. Table and
// column names end up interpolated into SQL text, so they must be plain
// identifiers.
func (rs *RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return fmt.Errorf("rule table contains no rules")
	}
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		where := fmt.Sprintf("rule %d (table %q)", i, rule.Table)
		if err := sqlutil.CheckIdentifier(rule.Table); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		switch rule.Kind {
		case KindUpdate:
			if len(rule.Set) == 0 {
				return fmt.Errorf("%s: update rule with nothing to set", where)
			}
		case KindDelete:
			if len(rule.Set) != 0 {
				return fmt.Errorf("%s: delete rule must not set columns", where)
			}
		default:
			return fmt.Errorf("%s: unknown rule kind %q", where, rule.Kind)
		}
		if len(rule.Where) == 0 {
			return fmt.Errorf("%s: rule without a where clause would hit every row", where)
		}
		for column := range rule.Set {
			if err := sqlutil.CheckIdentifier(column); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		}
		for _, p := range rule.Where {
			if err := sqlutil.CheckIdentifier(p.Column); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
			if (p.Bind == "") == (p.Value == nil) {
				return fmt.Errorf("%s: predicate on %q must have exactly one of bind or value", where, p.Column)
			}
			switch p.Bind {
			case "", BindActorID, BindUserID, BindOldName, BindNewName:
			default:
				return fmt.Errorf("%s: unknown binding %q", where, p.Bind)
			}
		}
	}
	return nil
}

// ForFeatures returns the rules applicable to a farm with the given
// feature test, preserving declaration order.
func (rs *RuleSet) ForFeatures(enabled func(feature string) bool) []Rule {
	out := make([]Rule, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		if enabled(rule.Feature) {
			out = append(out, rule)
		}
	}
	return out
}

// Deletes returns the delete-kind rules of the given slice, in order.
// Deletions of identity-keyed rows run before name-substitution updates
// so scrubbed text is not resurrected by a later rule.
func Deletes(in []Rule) []Rule {
	out := make([]Rule, 0, len(in))
	for _, rule := range in {
		if rule.Kind == KindDelete {
			out = append(out, rule)
		}
	}
	return out
}

// Updates returns the update-kind rules of the given slice, in order.
func Updates(in []Rule) []Rule {
	out := make([]Rule, 0, len(in))
	for _, rule := range in {
		if rule.Kind == KindUpdate {
			out = append(out, rule)
		}
	}
	return out
}

// SelectRules derives the read-shaped rules the PII exporter runs: one
// per update rule, reading the columns that would be scrubbed. Columns
// replaced by the identity's own name are not PII reads and are elided.
func (rs *RuleSet) SelectRules(enabled func(feature string) bool) []SelectRule {
	out := make([]SelectRule, 0, len(rs.Rules))
	for _, rule := range rs.ForFeatures(enabled) {
		if rule.Kind != KindUpdate {
			continue
		}
		fields := make([]string, 0, len(rule.Set))
		for _, column := range rule.SetColumns() {
			if rule.Set[column].Bind == BindNewName {
				continue
			}
			fields = append(fields, column)
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, SelectRule{
			Table:   rule.Table,
			Feature: rule.Feature,
			Fields:  fields,
			Where:   rule.Where,
		})
	}
	return out
}
