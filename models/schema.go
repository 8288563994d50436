package models

import (
	"fmt"
	"strings"
)

// PropertyDomain describes one property of an entity kind, optionally with
// its allowed values.
type PropertyDomain struct {
	Name   string   `yaml:"name" json:"name"`
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
	Note   string   `yaml:"note,omitempty" json:"note,omitempty"`
}

// EntityKind is one node label in the graph with its property domains.
type EntityKind struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Properties  []PropertyDomain `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// RelationshipKind declares one relationship type with its canonical
// direction. CounterExample states the common inversion mistake for
// high-traffic relationships; it is rendered verbatim into generation and
// repair prompts.
type RelationshipKind struct {
	Type           string   `yaml:"type" json:"type"`
	Source         string   `yaml:"source" json:"source"`
	Target         string   `yaml:"target" json:"target"`
	Properties     []string `yaml:"properties,omitempty" json:"properties,omitempty"`
	CounterExample string   `yaml:"counter_example,omitempty" json:"counter_example,omitempty"`
}

// SchemaView is the structural description of the graph. It is immutable
// and process-wide after startup; rendering methods produce the two prompt
// fidelities plus the directionality-only subset used by query repair.
type SchemaView struct {
	Entities      []EntityKind       `yaml:"entities" json:"entities"`
	Relationships []RelationshipKind `yaml:"relationships" json:"relationships"`
	Guide         string             `yaml:"guide,omitempty" json:"guide,omitempty"`
}

// Pattern renders the canonical (source)-[:TYPE]->(target) form.
func (r RelationshipKind) Pattern() string {
	if len(r.Properties) > 0 {
		return fmt.Sprintf("(%s)-[:%s {%s}]->(%s)", r.Source, r.Type, strings.Join(r.Properties, ", "), r.Target)
	}
	return fmt.Sprintf("(%s)-[:%s]->(%s)", r.Source, r.Type, r.Target)
}

// Compact renders entity and relationship kinds only. This is the fidelity
// simple turns receive.
func (s *SchemaView) Compact() string {
	var b strings.Builder
	b.WriteString("NODE TYPES:\n")
	for _, e := range s.Entities {
		b.WriteString("  - " + e.Name)
		if e.Description != "" {
			b.WriteString(": " + e.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRELATIONSHIPS (direction matters):\n")
	for _, r := range s.Relationships {
		b.WriteString("  " + r.Pattern() + "\n")
	}
	return b.String()
}

// Full renders everything the compact view has plus property domains and the
// investigation guide. Deep turns receive this fidelity.
func (s *SchemaView) Full() string {
	var b strings.Builder
	b.WriteString("NODE TYPES AND PROPERTIES:\n")
	for i, e := range s.Entities {
		fmt.Fprintf(&b, "%d. %s", i+1, e.Name)
		if e.Description != "" {
			b.WriteString(": " + e.Description)
		}
		b.WriteString("\n")
		for _, p := range e.Properties {
			b.WriteString("   - " + p.Name)
			if len(p.Values) > 0 {
				b.WriteString(": one of " + strings.Join(p.Values, ", "))
			}
			if p.Note != "" {
				b.WriteString(" (" + p.Note + ")")
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\nRELATIONSHIPS (direction matters):\n")
	for _, r := range s.Relationships {
		b.WriteString("  " + r.Pattern() + "\n")
	}
	if s.Guide != "" {
		b.WriteString("\n" + strings.TrimSpace(s.Guide) + "\n")
	}
	return b.String()
}

// Directionality renders only the relationship table with its
// common-mistake counter-examples. This is the sole schema content the
// repair prompt receives.
func (s *SchemaView) Directionality() string {
	var b strings.Builder
	b.WriteString("CANONICAL RELATIONSHIP DIRECTIONS:\n")
	for _, r := range s.Relationships {
		b.WriteString("  " + r.Pattern() + "\n")
		if r.CounterExample != "" {
			b.WriteString("    WRONG: " + r.CounterExample + "\n")
		}
	}
	return b.String()
}
