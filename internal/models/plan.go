// Package models defines the domain types for bootplan.
package models

import (
	"fmt"
	"sort"

	"github.com/mitchellh/copystructure"
)

// Definition is a parsed model or mixin definition file.
type Definition map[string]any

// Name returns the definition's "name" field, or "" when absent.
func (d Definition) Name() string {
	s, _ := d["name"].(string)
	return s
}

// Base returns the parent model name. The top-level "base" field takes
// precedence over "options.base".
func (d Definition) Base() string {
	if d == nil {
		return ""
	}
	if s, ok := d["base"].(string); ok && s != "" {
		return s
	}
	if opts, ok := AsMap(d["options"]); ok {
		s, _ := opts["base"].(string)
		return s
	}
	return ""
}

// MixinNames returns the sorted keys of the definition's "mixins" map.
func (d Definition) MixinNames() []string {
	m, ok := AsMap(d["mixins"])
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AsMap returns v as a plain map when it is any of the map shapes used for
// definitions and config.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Definition:
		return m, true
	case ModelConfig:
		return m, true
	default:
		return nil, false
	}
}

// ModelConfig is the runtime configuration of one model (datasource, public, ...).
type ModelConfig map[string]any

// ModelInstruction tells the executor how to set up one model.
// A nil Definition marks a reference to a model the host already provides.
// A nil Config marks a base model pulled in only through inheritance.
type ModelInstruction struct {
	Name       string      `json:"name" yaml:"name"`
	Config     ModelConfig `json:"config" yaml:"config"`
	Definition Definition  `json:"definition,omitempty" yaml:"definition,omitempty"`
	SourceFile string      `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`
}

// MixinInstruction tells the executor which file implements a mixin.
type MixinInstruction struct {
	Name       string         `json:"name" yaml:"name"`
	SourceFile string         `json:"sourceFile" yaml:"sourceFile"`
	Meta       map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Files groups the script paths of a plan.
type Files struct {
	Boot []string `json:"boot" yaml:"boot"`
}

// Plan is the compiled, ordered boot plan handed to an executor.
type Plan struct {
	Env         string             `json:"env" yaml:"env"`
	Root        string             `json:"root" yaml:"root"`
	Config      map[string]any     `json:"config" yaml:"config"`
	DataSources map[string]any     `json:"dataSources" yaml:"dataSources"`
	Models      []ModelInstruction `json:"models" yaml:"models"`
	Mixins      []MixinInstruction `json:"mixins" yaml:"mixins"`
	Files       Files              `json:"files" yaml:"files"`
}

// Clone returns a deep copy of p that shares no maps or slices with it.
func (p *Plan) Clone() (*Plan, error) {
	v, err := copystructure.Copy(*p)
	if err != nil {
		return nil, fmt.Errorf("models: copy plan: %w", err)
	}
	c := v.(Plan)
	return &c, nil
}

// Model returns the instruction for name, if present.
func (p *Plan) Model(name string) (ModelInstruction, bool) {
	for _, m := range p.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelInstruction{}, false
}

// ModelNames returns model names in plan order.
func (p *Plan) ModelNames() []string {
	out := make([]string, len(p.Models))
	for i, m := range p.Models {
		out[i] = m.Name
	}
	return out
}

// MixinNames returns mixin names in plan order.
func (p *Plan) MixinNames() []string {
	out := make([]string, len(p.Mixins))
	for i, m := range p.Mixins {
		out[i] = m.Name
	}
	return out
}
