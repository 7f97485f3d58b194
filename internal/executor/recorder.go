package executor

import (
	"fmt"
	"sync"

	"github.com/starford/bootplan/internal/models"
)

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (Handle, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (Handle, error) { return f(path) }

// Step is one action recorded during a dry run.
type Step struct {
	Action string `json:"action" yaml:"action"`
	Name   string `json:"name" yaml:"name"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Step actions.
const (
	ActionSet         = "set"
	ActionDataSource  = "datasource"
	ActionMixin       = "mixin"
	ActionCreateModel = "create-model"
	ActionCustomize   = "customize"
	ActionConfigure   = "configure"
	ActionBootScript  = "boot-script"
	ActionEmit        = "emit"
)

// RecordedModel is a model created or provided by a Recorder.
type RecordedModel struct {
	Name       string
	Definition models.Definition
	Config     models.ModelConfig
}

// Recorder is an in-memory App and Registry that records every action.
// It previews what a host would do with a plan without loading any code.
type Recorder struct {
	mu       sync.Mutex
	settings map[string]any
	models   map[string]*RecordedModel
	booting  bool
	steps    []Step
}

// NewRecorder creates a Recorder whose registry already provides builtins.
func NewRecorder(builtins ...string) *Recorder {
	r := &Recorder{
		settings: make(map[string]any),
		models:   make(map[string]*RecordedModel),
	}
	for _, name := range builtins {
		r.models[name] = &RecordedModel{Name: name}
	}
	return r
}

func (r *Recorder) record(action, name, detail string) {
	r.steps = append(r.steps, Step{Action: action, Name: name, Detail: detail})
}

// Get returns a setting.
func (r *Recorder) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.settings[key]
	return v, ok
}

// Set stores a setting.
func (r *Recorder) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = value
	r.record(ActionSet, key, fmt.Sprint(value))
}

// SetBooting toggles the booting flag.
func (r *Recorder) SetBooting(booting bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.booting = booting
}

// Booting reports the booting flag.
func (r *Recorder) Booting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booting
}

// DataSource records a datasource.
func (r *Recorder) DataSource(name string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(ActionDataSource, name, "")
	return nil
}

// Registry returns r.
func (r *Recorder) Registry() Registry { return r }

// Emit records an event.
func (r *Recorder) Emit(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(ActionEmit, event, "")
}

// GetModel returns a known model.
func (r *Recorder) GetModel(name string) (Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[name]
	if !ok {
		return nil, false
	}
	return m, true
}

// CreateModel registers a model from its definition.
func (r *Recorder) CreateModel(def models.Definition) (Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := def.Name()
	if name == "" {
		return nil, fmt.Errorf("create model: definition has no name")
	}
	m := &RecordedModel{Name: name, Definition: def}
	r.models[name] = m
	r.record(ActionCreateModel, name, def.Base())
	return m, nil
}

// ConfigureModel attaches runtime config to a model.
func (r *Recorder) ConfigureModel(model Model, config models.ModelConfig) error {
	m, ok := model.(*RecordedModel)
	if !ok {
		return fmt.Errorf("configure model: unexpected model type %T", model)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m.Config = config
	ds, _ := config["dataSource"].(string)
	r.record(ActionConfigure, m.Name, ds)
	return nil
}

// DefineMixin records a mixin.
func (r *Recorder) DefineMixin(name string, mixin Handle, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(ActionMixin, name, mixin.Kind().String())
	return nil
}

// Loader returns a loader that treats every artifact as a synchronous
// function and records its invocation.
func (r *Recorder) Loader() Loader {
	return LoaderFunc(func(path string) (Handle, error) {
		return Func(func(target any) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if m, ok := target.(*RecordedModel); ok {
				r.record(ActionCustomize, m.Name, path)
				return nil
			}
			r.record(ActionBootScript, path, "")
			return nil
		}), nil
	})
}

// Steps returns a copy of the recorded steps.
func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.steps...)
}

// Model returns a recorded model by name.
func (r *Recorder) Model(name string) (*RecordedModel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[name]
	return m, ok
}
