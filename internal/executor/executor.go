// Package executor applies a compiled plan to a host application.
//
// The host supplies the application, its model registry and a loader for
// script artifacts. The executor only drives them in the order the plan
// prescribes.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/models"
)

// Application settings the executor always provides.
const (
	DefaultPort        = 3000
	DefaultRestAPIRoot = "/api"
)

// EventBooted is emitted once every boot script has completed.
const EventBooted = "booted"

// FrameworkModelDirs lists the module directories whose <facet>/models/<name>.js
// files implement models the host registry already provides.
var FrameworkModelDirs = []string{"node_modules/loopback"}

// Model is an opaque model handle owned by the host registry.
type Model any

// App is the host application being booted.
type App interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	SetBooting(booting bool)
	DataSource(name string, config any) error
	Registry() Registry
	Emit(event string)
}

// Registry creates and configures models.
type Registry interface {
	GetModel(name string) (Model, bool)
	CreateModel(def models.Definition) (Model, error)
	ConfigureModel(model Model, config models.ModelConfig) error
	DefineMixin(name string, mixin Handle, meta map[string]any) error
}

// Options tune an execution.
type Options struct {
	// FrameworkModelDirs overrides the package-level default.
	FrameworkModelDirs []string
	Logger             *slog.Logger
}

type executor struct {
	app       App
	registry  Registry
	loader    Loader
	framework []string
	logger    *slog.Logger
}

// Execute applies plan to app. Boot scripts run strictly in sequence; the
// first failure aborts the rest and is returned.
func Execute(ctx context.Context, app App, plan *models.Plan, loader Loader, opts Options) error {
	if plan == nil {
		return apperr.ErrNoPlan
	}
	e := &executor{
		app:       app,
		registry:  app.Registry(),
		loader:    loader,
		framework: opts.FrameworkModelDirs,
		logger:    opts.Logger,
	}
	if e.framework == nil {
		e.framework = FrameworkModelDirs
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	app.SetBooting(true)
	defer app.SetBooting(false)

	e.applyConfig(plan.Config)

	if err := e.setupDataSources(plan.DataSources); err != nil {
		return err
	}
	if err := e.defineMixins(plan.Mixins); err != nil {
		return err
	}
	if err := e.setupModels(ctx, plan.Models); err != nil {
		return err
	}
	if err := e.runBootScripts(ctx, plan.Files.Boot); err != nil {
		return err
	}

	app.Emit(EventBooted)
	return nil
}

func (e *executor) applyConfig(cfg map[string]any) {
	if host, ok := cfg["host"]; ok && host != nil {
		e.app.Set("host", host)
	}
	e.app.Set("port", valueOr(cfg["port"], DefaultPort))
	e.app.Set("restApiRoot", valueOr(cfg["restApiRoot"], DefaultRestAPIRoot))

	for _, key := range sortedKeys(cfg) {
		if cur, ok := e.app.Get(key); ok && cur != nil {
			continue
		}
		e.app.Set(key, cfg[key])
	}
}

func (e *executor) setupDataSources(dataSources map[string]any) error {
	for _, name := range sortedKeys(dataSources) {
		if err := e.app.DataSource(name, dataSources[name]); err != nil {
			return fmt.Errorf("executor: datasource %s: %w", name, err)
		}
	}
	return nil
}

func (e *executor) defineMixins(mixins []models.MixinInstruction) error {
	for _, m := range mixins {
		h, err := e.loader.Load(m.SourceFile)
		if err != nil {
			return fmt.Errorf("executor: mixin %s: %w", m.Name, err)
		}
		if h.Kind() == KindNone {
			e.logger.Debug("executor: skipping mixin file, nothing exported",
				slog.String("mixin", m.Name),
				slog.String("file", m.SourceFile))
			continue
		}
		e.logger.Debug("executor: defining mixin", slog.String("mixin", m.Name))
		if err := e.registry.DefineMixin(m.Name, h, m.Meta); err != nil {
			return fmt.Errorf("executor: mixin %s: %w", m.Name, err)
		}
	}
	return nil
}

func (e *executor) setupModels(ctx context.Context, instructions []models.ModelInstruction) error {
	resolved := make([]Model, len(instructions))
	for i, inst := range instructions {
		model, err := e.defineModel(ctx, inst)
		if err != nil {
			return err
		}
		resolved[i] = model
	}

	for i, inst := range instructions {
		// Base models pulled in only through inheritance are not exposed.
		if inst.Config == nil {
			continue
		}
		if err := e.registry.ConfigureModel(resolved[i], inst.Config); err != nil {
			return fmt.Errorf("executor: configure model %s: %w", inst.Name, err)
		}
	}
	return nil
}

func (e *executor) defineModel(ctx context.Context, inst models.ModelInstruction) (Model, error) {
	switch {
	case inst.Definition == nil:
		model, ok := e.registry.GetModel(inst.Name)
		if !ok {
			return nil, fmt.Errorf("%w: cannot configure unknown model %s", apperr.ErrUnknownModel, inst.Name)
		}
		e.logger.Debug("executor: configuring existing model", slog.String("model", inst.Name))
		return model, nil

	case e.isFrameworkModel(inst):
		model, _ := e.registry.GetModel(inst.Name)
		e.logger.Debug("executor: configuring built-in model", slog.String("model", inst.Name))
		return model, nil
	}

	e.logger.Debug("executor: creating model", slog.String("model", inst.Name))
	model, err := e.registry.CreateModel(inst.Definition)
	if err != nil {
		return nil, fmt.Errorf("executor: create model %s: %w", inst.Name, err)
	}
	if inst.SourceFile == "" {
		return model, nil
	}

	h, err := e.loader.Load(inst.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("executor: model %s: %w", inst.Name, err)
	}
	if !h.Callable() {
		e.logger.Debug("executor: skipping model file, nothing callable exported",
			slog.String("file", inst.SourceFile))
		return model, nil
	}
	if err := h.Call(ctx, model); err != nil {
		return nil, fmt.Errorf("executor: customize model %s: %w", inst.Name, err)
	}
	return model, nil
}

// isFrameworkModel reports whether inst names a model the host registry
// provides and whose source lives in a framework models directory.
func (e *executor) isFrameworkModel(inst models.ModelInstruction) bool {
	if _, ok := e.registry.GetModel(inst.Name); !ok {
		return false
	}
	return inFrameworkModelsDir(e.framework, inst.SourceFile)
}

func inFrameworkModelsDir(dirs []string, sourceFile string) bool {
	if sourceFile == "" {
		return false
	}
	slashed := filepath.ToSlash(sourceFile)
	for _, dir := range dirs {
		marker := "/" + strings.Trim(filepath.ToSlash(dir), "/") + "/"
		i := strings.LastIndex(slashed, marker)
		if i < 0 {
			continue
		}
		// <facet>/models/<name>.js
		rest := strings.Split(slashed[i+len(marker):], "/")
		if len(rest) == 3 && rest[1] == "models" && strings.HasSuffix(rest[2], ".js") {
			return true
		}
	}
	return false
}

type bootScript struct {
	path   string
	handle Handle
}

func (e *executor) runBootScripts(ctx context.Context, files []string) error {
	scripts := make([]bootScript, 0, len(files))
	for _, path := range files {
		h, err := e.loader.Load(path)
		if err != nil {
			e.logger.Error("executor: failed loading boot script",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return fmt.Errorf("executor: load boot script %s: %w", path, err)
		}
		if !h.Callable() {
			continue
		}
		scripts = append(scripts, bootScript{path: path, handle: h})
	}

	for _, s := range scripts {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.logger.Debug("executor: running boot script",
			slog.String("file", s.path),
			slog.String("kind", s.handle.Kind().String()))
		if err := s.handle.Call(ctx, e.app); err != nil {
			return fmt.Errorf("executor: boot script %s: %w", s.path, err)
		}
	}
	return nil
}

// valueOr returns v unless it is unset or a zero scalar.
func valueOr(v any, fallback any) any {
	switch x := v.(type) {
	case nil:
		return fallback
	case string:
		if x == "" {
			return fallback
		}
	case bool:
		if !x {
			return fallback
		}
	case float64:
		if x == 0 {
			return fallback
		}
	case int:
		if x == 0 {
			return fallback
		}
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
