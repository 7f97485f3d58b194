// Package appconfig loads the inline configuration inputs of a compile from
// an application root: app settings, datasources and per-model config.
//
// Each input is read from <stem>.json and then overlaid, in order, by
// <stem>.local.json and <stem>.<env>.json when they exist.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"dario.cat/mergo"

	"github.com/starford/bootplan/internal/definition"
	"github.com/starford/bootplan/internal/storage"
)

// Default file stems.
const (
	DefaultAppStem         = "config"
	DefaultDataSourcesStem = "datasources"
	DefaultModelConfigStem = "model-config"
)

const localOverlay = "local"

// Names selects the file stems to read. Empty fields select the defaults.
type Names struct {
	App         string
	DataSources string
	ModelConfig string
}

func (n Names) withDefaults() Names {
	if n.App == "" {
		n.App = DefaultAppStem
	}
	if n.DataSources == "" {
		n.DataSources = DefaultDataSourcesStem
	}
	if n.ModelConfig == "" {
		n.ModelConfig = DefaultModelConfigStem
	}
	return n
}

// Sources holds the loaded configuration objects. Missing files yield empty maps.
type Sources struct {
	App         map[string]any
	DataSources map[string]any
	ModelConfig map[string]any
}

// Loader reads configuration sources from an application root.
type Loader struct {
	fs     storage.Provider
	names  Names
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(fsys storage.Provider, names Names, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: fsys, names: names.withDefaults(), logger: logger}
}

// Load reads every source under root for env.
func (l *Loader) Load(root, env string) (*Sources, error) {
	app, err := l.load(root, l.names.App, env)
	if err != nil {
		return nil, err
	}
	ds, err := l.load(root, l.names.DataSources, env)
	if err != nil {
		return nil, err
	}
	mc, err := l.load(root, l.names.ModelConfig, env)
	if err != nil {
		return nil, err
	}
	return &Sources{App: app, DataSources: ds, ModelConfig: mc}, nil
}

func (l *Loader) load(root, stem, env string) (map[string]any, error) {
	files := []string{filepath.Join(root, stem+".json")}
	files = append(files, filepath.Join(root, stem+"."+localOverlay+".json"))
	if env != "" && env != localOverlay {
		files = append(files, filepath.Join(root, stem+"."+env+".json"))
	}

	out := map[string]any{}
	for _, file := range files {
		data, err := l.fs.ReadFile(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("appconfig: %w", err)
		}
		m, err := definition.ParseMap(data)
		if err != nil {
			return nil, fmt.Errorf("appconfig: %s: %w", file, err)
		}
		if err := mergo.Merge(&out, m, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("appconfig: merge %s: %w", file, err)
		}
		l.logger.Debug("appconfig: loaded", slog.String("file", file))
	}
	return out, nil
}
