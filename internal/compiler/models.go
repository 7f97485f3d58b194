package compiler

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"dario.cat/mergo"

	"github.com/starford/bootplan/internal/definition"
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/naming"
	"github.com/starford/bootplan/internal/resolver"
)

type modelEntry struct {
	definition models.Definition
	sourceFile string
}

// buildModelInstructions produces one instruction per configured model plus
// every base model reachable through inheritance, ordered so bases come first.
func (c *compiler) buildModelInstructions() ([]models.ModelInstruction, error) {
	cfg, err := deepCopyMap(c.opts.ModelConfig)
	if err != nil {
		return nil, err
	}
	headers, inline := splitModelConfig(cfg)

	registry, err := c.findModelDefinitions(inline)
	if err != nil {
		return nil, err
	}

	configured := make([]string, 0, len(headers))
	for name := range headers {
		configured = append(configured, name)
	}
	slices.Sort(configured)

	names := addAllBaseModels(registry, configured)
	instructions := make([]models.ModelInstruction, 0, len(names))
	for _, name := range names {
		inst := models.ModelInstruction{Name: name}
		if h, ok := headers[name]; ok {
			inst.Config = h
		}
		if entry, ok := registry[name]; ok {
			inst.Definition = entry.definition
			inst.SourceFile = entry.sourceFile
		} else {
			c.logger.Debug("compiler: no definition found, assuming builtin model", slog.String("model", name))
		}
		instructions = append(instructions, inst)
	}

	return sortByInheritance(instructions)
}

// splitModelConfig separates runtime config from inline definitions. The
// "options" and "properties" keys of an entry describe the model itself;
// everything else is runtime config.
func splitModelConfig(cfg map[string]any) (map[string]models.ModelConfig, map[string]models.Definition) {
	headers := make(map[string]models.ModelConfig, len(cfg))
	inline := make(map[string]models.Definition)

	for name, v := range cfg {
		entry, ok := models.AsMap(v)
		if !ok {
			headers[name] = models.ModelConfig{}
			continue
		}

		header := models.ModelConfig{}
		var def models.Definition
		for k, val := range entry {
			switch k {
			case "options":
				opts, ok := models.AsMap(val)
				if !ok {
					continue
				}
				if def == nil {
					def = models.Definition{}
				}
				for key, ov := range opts {
					def[key] = ov
				}
			case "properties":
				if def == nil {
					def = models.Definition{}
				}
				def["properties"] = val
			default:
				header[k] = val
			}
		}
		headers[name] = header
		if def != nil {
			inline[name] = def
		}
	}
	return headers, inline
}

// findModelDefinitions builds the name -> definition registry from the model
// sources, then applies inline definitions on top.
func (c *compiler) findModelDefinitions(inline map[string]models.Definition) (map[string]*modelEntry, error) {
	sources := c.opts.ModelSources
	if sources == nil {
		sources = DefaultModelSources
	}

	registry := make(map[string]*modelEntry)
	for _, src := range sources {
		res, ok := c.resolver.TryResolve(c.root, src, resolver.Options{Strict: true, Optional: true})
		if !ok || !c.fs.IsDir(res.Path) {
			c.logger.Debug("compiler: skipping missing model source", slog.String("source", src))
			continue
		}

		entries := c.listDir(res.Path)
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, "_") || !strings.EqualFold(filepath.Ext(name), ".json") {
				continue
			}
			full := filepath.Join(res.Path, name)
			entry, err := c.loadModelDefinition(full, entries)
			if err != nil {
				return nil, err
			}
			modelName := entry.definition.Name()
			if modelName == "" {
				c.logger.Debug("compiler: skipping definition without a name", slog.String("file", full))
				continue
			}
			if prev, dup := registry[modelName]; dup {
				c.logger.Debug("compiler: duplicate model definition ignored",
					slog.String("model", modelName),
					slog.String("file", full),
					slog.String("kept", prev.sourceFile))
				continue
			}
			registry[modelName] = entry
		}
	}

	keys := make([]string, 0, len(inline))
	for k := range inline {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		def := inline[key]
		if def.Name() == "" {
			def["name"] = key
		}
		existing, ok := registry[key]
		if !ok {
			registry[key] = &modelEntry{definition: def}
			continue
		}
		merged := map[string]any(existing.definition)
		if err := mergo.Merge(&merged, map[string]any(def), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("compiler: merge inline definition of %q: %w", key, err)
		}
		registry[key] = &modelEntry{definition: models.Definition(merged), sourceFile: existing.sourceFile}
	}

	return registry, nil
}

func (c *compiler) loadModelDefinition(file string, siblings []fs.FileInfo) (*modelEntry, error) {
	def, err := definition.ReadFile(c.fs, file)
	if err != nil {
		return nil, fmt.Errorf("compiler: model definition: %w", err)
	}
	if _, has := def["name"]; !has {
		def["name"] = naming.ModelName(definition.NameFromPath(file))
	}

	source := c.finder.SiblingSource(file, siblings, true)
	if source == "" {
		c.logger.Debug("compiler: model has no implementation file", slog.String("file", file))
	}
	return &modelEntry{definition: def, sourceFile: source}, nil
}

// addAllBaseModels extends names with every locally defined base model
// reachable through inheritance, breadth first. Names without a registry
// entry stay in the list.
func addAllBaseModels(registry map[string]*modelEntry, names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	queue := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		queue = append(queue, n)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		entry, ok := registry[name]
		if !ok {
			continue
		}
		base := entry.definition.Base()
		if _, local := registry[base]; !local {
			// Builtin bases are provided by the host.
			continue
		}
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		out = append(out, base)
		queue = append(queue, base)
	}
	return out
}
