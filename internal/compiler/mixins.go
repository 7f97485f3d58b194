package compiler

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"dario.cat/mergo"

	"github.com/starford/bootplan/internal/definition"
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/resolver"
)

// mixinSet keeps mixin instructions keyed by name in first-seen order. A later
// put with the same name replaces the value but keeps the position.
type mixinSet struct {
	order  []string
	byName map[string]models.MixinInstruction
}

func newMixinSet() *mixinSet {
	return &mixinSet{byName: make(map[string]models.MixinInstruction)}
}

func (s *mixinSet) put(inst models.MixinInstruction) {
	if _, ok := s.byName[inst.Name]; !ok {
		s.order = append(s.order, inst.Name)
	}
	s.byName[inst.Name] = inst
}

func (s *mixinSet) list() []models.MixinInstruction {
	out := make([]models.MixinInstruction, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// buildMixinInstructions gathers mixins from the explicit file list, then the
// explicit directories, then the default sources; a later source wins on a
// name clash. Default sources only contribute mixins some model definition
// references.
func (c *compiler) buildMixinInstructions(modelInstructions []models.ModelInstruction) ([]models.MixinInstruction, error) {
	var files []string
	for _, ref := range c.opts.Mixins {
		res, err := c.resolver.Resolve(c.root, ref, resolver.Options{FullResolve: true})
		if err != nil {
			return nil, fmt.Errorf("compiler: mixin %q: %w", ref, err)
		}
		files = append(files, res.Path)
	}
	fromList, err := c.loadMixins(files)
	if err != nil {
		return nil, err
	}

	fromDirs, err := c.loadMixins(c.findMixinFiles(c.opts.MixinDirs))
	if err != nil {
		return nil, err
	}

	sources := c.opts.MixinSources
	if sources == nil {
		sources = DefaultMixinSources
	}
	sources = slices.DeleteFunc(slices.Clone(sources), func(s string) bool {
		return slices.Contains(c.opts.MixinDirs, s)
	})
	fromSources, err := c.loadMixins(c.findMixinFiles(sources))
	if err != nil {
		return nil, err
	}

	used := usedMixinNames(modelInstructions)
	merged := newMixinSet()
	for _, inst := range fromList.list() {
		merged.put(inst)
	}
	for _, inst := range fromDirs.list() {
		merged.put(inst)
	}
	for _, inst := range fromSources.list() {
		if _, ok := used[inst.Name]; !ok {
			c.logger.Debug("compiler: dropping unreferenced mixin",
				slog.String("mixin", inst.Name),
				slog.String("file", inst.SourceFile))
			continue
		}
		merged.put(inst)
	}
	return merged.list(), nil
}

// findMixinFiles lists the scripts of every directory that resolves.
func (c *compiler) findMixinFiles(dirs []string) []string {
	var files []string
	for _, dir := range dirs {
		res, ok := c.resolver.TryResolve(c.root, dir, resolver.Options{Strict: true})
		if !ok || !c.fs.IsDir(res.Path) {
			c.logger.Debug("compiler: skipping missing mixin directory", slog.String("dir", dir))
			continue
		}
		files = append(files, c.finder.Find(res.Path)...)
	}
	return files
}

// loadMixins builds one instruction per file. A sibling <stem>.json may
// rename the mixin and carries extra metadata; it never changes the source.
func (c *compiler) loadMixins(files []string) (*mixinSet, error) {
	set := newMixinSet()
	for _, file := range files {
		stem := definition.NameFromPath(file)
		name := c.normalize(stem)

		meta := map[string]any{"name": name}
		metaFile := filepath.Join(filepath.Dir(file), stem+".json")
		if metaFile != file && c.fs.IsFile(metaFile) {
			extra, err := definition.ReadFile(c.fs, metaFile)
			if err != nil {
				return nil, fmt.Errorf("compiler: mixin metadata: %w", err)
			}
			if err := mergo.Merge(&meta, map[string]any(extra), mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("compiler: merge mixin metadata %s: %w", metaFile, err)
			}
		}

		if s, ok := meta["name"].(string); ok && strings.TrimSpace(s) != "" {
			name = s
		}
		delete(meta, "name")
		delete(meta, "sourceFile")

		inst := models.MixinInstruction{Name: name, SourceFile: file}
		if len(meta) > 0 {
			inst.Meta = meta
		}
		set.put(inst)
	}
	return set, nil
}

func usedMixinNames(instructions []models.ModelInstruction) map[string]struct{} {
	used := make(map[string]struct{})
	for _, inst := range instructions {
		for _, name := range inst.Definition.MixinNames() {
			used[name] = struct{}{}
		}
	}
	return used
}
