// Package compiler turns an application layout into a compiled boot plan.
//
// A compile call reads directory listings and definition files, never writes,
// and never runs user code. Each call builds its own registry and listing
// cache, so concurrent calls share nothing.
package compiler

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mitchellh/copystructure"

	"github.com/starford/bootplan/internal/discovery"
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/naming"
	"github.com/starford/bootplan/internal/resolver"
	"github.com/starford/bootplan/internal/storage"
)

// EnvVar names the environment variable consulted when Options.Env is empty.
const EnvVar = "APP_ENV"

// DefaultEnv is used when neither Options.Env nor EnvVar is set.
const DefaultEnv = "development"

// Default source roots. Relative entries are read from the application root;
// the module-style entries are framework library roots found only through the
// modules directory. Model sources are first-wins and mixin sources last-wins,
// so the application's own files take precedence in both lists.
var (
	DefaultModelSources = []string{"./models", "loopback/common/models"}
	DefaultMixinSources = []string{"loopback/common/mixins", "./mixins"}
)

// Options describe one compile call.
type Options struct {
	// Root is the application root directory.
	Root string
	// Env selects environment-specific boot scripts.
	Env string

	// AppConfig, DataSources and ModelConfig are the inline configuration
	// objects. ModelConfig is keyed by model name; it is never mutated.
	AppConfig   map[string]any
	DataSources map[string]any
	ModelConfig map[string]any

	// ModelSources lists directories holding model definitions. Nil selects
	// DefaultModelSources.
	ModelSources []string

	// BootDirs are searched before <Root>/boot; BootScripts are explicit
	// script references placed ahead of discovered ones.
	BootDirs    []string
	BootScripts []string

	// Mixins lists explicit mixin files, MixinDirs explicit directories and
	// MixinSources default directories whose mixins are kept only when a
	// model references them. Nil MixinSources selects DefaultMixinSources.
	Mixins       []string
	MixinDirs    []string
	MixinSources []string

	// Normalization names the mixin name policy (none, classify, dasherize).
	// NormalizeFunc, when set, replaces it.
	Normalization string
	NormalizeFunc naming.Func

	// Extensions lists the extensions a host loader understands.
	Extensions []string
	// SearchPaths are global module search directories.
	SearchPaths []string
	// ModulesDir overrides the per-directory module folder name.
	ModulesDir string

	// FS defaults to the real file system, read-only.
	FS storage.Provider
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

type compiler struct {
	opts      Options
	root      string
	env       string
	fs        storage.Provider
	resolver  *resolver.Resolver
	finder    *discovery.Finder
	normalize naming.Func
	logger    *slog.Logger

	listings map[string][]fs.FileInfo
}

// Compile gathers every boot-related input into a single plan. The returned
// plan is a deep copy owned by the caller. On error no plan is returned.
func Compile(opts Options) (*models.Plan, error) {
	c, err := newCompiler(opts)
	if err != nil {
		return nil, err
	}

	bootFiles := c.findBootScripts()

	modelInstructions, err := c.buildModelInstructions()
	if err != nil {
		return nil, err
	}

	mixinInstructions, err := c.buildMixinInstructions(modelInstructions)
	if err != nil {
		return nil, err
	}

	plan := &models.Plan{
		Env:         c.env,
		Root:        c.root,
		Config:      nonNilMap(opts.AppConfig),
		DataSources: nonNilMap(opts.DataSources),
		Models:      modelInstructions,
		Mixins:      mixinInstructions,
		Files:       models.Files{Boot: bootFiles},
	}

	c.logger.Info("compiler: plan compiled",
		slog.String("root", c.root),
		slog.String("env", c.env),
		slog.Int("models", len(plan.Models)),
		slog.Int("mixins", len(plan.Mixins)),
		slog.Int("boot", len(plan.Files.Boot)))

	// Consumers mutate what they are handed; nothing they receive may alias
	// compiler inputs.
	return plan.Clone()
}

func newCompiler(opts Options) (*compiler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	normalize := opts.NormalizeFunc
	if normalize == nil {
		fn, err := naming.Policy(opts.Normalization)
		if err != nil {
			return nil, err
		}
		normalize = fn
	}

	if opts.Root == "" {
		return nil, fmt.Errorf("compiler: root directory is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("compiler: resolve root: %w", err)
	}

	env := ResolveEnv(opts.Env)

	fsys := opts.FS
	if fsys == nil {
		fsys = storage.NewOS()
	}

	finder := discovery.NewFinder(fsys, opts.Extensions, logger)
	res := resolver.New(fsys,
		resolver.WithSearchPaths(opts.SearchPaths...),
		resolver.WithModulesDir(opts.ModulesDir),
		resolver.WithExtensions(finder.Extensions()...),
		resolver.WithLogger(logger),
	)

	return &compiler{
		opts:      opts,
		root:      root,
		env:       env,
		fs:        fsys,
		resolver:  res,
		finder:    finder,
		normalize: normalize,
		logger:    logger,
		listings:  make(map[string][]fs.FileInfo),
	}, nil
}

// ResolveEnv returns env, else the value of EnvVar, else DefaultEnv.
func ResolveEnv(env string) string {
	if env != "" {
		return env
	}
	if env = os.Getenv(EnvVar); env != "" {
		return env
	}
	return DefaultEnv
}

// listDir returns the entries of dir, reading it at most once per compile.
func (c *compiler) listDir(dir string) []fs.FileInfo {
	if entries, ok := c.listings[dir]; ok {
		return entries
	}
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		entries = nil
	}
	c.listings[dir] = entries
	return entries
}

// deepCopyMap copies m so later edits never reach the caller's objects.
func deepCopyMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	v, err := copystructure.Copy(m)
	if err != nil {
		return nil, fmt.Errorf("compiler: copy config: %w", err)
	}
	return v.(map[string]any), nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
