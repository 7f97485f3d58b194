package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/naming"
	"github.com/starford/bootplan/internal/testutil"
)

func compileLayout(t *testing.T, files map[string]string, opts Options) (*models.Plan, error) {
	t.Helper()
	opts.Root = testutil.MemRoot
	opts.FS = testutil.MemLayout(t, files)
	opts.Logger = testutil.Logger()
	if opts.Env == "" {
		opts.Env = "development"
	}
	return Compile(opts)
}

func mustCompile(t *testing.T, files map[string]string, opts Options) *models.Plan {
	t.Helper()
	plan, err := compileLayout(t, files, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return plan
}

func TestCompile_BootScriptOrdering(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"boot/b.js":             "",
		"boot/a.js":             "",
		"boot/_hidden.js":       "",
		"boot/index.js":         "",
		"boot/development/c.js": "",
		"boot/production/p.js":  "",
	}, Options{})

	want := []string{"/app/boot/a.js", "/app/boot/b.js", "/app/boot/development/c.js"}
	if diff := cmp.Diff(want, plan.Files.Boot); diff != "" {
		t.Errorf("boot mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_ExplicitBootScriptsFirst(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"boot/a.js":       "",
		"boot/b.js":       "",
		"extra/x.js":      "",
		"custom/setup.js": "",
		"custom/_skip.js": "",
		"custom/teardown": "",
	}, Options{
		BootScripts: []string{"./boot/b", "./missing.js"},
		BootDirs:    []string{"./custom", "./nope"},
	})

	want := []string{
		"/app/boot/b.js",
		"/app/custom/setup.js",
		"/app/boot/a.js",
	}
	if diff := cmp.Diff(want, plan.Files.Boot); diff != "" {
		t.Errorf("boot mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_BaseModelsFirst(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"models/vip-customer.json": `{"name": "VipCustomer", "base": "Customer"}`,
		"models/customer.json":     `{"name": "Customer", "base": "PersistedModel"}`,
		"models/customer.js":       "",
	}, Options{
		ModelConfig: map[string]any{
			"VipCustomer": map[string]any{"dataSource": "db"},
		},
	})

	if diff := cmp.Diff([]string{"Customer", "VipCustomer"}, plan.ModelNames()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	customer := plan.Models[0]
	if customer.Config != nil {
		t.Errorf("base model pulled in by inheritance has config %v", customer.Config)
	}
	if customer.SourceFile != "/app/models/customer.js" {
		t.Errorf("customer source = %q", customer.SourceFile)
	}

	vip := plan.Models[1]
	if diff := cmp.Diff(models.ModelConfig{"dataSource": "db"}, vip.Config); diff != "" {
		t.Errorf("vip config mismatch:\n%s", diff)
	}
	if vip.SourceFile != "" {
		t.Errorf("vip has no script, got source %q", vip.SourceFile)
	}
}

func TestCompile_InfersModelNameFromFile(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"models/vip-customer.json": `{"properties": {}}`,
		"models/_draft.json":       `{"name": "Draft"}`,
	}, Options{
		ModelConfig: map[string]any{
			"VipCustomer": map[string]any{},
			"Draft":       map[string]any{},
		},
	})

	vip, ok := plan.Model("VipCustomer")
	if !ok || vip.Definition == nil {
		t.Fatalf("VipCustomer not defined: %+v", plan.Models)
	}
	if vip.Definition.Name() != "VipCustomer" {
		t.Errorf("inferred name = %q", vip.Definition.Name())
	}
	draft, _ := plan.Model("Draft")
	if draft.Definition != nil {
		t.Errorf("underscore-prefixed definition must be ignored, got %v", draft.Definition)
	}
}

func TestCompile_InfersModelNameFromAcronymFile(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"models/VIPCustomer.json": `{"properties": {}}`,
		"models/user2fa.json":     `{}`,
	}, Options{
		ModelConfig: map[string]any{
			"VipCustomer": map[string]any{},
			"User2Fa":     map[string]any{},
		},
	})

	for _, name := range []string{"VipCustomer", "User2Fa"} {
		inst, ok := plan.Model(name)
		if !ok || inst.Definition == nil {
			t.Errorf("%s resolved as a builtin reference: %+v", name, inst)
		}
	}
}

func TestCompile_BuiltinModelReference(t *testing.T) {
	plan := mustCompile(t, nil, Options{
		ModelConfig: map[string]any{
			"User": map[string]any{"dataSource": "db", "public": true},
		},
	})

	if len(plan.Models) != 1 {
		t.Fatalf("models = %+v", plan.Models)
	}
	user := plan.Models[0]
	if user.Name != "User" || user.Definition != nil || user.SourceFile != "" {
		t.Errorf("builtin instruction = %+v", user)
	}
	if user.Config["public"] != true {
		t.Errorf("config lost: %v", user.Config)
	}
}

func TestCompile_InlineDefinition(t *testing.T) {
	input := map[string]any{
		"Car": map[string]any{
			"dataSource": "db",
			"options":    map[string]any{"base": "Vehicle", "strict": true},
			"properties": map[string]any{"vin": "string"},
		},
	}
	plan := mustCompile(t, nil, Options{ModelConfig: input})

	car, ok := plan.Model("Car")
	if !ok {
		t.Fatal("Car missing")
	}
	if diff := cmp.Diff(models.ModelConfig{"dataSource": "db"}, car.Config); diff != "" {
		t.Errorf("header config mismatch:\n%s", diff)
	}
	wantDef := models.Definition{
		"name":       "Car",
		"base":       "Vehicle",
		"strict":     true,
		"properties": map[string]any{"vin": "string"},
	}
	if diff := cmp.Diff(wantDef, car.Definition); diff != "" {
		t.Errorf("definition mismatch (-want +got):\n%s", diff)
	}
	if _, ok := input["Car"].(map[string]any)["options"]; !ok {
		t.Error("caller model config was mutated")
	}
}

func TestCompile_InlineDefinitionOverridesDiscovered(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"models/car.json": `{"name": "Car", "base": "Vehicle", "plural": "cars"}`,
		"models/car.js":   "",
	}, Options{
		ModelConfig: map[string]any{
			"Car": map[string]any{"options": map[string]any{"base": "Model"}},
		},
	})

	car, _ := plan.Model("Car")
	if car.Definition.Base() != "Model" {
		t.Errorf("base = %q, want inline override", car.Definition.Base())
	}
	if car.Definition["plural"] != "cars" {
		t.Errorf("discovered fields lost: %v", car.Definition)
	}
	if car.SourceFile != "/app/models/car.js" {
		t.Errorf("source = %q, want discovered script", car.SourceFile)
	}
}

func TestCompile_FirstModelSourceWins(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"common/models/car.json": `{"name": "Car", "description": "common"}`,
		"server/models/car.json": `{"name": "Car", "description": "server"}`,
	}, Options{
		ModelSources: []string{"./common/models", "./server/models"},
		ModelConfig:  map[string]any{"Car": map[string]any{}},
	})

	car, _ := plan.Model("Car")
	if car.Definition["description"] != "common" {
		t.Errorf("description = %v, want first source", car.Definition["description"])
	}
}

func TestCompile_CyclicInheritance(t *testing.T) {
	_, err := compileLayout(t, map[string]string{
		"models/a.json": `{"name": "A", "base": "B"}`,
		"models/b.json": `{"name": "B", "base": "A"}`,
	}, Options{
		ModelConfig: map[string]any{"A": map[string]any{}},
	})
	if !errors.Is(err, apperr.ErrCyclicInheritance) {
		t.Fatalf("err = %v, want ErrCyclicInheritance", err)
	}
}

func TestCompile_InvalidModelDefinition(t *testing.T) {
	_, err := compileLayout(t, map[string]string{
		"models/broken.json": `{"name": `,
	}, Options{})
	if !errors.Is(err, apperr.ErrInvalidDefinition) {
		t.Fatalf("err = %v, want ErrInvalidDefinition", err)
	}
	if !apperr.IsCompileError(err) || apperr.Code(err) != apperr.CodeInvalidDefinition {
		t.Errorf("malformed definition not reported as a layout error: %v", err)
	}
}

func TestCompile_DefaultMixinsFilteredByReference(t *testing.T) {
	files := map[string]string{
		"mixins/TimeStamp.js":   "",
		"mixins/TimeStamp.json": `{"name": "Timestamped"}`,
	}

	plan := mustCompile(t, files, Options{})
	if len(plan.Mixins) != 0 {
		t.Errorf("unreferenced default mixin kept: %+v", plan.Mixins)
	}

	plan = mustCompile(t, files, Options{MixinDirs: []string{"./mixins"}})
	want := []models.MixinInstruction{{Name: "Timestamped", SourceFile: "/app/mixins/TimeStamp.js"}}
	if diff := cmp.Diff(want, plan.Mixins); diff != "" {
		t.Errorf("mixin_dirs mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_ReferencedDefaultMixinKept(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"mixins/TimeStamp.js":   "",
		"mixins/TimeStamp.json": `{"name": "Timestamped", "required": true}`,
		"mixins/Unused.js":      "",
		"models/note.json":      `{"name": "Note", "mixins": {"Timestamped": true}}`,
	}, Options{
		ModelConfig: map[string]any{"Note": map[string]any{}},
	})

	want := []models.MixinInstruction{{
		Name:       "Timestamped",
		SourceFile: "/app/mixins/TimeStamp.js",
		Meta:       map[string]any{"required": true},
	}}
	if diff := cmp.Diff(want, plan.Mixins); diff != "" {
		t.Errorf("mixins mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_LibrarySourcesFromModulesDir(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"node_modules/loopback/common/models/user.json": `{"name": "User", "base": "PersistedModel"}`,
		"node_modules/loopback/common/models/user.js":   "",
		"node_modules/loopback/common/mixins/owned.js":  "",
		"node_modules/loopback/common/mixins/unused.js": "",
		"loopback/common/models/ghost.json":             `{"name": "Ghost"}`,
		"models/note.json":                              `{"name": "Note", "base": "User", "mixins": {"Owned": true}}`,
	}, Options{
		ModelConfig: map[string]any{
			"Note":  map[string]any{},
			"Ghost": map[string]any{},
		},
	})

	if diff := cmp.Diff([]string{"Ghost", "User", "Note"}, plan.ModelNames()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
	user, _ := plan.Model("User")
	if user.SourceFile != "/app/node_modules/loopback/common/models/user.js" {
		t.Errorf("user source = %q", user.SourceFile)
	}
	ghost, _ := plan.Model("Ghost")
	if ghost.Definition != nil {
		t.Errorf("library root resolved relative to the app root: %v", ghost.Definition)
	}

	want := []models.MixinInstruction{{Name: "Owned", SourceFile: "/app/node_modules/loopback/common/mixins/owned.js"}}
	if diff := cmp.Diff(want, plan.Mixins); diff != "" {
		t.Errorf("mixins mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_MixinPrecedence(t *testing.T) {
	plan := mustCompile(t, map[string]string{
		"lib/audit.js":    "",
		"extra/audit.js":  "",
		"extra/owner.js":  "",
		"mixins/audit.js": "",
		"models/doc.json": `{"name": "Doc", "mixins": {"Audit": {}}}`,
	}, Options{
		Mixins:      []string{"./lib/audit"},
		MixinDirs:   []string{"./extra"},
		ModelConfig: map[string]any{"Doc": map[string]any{}},
	})

	want := []models.MixinInstruction{
		{Name: "Audit", SourceFile: "/app/mixins/audit.js"},
		{Name: "Owner", SourceFile: "/app/extra/owner.js"},
	}
	if diff := cmp.Diff(want, plan.Mixins); diff != "" {
		t.Errorf("mixins mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_MissingExplicitMixin(t *testing.T) {
	_, err := compileLayout(t, nil, Options{Mixins: []string{"./mixins/ghost.js"}})
	if !errors.Is(err, apperr.ErrPathNotFound) {
		t.Fatalf("err = %v, want ErrPathNotFound", err)
	}
}

func TestCompile_Normalization(t *testing.T) {
	files := map[string]string{"extra/my_mixin.js": ""}

	tests := []struct {
		policy string
		want   string
	}{
		{"", "MyMixin"},
		{naming.PolicyClassify, "MyMixin"},
		{naming.PolicyDasherize, "my-mixin"},
		{naming.PolicyNone, "my_mixin"},
	}
	for _, tt := range tests {
		t.Run("policy="+tt.policy, func(t *testing.T) {
			plan := mustCompile(t, files, Options{MixinDirs: []string{"./extra"}, Normalization: tt.policy})
			if diff := cmp.Diff([]string{tt.want}, plan.MixinNames()); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("custom function", func(t *testing.T) {
		plan := mustCompile(t, files, Options{
			MixinDirs:     []string{"./extra"},
			Normalization: "bogus",
			NormalizeFunc: func(s string) string { return "x-" + s },
		})
		if diff := cmp.Diff([]string{"x-my_mixin"}, plan.MixinNames()); diff != "" {
			t.Errorf("names mismatch:\n%s", diff)
		}
	})
}

func TestCompile_InvalidNormalization(t *testing.T) {
	_, err := compileLayout(t, nil, Options{Normalization: "camelize"})
	if !errors.Is(err, apperr.ErrInvalidNormalization) {
		t.Fatalf("err = %v, want ErrInvalidNormalization", err)
	}
	if apperr.Code(err) != apperr.CodeInvalidNormalization {
		t.Errorf("code = %q", apperr.Code(err))
	}
}

func TestCompile_PlanIsIndependentCopy(t *testing.T) {
	appConfig := map[string]any{"port": 3000, "nested": map[string]any{"k": "v"}}
	files := map[string]string{
		"models/car.json": `{"name": "Car", "properties": {"vin": "string"}}`,
	}
	opts := Options{
		AppConfig:   appConfig,
		ModelConfig: map[string]any{"Car": map[string]any{"dataSource": "db"}},
	}

	first := mustCompile(t, files, opts)
	first.Config["nested"].(map[string]any)["k"] = "changed"
	first.Models[0].Definition["properties"].(map[string]any)["vin"] = "number"
	first.Models[0].Config["dataSource"] = "other"

	if appConfig["nested"].(map[string]any)["k"] != "v" {
		t.Error("plan aliases the caller's app config")
	}
	if opts.ModelConfig["Car"].(map[string]any)["dataSource"] != "db" {
		t.Error("plan aliases the caller's model config")
	}

	second := mustCompile(t, files, opts)
	if second.Models[0].Definition["properties"].(map[string]any)["vin"] != "string" {
		t.Error("mutation of one plan leaked into the next compile")
	}
}

func TestCompile_Deterministic(t *testing.T) {
	files := map[string]string{
		"models/a.json": `{"name": "A"}`,
		"models/b.json": `{"name": "B", "base": "A"}`,
		"models/c.json": `{"name": "C", "base": "A"}`,
		"boot/z.js":     "",
		"boot/Y.js":     "",
	}
	opts := Options{
		ModelConfig: map[string]any{
			"C": map[string]any{},
			"B": map[string]any{},
			"D": map[string]any{},
		},
	}
	first := mustCompile(t, files, opts)
	for i := 0; i < 5; i++ {
		next := mustCompile(t, files, opts)
		if diff := cmp.Diff(first, next); diff != "" {
			t.Fatalf("compile %d differs:\n%s", i, diff)
		}
	}
	if diff := cmp.Diff([]string{"D", "A", "B", "C"}, first.ModelNames()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_EnvFromVariable(t *testing.T) {
	t.Setenv(EnvVar, "staging")
	plan, err := Compile(Options{
		Root:   testutil.MemRoot,
		FS:     testutil.MemLayout(t, map[string]string{"boot/staging/s.js": ""}),
		Logger: testutil.Logger(),
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if plan.Env != "staging" {
		t.Errorf("env = %q", plan.Env)
	}
	if diff := cmp.Diff([]string{"/app/boot/staging/s.js"}, plan.Files.Boot); diff != "" {
		t.Errorf("boot mismatch:\n%s", diff)
	}
}

func TestCompile_RequiresRoot(t *testing.T) {
	if _, err := Compile(Options{Logger: testutil.Logger()}); err == nil {
		t.Fatal("expected error for empty root")
	}
}
