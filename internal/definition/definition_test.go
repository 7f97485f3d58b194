package definition

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/testutil"
)

func TestParse_Object(t *testing.T) {
	def, err := Parse([]byte(`{"name": "Customer", "base": "Model", "properties": {"email": "string"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Name() != "Customer" {
		t.Errorf("name = %q, want Customer", def.Name())
	}
	if def.Base() != "Model" {
		t.Errorf("base = %q, want Model", def.Base())
	}
}

func TestParse_CommentsAndTrailingCommas(t *testing.T) {
	input := []byte(`{
		// parent model
		"name": "Order",
		"options": {"base": "PersistedModel",},
		/* mixins */
		"mixins": {"TimeStamp": true, "Audit": {},},
	}`)
	def, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Base() != "PersistedModel" {
		t.Errorf("base = %q, want options.base", def.Base())
	}
	mixins := def.MixinNames()
	if len(mixins) != 2 || mixins[0] != "Audit" || mixins[1] != "TimeStamp" {
		t.Errorf("mixins = %v, want [Audit TimeStamp]", mixins)
	}
}

func TestParse_RejectsNonObject(t *testing.T) {
	for _, in := range []string{`["a", "b"]`, `{"name": `} {
		if _, err := Parse([]byte(in)); !errors.Is(err, apperr.ErrInvalidDefinition) {
			t.Errorf("Parse(%s) err = %v, want ErrInvalidDefinition", in, err)
		}
	}
}

func TestParseMap_Empty(t *testing.T) {
	m, err := ParseMap([]byte("  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestReadFile_NamesFileOnError(t *testing.T) {
	fs := testutil.MemLayout(t, map[string]string{"models/bad.json": "{oops"})
	_, err := ReadFile(fs, "/app/models/bad.json")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.HasPrefix(err.Error(), "/app/models/bad.json") {
		t.Errorf("error should start with file path, got %q", err)
	}
}

func TestNameFromPath(t *testing.T) {
	if got := NameFromPath("/app/models/vip-customer.json"); got != "vip-customer" {
		t.Errorf("NameFromPath = %q", got)
	}
	if got := NameFromPath("boot/a.js"); got != "a" {
		t.Errorf("NameFromPath = %q", got)
	}
}
