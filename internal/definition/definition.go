// Package definition parses model and mixin definition files.
//
// Definitions are JSON documents. Comments and trailing commas are accepted
// so hand-written layouts can annotate their files.
package definition

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/storage"
)

// Parse decodes a definition document. The top level must be an object.
// Malformed documents are reported as apperr.ErrInvalidDefinition.
func Parse(data []byte) (models.Definition, error) {
	stripped := jsonc.ToJSON(data)

	var raw any
	if err := json.Unmarshal(stripped, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidDefinition, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, want object", apperr.ErrInvalidDefinition, raw)
	}
	return models.Definition(obj), nil
}

// ParseMap decodes a JSON object into a plain map. An empty document yields
// an empty map.
func ParseMap(data []byte) (map[string]any, error) {
	if strings.TrimSpace(string(data)) == "" {
		return map[string]any{}, nil
	}
	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return map[string]any(def), nil
}

// ReadFile reads and parses the definition at path.
func ReadFile(fs storage.Provider, path string) (models.Definition, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// NameFromPath returns the file stem: "models/vip-customer.json" gives
// "vip-customer".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
