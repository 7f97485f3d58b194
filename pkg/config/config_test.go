package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "demo")
	path := writeConfig(t, "name: ${CONFIG_TEST_NAME}\nport: 8080\n")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "demo" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, "name: demo\nprot: 8080\n")

	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeConfig(t, "port: 8080\n")

	var cfg testConfig
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestLoadOptional_Missing(t *testing.T) {
	cfg := testConfig{Name: "default"}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if read || cfg.Name != "default" {
		t.Errorf("read = %v, cfg = %+v", read, cfg)
	}
}

func TestLoadOptional_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg := testConfig{Name: "default"}
	read, err := LoadOptional(path, &cfg)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if !read || cfg.Name != "default" {
		t.Errorf("read = %v, cfg = %+v", read, cfg)
	}
}
