/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points ConfigPath at a scratch directory so Load never sees a
// developer's real config.yaml.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("AppData", dir)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvRegistryURL, "https://models.example.net:8443")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogFormat, "JSON")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/tb.log")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.BaseURL != "https://models.example.net:8443" {
		t.Fatalf("base URL override lost: %q", cfg.Registry.BaseURL)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatal("telemetry opt-in override lost")
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/tb.log" {
		t.Fatalf("logging overrides lost: %#v", cfg.Logging)
	}
}

func TestLoadMergesConfigFileOverDefaults(t *testing.T) {
	isolate(t)
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	file := "builder:\n  grid_step: 24\n  default_target: PyTorch\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Builder.GridStep != 24 || cfg.Builder.DefaultTarget != "pytorch" {
		t.Fatalf("builder section not merged: %#v", cfg.Builder)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging section not merged: %#v", cfg.Logging)
	}
	// Blank strings and counts keep their defaults...
	if cfg.Builder.AutosaveSec != 60 || cfg.Registry.BaseURL != "http://localhost:8080" {
		t.Fatalf("sparse file should keep defaults elsewhere: %#v", cfg)
	}
	// ...but booleans always come from the file, so an omitted
	// snap_to_grid reads as off.
	if cfg.Builder.SnapToGrid {
		t.Fatal("omitted snap_to_grid should read as false")
	}
}

func TestMergeNormalizesAndKeepsDefaults(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.General.EnableRegistry = true
	src.Builder.DefaultTarget = "PyTorch"
	src.Logging.Format = "  JSON  "
	mergeInto(&dst, &src)

	if !dst.General.EnableRegistry {
		t.Fatal("enable_registry did not carry over")
	}
	if dst.Builder.DefaultTarget != "pytorch" || dst.Logging.Format != "json" {
		t.Fatalf("enum-ish fields should normalize to lower case: %q %q",
			dst.Builder.DefaultTarget, dst.Logging.Format)
	}
	if dst.Builder.GridStep != 16 || dst.Logging.Level != "info" {
		t.Fatalf("unset fields should keep defaults: %#v", dst)
	}
}

func TestEnvOverrideForReportsSetVars(t *testing.T) {
	t.Setenv(EnvGridStep, "32")
	name, ok := EnvOverrideFor("builder.grid_step")
	if !ok || name != EnvGridStep {
		t.Fatalf("EnvOverrideFor = %q, %v; want %q, true", name, ok, EnvGridStep)
	}
	if _, ok := EnvOverrideFor("builder.unknown_field"); ok {
		t.Fatal("unknown field should not report an override")
	}
}

func TestRegistryTimeoutFallsBackWhenUnset(t *testing.T) {
	r := RegistryConfig{TimeoutMs: 2500}
	if got := r.Timeout(); got != 2500*time.Millisecond {
		t.Fatalf("Timeout = %v, want 2.5s", got)
	}
	r.TimeoutMs = 0
	if got, want := r.Timeout(), time.Duration(Defaults().Registry.TimeoutMs)*time.Millisecond; got != want {
		t.Fatalf("Timeout = %v, want default %v", got, want)
	}
}

type fakeStore struct {
	vals map[string]string
}

func (f *fakeStore) Get(service, key string) (string, error) { return f.vals[service+"/"+key], nil }
func (f *fakeStore) Set(service, key, value string) error {
	f.vals[service+"/"+key] = value
	return nil
}
func (f *fakeStore) Delete(service, key string) error {
	delete(f.vals, service+"/"+key)
	return nil
}

func TestTokenRoundTripThroughStore(t *testing.T) {
	oldStore := tokenStore
	tokenStore = &fakeStore{vals: map[string]string{}}
	t.Cleanup(func() { tokenStore = oldStore })
	isolate(t)

	if err := Save(Defaults(), "secret-token"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	_, tok, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if tok != "secret-token" {
		t.Fatalf("token round trip failed: %q", tok)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken error: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token not cleared: %q", tok)
	}
}
