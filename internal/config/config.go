/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads and persists the per-user application settings.
// Settings live in one YAML file under the user config directory; TB_*
// environment variables override individual fields at load time and are
// never written back. The registry token is the exception to the file:
// it is kept in the OS keyring, passed around as a separate value, and
// never lands inside AppConfig.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	EnableRegistry bool   `yaml:"enable_registry"`
}

// BuilderConfig holds network canvas and code generation preferences.
type BuilderConfig struct {
	SnapToGrid    bool   `yaml:"snap_to_grid"`
	GridStep      int    `yaml:"grid_step"`
	AutosaveSec   int    `yaml:"autosave_sec"`
	DefaultTarget string `yaml:"default_target"` // "tensorflow" | "pytorch"
}

// RegistryConfig points the client at a shared model registry service.
type RegistryConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// The access token deliberately has no field here; Load hands it
	// back separately, straight from the keyring.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is everything config.yaml can carry. config_version bumps
// when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Builder       BuilderConfig  `yaml:"builder"`
	Registry      RegistryConfig `yaml:"registry"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults is the configuration a fresh install starts from.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Builder:       BuilderConfig{SnapToGrid: true, GridStep: 16, AutosaveSec: 60, DefaultTarget: "tensorflow"},
		Registry:      RegistryConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Environment variable names Load recognizes as overrides.
const (
	EnvRegistryURL       = "TB_REGISTRY_URL"
	EnvRegistryTimeoutMs = "TB_REGISTRY_TIMEOUT_MS"
	EnvRegistryTLSInsec  = "TB_TLS_INSECURE"
	EnvTelemetryOptIn    = "TB_TELEMETRY_OPT_IN"
	EnvEnableRegistry    = "TB_ENABLE_REGISTRY"
	EnvDefaultTarget     = "TB_DEFAULT_TARGET"
	EnvSnapToGrid        = "TB_SNAP_TO_GRID"
	EnvGridStep          = "TB_GRID_STEP"
	EnvAutosaveSec       = "TB_AUTOSAVE_SEC"
	EnvLogLevel          = "TB_LOG_LEVEL"
	EnvLogFormat         = "TB_LOG_FORMAT"
	EnvLogSource         = "TB_LOG_SOURCE"
	EnvLogFile           = "TB_LOG_FILE"
)

// Keyring coordinates for the registry token.
const (
	keyringService = "TensorBuilder"
	keyringToken   = "registry_token"
)

// tokenStore is swapped for an in-memory fake in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring is the production TokenStore, backed by zalando/go-keyring
// through the keyring* functions in keyring_real.go or keyring_stub.go.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyringSet(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyringDelete(service, key) }

// ConfigPath names the per-user config.yaml.
func ConfigPath() (string, error) {
	dir, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func userConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("AppData"); base != "" {
			return filepath.Join(base, "TensorBuilder"), nil
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming", "TensorBuilder"), nil
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "TensorBuilder"), nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", errors.New("config directory unknown: HOME is not set")
	}
	return filepath.Join(home, ".config", "tensorbuilder"), nil
}

// Load reads the user config file (if present), applies defaults, and
// merges environment overrides. The registry token comes back as the
// second value, straight from the keyring.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, rerr := os.ReadFile(path); rerr == nil {
		var onDisk AppConfig
		if yaml.Unmarshal(data, &onDisk) == nil {
			mergeInto(&cfg, &onDisk)
		}
	}
	applyEnvOverrides(&cfg)
	token, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, token, nil
}

// Save writes the user config YAML and, when token is non-empty, stores
// it in the OS keyring.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return tokenStore.Set(keyringService, keyringToken, token)
	}
	return nil
}

// ClearToken removes the registry token from the OS keyring.
func ClearToken() error {
	return tokenStore.Delete(keyringService, keyringToken)
}

// mergeInto lays the file config over the defaults. Strings and counts
// only land when set, so a sparse file keeps defaults for the rest;
// booleans always come from the file because false is a real choice
// there.
func mergeInto(dst, src *AppConfig) {
	overlayInt(&dst.ConfigVersion, src.ConfigVersion)
	overlayString(&dst.General.Theme, src.General.Theme, false)
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableRegistry = src.General.EnableRegistry

	dst.Builder.SnapToGrid = src.Builder.SnapToGrid
	overlayInt(&dst.Builder.GridStep, src.Builder.GridStep)
	overlayInt(&dst.Builder.AutosaveSec, src.Builder.AutosaveSec)
	overlayString(&dst.Builder.DefaultTarget, src.Builder.DefaultTarget, true)

	overlayString(&dst.Registry.BaseURL, src.Registry.BaseURL, false)
	overlayInt(&dst.Registry.TimeoutMs, src.Registry.TimeoutMs)
	dst.Registry.TLSInsecure = src.Registry.TLSInsecure

	overlayString(&dst.Logging.Level, src.Logging.Level, true)
	overlayString(&dst.Logging.Format, src.Logging.Format, true)
	dst.Logging.Source = src.Logging.Source
	overlayString(&dst.Logging.File, src.Logging.File, false)
}

func overlayString(dst *string, src string, lower bool) {
	s := strings.TrimSpace(src)
	if s == "" {
		return
	}
	if lower {
		s = strings.ToLower(s)
	}
	*dst = s
}

func overlayInt(dst *int, src int) {
	if src > 0 {
		*dst = src
	}
}

// envOverrides drives both the load-time override pass and the
// EnvOverrideFor lookup the settings dialog uses to flag fields the
// environment pins.
var envOverrides = []struct {
	key   string
	env   string
	apply func(*AppConfig, string)
}{
	{"registry.base_url", EnvRegistryURL, func(c *AppConfig, v string) { c.Registry.BaseURL = v }},
	{"registry.timeout_ms", EnvRegistryTimeoutMs, func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.Registry.TimeoutMs = n
		}
	}},
	{"registry.tls_insecure", EnvRegistryTLSInsec, func(c *AppConfig, v string) { c.Registry.TLSInsecure = envBool(v) }},
	{"general.telemetry_opt_in", EnvTelemetryOptIn, func(c *AppConfig, v string) { c.General.TelemetryOptIn = envBool(v) }},
	{"general.enable_registry", EnvEnableRegistry, func(c *AppConfig, v string) { c.General.EnableRegistry = envBool(v) }},
	{"builder.default_target", EnvDefaultTarget, func(c *AppConfig, v string) { c.Builder.DefaultTarget = strings.ToLower(v) }},
	{"builder.snap_to_grid", EnvSnapToGrid, func(c *AppConfig, v string) { c.Builder.SnapToGrid = envBool(v) }},
	{"builder.grid_step", EnvGridStep, func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Builder.GridStep = n
		}
	}},
	{"builder.autosave_sec", EnvAutosaveSec, func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Builder.AutosaveSec = n
		}
	}},
	{"logging.level", EnvLogLevel, func(c *AppConfig, v string) { c.Logging.Level = strings.ToLower(v) }},
	{"logging.format", EnvLogFormat, func(c *AppConfig, v string) { c.Logging.Format = strings.ToLower(v) }},
	{"logging.source", EnvLogSource, func(c *AppConfig, v string) { c.Logging.Source = envBool(v) }},
	{"logging.file", EnvLogFile, func(c *AppConfig, v string) { c.Logging.File = v }},
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, o := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			o.apply(cfg, v)
		}
	}
}

func envBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor reports the environment variable currently pinning the
// dotted config key, e.g. "builder.grid_step".
func EnvOverrideFor(key string) (string, bool) {
	for _, o := range envOverrides {
		if o.key == key && os.Getenv(o.env) != "" {
			return o.env, true
		}
	}
	return "", false
}

// Timeout is the configured per-call budget for registry requests,
// falling back to the default when unset.
func (r RegistryConfig) Timeout() time.Duration {
	ms := r.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Registry.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
