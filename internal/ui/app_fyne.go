//go:build fyne && cgo

/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/config"
	"github.com/JulianOrteil/TensorBuilder/internal/crash"
	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
	"github.com/JulianOrteil/TensorBuilder/internal/telemetry"
	"github.com/JulianOrteil/TensorBuilder/internal/worker"
)

// Run starts the Fyne-based desktop shell: one window holding the gradient
// frame, a model/view/controller trio behind it and a background runner for
// slow work. projectDir optionally names a workspace to open right away.
func Run(projectDir string) error {
	applog.Init(applog.FromEnv())

	cfg, _, cerr := config.Load()
	if cerr != nil {
		cfg = config.Defaults()
	}
	// Load already merged environment overrides into cfg, so re-initializing
	// from the file's logging section cannot undo a TB_LOG_* variable.
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("ui")
	l.Info("starting desktop shell")
	if cerr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cerr))
	}

	tcfg := telemetry.FromEnv()
	if cfg.General.TelemetryOptIn {
		tcfg.OptIn = true
	}
	telemetry.NewDefault(tcfg)
	telemetry.Event("app.start", nil)

	m := NewModel()
	defer func() { crash.Recover(m.Workspace) }()

	fyneApp := app.NewWithID("tensorbuilder")
	w := fyneApp.NewWindow("TensorBuilder")
	if ic, err := fyne.LoadResourceFromPath("tensorbuilder-icon.png"); err == nil {
		w.SetIcon(ic)
	}
	// Window geometry persists through Fyne preferences, floored so a
	// corrupt value cannot open an unusably small window.
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1920), 800)
	winH := max(prefs.IntWithFallback("window.height", 1080), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	// Failures already reach the log via the runner itself; the callback
	// only mirrors them onto the status line.
	var ctrl *Controller
	jobs := worker.New(func(name string, err error) {
		fyne.Do(func() {
			if ctrl != nil {
				ctrl.status.SetText(fmt.Sprintf("Background task %s failed: %v", name, err))
			}
		})
	})

	ctrl = NewController(fyneApp, w, jobs, m, l)
	ctrl.applyBuilderConfig(cfg)

	// The block catalog parse is the expensive part of startup, so it runs
	// on the worker while the window comes up empty-handed.
	if err := jobs.Submit("catalog-load", func(ctx context.Context) error {
		cat, err := catalog.Builtin()
		if err != nil {
			return err
		}
		if path, perr := config.ConfigPath(); perr == nil {
			userDir := filepath.Join(filepath.Dir(path), "blocks")
			if n, merr := cat.MergeDir(userDir); merr != nil {
				l.Warn("user block library skipped", slog.Any("err", merr))
			} else if n > 0 {
				l.Info("user block library merged", slog.Int("specs", n))
			}
		}
		fyne.Do(func() {
			ctrl.SetCatalog(cat)
			ctrl.status.SetText(fmt.Sprintf("Loaded %d block types.", cat.Len()))
		})
		return nil
	}); err != nil {
		l.Error("catalog load not queued", slog.Any("err", err))
	}

	// Persist preferences on close and join the runner before the last
	// event-loop turn.
	w.SetCloseIntercept(func() {
		l.Info("Shutting down the application")
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		telemetry.Event("app.quit", nil)
		flushCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		telemetry.Flush(flushCtx)
		cancel()
		if err := jobs.Stop(5 * time.Second); err != nil {
			l.Warn("background tasks still running at shutdown", slog.Any("err", err))
		}
		w.Close()
	})

	ctrl.Show()
	if projectDir != "" {
		ctrl.OpenWorkspace(projectDir)
	}

	w.ShowAndRun()
	return nil
}
