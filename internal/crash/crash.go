/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash is the last-resort panic handler shared by the UI and CLI.
package crash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/telemetry"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// exitFn is swapped out by tests so Recover can be exercised without
// terminating the test binary.
var exitFn = os.Exit

// Recover turns an in-flight panic into a crash report, salvages what it
// can of the open workspace and exits with code 2. Install it with
//
//	defer crash.Recover(ws)
//
// at the top of every goroutine that owns a workspace handle; ws may be
// nil when nothing is open yet.
func Recover(ws *storage.WorkspaceHandle) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	path, err := writeReport(ws, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.String("path", path), slog.Any("err", err))
	}
	if ws != nil {
		salvageWorkspace(ws, l)
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", path)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// salvageWorkspace writes everything still worth saving: a copy of the
// manifest beside the crash report, then one recovery snapshot per
// network under the "autosave:<name>" scope so the editor can offer a
// restore on the next open. Index writes go last; a corrupt index may be
// what panicked.
func salvageWorkspace(ws *storage.WorkspaceHandle, l *slog.Logger) {
	if path, err := storage.AutosaveCrashSnapshot(ws); err != nil {
		l.Error("manifest autosave failed", slog.Any("err", err))
	} else {
		l.Info("manifest autosaved", slog.String("path", path))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now().UTC()
	for i := range ws.Project.Networks {
		n := &ws.Project.Networks[i]
		if n.Name == "" {
			continue
		}
		blob, err := json.Marshal(n)
		if err != nil {
			l.Error("recovery snapshot skipped", slog.String("network", n.Name), slog.Any("err", err))
			continue
		}
		if err := storage.SaveSnapshot(ctx, ws, "autosave:"+n.Name, blob, now); err != nil {
			l.Error("recovery snapshot failed", slog.String("network", n.Name), slog.Any("err", err))
		}
	}
}

// writeReport persists the report and hands a copy to telemetry. The
// upload happens first so a full disk cannot also lose the report.
func writeReport(ws *storage.WorkspaceHandle, panicVal any, stack []byte) (string, error) {
	body := reportBody(ws, panicVal, stack)
	telemetry.UploadCrash(body)

	name := "crash-" + time.Now().Format("20060102-150405") + ".log"
	path := filepath.Join(reportDir(ws), name)
	f, err := os.Create(path)
	if err != nil {
		return path, err
	}
	_, werr := f.Write(body)
	if serr := f.Sync(); werr == nil {
		werr = serr
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return path, werr
}

// reportDir prefers the workspace backups folder and falls back to the
// system temp dir when no workspace is open or the folder is unusable.
func reportDir(ws *storage.WorkspaceHandle) string {
	if ws == nil || ws.Root == "" {
		return os.TempDir()
	}
	dir := filepath.Join(ws.Root, storage.BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.TempDir()
	}
	return dir
}

func reportBody(ws *storage.WorkspaceHandle, panicVal any, stack []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintln(&b, "TensorBuilder Crash Report")
	fmt.Fprintln(&b, "Timestamp:", time.Now().Format(time.RFC3339))
	fmt.Fprintln(&b, "Version:", version.String())
	fmt.Fprintf(&b, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(&b, "Go:", runtime.Version())
	if ws != nil {
		fmt.Fprintln(&b, "WorkspaceRoot:", ws.Root)
		fmt.Fprintln(&b, "Manifest:", ws.ManifestPath)
	}
	fmt.Fprintf(&b, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)
	return b.Bytes()
}
