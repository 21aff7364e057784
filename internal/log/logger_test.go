/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromEnvReadsVariablesWithDefaults(t *testing.T) {
	t.Setenv("TB_LOG_LEVEL", "")
	t.Setenv("TB_LOG_FORMAT", "")
	t.Setenv("TB_LOG_SOURCE", "")
	t.Setenv("TB_LOG_FILE", "")
	if opts := FromEnv(); opts.Level != "info" || opts.Format != "console" || opts.AddSource || opts.File != "" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}

	t.Setenv("TB_LOG_LEVEL", "warn")
	t.Setenv("TB_LOG_FORMAT", "json")
	t.Setenv("TB_LOG_SOURCE", "TRUE")
	t.Setenv("TB_LOG_FILE", "/var/log/tb.json")
	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "/var/log/tb.json" {
		t.Fatalf("environment not read: %+v", opts)
	}
}

func TestLevelParsing(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"trace":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := level(in); got != want {
			t.Fatalf("level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLineHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	base := &lineHandler{min: slog.LevelWarn, w: &buf}

	if base.Enabled(nil, slog.LevelInfo) {
		t.Fatal("info must be filtered at warn level")
	}
	if !base.Enabled(nil, slog.LevelError) {
		t.Fatal("error must pass at warn level")
	}

	h := base.WithAttrs([]slog.Attr{slog.String("path", "a b")}).WithGroup("req")
	r := slog.Record{Time: time.Date(2025, 8, 25, 9, 30, 0, 0, time.UTC), Level: slog.LevelError, Message: "save failed"}
	r.AddAttrs(slog.Int("attempt", 3), slog.Bool("retry", true))
	if err := h.Handle(nil, r); err != nil {
		t.Fatalf("handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"09:30:00.000", "ERR", "save failed", `path="a b"`, "req.attempt=3", "req.retry=true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "req.path") {
		t.Fatalf("attrs set before the group must not carry its prefix: %q", out)
	}
}

func TestTeeDeliversToEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := tee{
		&lineHandler{min: slog.LevelDebug, w: &a},
		&lineHandler{min: slog.LevelInfo, w: &b},
	}

	if !h.Enabled(nil, slog.LevelDebug) {
		t.Fatal("tee is enabled when any member is")
	}
	r := slog.Record{Time: time.Now(), Level: slog.LevelInfo, Message: "both sinks"}
	if err := h.Handle(nil, r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(a.String(), "both sinks") || !strings.Contains(b.String(), "both sinks") {
		t.Fatalf("record did not reach both handlers: %q / %q", a.String(), b.String())
	}
}

func TestInitWithFileWritesTaggedJSON(t *testing.T) {
	// The rotating sink keeps its file open, so use a throwaway path in the
	// system temp dir rather than t.TempDir.
	path := filepath.Join(os.TempDir(), fmt.Sprintf("tb_log_%d.json", time.Now().UnixNano()))
	t.Cleanup(func() { _ = os.Remove(path) })

	Init(Options{Level: "debug", Format: "json", File: path})
	l := WithOperation(WithComponent("indexer"), "rebuild")
	l.Info("documents written", slog.Int("count", 7))

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var found map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		if json.Unmarshal(sc.Bytes(), &rec) == nil && rec["msg"] == "documents written" {
			found = rec
		}
	}
	if found == nil {
		t.Fatal("logged record not present in the file sink")
	}
	if found["app"] != "tensorbuilder" || found["component"] != "indexer" || found["op"] != "rebuild" {
		t.Fatalf("missing standard attrs: %v", found)
	}
	if _, ok := found["ver"].(string); !ok {
		t.Fatalf("missing version attr: %v", found)
	}
	if found["count"] != float64(7) {
		t.Fatalf("record attr lost: %v", found)
	}
}
