/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for the application.
// The console gets a compact single-line handler; an optional file sink
// receives the same records as rotated JSON. Helpers tag records with the
// emitting component and operation so one grep can follow a feature
// across packages.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JulianOrteil/TensorBuilder/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. FromEnv fills it from:
//
//	TB_LOG_LEVEL   debug|info|warn|error (default info)
//	TB_LOG_FORMAT  console|json (default console)
//	TB_LOG_FILE    path; enables the rotating JSON file sink
//	TB_LOG_SOURCE  true to include source positions
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
}

// FromEnv builds Options from the TB_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     envOr("TB_LOG_LEVEL", "info"),
		Format:    envOr("TB_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(os.Getenv("TB_LOG_SOURCE"), "true"),
		File:      os.Getenv("TB_LOG_FILE"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var (
	mu     sync.RWMutex
	active *slog.Logger
)

// L returns the application logger, initializing from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := active
	mu.RUnlock()
	if l == nil {
		Init(FromEnv())
		mu.RLock()
		l = active
		mu.RUnlock()
	}
	return l
}

// Init builds the logger described by opts and installs it as both the
// package logger and slog's default. Calling it again replaces the
// previous configuration.
func Init(opts Options) {
	lvl := level(opts.Level)

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	} else {
		h = &lineHandler{min: lvl, source: opts.AddSource, w: os.Stderr}
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		sink := &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		h = tee{h, slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})}
	}

	l := slog.New(h).With(
		slog.String("app", "tensorbuilder"),
		slog.String("ver", version.Version),
	)
	mu.Lock()
	active = l
	mu.Unlock()
	slog.SetDefault(l)
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

func level(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// tee sends every record to each of its handlers and reports the first
// failure.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// lineHandler prints compact single-line records for terminals:
// "15:04:05.000 INF message key=value". Attribute values containing
// spaces are quoted. Keys in attrs already carry the group path they
// were added under; only record attrs take the current prefix.
type lineHandler struct {
	min    slog.Level
	source bool
	w      io.Writer
	attrs  []slog.Attr
	groups []string
}

func (h *lineHandler) Enabled(_ context.Context, lvl slog.Level) bool { return lvl >= h.min }

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.Grow(192)
	b.WriteString(ts.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(tag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	put := func(key string, v slog.Value) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(render(v.Resolve()))
	}
	for _, a := range h.attrs {
		put(a.Key, a.Value)
	}
	prefix := h.prefix()
	r.Attrs(func(a slog.Attr) bool {
		put(prefix+a.Key, a.Value)
		return true
	})

	if h.source && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		if f.File != "" {
			b.WriteString(" src=")
			b.WriteString(f.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(f.Line))
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *h
	n.attrs = append([]slog.Attr(nil), h.attrs...)
	p := h.prefix()
	for _, a := range attrs {
		a.Key = p + a.Key
		n.attrs = append(n.attrs, a)
	}
	return &n
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	n := *h
	n.groups = append(append([]string(nil), h.groups...), name)
	n.attrs = append([]slog.Attr(nil), h.attrs...)
	return &n
}

func (h *lineHandler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func tag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func render(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	default:
		s = v.String()
	}
	if strings.ContainsAny(s, " \t") {
		return strconv.Quote(s)
	}
	return s
}
