/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry ships anonymous usage events and crash reports to an
// operator-configured endpoint. It is disabled twice over by default: the
// user must opt in and an endpoint must be configured, otherwise every
// call is a no-op.
package telemetry

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// Config selects the endpoints and posture of the sender. The zero value
// is fully disabled.
//
// FromEnv reads:
//
//	TB_TELEMETRY_OPT_IN      enable sending ("1", "true", "yes", "on")
//	TB_TELEMETRY_URL         endpoint for JSON usage events
//	TB_CRASH_UPLOAD_URL      endpoint for plain-text crash reports
//	TB_TELEMETRY_TIMEOUT_MS  per-request timeout, default 1500
//	TB_TELEMETRY_DEBUG       log every send attempt
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

const defaultTimeout = 1500 * time.Millisecond

// FromEnv builds a Config from the TB_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:        envBool("TB_TELEMETRY_OPT_IN"),
		EventsURL:    strings.TrimSpace(os.Getenv("TB_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("TB_CRASH_UPLOAD_URL")),
		Timeout:      defaultTimeout,
		DebugLogging: os.Getenv("TB_TELEMETRY_DEBUG") != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("TB_TELEMETRY_TIMEOUT_MS"))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// event is the wire form of one usage event. Props carries only what the
// caller passed in; nothing here identifies the user or the machine.
type event struct {
	Name    string         `json:"name"`
	At      string         `json:"ts"`
	Session string         `json:"session"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client posts events from a single background goroutine. Event never
// blocks the caller: a full queue counts the event as dropped and moves
// on.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	session string

	queue   chan event
	stop    chan struct{}
	stopped sync.Once
	dropped atomic.Int64
}

// New starts a client. Close releases its goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		http:    &http.Client{Timeout: cfg.Timeout},
		session: newSessionID(),
		queue:   make(chan event, 64),
		stop:    make(chan struct{}),
	}
	go c.run()
	return c
}

// newSessionID returns a random identifier that groups the events of one
// process run without identifying anything else.
func newSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

// Enabled reports whether usage events would actually be sent.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.OptIn && c.cfg.EventsURL != ""
}

// Event queues one usage event. Calls on a disabled client, or with an
// empty name, do nothing.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := event{
		Name:    name,
		At:      time.Now().UTC().Format(time.RFC3339Nano),
		Session: c.session,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		ev.Props = make(map[string]any, len(props))
		for k, v := range props {
			ev.Props[k] = v
		}
	}
	select {
	case c.queue <- ev:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was
// full.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Flush waits for queued events to reach the sender, bounded by ctx and
// a half-second cap.
func (c *Client) Flush(ctx context.Context) {
	limit, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for len(c.queue) > 0 {
		select {
		case <-limit.Done():
			return
		case <-tick.C:
		}
	}
}

// Close stops the sender goroutine. Events still queued are dropped;
// call Flush first when they matter.
func (c *Client) Close() {
	c.stopped.Do(func() {
		close(c.stop)
		if n := c.dropped.Load(); n > 0 {
			c.log.Debug("usage events dropped", slog.Int64("count", n))
		}
	})
}

func (c *Client) run() {
	for {
		select {
		case <-c.stop:
			return
		case ev := <-c.queue:
			if b, err := json.Marshal(ev); err == nil {
				c.post(c.cfg.EventsURL, "application/json", b)
			}
		}
	}
}

func (c *Client) post(url, contentType string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry post failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry post done", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already serialized crash report in the background.
// Crash uploads need their own URL; the opt-in covers them the same way
// it covers events.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	body := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", body)
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// NewDefault replaces the package default client.
func NewDefault(cfg Config) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClient = New(cfg)
}

func ensureDefault() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// Enabled reports whether the default client would send usage events.
func Enabled() bool { return ensureDefault().Enabled() }

// Event queues a usage event on the default client.
func Event(name string, props map[string]any) { ensureDefault().Event(name, props) }

// Flush drains the default client's queue, bounded by ctx.
func Flush(ctx context.Context) { ensureDefault().Flush(ctx) }

// UploadCrash posts a crash report through the default client.
func UploadCrash(report []byte) { ensureDefault().UploadCrash(report) }
