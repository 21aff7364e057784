/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
)

// Client is a minimal HTTP client for the registry API. The desktop app uses
// it behind the enable_registry feature flag.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a registry client. baseURL may include a trailing slash;
// it will be normalized. A non-positive timeout falls back to 10s.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// TokenGrant is the response of the token endpoint.
type TokenGrant struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// FetchToken requests a bearer token and installs it on the client for
// subsequent calls. ttl values outside the server's bounds are clamped
// server-side.
func (c *Client) FetchToken(ctx context.Context, subject string, ttl time.Duration) (TokenGrant, error) {
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	var grant TokenGrant
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &grant); err != nil {
		return TokenGrant{}, err
	}
	c.Token = grant.Token
	return grant, nil
}

// NetworkInfo is a minimal projection for listing.
type NetworkInfo struct {
	ID          int64     `json:"id"`
	Project     string    `json:"project"`
	Name        string    `json:"name"`
	Target      string    `json:"target"`
	Blocks      int       `json:"blocks"`
	Connections int       `json:"connections"`
	Version     int64     `json:"version"`
	PublishedBy string    `json:"published_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListNetworks returns the published networks, most recently updated first.
func (c *Client) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	var list []NetworkInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/networks", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PublishReceipt reports the stored id and version after a publish.
type PublishReceipt struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

// Publish uploads one network under the given project name. Re-publishing
// the same (project, name) pair bumps the stored version.
func (c *Client) Publish(ctx context.Context, project string, n *domain.Network) (*PublishReceipt, error) {
	if n == nil {
		return nil, fmt.Errorf("network is nil")
	}
	req := map[string]any{"project": project, "network": n}
	var rec PublishReceipt
	if err := c.doJSON(ctx, http.MethodPost, "/api/networks", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// NetworkEnvelope matches the server response for one published network.
type NetworkEnvelope struct {
	ID          int64           `json:"id"`
	Project     string          `json:"project"`
	Name        string          `json:"name"`
	Target      string          `json:"target"`
	Version     int64           `json:"version"`
	PublishedBy string          `json:"published_by"`
	UpdatedAt   string          `json:"updated_at"`
	Network     json.RawMessage `json:"network"`
}

// GetNetwork fetches one published network by id.
func (c *Client) GetNetwork(ctx context.Context, id int64) (*NetworkEnvelope, error) {
	var env NetworkEnvelope
	path := fmt.Sprintf("/api/networks/%d", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Decode unmarshals the envelope payload into a domain network.
func (e *NetworkEnvelope) Decode() (*domain.Network, error) {
	var n domain.Network
	if err := json.Unmarshal(e.Network, &n); err != nil {
		return nil, fmt.Errorf("decode network payload: %w", err)
	}
	return &n, nil
}

// Search runs a raw query line (same mini-language as local search) against
// the registry and maps the rows to storage.SearchResult.
func (c *Client) Search(ctx context.Context, raw string, limit int) ([]storage.SearchResult, error) {
	v := url.Values{}
	v.Set("q", raw)
	if limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", limit))
	}
	type hit struct {
		DocID   int64  `json:"doc_id"`
		Type    string `json:"type"`
		Path    string `json:"path"`
		Network string `json:"network"`
		Snippet string `json:"snippet"`
	}
	var hits []hit
	if err := c.doJSON(ctx, http.MethodGet, "/api/search?"+v.Encode(), nil, &hits); err != nil {
		return nil, err
	}
	out := make([]storage.SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, storage.SearchResult{DocID: h.DocID, Type: h.Type, Path: h.Path, Network: h.Network, Snippet: h.Snippet})
	}
	return out, nil
}
