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
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func TestE2E_PublishFetchSearch(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	srv := httptest.NewServer(buildMux(db, "e2e-secret"))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := NewClient(srv.URL, "", 0)
	grant, err := c.FetchToken(ctx, "e2e", time.Hour)
	if err != nil {
		t.Fatalf("fetch token: %v", err)
	}
	if grant.Token == "" || c.Token != grant.Token {
		t.Fatalf("token not installed on client: %+v", grant)
	}

	// Unique name keeps reruns against a shared database independent.
	name := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	n := &domain.Network{
		Name:       name,
		Target:     domain.TargetTensorFlow,
		InputShape: []int{784},
		Blocks: []domain.Block{
			{ID: "in", Type: "input"},
			{ID: "d1", Type: "dense", Label: "hidden", Params: map[string]any{"units": 32}},
		},
		Connections: []domain.Connection{{From: "in", To: "d1"}},
	}

	rec, err := c.Publish(ctx, "e2e-project", n)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if rec.ID == 0 || rec.Version != 1 {
		t.Fatalf("first publish receipt: %+v", rec)
	}
	rec2, err := c.Publish(ctx, "e2e-project", n)
	if err != nil {
		t.Fatalf("re-publish: %v", err)
	}
	if rec2.ID != rec.ID || rec2.Version != 2 {
		t.Fatalf("re-publish should bump the version in place: %+v then %+v", rec, rec2)
	}

	list, err := c.ListNetworks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var found *NetworkInfo
	for i := range list {
		if list[i].ID == rec.ID {
			found = &list[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("published network %d missing from list", rec.ID)
	}
	if found.Blocks != 2 || found.Connections != 1 || found.PublishedBy != "e2e" {
		t.Fatalf("list row: %+v", *found)
	}

	env, err := c.GetNetwork(ctx, rec.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if env.Name != name || env.Version != 2 || env.Target != domain.TargetTensorFlow {
		t.Fatalf("envelope: %+v", env)
	}
	got, err := env.Decode()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(got.Blocks) != 2 || len(got.InputShape) != 1 || got.InputShape[0] != 784 {
		t.Fatalf("payload did not roundtrip: %+v", got)
	}
	if b := got.BlockByID("d1"); b == nil || b.Label != "hidden" {
		t.Fatalf("block d1 did not roundtrip: %+v", b)
	}

	hits, err := c.Search(ctx, "net:"+name, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var sawNetwork bool
	for _, h := range hits {
		if h.Type == "network" && h.Network == name {
			sawNetwork = true
		}
	}
	if !sawNetwork {
		t.Fatalf("search by net: filter missed the published network, hits=%+v", hits)
	}
}
