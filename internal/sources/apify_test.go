// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeApify serves the three endpoints RunAndCollect touches: actor
// start, run status, and dataset items.
func fakeApify(t *testing.T, runStatus string, items []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(r.URL.Path, "/acts/") && r.Method == http.MethodPost:
			if r.URL.Query().Get("token") == "" {
				t.Error("actor start missing token")
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"id": "run-1"},
			})

		case strings.Contains(r.URL.Path, "/actor-runs/run-1"):
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"status":           runStatus,
					"defaultDatasetId": "ds-1",
				},
			})

		case strings.Contains(r.URL.Path, "/datasets/ds-1/items"):
			json.NewEncoder(w).Encode(items)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			http.NotFound(w, r)
		}
	}))
}

func TestRedditSource_Fetch(t *testing.T) {
	server := fakeApify(t, "SUCCEEDED", []map[string]any{
		{"id": "p1", "title": "App down?", "body": "anyone else", "author": "redditor1"},
		{"id": "p2", "title": "works for me", "author": "redditor2"},
	})
	defer server.Close()

	client := NewApifyClient(server.Client(), server.URL, "test-token")
	src := NewRedditSource(client)

	items, err := src.Fetch(context.Background(), "app down", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "App down?" || items[0].Author != "redditor1" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestRunAndCollect_FailedRun(t *testing.T) {
	server := fakeApify(t, "FAILED", nil)
	defer server.Close()

	client := NewApifyClient(server.Client(), server.URL, "test-token")
	_, err := client.RunAndCollect(context.Background(), "some~actor", map[string]any{})
	if err == nil {
		t.Fatal("expected error for FAILED run")
	}
	if !strings.Contains(err.Error(), "FAILED") {
		t.Errorf("error %q should mention run status", err)
	}
}

func TestRunAndCollect_MissingToken(t *testing.T) {
	client := NewApifyClient(nil, "http://unused", "")
	_, err := client.RunAndCollect(context.Background(), "some~actor", nil)
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("expected token error, got %v", err)
	}
}

func TestInstagramSource_HashtagTransform(t *testing.T) {
	var gotInput map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost:
			json.NewDecoder(r.Body).Decode(&gotInput)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "run-1"}})
		case strings.Contains(r.URL.Path, "/actor-runs/"):
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"status": "SUCCEEDED", "defaultDatasetId": "ds-1"},
			})
		default:
			json.NewEncoder(w).Encode([]map[string]any{})
		}
	}))
	defer server.Close()

	client := NewApifyClient(server.Client(), server.URL, "test-token")
	src := NewInstagramSource(client)

	if _, err := src.Fetch(context.Background(), "loop closer", 5); err != nil {
		t.Fatal(err)
	}
	if gotInput["search"] != "#loopcloser" {
		t.Errorf("search = %v, want #loopcloser", gotInput["search"])
	}

	// Already-hashtagged queries pass through untouched.
	if _, err := src.Fetch(context.Background(), "#saas", 5); err != nil {
		t.Fatal(err)
	}
	if gotInput["search"] != "#saas" {
		t.Errorf("search = %v, want #saas", gotInput["search"])
	}
}
