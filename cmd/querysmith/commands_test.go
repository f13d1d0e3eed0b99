package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestQueryRequestRoundTrip(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/queries": `{"query":"list users","sql":"SELECT * FROM users","database_id":"sales","llm_provider":"openai","success":true,"trace":{"reasoning":"r","generated_sql":"SELECT * FROM users","errors":[],"attempts":1}}`,
	})

	client := ts.client()

	resp, err := client.post(ctx, "/api/queries", map[string]any{
		"query":   "list users",
		"execute": true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["sql"] != "SELECT * FROM users" {
		t.Errorf("sql = %v", result["sql"])
	}
	if result["success"] != true {
		t.Errorf("success = %v", result["success"])
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["query"] != "list users" || body["execute"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestDatabaseAddRoundTrip(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/databases": `{"id":"db-1","name":"sales"}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/api/databases", map[string]string{
		"name": "sales",
		"type": "postgres",
		"dsn":  "postgres://localhost/sales",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["id"] != "db-1" {
		t.Errorf("id = %q", result["id"])
	}
}

func TestDecodeJSONErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)

	client := ts.client()
	resp, err := client.get(ctx, "/api/databases/ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := decodeJSON(resp, &result); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestDeleteRoundTrip(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /api/models/old": `{}`,
	})

	client := ts.client()
	resp, err := client.delete(ctx, "/api/models/old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := decodeJSON(resp, nil); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if ts.requests[0].Method != "DELETE" {
		t.Errorf("method = %s", ts.requests[0].Method)
	}
}
