package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tazhate/eventcal/internal/clients/backend"
)

func newTestMCP(t *testing.T, handler http.HandlerFunc) *MCPServer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMCPServer(backend.NewClient(srv.URL))
}

func callResult(t *testing.T, resp JSONRPCResponse) ToolCallResult {
	t.Helper()
	result, ok := resp.Result.(ToolCallResult)
	if !ok {
		t.Fatalf("result = %#v, want ToolCallResult", resp.Result)
	}
	return result
}

func TestToolsList(t *testing.T) {
	s := NewMCPServer(backend.NewClient("http://unused"))
	resp := s.handleRequest(JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	list, ok := resp.Result.(ToolsListResult)
	if !ok || len(list.Tools) != 5 {
		t.Fatalf("tools/list = %#v", resp.Result)
	}
}

func TestAddEventTool(t *testing.T) {
	var got map[string]string
	s := newTestMCP(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/events" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"12","dateKey":"2024-03-10","description":"Dentist","color":"red"}`))
	})

	params, _ := json.Marshal(ToolCallParams{
		Name:      "eventcal_add_event",
		Arguments: map[string]interface{}{"date": "2024-03-10", "description": "Dentist", "color": "red"},
	})
	resp := s.handleRequest(JSONRPCRequest{JSONRPC: "2.0", ID: 2, Method: "tools/call", Params: params})
	result := callResult(t, resp)
	if result.IsError || !strings.Contains(result.Content[0].Text, `"12"`) {
		t.Errorf("result = %+v", result)
	}
	if got["dateKey"] != "2024-03-10" || got["description"] != "Dentist" {
		t.Errorf("backend received %v", got)
	}
}

func TestToolErrorIsReported(t *testing.T) {
	s := newTestMCP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Event not found"}`))
	})

	params, _ := json.Marshal(ToolCallParams{
		Name:      "eventcal_delete_event",
		Arguments: map[string]interface{}{"event_id": float64(9)},
	})
	resp := s.handleRequest(JSONRPCRequest{JSONRPC: "2.0", ID: 3, Method: "tools/call", Params: params})
	result := callResult(t, resp)
	if !result.IsError || !strings.Contains(result.Content[0].Text, "not found") {
		t.Errorf("result = %+v", result)
	}
}

func TestRunSkipsNotifications(t *testing.T) {
	s := NewMCPServer(backend.NewClient("http://unused"))
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}
{"jsonrpc":"2.0","id":1,"method":"initialize"}
{"jsonrpc":"2.0","id":2,"method":"bogus"}
`)
	var out bytes.Buffer
	s.Run(in, &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d responses, want 2: %s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "eventcal-mcp") || !strings.Contains(lines[1], "-32601") {
		t.Errorf("responses = %v", lines)
	}
}
