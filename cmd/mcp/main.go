package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tazhate/eventcal/internal/clients/backend"
	"github.com/tazhate/eventcal/internal/domain"
)

// JSON-RPC structures
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPServer exposes the event API as MCP tools over stdio
type MCPServer struct {
	client  *backend.Client
	timeout time.Duration
}

func NewMCPServer(client *backend.Client) *MCPServer {
	return &MCPServer{client: client, timeout: 30 * time.Second}
}

func (s *MCPServer) Run(in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "Error reading: %v\n", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", err)
			continue
		}

		// Notifications get no response
		if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
			continue
		}

		response := s.handleRequest(req)
		responseBytes, _ := json.Marshal(response)
		fmt.Fprintln(out, string(responseBytes))
	}
}

func (s *MCPServer) handleRequest(req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: nil}
	case "tools/list":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: tools}}
	case "tools/call":
		return s.handleToolsCall(req)
	default:
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "Method not found"},
		}
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
	result.ServerInfo.Name = "eventcal-mcp"
	result.ServerInfo.Version = "1.0.0"

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

var tools = []Tool{
	{
		Name:        "eventcal_list_events",
		Description: "List all events, or one day's events when date is given.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"date": {Type: "string", Description: "Day in YYYY-MM-DD format (optional)"},
			},
		},
	},
	{
		Name:        "eventcal_upcoming",
		Description: "List events from today through the next N days.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"days": {Type: "number", Description: "How many days ahead (default 7)"},
			},
		},
	},
	{
		Name:        "eventcal_add_event",
		Description: "Add an event on a day. Color is a CSS color such as #ff0000 or red.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"date":        {Type: "string", Description: "Day in YYYY-MM-DD format"},
				"description": {Type: "string", Description: "What happens"},
				"color":       {Type: "string", Description: "Event color (optional)"},
			},
			Required: []string{"date", "description"},
		},
	},
	{
		Name:        "eventcal_delete_event",
		Description: "Delete an event by its ID.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"event_id": {Type: "string", Description: "Event ID"},
			},
			Required: []string{"event_id"},
		},
	},
	{
		Name:        "eventcal_export_ics",
		Description: "Export every event as an iCalendar feed.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
	},
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.callTool(ctx, params)
	isError := err != nil
	if isError {
		result = "Error: " + err.Error()
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func (s *MCPServer) callTool(ctx context.Context, params ToolCallParams) (string, error) {
	args := params.Arguments

	switch params.Name {
	case "eventcal_list_events":
		var (
			events []domain.Event
			err    error
		)
		if date := stringArg(args, "date"); date != "" {
			events, err = s.client.ListEventsOn(ctx, date)
		} else {
			events, err = s.client.ListEvents(ctx)
		}
		if err != nil {
			return "", err
		}
		return pretty(events)

	case "eventcal_upcoming":
		days := 7
		if v, ok := args["days"].(float64); ok {
			days = int(v)
		}
		events, err := s.client.Upcoming(ctx, days)
		if err != nil {
			return "", err
		}
		return pretty(events)

	case "eventcal_add_event":
		event, err := s.client.CreateEvent(ctx, domain.NewEvent{
			DateKey:     stringArg(args, "date"),
			Description: stringArg(args, "description"),
			Color:       stringArg(args, "color"),
		})
		if err != nil {
			return "", err
		}
		return pretty(event)

	case "eventcal_delete_event":
		id := stringArg(args, "event_id")
		if err := s.client.DeleteEvent(ctx, id); err != nil {
			return "", err
		}
		return "Deleted event " + id, nil

	case "eventcal_export_ics":
		data, err := s.client.ExportICS(ctx)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("unknown tool: %s", params.Name)
}

func stringArg(args map[string]interface{}, key string) string {
	switch v := args[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func pretty(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func main() {
	apiURL := os.Getenv("EVENTCAL_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	client := backend.NewClient(apiURL)
	client.SetBasicAuth(os.Getenv("EVENTCAL_API_USERNAME"), os.Getenv("EVENTCAL_API_PASSWORD"))

	NewMCPServer(client).Run(os.Stdin, os.Stdout)
}
