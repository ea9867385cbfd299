package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/blueprint/internal/events"
	"github.com/rcliao/blueprint/internal/export"
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/service"
	"github.com/rcliao/blueprint/internal/storage"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONRPCNotification represents a JSON-RPC 2.0 notification
type JSONRPCNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	// NotFound is in the implementation-defined server error range.
	NotFound = -32004
)

const eventNotification = "notifications/blueprint/event"

// MCPTransport handles line-delimited JSON-RPC 2.0 over a reader and writer.
type MCPTransport struct {
	input  io.Reader
	reader *bufio.Reader
	writer io.Writer
	server *MCPServer
	logger *zap.Logger

	writeMu     sync.Mutex
	mu          sync.Mutex
	initialized bool
	shutdown    bool
}

func NewMCPTransport(server *MCPServer, in io.Reader, out io.Writer, logger *zap.Logger) *MCPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPTransport{
		input:  in,
		reader: bufio.NewReader(in),
		writer: out,
		server: server,
		logger: logger,
	}
}

// Serve answers requests until the input ends, an exit notification arrives
// or ctx is cancelled. A clean end of input returns nil.
//
// When the input is an io.Closer it is closed on return, which unblocks the
// reader goroutine. Otherwise that goroutine stays parked in a read until the
// input delivers data or ends.
func (t *MCPTransport) Serve(ctx context.Context) error {
	unsubscribe := t.server.proposalService.Bus().Subscribe(t.forwardEvent)
	defer unsubscribe()

	stop := make(chan struct{})
	defer close(stop)
	defer func() {
		if closer, ok := t.input.(io.Closer); ok {
			_ = closer.Close()
		}
	}()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := t.reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				select {
				case lines <- line:
				case <-stop:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("transport stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				t.logger.Info("client disconnected")
				return nil
			}
			return fmt.Errorf("failed to read request: %w", err)
		case line := <-lines:
			response, exit := t.handleLine(line)
			if response != nil {
				if err := t.sendResponse(response); err != nil {
					if isDisconnect(err) {
						t.logger.Info("client disconnected", zap.Error(err))
						return nil
					}
					return fmt.Errorf("failed to send response: %w", err)
				}
			}
			if exit {
				t.server.Shutdown()
				return nil
			}
		}
	}
}

// handleLine turns a panic in any handler into an InternalError response.
func (t *MCPTransport) handleLine(line []byte) (response *JSONRPCResponse, exit bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic recovered", zap.Any("panic", r))
			response = &JSONRPCResponse{
				JSONRPC: "2.0",
				ID:      requestID(line),
				Error: &JSONRPCError{
					Code:    InternalError,
					Message: "Internal server error",
					Data:    fmt.Sprint(r),
				},
			}
			exit = false
		}
	}()
	return t.processRequest(line)
}

// processRequest processes a JSON-RPC request and returns a response
func (t *MCPTransport) processRequest(data []byte) (*JSONRPCResponse, bool) {
	// Parse JSON-RPC request
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			Error: &JSONRPCError{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}, false
	}

	// Check JSON-RPC version
	if req.JSONRPC != "2.0" {
		return errorResponse(req, InvalidRequest, "Invalid Request - JSON-RPC 2.0 required", nil), false
	}

	t.logger.Debug("request", zap.String("method", req.Method))

	// Handle initialization and standard MCP methods
	switch req.Method {
	case "initialize":
		return t.handleInitialize(req), false
	case "initialized", "notifications/initialized":
		t.mu.Lock()
		t.initialized = true
		t.mu.Unlock()
		return nil, false
	case "shutdown":
		return t.handleShutdown(req), false
	case "exit":
		// Notification - no response
		return nil, true
	}

	if t.isShutdown() {
		return errorResponse(req, InvalidRequest, "Server is shutting down", nil), false
	}
	return t.handleBlueprintMethod(req), false
}

// handleInitialize handles the MCP initialize request
func (t *MCPTransport) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	// Parse initialization parameters
	type InitParams struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo,omitempty"`
	}

	var params InitParams
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req, InvalidParams, "Invalid params", err.Error())
		}
	}
	t.logger.Info("client initializing",
		zap.String("client", params.ClientInfo.Name),
		zap.String("protocol", params.ProtocolVersion))

	// Return server capabilities
	result := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"listChanged": false,
			},
			"resources": map[string]interface{}{
				"subscribe":   false,
				"listChanged": false,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "blueprint",
			"version": "1.0.0",
		},
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

// handleShutdown handles the MCP shutdown request
func (t *MCPTransport) handleShutdown(req JSONRPCRequest) *JSONRPCResponse {
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]interface{}{},
	}
}

func (t *MCPTransport) isShutdown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shutdown
}

func (t *MCPTransport) isInitialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized
}

// handleBlueprintMethod handles tool, resource and direct method calls
func (t *MCPTransport) handleBlueprintMethod(req JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "tools/list":
		return t.handleToolsList(req)
	case "tools/call":
		return t.handleToolCall(req)
	case "resources/list":
		return t.handleResourcesList(req)
	case "resources/read":
		return t.handleResourceRead(req)
	}

	// Direct method calls
	result, err := t.server.HandleCommand(req.Method, req.Params)
	if err != nil {
		return errorResponse(req, errorCode(err), err.Error(), nil)
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

// errorCode maps domain errors onto JSON-RPC codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return MethodNotFound
	case errors.Is(err, ErrInvalidParams),
		errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, schedule.ErrNegativeDuration),
		errors.Is(err, service.ErrInvalidInput):
		return InvalidParams
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrNoCurrent),
		errors.Is(err, schedule.ErrTaskNotFound):
		return NotFound
	default:
		return InternalError
	}
}

type toolSpec struct {
	method      string
	description string
	properties  map[string]interface{}
	required    []string
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

var (
	proposalIDProp = prop("string", "Proposal ID (optional if current proposal is set)")
	dateProp       = prop("string", "Date as YYYY-MM-DD")
	formatProp     = prop("string", "Output format: "+strings.Join(export.Formats, ", "))
)

var tools = []toolSpec{
	{"blueprint.proposal.create", "Create a new proposal", map[string]interface{}{
		"name":             prop("string", "Proposal name"),
		"client":           prop("string", "Client name"),
		"contractSignDate": dateProp,
	}, []string{"name"}},
	{"blueprint.proposal.sample", "Create the sample architecture services proposal", map[string]interface{}{
		"contractSignDate": dateProp,
		"select":           prop("boolean", "Make it the current proposal"),
	}, nil},
	{"blueprint.proposal.list", "List proposals", map[string]interface{}{
		"client": prop("string", "Only proposals for this client"),
		"format": prop("string", "markdown for a readable listing"),
	}, nil},
	{"blueprint.proposal.get", "Get a proposal with its objectives and tasks", map[string]interface{}{
		"id": proposalIDProp,
	}, nil},
	{"blueprint.proposal.current", "Get the current proposal", map[string]interface{}{}, nil},
	{"blueprint.proposal.set_current", "Set the current proposal", map[string]interface{}{
		"id": prop("string", "Proposal ID"),
	}, []string{"id"}},
	{"blueprint.proposal.delete", "Delete a proposal", map[string]interface{}{
		"id": prop("string", "Proposal ID"),
	}, []string{"id"}},
	{"blueprint.proposal.summary", "Summarize a proposal schedule", map[string]interface{}{
		"id":     proposalIDProp,
		"format": prop("string", "markdown for a readable summary"),
	}, nil},
	{"blueprint.objective.add", "Append an objective to a proposal", map[string]interface{}{
		"proposalId": proposalIDProp,
		"name":       prop("string", "Objective name"),
	}, []string{"name"}},
	{"blueprint.task.add", "Append a task to an objective", map[string]interface{}{
		"proposalId":  proposalIDProp,
		"objectiveId": prop("string", "Objective ID"),
		"name":        prop("string", "Task name"),
		"duration":    prop("integer", "Working days, 0 for a milestone"),
		"predecessor": prop("string", "Name of the task this one follows"),
	}, []string{"objectiveId", "name", "duration"}},
	{"blueprint.task.remove", "Remove a task", map[string]interface{}{
		"proposalId": proposalIDProp,
		"taskId":     prop("string", "Task ID"),
	}, []string{"taskId"}},
	{"blueprint.task.set_duration", "Change a task's working-day duration", map[string]interface{}{
		"proposalId": proposalIDProp,
		"taskId":     prop("string", "Task ID"),
		"duration":   prop("integer", "Working days"),
	}, []string{"taskId", "duration"}},
	{"blueprint.task.set_start", "Override a task's start date", map[string]interface{}{
		"proposalId": proposalIDProp,
		"taskId":     prop("string", "Task ID"),
		"start":      dateProp,
	}, []string{"taskId", "start"}},
	{"blueprint.schedule.set_sign_date", "Set the contract sign date and schedule every task", map[string]interface{}{
		"proposalId": proposalIDProp,
		"date":       dateProp,
	}, []string{"date"}},
	{"blueprint.schedule.recompute", "Recompute every date from the contract sign date", map[string]interface{}{
		"proposalId": proposalIDProp,
	}, nil},
	{"blueprint.schedule.get", "Get the schedule rows", map[string]interface{}{
		"proposalId": proposalIDProp,
	}, nil},
	{"blueprint.schedule.gantt", "Get the Gantt chart", map[string]interface{}{
		"proposalId": proposalIDProp,
		"format":     prop("string", "text for a drawn chart"),
	}, nil},
	{"blueprint.schedule.export", "Export the schedule", map[string]interface{}{
		"proposalId": proposalIDProp,
		"format":     formatProp,
	}, nil},
	{"blueprint.search", "Search tasks by name, objective or predecessor", map[string]interface{}{
		"query":      prop("string", "Search text"),
		"proposalId": prop("string", "Only search this proposal"),
		"limit":      prop("integer", "Maximum results"),
		"offset":     prop("integer", "Results to skip"),
		"format":     prop("string", "markdown for a readable listing"),
	}, []string{"query"}},
	{"blueprint.calendar.is_holiday", "Check whether a date is a holiday, weekend or working day", map[string]interface{}{
		"date": dateProp,
	}, []string{"date"}},
	{"blueprint.calendar.next_working_day", "First working day strictly after a date", map[string]interface{}{
		"date": dateProp,
	}, []string{"date"}},
	{"blueprint.calendar.span", "Calendar days covered by a working-day duration", map[string]interface{}{
		"start":    dateProp,
		"duration": prop("integer", "Working days"),
	}, []string{"start", "duration"}},
	{"blueprint.calendar.holidays", "List the holidays of a year", map[string]interface{}{
		"year": prop("integer", "Year (defaults to this year)"),
	}, nil},
}

// toolName is the MCP-safe name of a method.
func toolName(method string) string {
	return strings.ReplaceAll(method, ".", "_")
}

func toolMethod(name string) (string, bool) {
	for _, tool := range tools {
		if toolName(tool.method) == name {
			return tool.method, true
		}
	}
	return "", false
}

// handleToolsList handles MCP tools list requests
func (t *MCPTransport) handleToolsList(req JSONRPCRequest) *JSONRPCResponse {
	list := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		schema := map[string]interface{}{
			"type":       "object",
			"properties": tool.properties,
		}
		if len(tool.required) > 0 {
			schema["required"] = tool.required
		}
		list = append(list, map[string]interface{}{
			"name":        toolName(tool.method),
			"description": tool.description,
			"inputSchema": schema,
		})
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": list,
		},
	}
}

// handleToolCall handles MCP tool calls
func (t *MCPTransport) handleToolCall(req JSONRPCRequest) *JSONRPCResponse {
	type ToolCallParams struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req, InvalidParams, "Invalid params", err.Error())
	}

	// Map MCP tool names back to internal command names
	commandName, ok := toolMethod(params.Name)
	if !ok {
		return errorResponse(req, MethodNotFound, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	result, err := t.server.HandleCommand(commandName, params.Arguments)
	if err != nil {
		return errorResponse(req, errorCode(err), err.Error(), nil)
	}

	// Return result in MCP tool call format
	var textContent string

	// Check if result is already a string (markdown formatted)
	if str, ok := result.(string); ok {
		textContent = str
	} else {
		// Otherwise serialize to JSON
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return errorResponse(req, InternalError, "Failed to serialize result", err.Error())
		}
		textContent = string(resultJSON)
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": textContent,
				},
			},
		},
	}
}

var resources = map[string]struct {
	name        string
	description string
	method      string
	params      string
}{
	"blueprint://proposals":        {"Proposals", "Every proposal in this session", "blueprint.proposal.list", `{"format":"markdown"}`},
	"blueprint://current":          {"Current proposal", "Schedule tables of the current proposal", "blueprint.schedule.export", `{"format":"markdown"}`},
	"blueprint://current/gantt":    {"Current Gantt", "Gantt chart of the current proposal", "blueprint.schedule.gantt", `{"format":"text"}`},
	"blueprint://current/summary":  {"Current summary", "Schedule summary of the current proposal", "blueprint.proposal.summary", `{"format":"markdown"}`},
	"blueprint://current/calendar": {"Current calendar", "iCalendar export of the current proposal", "blueprint.schedule.export", `{"format":"ics"}`},
}

// handleResourcesList handles MCP resources list requests
func (t *MCPTransport) handleResourcesList(req JSONRPCRequest) *JSONRPCResponse {
	uris := make([]string, 0, len(resources))
	for uri := range resources {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	list := make([]map[string]interface{}, 0, len(uris))
	for _, uri := range uris {
		r := resources[uri]
		list = append(list, map[string]interface{}{
			"uri":         uri,
			"name":        r.name,
			"description": r.description,
			"mimeType":    mimeType(uri),
		})
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"resources": list,
		},
	}
}

// handleResourceRead handles MCP resource read requests
func (t *MCPTransport) handleResourceRead(req JSONRPCRequest) *JSONRPCResponse {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req, InvalidParams, "Invalid params", err.Error())
	}

	r, ok := resources[params.URI]
	if !ok {
		return errorResponse(req, InvalidParams, fmt.Sprintf("Unknown resource: %s", params.URI), nil)
	}

	result, err := t.server.HandleCommand(r.method, json.RawMessage(r.params))
	if err != nil {
		return errorResponse(req, errorCode(err), err.Error(), nil)
	}
	text, _ := result.(string)

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"contents": []map[string]interface{}{
				{
					"uri":      params.URI,
					"mimeType": mimeType(params.URI),
					"text":     text,
				},
			},
		},
	}
}

func mimeType(uri string) string {
	if strings.HasSuffix(uri, "/calendar") {
		return "text/calendar"
	}
	return "text/markdown"
}

// forwardEvent relays bus events to an initialized client.
func (t *MCPTransport) forwardEvent(e events.Event) {
	if !t.isInitialized() {
		return
	}
	if err := t.sendNotification(eventNotification, e); err != nil {
		t.logger.Warn("failed to send event", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}

// sendResponse writes one JSON-RPC response line
func (t *MCPTransport) sendResponse(response *JSONRPCResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	return t.writeLine(data)
}

// sendNotification sends a JSON-RPC notification
func (t *MCPTransport) sendNotification(method string, params interface{}) error {
	notification := JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  method,
	}

	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal notification params: %w", err)
		}
		notification.Params = paramsJSON
	}

	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return t.writeLine(data)
}

func (t *MCPTransport) writeLine(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

func errorResponse(req JSONRPCRequest, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// requestID recovers the ID of a request whose handler failed.
func requestID(line []byte) interface{} {
	var req struct {
		ID interface{} `json:"id"`
	}
	_ = json.Unmarshal(line, &req)
	return req.ID
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset")
}
