package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/search-mcp/internal/mcp/ctxkeys"
	"github.com/Laisky/search-mcp/internal/mcp/tools"
	"github.com/Laisky/search-mcp/library/log"
)

const (
	// ProtocolVersion is announced in the initialize reply.
	ProtocolVersion = "2024-11-05"
	// ServerVersion is announced in the initialize reply.
	ServerVersion = "1.0.0"

	maxLineBytes = 4 << 20

	notificationPrefix = "notifications/"
)

// rpcRequest is one inbound line. Params stay raw until the method is known.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    map[string]any     `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Dispatcher turns request lines into replies for one tool registry.
// Requests are handled strictly one at a time.
type Dispatcher struct {
	info     mcp.Implementation
	registry *Registry
	logger   logSDK.Logger
}

// NewDispatcher returns a Dispatcher announcing itself as serverName.
func NewDispatcher(serverName string, registry *Registry, logger logSDK.Logger) (*Dispatcher, error) {
	if strings.TrimSpace(serverName) == "" {
		return nil, errors.New("server name is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if logger == nil {
		logger = log.Logger.Named("dispatcher")
	}

	return &Dispatcher{
		info:     mcp.Implementation{Name: serverName, Version: ServerVersion},
		registry: registry,
		logger:   logger,
	}, nil
}

// Registry returns the tool registry served by d.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Serve reads request lines from in until EOF or ctx is done and writes one
// reply line per request to out, flushing after each. A line longer than
// maxLineBytes is discarded and answered with a parse error.
func (d *Dispatcher) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReaderSize(in, 64*1024)
	writer := bufio.NewWriter(out)

	d.logger.Info("serving", zap.String("server", d.info.Name), zap.Strings("tools", d.registry.Names()))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, tooLong, readErr := readLine(reader, maxLineBytes)
		if readErr != nil && readErr != io.EOF {
			return errors.Wrap(readErr, "read request")
		}

		var (
			reply any
			ok    bool
		)
		switch {
		case tooLong:
			d.logger.Warn("drop oversize request line", zap.Int("limit", maxLineBytes))
			reply, ok = parseError(), true
		default:
			if line = bytes.TrimSpace(line); len(line) > 0 {
				reply, ok = d.HandleLine(ctx, line)
			}
		}
		if ok {
			if err := writeReply(writer, reply); err != nil {
				return errors.Wrap(err, "write reply")
			}
		}

		if readErr == io.EOF {
			d.logger.Info("input closed, stop serving")
			return nil
		}
	}
}

// readLine returns the next line without its terminator. When the line
// exceeds limit its bytes are consumed up to the newline and tooLong is set.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit+1 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch err {
		case bufio.ErrBufferFull:
			continue
		case nil:
			return bytes.TrimSuffix(line, []byte("\n")), tooLong, nil
		default:
			return line, tooLong, err
		}
	}
}

func writeReply(w *bufio.Writer, reply any) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return errors.Wrap(err, "marshal reply")
	}
	if _, err = w.Write(payload); err != nil {
		return err
	}
	if err = w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// HandleLine handles one request line. ok is false when the line needs no
// reply, which is the case for notifications.
func (d *Dispatcher) HandleLine(ctx context.Context, line []byte) (reply any, ok bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return parseError(), true
	}

	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		d.logger.Debug("drop malformed request", zap.Error(err))
		return parseError(), true
	}

	if strings.HasPrefix(req.Method, notificationPrefix) {
		d.logger.Debug("notification received", zap.String("method", req.Method))
		return nil, false
	}

	switch mcp.MCPMethod(req.Method) {
	case mcp.MethodInitialize:
		return mcp.NewJSONRPCResultResponse(req.ID, d.initializeResult()), true
	case mcp.MethodPing:
		return mcp.NewJSONRPCResultResponse(req.ID, struct{}{}), true
	case mcp.MethodToolsList:
		return mcp.NewJSONRPCResultResponse(req.ID, mcp.ListToolsResult{Tools: d.registry.List()}), true
	case mcp.MethodToolsCall:
		return d.handleToolCall(ctx, req), true
	default:
		return mcp.NewJSONRPCError(req.ID, mcp.METHOD_NOT_FOUND,
			"Unknown method: "+req.Method, nil), true
	}
}

func parseError() mcp.JSONRPCError {
	return mcp.NewJSONRPCError(mcp.NewRequestId(nil), mcp.PARSE_ERROR, "Parse error", nil)
}

func (d *Dispatcher) initializeResult() initializeResult {
	return initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      d.info,
	}
}

func (d *Dispatcher) handleToolCall(ctx context.Context, req rpcRequest) any {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcp.NewJSONRPCError(req.ID, mcp.INVALID_PARAMS, "Invalid params: "+err.Error(), nil)
		}
	}

	tool, found := d.registry.Resolve(params.Name)
	if !found {
		return mcp.NewJSONRPCError(req.ID, mcp.METHOD_NOT_FOUND, "Unknown tool: "+params.Name, nil)
	}

	args, err := decodeArguments(params.Arguments)
	if err != nil {
		return mcp.NewJSONRPCError(req.ID, mcp.INVALID_PARAMS, "Invalid params: "+err.Error(), nil)
	}
	for _, name := range d.registry.requiredArguments(params.Name) {
		if missingArgument(args[name]) {
			return mcp.NewJSONRPCError(req.ID, mcp.INVALID_PARAMS, "Missing required parameter: "+name, nil)
		}
	}

	invocationID := gutils.UUID7()
	logger := d.logger.Named("tool_call").With(
		zap.String("tool", params.Name),
		zap.String("invocation_id", invocationID),
	)
	logger.Info("tool call", zap.Any("arguments", redactArguments(args)))

	callCtx := context.WithValue(ctx, ctxkeys.Logger, logger)
	callCtx = context.WithValue(callCtx, ctxkeys.InvocationID, invocationID)
	callReq := mcp.CallToolRequest{}
	callReq.Method = string(mcp.MethodToolsCall)
	callReq.Params.Name = params.Name
	callReq.Params.Arguments = args

	start := time.Now()
	result, err := invokeTool(callCtx, tool, callReq)
	if err != nil {
		logger.Error("tool call failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return mcp.NewJSONRPCError(req.ID, mcp.INTERNAL_ERROR, "Internal error: "+err.Error(), nil)
	}

	logger.Debug("tool call completed", zap.Duration("duration", time.Since(start)))
	return mcp.NewJSONRPCResultResponse(req.ID, result)
}

// invokeTool runs the handler and turns a panic into an error.
func invokeTool(ctx context.Context, tool tools.Tool, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.Errorf("tool panicked: %v", r)
		}
	}()

	result, err = tool.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("tool returned no result")
	}
	return result, nil
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.New("arguments must be an object")
	}
	return args, nil
}

func missingArgument(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
