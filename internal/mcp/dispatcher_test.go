package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	mcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/search-mcp/internal/mcp/ctxkeys"
	"github.com/Laisky/search-mcp/internal/mcp/tools"
	"github.com/Laisky/search-mcp/library/search"
	"github.com/Laisky/search-mcp/library/search/bing"
)

type countingTool struct {
	name  string
	calls int
	panic bool
	err   error
}

func (c *countingTool) Definition() mcp.Tool {
	return mcp.NewTool(c.name,
		mcp.WithDescription("test tool"),
		mcp.WithString("query", mcp.Required()),
	)
}

func (c *countingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.calls++
	if c.panic {
		panic("boom")
	}
	if c.err != nil {
		return nil, c.err
	}
	if ctx.Value(ctxkeys.Logger) == nil {
		return mcp.NewToolResultText("no logger in context"), nil
	}
	if id, _ := ctx.Value(ctxkeys.InvocationID).(string); id == "" {
		return mcp.NewToolResultText("no invocation id in context"), nil
	}
	return mcp.NewToolResultText("echo: " + req.GetString("query", "")), nil
}

func newTestDispatcher(t *testing.T, toolset ...tools.Tool) *Dispatcher {
	t.Helper()

	registry, err := NewRegistry(toolset...)
	require.NoError(t, err)
	d, err := NewDispatcher("test-mcp-server", registry, nil)
	require.NoError(t, err)
	return d
}

// serveLines feeds lines through Serve and decodes every reply line.
func serveLines(t *testing.T, d *Dispatcher, lines ...string) []map[string]any {
	t.Helper()

	var out bytes.Buffer
	err := d.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	require.NoError(t, err)

	var replies []map[string]any
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var reply map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &reply), line)
		replies = append(replies, reply)
	}
	return replies
}

func errorOf(t *testing.T, reply map[string]any) (int, string) {
	t.Helper()

	detail, ok := reply["error"].(map[string]any)
	require.True(t, ok, reply)
	return int(detail["code"].(float64)), detail["message"].(string)
}

func textOf(t *testing.T, reply map[string]any) string {
	t.Helper()

	result, ok := reply["result"].(map[string]any)
	require.True(t, ok, reply)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	item := content[0].(map[string]any)
	require.Equal(t, "text", item["type"])
	return item["text"].(string)
}

func TestParseErrorDoesNotStopTheLoop(t *testing.T) {
	tool := &countingTool{name: "echo"}
	d := newTestDispatcher(t, tool)

	replies := serveLines(t, d,
		`{not json`,
		`[1,2]`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"query":"hi"}}}`,
	)
	require.Len(t, replies, 3)

	for _, reply := range replies[:2] {
		code, _ := errorOf(t, reply)
		require.Equal(t, mcp.PARSE_ERROR, code)
		require.Contains(t, reply, "id")
		require.Nil(t, reply["id"])
	}

	require.Equal(t, float64(2), replies[2]["id"])
	require.Equal(t, "echo: hi", textOf(t, replies[2]))
	require.Equal(t, 1, tool.calls)
}

func TestOversizeLineIsSkipped(t *testing.T) {
	tool := &countingTool{name: "echo"}
	d := newTestDispatcher(t, tool)

	huge := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"query":"` +
		strings.Repeat("a", maxLineBytes+1) + `"}}}`
	replies := serveLines(t, d,
		huge,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"query":"hi"}}}`,
	)
	require.Len(t, replies, 3)

	code, _ := errorOf(t, replies[0])
	require.Equal(t, mcp.PARSE_ERROR, code)
	require.Nil(t, replies[0]["id"])

	require.Equal(t, float64(2), replies[1]["id"])
	require.Equal(t, map[string]any{}, replies[1]["result"])

	require.Equal(t, "echo: hi", textOf(t, replies[2]))
	require.Equal(t, 1, tool.calls)
}

func TestLastLineWithoutNewline(t *testing.T) {
	d := newTestDispatcher(t, &countingTool{name: "echo"})

	var out bytes.Buffer
	err := d.Serve(context.Background(), strings.NewReader(`{"jsonrpc":"2.0","id":"p","method":"ping"}`), &out)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out.String(), "}\n"))

	var reply map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &reply))
	require.Equal(t, "p", reply["id"])
	require.Equal(t, map[string]any{}, reply["result"])
}

func TestInitializeAndToolsList(t *testing.T) {
	d := newTestDispatcher(t, &countingTool{name: "alpha"}, &countingTool{name: "beta"})

	replies := serveLines(t, d,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":"list-1","method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":"list-2","method":"tools/list"}`,
	)
	require.Len(t, replies, 3)

	init := replies[0]["result"].(map[string]any)
	require.Equal(t, ProtocolVersion, init["protocolVersion"])
	require.Equal(t, map[string]any{"tools": map[string]any{}}, init["capabilities"])
	info := init["serverInfo"].(map[string]any)
	require.Equal(t, "test-mcp-server", info["name"])
	require.Equal(t, ServerVersion, info["version"])

	require.Equal(t, "list-1", replies[1]["id"])
	listed := replies[1]["result"].(map[string]any)["tools"].([]any)
	require.Len(t, listed, 2)
	require.Equal(t, "alpha", listed[0].(map[string]any)["name"])
	require.Equal(t, "beta", listed[1].(map[string]any)["name"])
	require.Equal(t, replies[1]["result"], replies[2]["result"])
}

func TestMissingArgumentSkipsHandler(t *testing.T) {
	tool := &countingTool{name: "echo"}
	d := newTestDispatcher(t, tool)

	for _, args := range []string{`{}`, `{"query":""}`, `{"query":null}`} {
		line := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"echo","arguments":` + args + `}}`
		reply, ok := d.HandleLine(context.Background(), []byte(line))
		require.True(t, ok)

		payload, err := json.Marshal(reply)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(payload, &decoded))

		code, msg := errorOf(t, decoded)
		require.Equal(t, mcp.INVALID_PARAMS, code)
		require.Equal(t, "Missing required parameter: query", msg)
		require.Equal(t, float64(7), decoded["id"])
	}
	require.Equal(t, 0, tool.calls)
}

func TestUnknownToolAndMethod(t *testing.T) {
	d := newTestDispatcher(t, &countingTool{name: "echo"})

	replies := serveLines(t, d,
		`{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"nope","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":9,"method":"resources/list"}`,
	)
	require.Len(t, replies, 2)

	code, msg := errorOf(t, replies[0])
	require.Equal(t, mcp.METHOD_NOT_FOUND, code)
	require.Equal(t, "Unknown tool: nope", msg)
	require.Equal(t, "abc", replies[0]["id"])

	code, msg = errorOf(t, replies[1])
	require.Equal(t, mcp.METHOD_NOT_FOUND, code)
	require.Equal(t, "Unknown method: resources/list", msg)
	require.Equal(t, float64(9), replies[1]["id"])
}

func TestHandlerFailuresBecomeInternalErrors(t *testing.T) {
	panicky := &countingTool{name: "panicky", panic: true}
	failing := &countingTool{name: "failing", err: errors.New("backend exploded")}
	d := newTestDispatcher(t, panicky, failing)

	replies := serveLines(t, d,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"panicky","arguments":{"query":"x"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"failing","arguments":{"query":"x"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)
	require.Len(t, replies, 3)

	code, msg := errorOf(t, replies[0])
	require.Equal(t, mcp.INTERNAL_ERROR, code)
	require.Contains(t, msg, "boom")

	code, msg = errorOf(t, replies[1])
	require.Equal(t, mcp.INTERNAL_ERROR, code)
	require.Contains(t, msg, "backend exploded")

	require.Equal(t, map[string]any{}, replies[2]["result"])
}

func TestArgumentsMustBeAnObject(t *testing.T) {
	tool := &countingTool{name: "echo"}
	d := newTestDispatcher(t, tool)

	replies := serveLines(t, d,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":"query"}}`,
	)
	require.Len(t, replies, 1)
	code, _ := errorOf(t, replies[0])
	require.Equal(t, mcp.INVALID_PARAMS, code)
	require.Equal(t, 0, tool.calls)
}

func TestRegistryRejectsDuplicatesAndNil(t *testing.T) {
	_, err := NewRegistry(&countingTool{name: "echo"}, &countingTool{name: "echo"})
	require.Error(t, err)

	_, err = NewRegistry(&countingTool{name: "echo"}, nil)
	require.Error(t, err)

	registry, err := NewRegistry(&countingTool{name: "a"}, &countingTool{name: "b"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, registry.Names())

	_, ok := registry.Resolve("b")
	require.True(t, ok)
	_, ok = registry.Resolve("c")
	require.False(t, ok)
}

func TestBingSearchEndToEnd(t *testing.T) {
	var feed strings.Builder
	feed.WriteString(`<?xml version="1.0" encoding="utf-8" ?><rss version="2.0"><channel><title>Bing</title>`)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&feed, `<item><title>Result %d</title><link>https://example%d.com/page</link>`+
			`<description>&lt;b&gt;snippet&lt;/b&gt; %d</description></item>`, i, i, i)
	}
	feed.WriteString(`</channel></rss>`)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "rss" || r.URL.Query().Get("q") != "rust ownership" {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed.String()))
	}))
	defer upstream.Close()

	fetcher, err := search.NewHTTPFetcher(5 * time.Second)
	require.NoError(t, err)
	pipeline, err := bing.NewPipeline(bing.Options{
		Fetcher:        fetcher,
		Endpoint:       upstream.URL + "/search",
		DocumentParser: true,
	})
	require.NoError(t, err)

	tool, err := tools.NewSearchTool(tools.SearchToolConfig{
		Name:     "bing_browser_search",
		Searcher: pipeline,
	})
	require.NoError(t, err)
	d := newTestDispatcher(t, tool)

	replies := serveLines(t, d,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"bing_browser_search","arguments":{"query":"rust ownership","num_results":3}}}`,
	)
	require.Len(t, replies, 1)
	require.Equal(t, float64(1), replies[0]["id"])

	text := textOf(t, replies[0])
	require.Contains(t, text, "[1] Result 1\nlink: https://example1.com/page\nsource: example1.com\nsnippet: snippet 1\n")
	require.Contains(t, text, "[3] Result 3")
	require.NotContains(t, text, "[4]")
	require.NotContains(t, text, "Result 4")
}
