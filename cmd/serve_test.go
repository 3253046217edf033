package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/tickmcp/internal/config"
)

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer cli-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/project":
			_, _ = w.Write([]byte(`[{"id":"p1","name":"Inbox"}]`))
		case "/project/p1/data":
			_, _ = w.Write([]byte(`{"tasks":[{"id":"t1","title":"Write report","projectId":"p1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL, token string) *config.Config {
	t.Helper()
	t.Setenv("INSTRUMENTATION_ENABLED", "false")

	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.AccessToken = token
	cfg.TokenFile = filepath.Join(t.TempDir(), "ticktick.token")
	cfg.LogLevel = "error"
	return cfg
}

func runLines(t *testing.T, cfg *config.Config, lines ...string) []wireResponse {
	t.Helper()

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out, errOut bytes.Buffer
	require.NoError(t, runServe(context.Background(), cfg, in, &out, &errOut))

	var responses []wireResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp wireResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "line: %s", line)
		responses = append(responses, resp)
	}
	return responses
}

func toolPayload(t *testing.T, resp wireResponse) map[string]any {
	t.Helper()
	require.Nil(t, resp.Error)

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload))
	return payload
}

func TestRunServe_Session(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t, srv.URL, "cli-token")

	responses := runLines(t, cfg,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_tasks","arguments":{}}}`,
		`not json`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"tickrb://projects"}}`,
	)
	require.Len(t, responses, 5)

	var initResult struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &initResult))
	assert.Equal(t, "2024-11-05", initResult.ProtocolVersion)
	assert.Equal(t, "tickrb-mcp-server", initResult.ServerInfo.Name)

	var listResult struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[1].Result, &listResult))
	names := make([]string, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"ping", "list_tasks", "create_task", "complete_task", "delete_task", "list_projects"}, names)

	payload := toolPayload(t, responses[2])
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, float64(1), payload["count"])

	require.NotNil(t, responses[3].Error)
	assert.Equal(t, -32700, responses[3].Error.Code)
	assert.Equal(t, "null", string(responses[3].ID))

	require.Nil(t, responses[4].Error)
	assert.Contains(t, string(responses[4].Result), "Inbox")
}

func TestRunServe_WithoutToken(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t, srv.URL, "")

	responses := runLines(t, cfg,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_projects","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"ping","arguments":{}}}`,
	)
	require.Len(t, responses, 2)

	payload := toolPayload(t, responses[0])
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["error"], "no TickTick access token")

	assert.Equal(t, "Pong! Hello from TickRb MCP Server", toolPayload(t, responses[1])["message"])
}

func TestRunServe_CancelledContext(t *testing.T) {
	cfg := testConfig(t, "https://api.ticktick.com/open/v1", "cli-token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The pipe never delivers input; cancellation alone must stop the server
	r, w := newBlockingPipe(t)
	defer w.Close()

	var out, errOut bytes.Buffer
	assert.NoError(t, runServe(ctx, cfg, r, &out, &errOut))
}

func TestRunServe_InvalidLogLevel(t *testing.T) {
	cfg := testConfig(t, "https://api.ticktick.com/open/v1", "")
	cfg.LogLevel = "loud"

	var out, errOut bytes.Buffer
	assert.Error(t, runServe(context.Background(), cfg, strings.NewReader(""), &out, &errOut))
}
