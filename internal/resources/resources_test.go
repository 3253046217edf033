package resources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/tickmcp/internal/rpc"
	"github.com/teemow/tickmcp/internal/server"
	"github.com/teemow/tickmcp/internal/ticktick"
)

type fakeClient struct {
	server.TaskClient
	projects []ticktick.Project
	tasks    []ticktick.Task
	err      error
}

func (f *fakeClient) GetProjects(context.Context) ([]ticktick.Project, error) {
	return f.projects, f.err
}

func (f *fakeClient) GetTasks(context.Context) ([]ticktick.Task, error) {
	return f.tasks, f.err
}

type readResult struct {
	Contents []struct {
		URI      string `json:"uri"`
		MIMEType string `json:"mimeType"`
		Text     string `json:"text"`
	} `json:"contents"`
}

func newDispatcher(t *testing.T, factory server.ClientFactory) *rpc.Dispatcher {
	t.Helper()

	sc := server.NewServerContext(context.Background(), factory, server.WithVersion("9.9.9"))
	reg := rpc.NewRegistry()
	require.NoError(t, RegisterResources(reg, sc))
	return rpc.NewDispatcher(reg, "9.9.9")
}

func read(t *testing.T, d *rpc.Dispatcher, uri string) (*rpc.Response, readResult) {
	t.Helper()

	resp := d.HandleLine(context.Background(), []byte(`{"jsonrpc":"2.0","method":"resources/read","params":{"uri":"`+uri+`"},"id":1}`))
	require.NotNil(t, resp)

	var result readResult
	if resp.Error == nil {
		data, err := json.Marshal(resp.Result)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &result))
	}
	return resp, result
}

func TestRegisterResources(t *testing.T) {
	reg := rpc.NewRegistry()
	sc := server.NewServerContext(context.Background(), nil)
	require.NoError(t, RegisterResources(reg, sc))

	resources := reg.Resources()
	require.Len(t, resources, 3)
	assert.Equal(t, ProjectsURI, resources[0].URI)
	assert.Equal(t, TasksURI, resources[1].URI)
	assert.Equal(t, ServerInfoURI, resources[2].URI)
	assert.Empty(t, resources[2].MIMEType)
}

func TestProjectsResource(t *testing.T) {
	client := &fakeClient{projects: []ticktick.Project{{ID: "p1", Name: "Inbox"}}}
	d := newDispatcher(t, func() (server.TaskClient, error) { return client, nil })

	resp, result := read(t, d, ProjectsURI)
	require.Nil(t, resp.Error)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var projects []ticktick.Project
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &projects))
	assert.Equal(t, client.projects, projects)
}

func TestTasksResource(t *testing.T) {
	client := &fakeClient{tasks: []ticktick.Task{{ID: "t1", Title: "Buy milk", ProjectID: "p1"}}}
	d := newDispatcher(t, func() (server.TaskClient, error) { return client, nil })

	resp, result := read(t, d, TasksURI)
	require.Nil(t, resp.Error)

	var tasks []ticktick.Task
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "p1", tasks[0].ProjectID)
}

func TestServerInfoResource(t *testing.T) {
	d := newDispatcher(t, nil)

	resp, result := read(t, d, ServerInfoURI)
	require.Nil(t, resp.Error)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	assert.Contains(t, result.Contents[0].Text, "tickrb-mcp-server")
	assert.Contains(t, result.Contents[0].Text, "Version: 9.9.9")
	assert.Contains(t, result.Contents[0].Text, "Protocol: 2024-11-05")
}

func TestResourceErrorsAreInternal(t *testing.T) {
	tests := []struct {
		name    string
		factory server.ClientFactory
		want    string
	}{
		{
			name:    "no token",
			factory: func() (server.TaskClient, error) { return nil, ticktick.ErrNoToken },
			want:    "no TickTick access token found",
		},
		{
			name: "api error",
			factory: func() (server.TaskClient, error) {
				return &fakeClient{err: errors.New("Resource not found")}, nil
			},
			want: "Resource not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(t, tt.factory)

			resp, _ := read(t, d, ProjectsURI)
			require.NotNil(t, resp.Error)
			assert.Equal(t, -32603, resp.Error.Code)
			assert.Contains(t, resp.Error.Data, tt.want)
		})
	}
}
