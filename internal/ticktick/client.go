package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/tickmcp/internal/instrumentation"
	"github.com/teemow/tickmcp/internal/logging"
)

const (
	// DefaultBaseURL is the TickTick Open API root.
	DefaultBaseURL = "https://api.ticktick.com/open/v1"

	// UserAgent is sent with every request.
	UserAgent = "tickmcp/1.0 (+https://github.com/teemow/tickmcp)"
)

// TokenLoader supplies an access token when none was passed to NewClient.
// An empty token with a nil error means no token is available.
type TokenLoader interface {
	LoadToken() (string, error)
}

// Client talks to the TickTick Open API on behalf of a single access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

type clientOptions struct {
	baseURL     string
	base        http.RoundTripper
	now         func() time.Time
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	tokenLoader TokenLoader
}

// Option configures a Client.
type Option func(*clientOptions)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient uses the transport of hc underneath the bearer-token
// transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		if hc != nil {
			o.base = hc.Transport
		}
	}
}

// WithClock replaces time.Now for cache freshness checks.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		o.now = now
	}
}

// WithMetrics records upstream calls and cache lookups on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger used for request debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTokenLoader is consulted when NewClient is called with an empty token.
func WithTokenLoader(loader TokenLoader) Option {
	return func(o *clientOptions) {
		o.tokenLoader = loader
	}
}

// NewClient creates a Client. It fails with ErrNoToken, without touching the
// network, when token is empty and the token loader has none either.
func NewClient(token string, opts ...Option) (*Client, error) {
	o := clientOptions{
		baseURL: DefaultBaseURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if token == "" && o.tokenLoader != nil {
		loaded, err := o.tokenLoader.LoadToken()
		if err != nil {
			return nil, fmt.Errorf("failed to load access token: %w", err)
		}
		token = loaded
	}
	if token == "" {
		return nil, ErrNoToken
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: o.baseURL,
		httpClient: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
				Base:   o.base,
			},
		},
		cache:   newCache(o.now),
		metrics: o.metrics,
		logger:  logger,
	}, nil
}

// GetProjects returns all projects of the user.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	if projects, ok := c.cache.cachedProjects(); ok {
		c.metrics.RecordCacheLookup(ctx, "projects", true)
		return projects, nil
	}
	c.metrics.RecordCacheLookup(ctx, "projects", false)

	var projects []Project
	if err := c.do(ctx, instrumentation.OperationListProjects, http.MethodGet, "/project", nil, &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []Project{}
	}

	c.cache.storeProjects(projects)
	return projects, nil
}

// GetTasks returns the tasks of every project, in project order. Each task's
// ProjectID is set to the project it was listed under.
func (c *Client) GetTasks(ctx context.Context) ([]Task, error) {
	if tasks, ok := c.cache.cachedTasks(); ok {
		c.metrics.RecordCacheLookup(ctx, "tasks", true)
		return tasks, nil
	}
	c.metrics.RecordCacheLookup(ctx, "tasks", false)

	projects, err := c.GetProjects(ctx)
	if err != nil {
		return nil, err
	}

	tasks := []Task{}
	for _, project := range projects {
		projectTasks, err := c.GetTasksForProject(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		for _, task := range projectTasks {
			task.ProjectID = project.ID
			tasks = append(tasks, task)
		}
	}

	c.cache.storeTasks(tasks)
	return tasks, nil
}

// GetTasksForProject returns the tasks listed in a project's data. A response
// without a tasks field yields an empty slice.
func (c *Client) GetTasksForProject(ctx context.Context, projectID string) ([]Task, error) {
	var data projectData
	path := "/project/" + url.PathEscape(projectID) + "/data"
	if err := c.do(ctx, instrumentation.OperationGetProjectData, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	if data.Tasks == nil {
		return []Task{}, nil
	}
	return data.Tasks, nil
}

// CreateTask creates a task. Nil fields of input are left out of the request.
func (c *Client) CreateTask(ctx context.Context, input TaskInput) (*Task, error) {
	var task Task
	if err := c.do(ctx, instrumentation.OperationCreateTask, http.MethodPost, "/task", input, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask marks a task as completed. The decoded response body is
// returned as is; an empty body yields an empty object.
func (c *Client) CompleteTask(ctx context.Context, taskID, projectID string) (any, error) {
	var result any
	path := "/project/" + url.PathEscape(projectID) + "/task/" + url.PathEscape(taskID) + "/complete"
	if err := c.do(ctx, instrumentation.OperationCompleteTask, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID, projectID string) (any, error) {
	var result any
	path := "/project/" + url.PathEscape(projectID) + "/task/" + url.PathEscape(taskID)
	if err := c.do(ctx, instrumentation.OperationDeleteTask, http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

// do performs one API request and decodes a non-empty 2xx body into out.
// An empty 2xx body leaves out untouched. A mutating request that the API
// accepted clears the cache even if its body cannot be decoded.
func (c *Client) do(ctx context.Context, operation, method, path string, body any, out any) (err error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return newAPIError("Unsupported HTTP method: %s", method)
	}

	ctx, span := instrumentation.StartAPISpan(ctx, operation, method)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		c.metrics.RecordAPIOperation(ctx, operation, status, time.Since(start))
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("ticktick request", logging.Operation(operation), logging.Method(method), "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrHTTPStatus, resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return newAPIError("Authentication failed. Please check your access token.")
	case resp.StatusCode == http.StatusNotFound:
		return newAPIError("Resource not found")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return newAPIError("API request failed with status %d: %s", resp.StatusCode, reasonPhrase(resp))
	}

	if method != http.MethodGet {
		c.cache.invalidate()
	}

	if len(bytes.TrimSpace(respBody)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// reasonPhrase extracts the reason from resp.Status ("500 Internal Server
// Error"), falling back to the standard text for the code.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
