package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/tickmcp/internal/instrumentation"
	"github.com/teemow/tickmcp/internal/logging"
)

const (
	// AuthURL is TickTick's authorization endpoint.
	AuthURL = "https://ticktick.com/oauth/authorize"

	// TokenURL is TickTick's token endpoint.
	TokenURL = "https://ticktick.com/oauth/token"

	// DefaultTimeout bounds the wait for the browser callback.
	DefaultTimeout = 5 * time.Minute
)

// Scopes requested from TickTick.
var Scopes = []string{"tasks:read", "tasks:write"}

// Endpoint is the TickTick OAuth endpoint. Client credentials go in the
// Authorization header of the token request.
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInHeader,
}

// ErrStateMismatch is returned when the callback carries a foreign state.
var ErrStateMismatch = errors.New("OAuth state mismatch")

// Flow runs the authorization code grant with a local redirect listener.
type Flow struct {
	config      oauth2.Config
	timeout     time.Duration
	openBrowser func(string) error
	out         io.Writer
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	newState    func() string
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithEndpoint overrides the OAuth endpoint, mainly for tests.
func WithEndpoint(endpoint oauth2.Endpoint) FlowOption {
	return func(f *Flow) {
		f.config.Endpoint = endpoint
	}
}

// WithTimeout bounds how long Run waits for the callback.
func WithTimeout(timeout time.Duration) FlowOption {
	return func(f *Flow) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithBrowser sets the function used to open the authorization URL. Nil
// disables browser launch; the URL is printed either way.
func WithBrowser(open func(string) error) FlowOption {
	return func(f *Flow) {
		f.openBrowser = open
	}
}

// WithOutput sets where user instructions are written (default stderr).
func WithOutput(w io.Writer) FlowOption {
	return func(f *Flow) {
		if w != nil {
			f.out = w
		}
	}
}

// WithMetrics records the outcome of each authorization attempt.
func WithMetrics(metrics *instrumentation.Metrics) FlowOption {
	return func(f *Flow) {
		f.metrics = metrics
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFlow creates a Flow for a registered TickTick application.
func NewFlow(clientID, clientSecret, redirectURI string, opts ...FlowOption) (*Flow, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("client ID and client secret are required")
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q must be a local http URL", redirectURI)
	}

	f := &Flow{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     Endpoint,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
		},
		timeout:     DefaultTimeout,
		openBrowser: OpenBrowser,
		out:         os.Stderr,
		logger:      slog.Default(),
		newState:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

type callbackResult struct {
	code string
	err  error
}

// Run waits for the user to authorize the application and returns the
// exchanged token.
func (f *Flow) Run(ctx context.Context) (*oauth2.Token, error) {
	token, err := f.run(ctx)
	result := instrumentation.OAuthResultSuccess
	if err != nil {
		result = instrumentation.OAuthResultFailure
	}
	f.metrics.RecordOAuthAuth(ctx, result)
	return token, err
}

func (f *Flow) run(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	redirect, err := url.Parse(f.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}
	// Port 0 picks a free port; the redirect must name the real one.
	if redirect.Port() == "0" {
		redirect.Host = ln.Addr().String()
	}

	conf := f.config
	conf.RedirectURL = redirect.String()
	state := f.newState()

	results := make(chan callbackResult, 1)
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := parseCallback(r.URL.Query(), state)
		if res.err != nil {
			http.Error(w, "Authorization failed: "+res.err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "Authorization complete. You can close this window and return to the terminal.\n")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Warn("OAuth callback listener stopped", logging.Err(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state)
	fmt.Fprintf(f.out, "Open the following URL in your browser to authorize tickmcp:\n\n%s\n\n", authURL)
	fmt.Fprintf(f.out, "Waiting for the callback on %s ...\n", redirect.String())
	if f.openBrowser != nil {
		if err := f.openBrowser(authURL); err != nil {
			f.logger.Debug("could not open browser", logging.Err(err))
		}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s waiting for authorization", f.timeout)
		}
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := conf.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	f.logger.Info("obtained TickTick access token",
		slog.String("token", logging.SanitizeToken(token.AccessToken)))
	return token, nil
}

func parseCallback(q url.Values, state string) callbackResult {
	if e := q.Get("error"); e != "" {
		desc := strings.TrimSpace(q.Get("error_description"))
		if desc != "" {
			return callbackResult{err: fmt.Errorf("authorization denied: %s: %s", e, desc)}
		}
		return callbackResult{err: fmt.Errorf("authorization denied: %s", e)}
	}
	if q.Get("state") != state {
		return callbackResult{err: ErrStateMismatch}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("callback is missing the authorization code")}
	}
	return callbackResult{code: code}
}
