package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/tickmcp/internal/auth"
	"github.com/teemow/tickmcp/internal/config"
	"github.com/teemow/tickmcp/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize tickmcp to access your TickTick account",
		Long: `Run the TickTick OAuth authorization code flow and store the access token.

Register an application at https://developer.ticktick.com and set its redirect
URI to the value of --redirect-uri. The authorization URL is printed to stderr
and opened in your browser when possible. After you approve access, TickTick
redirects to the local listener and the token is written to the token file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateAuth(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var opts []auth.FlowOption
			if noBrowser {
				opts = append(opts, auth.WithBrowser(nil))
			}
			return runAuth(ctx, cmd, cfg, opts...)
		},
	}

	cmd.Flags().String("client-id", "", "TickTick OAuth client ID. Can also use TICKMCP_CLIENT_ID env var.")
	cmd.Flags().String("client-secret", "", "TickTick OAuth client secret. Can also use TICKMCP_CLIENT_SECRET env var.")
	cmd.Flags().String("redirect-uri", "", "OAuth redirect URI served locally (default "+config.DefaultRedirectURI+"). Can also use TICKMCP_REDIRECT_URI env var.")
	cmd.Flags().String("token-file", "", "Where to store the token (default: user cache dir). Can also use TICKMCP_TOKEN_FILE env var.")
	cmd.Flags().Duration("timeout", config.DefaultAuthTimeout, "How long to wait for the browser callback. Can also use TICKMCP_AUTH_TIMEOUT env var.")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Only print the authorization URL")

	return cmd
}

func runAuth(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts ...auth.FlowOption) error {
	logger, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	provider, _, err := newInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = provider.Shutdown(context.Background())
	}()

	store, err := auth.NewFileTokenStore(cfg.TokenFile)
	if err != nil {
		return err
	}

	flowOpts := []auth.FlowOption{
		auth.WithTimeout(cfg.AuthTimeout),
		auth.WithOutput(cmd.ErrOrStderr()),
		auth.WithLogger(logger),
		auth.WithMetrics(provider.Metrics()),
	}
	flow, err := auth.NewFlow(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, append(flowOpts, opts...)...)
	if err != nil {
		return err
	}

	token, err := flow.Run(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	if err := store.SaveToken(token); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Token saved to %s\n", store.Path())
	return nil
}
