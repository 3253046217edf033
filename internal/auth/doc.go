// Package auth obtains and stores TickTick OAuth access tokens.
//
// Flow runs the authorization code grant against TickTick: it serves the
// redirect URI on a local listener, prints the authorization URL (and tries
// to open it in a browser), waits for the callback and exchanges the code.
//
// FileTokenStore persists the resulting token as JSON with owner-only
// permissions. Tokens are loaded through the TokenLoader chain, so an access
// token given on the command line or in TICKMCP_ACCESS_TOKEN takes
// precedence over the stored one.
package auth
