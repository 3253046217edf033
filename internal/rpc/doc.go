// Package rpc implements the line-delimited JSON-RPC 2.0 dispatcher that
// exposes registered tools and resources to an MCP host over stdio.
//
// Each input line carries one request and produces at most one output line.
// Requests are handled strictly in order; a request, including any upstream
// call its handler makes, finishes before the next line is read.
//
// # Errors
//
// Malformed JSON yields -32700 with a null id. Unknown tools and resources
// yield -32602, unknown methods -32601. A handler that returns an error or
// panics yields -32603 carrying the failure message in the data field. The
// loop keeps running after every one of these.
//
// Tools that want the host to render a failure as a normal result return a
// payload describing it instead of an error.
package rpc
