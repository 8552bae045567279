// Package server provides the session and transport manager of the
// authorization bridge.
//
// It wires protocol handlers from the github.com/viant/mcp-protocol/server
// package with:
//   - Transport (HTTP streaming, HTTP-SSE, STDIO)
//   - Credential validation middleware backed by the bridge's token issuer
//   - Per-connection auth registry population
//   - CORS and Origin handling
//
// Callers typically construct a server via `server.New` and then expose it
// over HTTP or stdio:
//
//	s, _ := server.New(server.WithNewHandler(newHandler), ...)
//	log.Fatal(s.HTTP(ctx, ":4981").ListenAndServe())
package server
