package server

import (
	"net/http"

	"github.com/viant/jsonrpc/transport/server/http/session"
)

// sessionKeyFromRequest resolves the protocol session id advertised by the
// transport. The streamable header takes precedence, then the classic SSE
// query parameter, then the streamable query parameter.
func sessionKeyFromRequest(r *http.Request) string {
	locator := session.Locator{}
	streamingHeaderLocation := session.NewHeaderLocation("Mcp-Session-Id")
	sessionLocation := session.NewQueryLocation("session_id")
	streamingSessionLocation := session.NewQueryLocation("Mcp-Session-Id")
	if ret, _ := locator.Locate(streamingHeaderLocation, r); ret != "" {
		return ret
	}
	if ret, _ := locator.Locate(sessionLocation, r); ret != "" {
		return ret
	}
	if ret, _ := locator.Locate(streamingSessionLocation, r); ret != "" {
		return ret
	}
	return ""
}
