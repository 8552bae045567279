package bridge

import (
	"fmt"
	"html"
	"net/http"
)

const successPageTemplate = `<!DOCTYPE html>
<html>
<head><title>Authorization Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>Authorization complete</h2>
<p>Connected to %s. You can close this window and return to your client.</p>
</body>
</html>`

const errorPageTemplate = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>%s</h2>
<p>%s</p>
</body>
</html>`

func writeSuccessPage(w http.ResponseWriter, providerID string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, successPageTemplate, html.EscapeString(providerID))
}

func writeErrorPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	title = html.EscapeString(title)
	_, _ = fmt.Fprintf(w, errorPageTemplate, title, title, html.EscapeString(message))
}
