package ai

import "net/http"

// Outbound requests carry a client header so provider-side logs can tell
// this tool's traffic apart.
const (
	ClientHeaderName  = "X-Pdfgenie-Client"
	ClientHeaderValue = "pdfgenie"
)

// DefaultHTTPHeaders returns a fresh header set with the client
// identification applied. Callers may extend the returned map freely.
func DefaultHTTPHeaders() http.Header {
	headers := make(http.Header, 1)
	headers.Set(ClientHeaderName, ClientHeaderValue)
	return headers
}
