package restclient

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// generateCurlCommand creates a cURL command equivalent to the request.
//
// Headers are sorted and Authorization values are included as-is.
//
// Example output:
//
//	curl -X POST 'https://api.example.com/users' -H 'Content-Type: application/json' -d '{"name":"John"}'
func generateCurlCommand(req *TransportRequest) string {
	parts := []string{"curl"}

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}
	parts = append(parts, shellQuote(req.URL.String()))

	headers := req.Headers.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	if req.UserAgent != "" {
		headers.Set("User-Agent", req.UserAgent)
	}

	body := req.Body
	switch {
	case req.HasBody():
		if req.ContentType != "" {
			headers.Set("Content-Type", req.ContentType)
		}
	case isBodyMethod(req.Method) && len(req.FormParameters) > 0:
		headers.Set("Content-Type", ContentTypeForm)
		body = []byte(req.FormParameters.Encode())
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range headers[name] {
			parts = append(parts, "-H", shellQuote(name+": "+v))
		}
	}

	for _, c := range req.Cookies {
		parts = append(parts, "-b", shellQuote(c.Name+"="+c.Value))
	}

	if len(body) > 0 {
		parts = append(parts, "-d", shellQuote(string(body)))
	}

	return strings.Join(parts, " ")
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func logRequest(logger zerolog.Logger, req *TransportRequest) {
	logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dur("timeout", req.Timeout).
		Msg("HTTP request")
}

func logResponse(logger zerolog.Logger, resp *Response, duration time.Duration) {
	event := logger.Debug().
		Str("status", resp.ResponseStatus.String()).
		Dur("duration", duration)

	if resp.ResponseStatus == Completed {
		event = event.
			Int("status_code", resp.StatusCode).
			Str("status_text", resp.StatusDescription).
			Int64("content_length", resp.ContentLength)
	} else {
		event = event.Str("error", resp.ErrorMessage)
	}

	event.Msg("HTTP response")
}
