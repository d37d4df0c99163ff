package restclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"
)

// GenerateCoalesceKey returns the identity of a transport request for
// deduplication: SHA-256 over method, URL with sorted query, headers,
// cookies, user agent and body hash.
func GenerateCoalesceKey(req *TransportRequest) string {
	u := *req.URL
	u.RawQuery = u.Query().Encode()
	u.Fragment = ""

	keyParts := []string{
		req.Method,
		u.String(),
		req.UserAgent,
		canonicalHeaders(req.Headers),
	}

	cookies := make([]string, 0, len(req.Cookies))
	for _, c := range req.Cookies {
		cookies = append(cookies, c.Name+"="+c.Value)
	}
	sort.Strings(cookies)
	keyParts = append(keyParts, strings.Join(cookies, ";"))

	if len(req.Body) > 0 {
		bodyHash := sha256.Sum256(req.Body)
		keyParts = append(keyParts, req.ContentType, hex.EncodeToString(bodyHash[:]))
	}

	return hashString(strings.Join(keyParts, "|"))
}

func canonicalHeaders(h http.Header) string {
	lines := make([]string, 0, len(h))
	for name, values := range h {
		lines = append(lines, http.CanonicalHeaderKey(name)+":"+strings.Join(values, ","))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// hashString creates a SHA256 hash of the input string.
func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// coalescingTransport shares one call of next between identical concurrent
// GET and HEAD requests. Each caller receives its own copy of the response.
type coalescingTransport struct {
	next  Transport
	group singleflight.Group
}

func newCoalescingTransport(next Transport) *coalescingTransport {
	return &coalescingTransport{next: next}
}

// Do implements Transport.
func (t *coalescingTransport) Do(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.next.Do(ctx, req)
	}

	// The shared call must outlive any single caller; req.Timeout still
	// bounds it inside the transport.
	shared := context.WithoutCancel(ctx)
	ch := t.group.DoChan(GenerateCoalesceKey(req), func() (any, error) {
		return t.next.Do(shared, req)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneTransportResponse(res.Val.(*TransportResponse), req), nil
	}
}
