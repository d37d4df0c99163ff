package restclient

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// RetryClassifier decides whether a Response warrants another attempt.
//
// Example - also retry 500:
//
//	client := restclient.New(
//	    restclient.WithRetryConfig(restclient.DefaultRetryConfig()),
//	    restclient.WithRetryClassifier(func(resp *restclient.Response) bool {
//	        return resp.StatusCode == http.StatusInternalServerError ||
//	            restclient.DefaultRetryClassifier(resp)
//	    }),
//	)
type RetryClassifier func(resp *Response) bool

// DefaultRetryClassifier retries transient failures only.
//
// Retries on:
//   - TimedOut responses
//   - Error responses caused by transient network errors
//   - 429, 502, 503 and 504
//
// Does not retry on:
//   - Aborted responses (the caller cancelled)
//   - TLS, certificate and unknown-host errors
//   - 500 and other 4xx/5xx codes
func DefaultRetryClassifier(resp *Response) bool {
	if resp == nil {
		return false
	}

	switch resp.ResponseStatus {
	case Aborted, None:
		return false
	case TimedOut:
		return true
	case Error:
		if resp.ErrorException == nil || isPermanentError(resp.ErrorException) {
			return false
		}
		return isRetryableNetworkError(resp.ErrorException)
	case Completed:
		return isRetryableStatusCode(resp.StatusCode)
	default:
		return false
	}
}

// StatusCodeClassifier retries the given status codes plus transient
// network failures.
//
// Example:
//
//	classifier := restclient.StatusCodeClassifier(500, 502, 503, 504)
func StatusCodeClassifier(codes ...int) RetryClassifier {
	codeSet := make(map[int]bool, len(codes))
	for _, code := range codes {
		codeSet[code] = true
	}

	return func(resp *Response) bool {
		if resp == nil {
			return false
		}
		if resp.ResponseStatus == Completed {
			return codeSet[resp.StatusCode]
		}
		return DefaultRetryClassifier(resp)
	}
}

// NeverRetryClassifier returns a classifier that never retries.
func NeverRetryClassifier() RetryClassifier {
	return func(_ *Response) bool {
		return false
	}
}

func isRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// isRetryableNetworkError returns true for network errors that are
// typically transient.
func isRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return containsAny(err, "connection refused", "connection reset", "network is down",
		"network unreachable", "i/o timeout", "temporary failure", "server closed",
		"broken pipe", "eof")
}

// isPermanentError returns true for errors a retry cannot fix.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}

	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EHOSTDOWN) {
		return true
	}

	return containsAny(err, "x509:", "certificate", "tls:", "protocol error",
		"no route to host", "permission denied")
}

// containsAny matches wrapped errors that only keep the message.
func containsAny(err error, patterns ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
