package restclient

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sync"
)

var _ Transport = (*MockTransport)(nil)

// ErrNoStub is returned by MockTransport for requests no stub matches.
var ErrNoStub = errors.New("restclient: no stub found for request")

// MockTransport is a Transport for tests. It records every request and
// answers with stubbed responses or errors.
//
// Example:
//
//	mock := restclient.NewMockTransport().
//	    StubPath("/v1/users/42", http.StatusOK, `{"id":42}`)
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.example.com/v1"),
//	    restclient.WithMockTransport(mock),
//	)
type MockTransport struct {
	mu          sync.RWMutex
	stubs       []stub
	defaultResp *TransportResponse
	defaultErr  error
	requests    []*TransportRequest
	requestHook func(*TransportRequest)
}

type stub struct {
	matcher  func(*TransportRequest) bool
	response *TransportResponse
	err      error
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse answers every unmatched request with statusCode and body.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = stubResponse(statusCode, body)
	return m
}

// StubError fails every unmatched request with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// StubPath answers requests whose URL path equals path.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *TransportRequest) bool {
		return req.URL.Path == path
	}, statusCode, body)
}

// StubPathRegex answers requests whose URL path matches pattern.
func (m *MockTransport) StubPathRegex(pattern string, statusCode int, body string) *MockTransport {
	re := regexp.MustCompile(pattern)
	return m.StubFunc(func(req *TransportRequest) bool {
		return re.MatchString(req.URL.Path)
	}, statusCode, body)
}

// StubMethod answers requests with the given method.
func (m *MockTransport) StubMethod(method string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *TransportRequest) bool {
		return req.Method == method
	}, statusCode, body)
}

// StubFunc answers requests matching the predicate.
func (m *MockTransport) StubFunc(
	matcher func(*TransportRequest) bool,
	statusCode int,
	body string,
) *MockTransport {
	return m.StubTransportResponse(matcher, stubResponse(statusCode, body))
}

// StubTransportResponse answers requests matching the predicate with a
// copy of resp, for stubs that need headers or cookies.
func (m *MockTransport) StubTransportResponse(
	matcher func(*TransportRequest) bool,
	resp *TransportResponse,
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, response: resp})
	return m
}

// StubFuncError fails requests matching the predicate with err.
func (m *MockTransport) StubFuncError(matcher func(*TransportRequest) bool, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, err: err})
	return m
}

// OnRequest sets a hook called for each request before it is answered.
func (m *MockTransport) OnRequest(fn func(*TransportRequest)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// Do implements Transport. Stubs are checked in registration order.
func (m *MockTransport) Do(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	hook := m.requestHook
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.stubs {
		if s.matcher(req) {
			if s.err != nil {
				return nil, s.err
			}
			return cloneTransportResponse(s.response, req), nil
		}
	}

	if m.defaultErr != nil {
		return nil, m.defaultErr
	}
	if m.defaultResp != nil {
		return cloneTransportResponse(m.defaultResp, req), nil
	}

	return nil, ErrNoStub
}

// Requests returns all recorded requests.
func (m *MockTransport) Requests() []*TransportRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*TransportRequest{}, m.requests...)
}

// RequestCount returns the number of recorded requests.
func (m *MockTransport) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil.
func (m *MockTransport) LastRequest() *TransportRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests, stubs and the hook.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.stubs = nil
	m.defaultResp = nil
	m.defaultErr = nil
	m.requestHook = nil
}

func stubResponse(statusCode int, body string) *TransportResponse {
	return &TransportResponse{
		StatusCode:        statusCode,
		StatusDescription: http.StatusText(statusCode),
		Headers:           make(http.Header),
		RawBytes:          []byte(body),
		ContentLength:     int64(len(body)),
		ResponseStatus:    Completed,
	}
}

// cloneTransportResponse copies resp so callers cannot modify the stub.
func cloneTransportResponse(resp *TransportResponse, req *TransportRequest) *TransportResponse {
	out := *resp
	out.Headers = resp.Headers.Clone()
	out.RawBytes = append([]byte(nil), resp.RawBytes...)
	out.Cookies = append([]*http.Cookie(nil), resp.Cookies...)
	if out.ResponseURI == nil {
		out.ResponseURI = req.URL
	}
	return &out
}
