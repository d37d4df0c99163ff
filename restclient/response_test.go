package restclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseStatus_String(t *testing.T) {
	assert.Equal(t, "None", None.String())
	assert.Equal(t, "Completed", Completed.String())
	assert.Equal(t, "Error", Error.String())
	assert.Equal(t, "TimedOut", TimedOut.String())
	assert.Equal(t, "Aborted", Aborted.String())
	assert.Equal(t, "ResponseStatus(9)", ResponseStatus(9).String())
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		name       string
		status     ResponseStatus
		statusCode int
		want       bool
	}{
		{"given 200, then returns true", Completed, http.StatusOK, true},
		{"given 204, then returns true", Completed, http.StatusNoContent, true},
		{"given 299, then returns true", Completed, 299, true},
		{"given 300, then returns false", Completed, 300, false},
		{"given 400, then returns false", Completed, http.StatusBadRequest, false},
		{"given 500, then returns false", Completed, http.StatusInternalServerError, false},
		{"given a transport error, then returns false", Error, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{ResponseStatus: tt.status, StatusCode: tt.statusCode}
			assert.Equal(t, tt.want, resp.IsSuccess())
		})
	}
}

func TestResponse_IsError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{"given 200, then returns false", http.StatusOK, false},
		{"given 399, then returns false", 399, false},
		{"given 400, then returns true", http.StatusBadRequest, true},
		{"given 503, then returns true", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Response{StatusCode: tt.statusCode}).IsError())
		})
	}
}

func TestNewResponse(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	req := NewRequest("users", http.MethodGet)
	uri, _ := url.Parse("https://api.example.com/users")

	raw := &TransportResponse{
		StatusCode:        http.StatusOK,
		StatusDescription: "OK",
		Headers: http.Header{
			"X-B":          {"2"},
			"Content-Type": {"application/json"},
			"X-A":          {"1", "1b"},
		},
		Cookies: []*http.Cookie{
			{Name: "session", Value: "s1", Path: "/", HttpOnly: true, Secure: true},
			{Name: "old", Value: "x", Expires: now.Add(-time.Hour)},
			{Name: "gone", Value: "y", MaxAge: -1},
			{Name: "legacy", Value: "z", Unparsed: []string{`Version="1"`}},
		},
		ContentType:     "application/json",
		ContentLength:   9,
		ContentEncoding: "identity",
		RawBytes:        []byte(`{"id":42}`),
		ResponseURI:     uri,
		Server:          "nginx",
	}

	resp := NewResponse(req, raw, now)

	assert.Same(t, req, resp.Request)
	assert.Equal(t, Completed, resp.ResponseStatus)
	assert.Equal(t, `{"id":42}`, resp.Content)
	assert.Equal(t, int64(9), resp.ContentLength)
	assert.Equal(t, "identity", resp.ContentEncoding)
	assert.Equal(t, "nginx", resp.Server)
	assert.Equal(t, uri, resp.ResponseURI)
	assert.Equal(t, []Header{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "X-A", Value: "1"},
		{Name: "X-A", Value: "1b"},
		{Name: "X-B", Value: "2"},
	}, resp.Headers)
	assert.Equal(t, "1", resp.Header("x-a"))
	assert.Empty(t, resp.Header("missing"))

	require.Len(t, resp.Cookies, 4)
	session, ok := resp.Cookie("session")
	require.True(t, ok)
	assert.True(t, session.HTTPOnly)
	assert.True(t, session.Secure)
	assert.False(t, session.Expired)

	old, _ := resp.Cookie("old")
	assert.True(t, old.Expired)
	gone, _ := resp.Cookie("gone")
	assert.True(t, gone.Expired)
	legacy, _ := resp.Cookie("legacy")
	assert.Equal(t, 1, legacy.Version)

	_, ok = resp.Cookie("nope")
	assert.False(t, ok)
}

func TestNewResponse_TransportReportedFailure(t *testing.T) {
	errPartial := errors.New("stream interrupted")
	raw := &TransportResponse{
		StatusCode:     http.StatusOK,
		RawBytes:       []byte("partial"),
		ResponseStatus: Error,
		ErrorException: errPartial,
	}

	resp := NewResponse(NewRequest("r", http.MethodGet), raw, time.Now())

	assert.Equal(t, Error, resp.ResponseStatus)
	assert.Equal(t, "stream interrupted", resp.ErrorMessage)
	assert.Equal(t, "partial", resp.Content)
}

func TestFailedResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus ResponseStatus
	}{
		{name: "given cancellation, then Aborted", err: context.Canceled, wantStatus: Aborted},
		{name: "given deadline, then TimedOut", err: context.DeadlineExceeded, wantStatus: TimedOut},
		{name: "given a net timeout, then TimedOut", err: &timeoutError{}, wantStatus: TimedOut},
		{
			name:       "given a refused dial, then Error",
			err:        &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			wantStatus: Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("r", http.MethodGet)
			resp := FailedResponse(req, tt.err)

			assert.Equal(t, tt.wantStatus, resp.ResponseStatus)
			assert.Same(t, req, resp.Request)
			assert.Equal(t, tt.err.Error(), resp.ErrorMessage)
			assert.Equal(t, tt.err, resp.ErrorException)
			assert.Zero(t, resp.StatusCode)
		})
	}
}

func TestResponse_Decode(t *testing.T) {
	type item struct {
		Name string `json:"name" xml:"name"`
	}

	tests := []struct {
		name        string
		contentType string
		body        string
		want        item
		wantErr     assert.ErrorAssertionFunc
	}{
		{
			name:        "given JSON, then decodes",
			contentType: "application/json; charset=utf-8",
			body:        `{"name":"pen"}`,
			want:        item{Name: "pen"},
			wantErr:     assert.NoError,
		},
		{
			name:        "given XML, then decodes",
			contentType: "application/xml",
			body:        `<item><name>pen</name></item>`,
			want:        item{Name: "pen"},
			wantErr:     assert.NoError,
		},
		{
			name:        "given text/xml, then decodes as XML",
			contentType: "text/xml",
			body:        `<item><name>cup</name></item>`,
			want:        item{Name: "cup"},
			wantErr:     assert.NoError,
		},
		{
			name:        "given empty body, then leaves target untouched",
			contentType: "application/json",
			body:        "",
			want:        item{},
			wantErr:     assert.NoError,
		},
		{
			name:        "given invalid JSON, then returns an error",
			contentType: "application/json",
			body:        `{"name":`,
			wantErr:     assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{RawBytes: []byte(tt.body), ContentType: tt.contentType}

			var got item
			err := resp.Decode(&got)

			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResponse_JSON(t *testing.T) {
	resp := &Response{RawBytes: []byte(`{"user":{"name":"john","tags":["a","b"]},"count":2}`)}

	assert.Equal(t, "john", resp.JSON("user.name").String())
	assert.Equal(t, int64(2), resp.JSON("count").Int())
	assert.Equal(t, "b", resp.JSON("user.tags.1").String())
	assert.False(t, resp.JSON("missing").Exists())
}

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name        string
		raw         []byte
		contentType string
		want        string
	}{
		{
			name:        "given no charset, then treats as UTF-8",
			raw:         []byte("héllo"),
			contentType: "text/plain",
			want:        "héllo",
		},
		{
			name:        "given ISO-8859-1, then converts to UTF-8",
			raw:         []byte{'c', 'a', 'f', 0xe9},
			contentType: "text/plain; charset=ISO-8859-1",
			want:        "café",
		},
		{
			name:        "given windows-1252, then converts to UTF-8",
			raw:         []byte{0x80, '5'},
			contentType: "text/plain; charset=windows-1252",
			want:        "€5",
		},
		{
			name:        "given an unknown charset, then keeps the bytes",
			raw:         []byte("plain"),
			contentType: "text/plain; charset=x-made-up",
			want:        "plain",
		},
		{
			name:        "given an unparsable content type, then keeps the bytes",
			raw:         []byte("plain"),
			contentType: ";;",
			want:        "plain",
		},
		{
			name: "given no body, then returns empty",
			raw:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeContent(tt.raw, tt.contentType))
		})
	}
}

func TestCookieVersion(t *testing.T) {
	assert.Equal(t, 0, cookieVersion(nil))
	assert.Equal(t, 1, cookieVersion([]string{"Version=1"}))
	assert.Equal(t, 1, cookieVersion([]string{"Comment=x", ` version = "1" `}))
	assert.Equal(t, 0, cookieVersion([]string{"Version=abc"}))
}
