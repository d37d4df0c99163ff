package restclient

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMarshaler struct{}

func (failingMarshaler) MarshalJSON() ([]byte, error) {
	return nil, errors.New("cannot marshal")
}

func TestRequest_HTTPMethod(t *testing.T) {
	tests := []struct {
		name   string
		method string
		want   string
	}{
		{name: "given empty method, then defaults to GET", method: "", want: http.MethodGet},
		{name: "given lowercase method, then uppercases it", method: "patch", want: http.MethodPatch},
		{name: "given uppercase method, then keeps it", method: http.MethodOptions, want: http.MethodOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRequest("users", tt.method).HTTPMethod())
		})
	}
}

func TestRequest_Builders(t *testing.T) {
	req := NewRequest("users/{id}", http.MethodGet).
		AddURLSegment("id", 42).
		AddQueryParameter("tag", "a").
		AddQueryParameter("tag", "b").
		AddHeader("Accept", ContentTypeJSON).
		AddCookie("session", "s1").
		AddBody("text/plain", "hi")

	assert.Equal(t, []Parameter{
		{Name: "id", Value: 42, Type: URLSegment},
		{Name: "tag", Value: "a", Type: GetOrPost},
		{Name: "tag", Value: "b", Type: GetOrPost},
		{Name: "Accept", Value: ContentTypeJSON, Type: HTTPHeader},
		{Name: "session", Value: "s1", Type: Cookie},
		{Name: "text/plain", Value: "hi", Type: RequestBody},
	}, req.Parameters())
}

func TestRequest_AddOrUpdateParameter(t *testing.T) {
	tests := []struct {
		name string
		req  func() *Request
		want []Parameter
	}{
		{
			name: "given no match, then appends",
			req: func() *Request {
				return NewRequest("r", http.MethodGet).
					AddHeader("A", "1").
					AddOrUpdateParameter("B", "2", HTTPHeader)
			},
			want: []Parameter{
				{Name: "A", Value: "1", Type: HTTPHeader},
				{Name: "B", Value: "2", Type: HTTPHeader},
			},
		},
		{
			name: "given a match, then replaces the value in place",
			req: func() *Request {
				return NewRequest("r", http.MethodGet).
					AddHeader("A", "1").
					AddHeader("B", "2").
					AddOrUpdateParameter("A", "changed", HTTPHeader)
			},
			want: []Parameter{
				{Name: "A", Value: "changed", Type: HTTPHeader},
				{Name: "B", Value: "2", Type: HTTPHeader},
			},
		},
		{
			name: "given same name with another type, then appends",
			req: func() *Request {
				return NewRequest("r", http.MethodGet).
					AddQueryParameter("A", "1").
					AddOrUpdateParameter("A", "2", HTTPHeader)
			},
			want: []Parameter{
				{Name: "A", Value: "1", Type: GetOrPost},
				{Name: "A", Value: "2", Type: HTTPHeader},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req().Parameters())
		})
	}
}

func TestRequest_RemoveParameter(t *testing.T) {
	req := NewRequest("r", http.MethodGet).
		AddQueryParameter("tag", "a").
		AddHeader("tag", "h").
		AddQueryParameter("tag", "b").
		RemoveParameter("tag", GetOrPost)

	assert.Equal(t, []Parameter{{Name: "tag", Value: "h", Type: HTTPHeader}}, req.Parameters())
}

func TestRequest_Clone(t *testing.T) {
	req := NewRequest("users", http.MethodPost).
		AddQueryParameter("a", "1").
		AddFileBytes("f", "f.txt", "", []byte("x")).
		SetTimeout(time.Second)

	clone := req.Clone()
	clone.AddOrUpdateParameter("a", "2", GetOrPost)
	clone.AddHeader("X", "y")
	clone.AddFileBytes("g", "g.txt", "", []byte("z"))

	assert.Equal(t, []Parameter{{Name: "a", Value: "1", Type: GetOrPost}}, req.Parameters())
	assert.Len(t, req.Files(), 1)
	assert.Len(t, clone.Files(), 2)
	assert.Equal(t, time.Second, clone.Timeout)
	assert.Equal(t, req.Resource, clone.Resource)
}

func TestRequest_Parameters_ReturnsCopy(t *testing.T) {
	req := NewRequest("r", http.MethodGet).AddQueryParameter("a", "1")

	params := req.Parameters()
	params[0].Value = "changed"

	assert.Equal(t, "1", req.Parameters()[0].Value)
}

func TestRequest_AddJSONBody(t *testing.T) {
	t.Run("given a struct, then marshals it", func(t *testing.T) {
		req := NewRequest("users", http.MethodPost).AddJSONBody(map[string]any{"name": "john"})

		require.NoError(t, req.Err())
		params := req.Parameters()
		require.Len(t, params, 1)
		assert.Equal(t, RequestBody, params[0].Type)
		assert.Equal(t, ContentTypeJSON, params[0].Name)
		assert.JSONEq(t, `{"name":"john"}`, params[0].String())
	})

	t.Run("given an unsupported value, then records the error", func(t *testing.T) {
		req := NewRequest("users", http.MethodPost).AddJSONBody(failingMarshaler{})

		require.Error(t, req.Err())
		assert.Contains(t, req.Err().Error(), "encode JSON body")
		assert.Empty(t, req.Parameters())
	})
}

func TestRequest_AddXMLBody(t *testing.T) {
	type item struct {
		Name string `xml:"name"`
	}

	req := NewRequest("items", http.MethodPost).AddXMLBody(item{Name: "pen"})

	require.NoError(t, req.Err())
	params := req.Parameters()
	require.Len(t, params, 1)
	assert.Equal(t, ContentTypeXML, params[0].Name)
	assert.Equal(t, "<item><name>pen</name></item>", params[0].String())
}

func TestRequest_AddObject(t *testing.T) {
	type listOptions struct {
		Page    int      `url:"page"`
		PerPage int      `url:"per_page,omitempty"`
		Sort    string   `url:"sort,omitempty"`
		Tags    []string `url:"tag"`
	}

	req := NewRequest("items", http.MethodGet).
		AddObject(listOptions{Page: 2, Sort: "name", Tags: []string{"a", "b"}})

	require.NoError(t, req.Err())
	assert.Equal(t, []Parameter{
		{Name: "page", Value: "2", Type: GetOrPost},
		{Name: "sort", Value: "name", Type: GetOrPost},
		{Name: "tag", Value: "a", Type: GetOrPost},
		{Name: "tag", Value: "b", Type: GetOrPost},
	}, req.Parameters())

	t.Run("given a non-struct, then records the error", func(t *testing.T) {
		req := NewRequest("items", http.MethodGet).AddObject(42)

		require.Error(t, req.Err())
		assert.Contains(t, req.Err().Error(), "encode object parameters")
	})
}

func TestRequest_Err_KeepsFirst(t *testing.T) {
	req := NewRequest("items", http.MethodPost).
		AddJSONBody(failingMarshaler{}).
		AddObject(42)

	require.Error(t, req.Err())
	assert.Contains(t, req.Err().Error(), "encode JSON body")
}

func TestRequest_FormEncoded(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		want bool
	}{
		{
			name: "given POST with only GetOrPost, then form-encoded",
			req:  NewRequest("r", http.MethodPost).AddQueryParameter("a", "1"),
			want: true,
		},
		{
			name: "given PUT without parameters, then form-encoded",
			req:  NewRequest("r", http.MethodPut),
			want: true,
		},
		{
			name: "given GET, then not form-encoded",
			req:  NewRequest("r", http.MethodGet).AddQueryParameter("a", "1"),
			want: false,
		},
		{
			name: "given DELETE, then not form-encoded",
			req:  NewRequest("r", http.MethodDelete),
			want: false,
		},
		{
			name: "given POST with a raw body, then not form-encoded",
			req:  NewRequest("r", http.MethodPost).AddQueryParameter("a", "1").AddBody(ContentTypeJSON, "{}"),
			want: false,
		},
		{
			name: "given PATCH with files, then not form-encoded",
			req:  NewRequest("r", http.MethodPatch).AddFileBytes("f", "f", "", nil),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.FormEncoded())
		})
	}
}
