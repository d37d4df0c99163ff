package restclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterType_String(t *testing.T) {
	tests := []struct {
		typ  ParameterType
		want string
	}{
		{URLSegment, "UrlSegment"},
		{GetOrPost, "GetOrPost"},
		{HTTPHeader, "HttpHeader"},
		{Cookie, "Cookie"},
		{RequestBody, "RequestBody"},
		{ParameterType(0), "ParameterType(0)"},
		{ParameterType(99), "ParameterType(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestParameterType_Valid(t *testing.T) {
	for _, typ := range []ParameterType{URLSegment, GetOrPost, HTTPHeader, Cookie, RequestBody} {
		assert.True(t, typ.Valid(), typ.String())
	}
	assert.False(t, ParameterType(0).Valid())
	assert.False(t, ParameterType(6).Valid())
}

func TestParameter_String(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "given nil, then empty", value: nil, want: ""},
		{name: "given string, then verbatim", value: "a b", want: "a b"},
		{name: "given bytes, then verbatim", value: []byte("raw"), want: "raw"},
		{name: "given int, then decimal", value: 42, want: "42"},
		{name: "given bool, then true/false", value: true, want: "true"},
		{name: "given float, then shortest form", value: 1.5, want: "1.5"},
		{name: "given Stringer, then String()", value: 90 * time.Second, want: "1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parameter{Name: "p", Value: tt.value, Type: GetOrPost}.String())
		})
	}
}

func TestMergeParameters(t *testing.T) {
	type args struct {
		defaults []Parameter
		params   []Parameter
	}

	tests := []struct {
		name string
		args args
		want []Parameter
	}{
		{
			name: "given no defaults, then returns params",
			args: args{params: []Parameter{{Name: "a", Value: "1", Type: GetOrPost}}},
			want: []Parameter{{Name: "a", Value: "1", Type: GetOrPost}},
		},
		{
			name: "given no params, then returns defaults in order",
			args: args{defaults: []Parameter{
				{Name: "b", Value: "2", Type: HTTPHeader},
				{Name: "a", Value: "1", Type: GetOrPost},
			}},
			want: []Parameter{
				{Name: "b", Value: "2", Type: HTTPHeader},
				{Name: "a", Value: "1", Type: GetOrPost},
			},
		},
		{
			name: "given a collision on name and type, then the request wins",
			args: args{
				defaults: []Parameter{{Name: "api_key", Value: "default", Type: GetOrPost}},
				params:   []Parameter{{Name: "api_key", Value: "mine", Type: GetOrPost}},
			},
			want: []Parameter{{Name: "api_key", Value: "mine", Type: GetOrPost}},
		},
		{
			name: "given the same name with another type, then both are kept",
			args: args{
				defaults: []Parameter{{Name: "token", Value: "h", Type: HTTPHeader}},
				params:   []Parameter{{Name: "token", Value: "q", Type: GetOrPost}},
			},
			want: []Parameter{
				{Name: "token", Value: "q", Type: GetOrPost},
				{Name: "token", Value: "h", Type: HTTPHeader},
			},
		},
		{
			name: "given names differing in case, then both are kept",
			args: args{
				defaults: []Parameter{{Name: "Accept", Value: "a", Type: HTTPHeader}},
				params:   []Parameter{{Name: "accept", Value: "b", Type: HTTPHeader}},
			},
			want: []Parameter{
				{Name: "accept", Value: "b", Type: HTTPHeader},
				{Name: "Accept", Value: "a", Type: HTTPHeader},
			},
		},
		{
			name: "given repeated request params, then all are kept",
			args: args{
				defaults: []Parameter{{Name: "tag", Value: "d", Type: GetOrPost}},
				params: []Parameter{
					{Name: "tag", Value: "x", Type: GetOrPost},
					{Name: "tag", Value: "y", Type: GetOrPost},
				},
			},
			want: []Parameter{
				{Name: "tag", Value: "x", Type: GetOrPost},
				{Name: "tag", Value: "y", Type: GetOrPost},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeParameters(tt.args.defaults, tt.args.params))
		})
	}
}

func TestMergeParameters_DoesNotModifyInputs(t *testing.T) {
	defaults := []Parameter{{Name: "a", Value: "1", Type: GetOrPost}}
	params := make([]Parameter, 1, 4)
	params[0] = Parameter{Name: "b", Value: "2", Type: GetOrPost}

	merged := MergeParameters(defaults, params)
	merged[0].Value = "changed"

	assert.Equal(t, "2", params[0].Value)
	assert.Len(t, params, 1)
	assert.Equal(t, []Parameter{{Name: "a", Value: "1", Type: GetOrPost}}, defaults)
}

func TestValidateParameters(t *testing.T) {
	require.NoError(t, validateParameters(nil))
	require.NoError(t, validateParameters([]Parameter{{Name: "a", Type: Cookie}}))

	err := validateParameters([]Parameter{{Name: "a", Type: Cookie}, {Name: "bad"}})
	require.ErrorIs(t, err, ErrUnknownParameterType)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Contains(t, err.Error(), "ParameterType(0)")
}

func TestUnknownParameterType_Rejected(t *testing.T) {
	req := NewRequest("users", http.MethodGet).AddParameter("x", "1", ParameterType(42))

	_, err := BuildURI("https://api.example.com", req)
	require.ErrorIs(t, err, ErrUnknownParameterType)

	_, err = NewTransportRequest(Config{}, req, mustParseURL(t, "https://api.example.com/users"))
	require.ErrorIs(t, err, ErrUnknownParameterType)
}
