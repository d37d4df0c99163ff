package oauth1

import (
	"net/url"
	"sort"
	"strings"
)

const upperHex = "0123456789ABCDEF"

// PercentEncode encodes s as required by RFC 5849 section 3.6: every byte
// of the UTF-8 encoding outside A-Z a-z 0-9 - . _ ~ becomes %XX with
// uppercase hex digits.
//
// Unlike url.QueryEscape, spaces become %20 and "~" is left alone.
func PercentEncode(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	default:
		return false
	}
}

// Param is a name/value pair taking part in a signature.
type Param struct {
	Name  string
	Value string
}

// webPair is a Param in encoded form, ready for sorting and joining.
type webPair struct {
	name  string
	value string
}

// normalizeParameters encodes params, drops oauth_signature, sorts by
// encoded name then encoded value, and joins them as name=value&...
func normalizeParameters(params []Param) string {
	pairs := make([]webPair, 0, len(params))
	for _, p := range params {
		if p.Name == ParamSignature {
			continue
		}
		pairs = append(pairs, webPair{name: PercentEncode(p.Name), value: PercentEncode(p.Value)})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].value < pairs[j].value
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.name + "=" + p.value
	}
	return strings.Join(parts, "&")
}

// normalizeURL returns scheme://host[:port]/path with lowercase scheme and
// host, default ports removed and no query or fragment.
func normalizeURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()

	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return scheme + "://" + host + path
}

// queryParams decodes the query string of u.
func queryParams(u *url.URL) ([]Param, error) {
	if u.RawQuery == "" {
		return nil, nil
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, err
	}
	return valuesToParams(values), nil
}

func valuesToParams(values url.Values) []Param {
	var params []Param
	for name, vs := range values {
		for _, v := range vs {
			params = append(params, Param{Name: name, Value: v})
		}
	}
	return params
}
