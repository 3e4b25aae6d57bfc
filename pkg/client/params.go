package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Param is a single query parameter.
type Param struct {
	Name  string
	Value any
}

// Params is an ordered list of query parameters. Order is preserved on the wire.
type Params []Param

// Add appends a parameter and returns the extended list.
func (p Params) Add(name string, value any) Params {
	return append(p, Param{Name: name, Value: value})
}

// Get returns the first value stored under name.
func (p Params) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Encode renders the parameters as a query string including the leading "?".
// An empty list encodes to "".
func (p Params) Encode(enc Encoding) string {
	if len(p) == 0 {
		return ""
	}

	var b strings.Builder
	for i, param := range p {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(formatValue(param.Value, enc)))
	}
	return b.String()
}

func formatValue(v any, enc Encoding) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return enc.FormatTime(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
