package simulator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dop251/goja"
)

// Request is the simulator's wire-free request shape. Worker scripts see it
// as a plain object with method, url, path, headers and body fields.
type Request struct {
	Method  string
	URL     string
	Path    string
	Headers map[string]string
	Body    string
}

// NewRequest builds a GET request for the given URL or path fragment.
func NewRequest(rawURL string) *Request {
	return &Request{Method: "GET", URL: rawURL, Path: pathOf(rawURL)}
}

func pathOf(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		if u, err := url.Parse(rawURL); err == nil {
			return u.Path
		}
	}
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func (r *Request) toMap() map[string]any {
	headers := r.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	path := r.Path
	if path == "" {
		path = pathOf(r.URL)
	}
	return map[string]any{
		"method":  valueOr(r.Method, "GET"),
		"url":     r.URL,
		"path":    path,
		"headers": headers,
		"body":    r.Body,
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// requestFromValue rebuilds a Request from what a script passed to a service
// binding's fetch: either a URL string or a request-shaped object.
func requestFromValue(v goja.Value) *Request {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return NewRequest("/")
	}
	switch exported := v.Export().(type) {
	case string:
		return NewRequest(exported)
	case map[string]any:
		req := &Request{
			Method:  stringField(exported, "method"),
			URL:     stringField(exported, "url"),
			Path:    stringField(exported, "path"),
			Body:    stringField(exported, "body"),
			Headers: map[string]string{},
		}
		for k, hv := range headerMap(exported["headers"]) {
			req.Headers[k] = hv
		}
		if req.Method == "" {
			req.Method = "GET"
		}
		if req.Path == "" {
			req.Path = pathOf(req.URL)
		}
		return req
	default:
		return NewRequest(fmt.Sprint(exported))
	}
}

// headerMap normalizes the two shapes header objects take after a goja
// round trip: plain JS objects export as map[string]any while Go-provided
// maps come back as map[string]string.
func headerMap(v any) map[string]string {
	switch headers := v.(type) {
	case map[string]string:
		return headers
	case map[string]any:
		out := make(map[string]string, len(headers))
		for k, hv := range headers {
			out[k] = fmt.Sprint(hv)
		}
		return out
	default:
		return nil
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Response is the simulator's response shape, mirrored by the JS Response
// class in the worker prelude.
type Response struct {
	Status  int
	Headers map[string]string
	Body    string
}

// Text returns the response body.
func (r *Response) Text() string {
	return r.Body
}

func (r *Response) toMap() map[string]any {
	headers := r.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return map[string]any{
		"status":  r.Status,
		"headers": headers,
		"body":    r.Body,
	}
}

// responseFromValue converts a script's fetch result into a Response. An
// already-settled promise is unwrapped; a pending one is an error since the
// simulator drives no event loop.
func responseFromValue(v goja.Value) (*Response, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, fmt.Errorf("script returned no response")
	}
	exported := v.Export()
	if promise, ok := exported.(*goja.Promise); ok {
		switch promise.State() {
		case goja.PromiseStateFulfilled:
			return responseFromValue(promise.Result())
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("script promise rejected: %s", promise.Result().String())
		default:
			return nil, fmt.Errorf("script returned a pending promise; handlers must resolve synchronously")
		}
	}
	m, ok := exported.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("script returned %T, expected a Response", exported)
	}
	res := &Response{Status: 200, Headers: map[string]string{}}
	switch status := m["status"].(type) {
	case int64:
		res.Status = int(status)
	case float64:
		res.Status = int(status)
	case int:
		res.Status = status
	}
	for k, hv := range headerMap(m["headers"]) {
		res.Headers[strings.ToLower(k)] = hv
	}
	if body, ok := m["body"]; ok && body != nil {
		res.Body = fmt.Sprint(body)
	}
	return res, nil
}
