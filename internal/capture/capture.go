// Package capture turns an inbound HTTP request into the values the relay
// forwards and persists.
package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	UnknownIP   = "unknown"
	NoBody      = "[No body]"
	TimeLayout  = "2006-01-02T15:04:05.000Z"
	indentation = "  "
)

// Request is a snapshot of one inbound request. Body holds the display form:
// pretty-printed when the payload is JSON, the raw text otherwise, or an
// inline error marker when reading failed. It is empty when no body was sent.
type Request struct {
	Method     string
	URL        string
	Path       string
	Host       string
	Headers    map[string]string
	Body       string
	ClientIP   string
	ReceivedAt time.Time
}

// FromHTTP reads at most maxBody bytes of r's body.
func FromHTTP(r *http.Request, maxBody int64, receivedAt time.Time) *Request {
	return &Request{
		Method:     r.Method,
		URL:        absoluteURL(r),
		Path:       r.URL.Path,
		Host:       hostname(r),
		Headers:    FlattenHeaders(r),
		Body:       readBody(r, maxBody),
		ClientIP:   ClientIP(r.Header),
		ReceivedAt: receivedAt.UTC(),
	}
}

func (r *Request) HasBody() bool {
	return r.Body != ""
}

// Timestamp renders ReceivedAt as ISO-8601 UTC with millisecond precision.
func (r *Request) Timestamp() string {
	return r.ReceivedAt.UTC().Format(TimeLayout)
}

// ClientIP prefers X-Forwarded-For (first hop), then CF-Connecting-IP, then
// X-Real-IP. Blank values fall through to the next header.
func ClientIP(h http.Header) string {
	first, _, _ := strings.Cut(h.Get("X-Forwarded-For"), ",")
	if ip := strings.TrimSpace(first); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownIP
}

// FlattenHeaders lower-cases names and keeps the last value of repeated headers.
// net/http lifts Host out of the header map, so it is put back here.
func FlattenHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+1)
	if r.Host != "" {
		headers["host"] = r.Host
	}
	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		headers[strings.ToLower(name)] = values[len(values)-1]
	}
	return headers
}

// FormatBody pretty-prints JSON payloads with a two-space indent and returns
// anything else unchanged. Only whitespace changes: key order, duplicate keys,
// number spelling and string escapes stay as the sender wrote them.
func FormatBody(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return string(raw)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", indentation); err != nil {
		return string(raw)
	}
	return out.String()
}

// PrettyJSON marshals v with a two-space indent and without HTML escaping.
func PrettyJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indentation)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func readBody(r *http.Request, maxBody int64) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	defer r.Body.Close()

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = http.MaxBytesReader(nil, r.Body, maxBody)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Sprintf("[Error reading body: %v]", err)
	}
	return FormatBody(raw)
}

func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

func hostname(r *http.Request) string {
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	return (&url.URL{Host: host}).Hostname()
}
