package offline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CacheStatusHeader marks responses served from a cache generation.
const CacheStatusHeader = "X-Offline-Cache"

// Entry is a stored response. Vary holds the storing request's values of the headers
// named by the response Vary header.
type Entry struct {
	URL      string              `json:"url"`
	Status   int                 `json:"status"`
	Header   map[string][]string `json:"header,omitempty"`
	Body     []byte              `json:"body,omitempty"`
	StoredAt time.Time           `json:"stored_at"`
	Vary     map[string]string   `json:"vary,omitempty"`
}

// RequestKey is the cache key of a request URL: the absolute URL without fragment. An
// empty path on an absolute URL is the root path.
func RequestKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	clone.Fragment = ""
	clone.RawFragment = ""
	if clone.Host != "" && clone.Path == "" && clone.Opaque == "" {
		clone.Path = "/"
		clone.RawPath = ""
	}
	return clone.String()
}

func newEntry(key string, req *http.Request, resp *http.Response, now time.Time) (Entry, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, fmt.Errorf("read body: %w", err)
	}
	return Entry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   sanitizeHeaders(resp.Header),
		Body:     body,
		StoredAt: now.UTC(),
		Vary:     varySnapshot(req, resp.Header),
	}, nil
}

const varyAny = "*"

// varySnapshot records the request values of every header the response varies on.
func varySnapshot(req *http.Request, header http.Header) map[string]string {
	names := varyNames(header)
	if len(names) == 0 {
		return nil
	}
	snap := make(map[string]string, len(names))
	for _, name := range names {
		if name == varyAny {
			snap[varyAny] = ""
			continue
		}
		snap[name] = requestHeaderValue(req, name)
	}
	return snap
}

func varyNames(header http.Header) []string {
	var names []string
	for _, line := range header.Values("Vary") {
		for _, name := range strings.Split(line, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if name != varyAny {
				name = http.CanonicalHeaderKey(name)
			}
			names = append(names, name)
		}
	}
	return names
}

func requestHeaderValue(req *http.Request, name string) string {
	if req == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(req.Header.Values(name), ", "))
}

// Matches reports whether req selects the same representation as the request that stored
// the entry. Vary: * never matches. Accept-Encoding is ignored when the stored body has no
// content coding, since identity is acceptable to every client.
func (e Entry) Matches(req *http.Request) bool {
	if _, ok := e.Vary[varyAny]; ok {
		return false
	}
	identity := len(e.Header["Content-Encoding"]) == 0
	for name, want := range e.Vary {
		if identity && name == "Accept-Encoding" {
			continue
		}
		if requestHeaderValue(req, name) != want {
			return false
		}
	}
	return true
}

// Response rebuilds an HTTP response for req from the entry.
func (e Entry) Response(req *http.Request) *http.Response {
	header := headersFromEntry(e.Header)
	header.Set(CacheStatusHeader, "hit")
	header.Set("Content-Length", strconv.Itoa(len(e.Body)))
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	var body io.ReadCloser = io.NopCloser(bytes.NewReader(e.Body))
	if req != nil && req.Method == http.MethodHead {
		body = http.NoBody
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func encodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("offline: decode entry: %w", err)
	}
	return e, nil
}

func sanitizeHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	filtered := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if isHopHeader(canonical) || isCookieHeader(canonical) {
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		filtered[canonical] = copied
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func headersFromEntry(values map[string][]string) http.Header {
	header := make(http.Header, len(values)+2)
	for name, vals := range values {
		if isCookieHeader(name) {
			continue
		}
		copied := make([]string, len(vals))
		copy(copied, vals)
		header[name] = copied
	}
	return header
}

func isHopHeader(name string) bool {
	switch strings.ToLower(name) {
	case "content-length", "date", "connection", "keep-alive", "proxy-authenticate", "proxy-authorization", "te", "trailer", "trailers", "transfer-encoding", "upgrade":
		return true
	default:
		return false
	}
}

// isCookieHeader reports response headers that set client state. A stored response is
// shared by every visitor, so replaying them would overwrite each visitor's own cookies.
func isCookieHeader(name string) bool {
	switch strings.ToLower(name) {
	case "set-cookie", "set-cookie2":
		return true
	default:
		return false
	}
}
