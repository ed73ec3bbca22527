package offline

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hrportfolio.dev/web/internal/platform/httpx"
	"hrportfolio.dev/web/internal/platform/requestctx"
)

// StatusPath is the proxy's status endpoint.
const StatusPath = "/__offline"

// Status is the JSON body of the status endpoint.
type Status struct {
	State       string   `json:"state"`
	CacheName   string   `json:"cache_name"`
	Scope       string   `json:"scope"`
	Generations []string `json:"generations"`
}

// Handler proxies incoming requests to the worker scope origin through Fetch.
func Handler(w *Worker) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := requestctx.Logger(ctx)

		upstream, err := w.upstreamRequest(r)
		if err != nil {
			httpx.WriteError(ctx, rw, httpx.NewError("bad_request", err.Error(), http.StatusBadRequest))
			return
		}

		resp, err := w.Fetch(ctx, upstream)
		if err != nil {
			status := http.StatusBadGateway
			code := "upstream_unavailable"
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				status = http.StatusGatewayTimeout
				code = "upstream_timeout"
			}
			logger.Warn("offline: upstream fetch failed", zap.String("url", upstream.URL.String()), zap.Error(err))
			httpx.WriteError(ctx, rw, httpx.NewError(code, "the origin could not be reached", status))
			return
		}
		defer resp.Body.Close()

		source := resp.Header.Get(CacheStatusHeader)
		if source == "" {
			source = "network"
		}
		requestctx.Annotate(ctx, zap.String("offline_source", source))

		copyHeader(rw.Header(), resp.Header)
		rw.WriteHeader(resp.StatusCode)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(rw, resp.Body); err != nil {
			logger.Debug("offline: copy response body", zap.Error(err))
		}
	})
}

// StatusHandler reports the lifecycle state and stored generations.
func StatusHandler(w *Worker) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gens, err := w.Generations(r.Context())
		if err != nil {
			httpx.WriteError(r.Context(), rw, httpx.NewError("storage_unavailable", "cache storage could not be listed", http.StatusServiceUnavailable))
			return
		}
		if gens == nil {
			gens = []string{}
		}
		rw.Header().Set("Cache-Control", "no-store")
		httpx.WriteJSON(rw, http.StatusOK, Status{
			State:       w.State().String(),
			CacheName:   w.CacheName(),
			Scope:       w.scope.String(),
			Generations: gens,
		})
	})
}

// upstreamRequest rewrites an incoming proxy request to target the scope origin.
func (w *Worker) upstreamRequest(r *http.Request) (*http.Request, error) {
	target := *w.scope
	target.Path = r.URL.Path
	target.RawPath = r.URL.RawPath
	target.RawQuery = r.URL.RawQuery
	target.Fragment = ""

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody && r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	copyHeader(out.Header, r.Header)
	out.ContentLength = r.ContentLength
	if body == nil {
		out.ContentLength = 0
	}
	if ip := clientIP(r); ip != "" {
		if prior := r.Header.Get("X-Forwarded-For"); prior != "" {
			ip = prior + ", " + ip
		}
		out.Header.Set("X-Forwarded-For", ip)
	}
	out.Header.Set("X-Forwarded-Host", r.Host)
	return out, nil
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		canonical := http.CanonicalHeaderKey(name)
		if isHopHeader(canonical) && canonical != "Content-Length" && canonical != "Date" {
			continue
		}
		for _, v := range values {
			dst.Add(canonical, v)
		}
	}
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
