package gateway

import (
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/andyeko/apisentinel/internal/httpx"
	"github.com/andyeko/apisentinel/internal/obs"
)

const proxyTimeout = 30 * time.Second

// Hop-by-hop headers per RFC 9110 section 7.6.1; they describe a single
// connection and must not travel through the proxy in either direction.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder relays a request to an upstream base URL, preserving method,
// end-to-end headers and body, and mirrors the upstream's status, headers
// and body back. Transport failures and timeouts surface as 502; the core
// never retries. Paths resolving under the internal service surface are
// refused before any upstream call.
type Forwarder struct {
	upstreamBase string
	stripPrefix  string
	client       *http.Client
}

// NewForwarder targets upstreamBase. When stripPrefix is non-empty it is
// removed from the inbound path before joining the upstream URL.
func NewForwarder(upstreamBase, stripPrefix string) *Forwarder {
	return &Forwarder{
		upstreamBase: strings.TrimRight(upstreamBase, "/"),
		stripPrefix:  stripPrefix,
		client:       &http.Client{Timeout: proxyTimeout},
	}
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fwd := r.URL.Path
	if f.stripPrefix != "" {
		fwd = strings.TrimPrefix(fwd, f.stripPrefix)
		if fwd == "" {
			fwd = "/"
		}
	}
	if isInternalPath(fwd) {
		httpx.WriteError(w, r, http.StatusNotFound, "no route")
		return
	}
	target := f.upstreamBase + fwd
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadGateway, "bad gateway")
		return
	}
	out.Header = r.Header.Clone()
	out.Header.Del("Host")
	stripHopHeaders(out.Header)
	appendForwardedFor(out.Header, r)

	resp, err := f.client.Do(out)
	if err != nil {
		obs.Logger().Error("proxy upstream failure",
			"upstream", f.upstreamBase,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		httpx.WriteError(w, r, http.StatusBadGateway, "bad gateway")
		return
	}
	defer resp.Body.Close()

	stripHopHeaders(resp.Header)
	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// isInternalPath reports whether p resolves into the service-to-service
// surface. Dot segments are collapsed first so a traversal such as
// /admin/../internal/users cannot slip through.
func isInternalPath(p string) bool {
	p = path.Clean("/" + strings.TrimPrefix(p, "/"))
	return p == "/internal" || strings.HasPrefix(p, "/internal/")
}

// stripHopHeaders removes connection-scoped headers, including any named
// by the Connection header itself.
func stripHopHeaders(h http.Header) {
	for _, field := range strings.Split(h.Get("Connection"), ",") {
		if field = strings.TrimSpace(field); field != "" {
			h.Del(field)
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// appendForwardedFor records this hop's client address for the upstream.
func appendForwardedFor(h http.Header, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return
	}
	if prior := h.Get("X-Forwarded-For"); prior != "" {
		host = prior + ", " + host
	}
	h.Set("X-Forwarded-For", host)
}
