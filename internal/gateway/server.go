// Package gateway implements the request pipeline in front of every
// service: rate limiting, logging, authentication, header injection, and
// the per-route decision between an embedded handler and a reverse proxy.
package gateway

import (
	"net/http"
	"sort"
	"strings"

	"github.com/andyeko/apisentinel/internal/httpx"
	"github.com/andyeko/apisentinel/internal/obs"
	"github.com/andyeko/apisentinel/internal/token"
)

// RouteMode selects how a base path is served.
type RouteMode string

const (
	// ModeEmbedded dispatches to an in-process handler.
	ModeEmbedded RouteMode = "embedded"
	// ModeProxy forwards to an upstream process.
	ModeProxy RouteMode = "proxy"
)

// Route is one entry of the deployment descriptor: a base path served
// either by an embedded handler or by proxying to an upstream. The
// descriptor is resolved once at startup, never per request.
type Route struct {
	BasePath string
	Mode     RouteMode
	// Handler serves the route in embedded mode. It receives the full
	// request path including BasePath.
	Handler http.Handler
	// Upstream is the proxy target base URL in proxy mode.
	Upstream string
	// StripPrefix removes BasePath before forwarding upstream.
	StripPrefix bool
}

// Config assembles the gateway pipeline.
type Config struct {
	Token token.Config
	// AuthPrefix is the auth service's mount prefix; paths under it bypass
	// authentication.
	AuthPrefix string
	// APIKey, when set, is the static key the fallback mode must match.
	APIKey string

	RatePerSecond int
	RateBurst     int

	Routes []Route
}

// Server dispatches authenticated requests to embedded handlers or
// upstream proxies based on the route table.
type Server struct {
	cfg     Config
	routes  []resolvedRoute
	handler http.Handler
}

type resolvedRoute struct {
	basePath string
	handler  http.Handler
}

// NewServer resolves the route table and builds the middleware chain.
func NewServer(cfg Config) *Server {
	s := &Server{cfg: cfg}

	for _, route := range cfg.Routes {
		base := strings.TrimRight(route.BasePath, "/")
		var h http.Handler
		switch route.Mode {
		case ModeProxy:
			strip := ""
			if route.StripPrefix {
				strip = base
			}
			h = NewForwarder(route.Upstream, strip)
		default:
			h = route.Handler
		}
		s.routes = append(s.routes, resolvedRoute{basePath: base, handler: h})
	}
	// Longest prefix wins when bases nest.
	sort.Slice(s.routes, func(i, j int) bool {
		return len(s.routes[i].basePath) > len(s.routes[j].basePath)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)
	mux.Handle("/metrics", obs.Handler())
	mux.HandleFunc("/", s.dispatch)

	var chain http.Handler = mux
	chain = InjectGatewayHeader(chain)
	chain = Authenticate(cfg.Token, cfg.AuthPrefix, cfg.APIKey, chain)
	chain = Logging(chain)
	chain = RequestID(chain)
	chain = obs.Instrument(chain)
	// The rate gate sits in front of everything: on rejection the chain
	// never begins.
	perSecond, burst := cfg.RatePerSecond, cfg.RateBurst
	if perSecond <= 0 {
		perSecond = 50
	}
	if burst <= 0 {
		burst = 100
	}
	chain = RateLimit(chain, perSecond, burst)
	s.handler = chain

	return s
}

// Handler returns the fully wrapped pipeline.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	for _, route := range s.routes {
		if r.URL.Path == route.basePath || strings.HasPrefix(r.URL.Path, route.basePath+"/") {
			route.handler.ServeHTTP(w, r)
			return
		}
	}
	httpx.WriteError(w, r, http.StatusNotFound, "no route")
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": gatewayName,
	})
}
