package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linnemanlabs/go-core/httpmw"
	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/triage-agent/internal/agentapi"
	"github.com/linnemanlabs/triage-agent/internal/authmw"
)

// maxBodyBytes bounds an incident report payload.
const maxBodyBytes = 64 << 10

// routeRegistrar is implemented by agentapi.API.
type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// httpMiddleware is the request metrics middleware from go-core metrics.
type httpMiddleware interface {
	Middleware(next http.Handler) http.Handler
}

var _ routeRegistrar = (*agentapi.API)(nil)

// newRouter mounts the agent API behind the function key check.
func newRouter(api routeRegistrar, functionKey string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(httpmw.AnnotateHTTPRoute)
	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(maxBodyBytes))

	api.RegisterRoutes(r.With(authmw.FunctionKey(functionKey)))
	return r
}

// wrapHandler applies the outer middleware. The last wrapper added sees the
// request first.
func wrapHandler(r http.Handler, L log.Logger, m httpMiddleware, mwCfg *httpmw.Config) http.Handler {
	h := httpmw.WithLogger(L)(r)
	h = httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id")(h)
	h = otelhttp.NewHandler(h, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/-/healthy" && r.URL.Path != "/-/ready"
		}),
		// renamed to the chi route pattern by AnnotateHTTPRoute
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(_ *http.Request) bool { return true }),
	)
	h = m.Middleware(h)
	h = httpmw.ClientIPWithOptions(httpmw.ClientIPOptions{
		TrustedHops: mwCfg.TrustedProxyHops,
	})(h)
	h = httpmw.RequestID("X-Request-Id")(h)
	h = httpmw.Recover(L, nil)(h)
	return httpmw.SecurityHeaders(h)
}
