// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo and writes
// one access-log line per response.
//
/*
Context
--------
This handler sits directly after chi's RequestID and Recoverer wrappers.
For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Extracts the left-most client IP from X-Forwarded-For or
     X-Real-IP, falling back to `r.RemoteAddr`, and looks it up in the
     GeoLite2 database when InitGeo loaded one.
  3. Stores a `*RequestInfo` value in `request.Context` under an
     unexported key, so console handlers can read it without reparsing.
  4. After the handler returns, logs method, path, status, bytes, and
     latency, and bumps `console_http_requests_total{method,device}`.

Notes
-----
  • Health and metrics scrapes are logged at DEBUG to keep the file quiet.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/scanconsole/internal/metrics"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *RequestInfo, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RequestInfo{
			UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       lookupGeo(clientIP(r)),
			URL:       r.URL,
			Timestamp: time.Now().UTC(),
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := context.WithValue(r.Context(), ctxKey{}, info)
		next.ServeHTTP(ww, r.WithContext(ctx))

		metrics.ConsoleRequestsTotal.WithLabelValues(r.Method, info.UA.Device).Inc()

		logf := zap.S().Infow
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			logf = zap.S().Debugw
		}
		logf("request",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"raw_query", r.URL.RawQuery,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(info.Timestamp),
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"city", info.Geo.City,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
		)
	})
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return nil
}
