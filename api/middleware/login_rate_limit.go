package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/geoinstrumentos/catalog-backend/api/responses"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/redis"
)

// LoginRateLimitPolicy throttles login attempts per client IP. Forwarding
// headers are honoured only when the peer is inside TrustedProxies.
type LoginRateLimitPolicy struct {
	Window         time.Duration
	IPLimit        int
	TrustedProxies []netip.Prefix
}

type loginScopeKey struct{}

func (p LoginRateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.IPLimit > 0
}

// LoginRateLimit counts attempts in a fixed window. It is a no-op when the
// policy is disabled or no limiter is configured.
func LoginRateLimit(policy LoginRateLimitPolicy, limiter redis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r, policy.TrustedProxies)
			scope := "login:" + ip
			ctx = context.WithValue(ctx, loginScopeKey{}, scope)
			r = r.WithContext(ctx)

			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(policy.IPLimit), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"ip":             ip,
						"attempts":       count,
						"limit":          policy.IPLimit,
						"window_seconds": int(policy.Window.Seconds()),
					}), "auth.rate_limit.blocked")
				}
				if retry, err := limiter.RetryAfter(ctx, scope); err == nil && retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoginScope names the rate-limit window of the caller. It reuses the scope
// resolved by LoginRateLimit and otherwise falls back to the peer address.
func LoginScope(r *http.Request) string {
	if scope, ok := r.Context().Value(loginScopeKey{}).(string); ok {
		return scope
	}
	return "login:" + remoteHost(r)
}

// clientIP walks X-Forwarded-For from the nearest hop and returns the first
// address that is not a trusted proxy.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r)
	if !isTrusted(peer, trusted) {
		return peer
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		hops := strings.Split(header, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) {
				return hop
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
