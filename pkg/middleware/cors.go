package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// OriginPolicy decides which browser origins may call the API. Any
// *.vercel.app origin is allowed so preview deployments work.
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy builds a policy from explicit origins; empty entries are ignored
func NewOriginPolicy(origins ...string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether origin may make credentialed requests
func (p *OriginPolicy) Allowed(origin string) bool {
	if _, ok := p.allowed[origin]; ok {
		return true
	}
	return strings.HasSuffix(origin, ".vercel.app") &&
		(strings.HasPrefix(origin, "https://") || strings.HasPrefix(origin, "http://"))
}

// CORS answers preflights and rejects disallowed origins with 403.
// Requests without an Origin header are not affected.
func CORS(policy *OriginPolicy) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  policy.Allowed,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
