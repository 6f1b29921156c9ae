package middleware

import (
	midsec "RTHub/middleware/security"

	"github.com/gin-gonic/gin"
)

// RouteOpt marks a route as internal-only (control surface).
type RouteOpt struct {
	Internal       bool
	InternalSecret string
}

// POST registers a POST route, wrapping it with the internal-secret
// middleware when asked.
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.Internal {
		r.POST(path, midsec.Internal(opt.InternalSecret), handler)
	} else {
		r.POST(path, handler)
	}
}

// GET registers a GET route, same contract as POST.
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.Internal {
		r.GET(path, midsec.Internal(opt.InternalSecret), handler)
	} else {
		r.GET(path, handler)
	}
}
