package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type SecurityConfig struct {
	HSTS                  bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	FrameOptions          string
	ContentTypeOptions    string
	XSSProtection         string
	ReferrerPolicy        string
	CSPDirectives         []string
	// CacheControl keeps patient data out of shared caches.
	CacheControl string
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTS:                  true,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentTypeOptions:    "nosniff",
		XSSProtection:         "1; mode=block",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		CSPDirectives: []string{
			"default-src 'self'",
			"img-src 'self' data:",
			"script-src 'none'",
			"style-src 'self' 'unsafe-inline'",
			"frame-ancestors 'none'",
		},
		CacheControl: "no-store",
	}
}

type header struct{ name, value string }

// headers flattens the config into the fixed set of response headers.
// Empty values are left out.
func (c SecurityConfig) headers() []header {
	var hs []header
	add := func(name, value string) {
		if value != "" {
			hs = append(hs, header{name, value})
		}
	}

	if c.HSTS {
		hsts := "max-age=" + strconv.Itoa(c.HSTSMaxAge)
		if c.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		add("Strict-Transport-Security", hsts)
	}
	add("X-Frame-Options", c.FrameOptions)
	add("X-Content-Type-Options", c.ContentTypeOptions)
	add("X-XSS-Protection", c.XSSProtection)
	add("Referrer-Policy", c.ReferrerPolicy)
	add("Cache-Control", c.CacheControl)
	add("Content-Security-Policy", strings.Join(c.CSPDirectives, "; "))
	return hs
}

func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	hs := config.headers()
	return func(c *gin.Context) {
		for _, h := range hs {
			c.Header(h.name, h.value)
		}
		c.Next()
	}
}
