package echomw

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

// basic rate limiter per client ip, shared by every route
var (
	clients   = make(map[string]*rate.Limiter)
	mu        sync.Mutex
	rateLimit = DefaultValueConfig().MiddlewareRateLimit // Number of requests per second
	burst     = DefaultValueConfig().MiddlewareBurst     // Burst size (how many requests are allowed instantly)
)

// UpdateRateLimits changes the limits for clients seen from now on.
func UpdateRateLimits(rateLimitInput, burstInput int) {
	mu.Lock()
	defer mu.Unlock()
	rateLimit = rateLimitInput
	burst = burstInput
	clients = make(map[string]*rate.Limiter)
}

// getLimiter returns the rate limiter for the given IP address.
func getLimiter(ip string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	limiter, exists := clients[ip]
	if !exists {
		// Create a new rate limiter for the client
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
		clients[ip] = limiter

		// Clean up old limiters every minute
		go func() {
			time.Sleep(time.Minute)
			mu.Lock()
			if clients[ip] == limiter {
				delete(clients, ip)
			}
			mu.Unlock()
		}()
	}
	return limiter
}

// Custom rate limiting middleware based on client IP address
func RateLimiterMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP() // Get the client's IP address
		limiter := getLimiter(ip)

		// Check if the request is allowed by the rate limiter
		if !limiter.Allow() {
			LogRouteAccess(c, tl.Warning, "Rate limited", palette.Yellow)
			return c.JSON(http.StatusTooManyRequests, map[string][]string{
				"messages": {"Too many requests, slow down."},
			})
		}
		return next(c)
	}
}
