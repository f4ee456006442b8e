package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"lifeguard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"
)

// ErrorHandler renders errors that escape a handler as {"error": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

// WSUpgradeMiddleware rejects plain HTTP requests to websocket routes
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func bearerToken(c *fiber.Ctx) string {
	token := c.Query("access_token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			token = authHeader[7:]
		}
	}
	return token
}

// setClaims copies the token's claims into locals. It reports false unless
// the token is valid and carries a user id.
func setClaims(c *fiber.Ctx, users *services.UserService) bool {
	token := bearerToken(c)
	if token == "" {
		return false
	}
	claims, err := users.ValidateToken(token)
	if err != nil {
		return false
	}

	// claims["user_id"] comes as float64 from JSON
	uid, ok := claims["user_id"].(float64)
	if !ok {
		return false
	}
	c.Locals("user_id", int(uid))
	if email, ok := claims["email"].(string); ok {
		c.Locals("email", email)
	}
	return true
}

// AuthMiddleware requires a valid JWT from the Authorization header or the
// access_token query parameter.
func AuthMiddleware(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if bearerToken(c) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}
		if !setClaims(c, users) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		setClaims(c, users)
		return c.Next()
	}
}

// sessionKey identifies the client for the in-flight check-in guard
func sessionKey(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get("X-Session-ID")); id != "" {
		return "session:" + id
	}
	if uid, ok := c.Locals("user_id").(int); ok {
		return fmt.Sprintf("user:%d", uid)
	}
	return "ip:" + c.IP()
}

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

func RateLimitMiddleware(ipLimiter *IPRateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ipLimiter.GetLimiter(c.IP()).Allow() {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate limit exceeded for your IP",
				"message": "please try again in a few seconds",
			})
		}
		return c.Next()
	}
}
