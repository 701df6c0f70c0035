package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/rafflefi/api/internal/models"
	"github.com/rafflefi/api/internal/user"
)

const (
	// messagePrefix anchors what wallets sign so a signature cannot be
	// replayed against an unrelated service.
	messagePrefix = "RaffleFi Auth"

	// Tokens older than maxTokenAge or further than maxClockSkew in the
	// future are rejected.
	maxTokenAge  = 300 * time.Second
	maxClockSkew = 60 * time.Second

	nonceTTL = 5 * time.Minute
)

var signatureRe = regexp.MustCompile(`^0x[0-9a-fA-F]{130}$`)

// AuthRequest is the payload of an explicit signature-verification call.
type AuthRequest struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Address   string `json:"address" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
}

// ValidateSignatureRequest checks an AuthRequest's shape and freshness
// without touching the signature itself.
func ValidateSignatureRequest(req AuthRequest) error {
	if req.Message == "" {
		return errors.New("message cannot be empty")
	}
	if req.Nonce == "" {
		return errors.New("nonce cannot be empty")
	}
	if !common.IsHexAddress(req.Address) {
		return errors.New("invalid address")
	}
	if !signatureRe.MatchString(req.Signature) {
		return errors.New("invalid signature format")
	}
	now := time.Now()
	issued := time.Unix(req.Timestamp, 0)
	if now.Sub(issued) > maxTokenAge {
		return errors.New("timestamp expired")
	}
	if issued.Sub(now) > maxClockSkew {
		return errors.New("timestamp in the future")
	}
	return nil
}

// AuthMiddleware authenticates requests with wallet signatures. The
// bearer token is "signature:nonce:timestamp:address"; the signed
// message is "RaffleFi Auth:<nonce>:<timestamp>". Nonces are single
// use and expire from the store after nonceTTL.
type AuthMiddleware struct {
	users    user.UserRepository
	adminSet map[string]bool

	nonceStore map[string]time.Time
	nonceMu    sync.RWMutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewAuthMiddleware creates the middleware and starts the nonce
// cleanup loop. The user repository is optional; without it roles come
// from the ADMIN_ADDRESSES bootstrap alone.
func NewAuthMiddleware(users user.UserRepository) *AuthMiddleware {
	adminSet := make(map[string]bool)
	for _, addr := range strings.Split(os.Getenv("ADMIN_ADDRESSES"), ",") {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" {
			adminSet[addr] = true
		}
	}

	am := &AuthMiddleware{
		users:      users,
		adminSet:   adminSet,
		nonceStore: make(map[string]time.Time),
		stopCh:     make(chan struct{}),
	}
	go am.cleanupLoop()
	return am
}

// Stop terminates the cleanup goroutine. Safe to call repeatedly.
func (a *AuthMiddleware) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

func (a *AuthMiddleware) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.cleanupExpiredNonces()
		case <-a.stopCh:
			return
		}
	}
}

func (a *AuthMiddleware) cleanupExpiredNonces() {
	cutoff := time.Now().Add(-nonceTTL)
	a.nonceMu.Lock()
	defer a.nonceMu.Unlock()
	for nonce, seen := range a.nonceStore {
		if seen.Before(cutoff) {
			delete(a.nonceStore, nonce)
		}
	}
}

// RequireAuth validates the bearer token and stores the caller's
// address in the context as "user_address".
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header missing",
				"code":  "AUTH_HEADER_MISSING",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must be a bearer token",
				"code":  "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		address, err := a.validateToken(parts[1])
		if err != nil {
			logrus.WithError(err).Debug("authentication failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
				"code":  "AUTH_FAILED",
			})
			c.Abort()
			return
		}

		c.Set("user_address", address)
		c.Next()
	}
}

func (a *AuthMiddleware) validateToken(token string) (string, error) {
	fields := strings.Split(token, ":")
	if len(fields) != 4 {
		return "", errors.New("malformed token")
	}
	sigHex, nonce, tsStr, address := fields[0], fields[1], fields[2], fields[3]

	if !common.IsHexAddress(address) {
		return "", errors.New("invalid address")
	}
	if nonce == "" {
		return "", errors.New("nonce cannot be empty")
	}

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return "", errors.New("invalid timestamp")
	}
	now := time.Now()
	issued := time.Unix(ts, 0)
	if now.Sub(issued) > maxTokenAge {
		return "", errors.New("token expired")
	}
	if issued.Sub(now) > maxClockSkew {
		return "", errors.New("token timestamp in the future")
	}

	a.nonceMu.Lock()
	if _, seen := a.nonceStore[nonce]; seen {
		a.nonceMu.Unlock()
		return "", errors.New("nonce already used")
	}
	a.nonceStore[nonce] = now
	a.nonceMu.Unlock()

	message := fmt.Sprintf("%s:%s:%d", messagePrefix, nonce, ts)
	if err := a.verifyEthereumSignature(message, sigHex, address); err != nil {
		return "", err
	}

	a.recordLogin(address, nonce)
	return address, nil
}

// recordLogin persists the wallet on first sight and stamps the nonce
// that authenticated it. Best effort: the users table is an audit and
// role surface, not an auth dependency.
func (a *AuthMiddleware) recordLogin(address, nonce string) {
	if a.users == nil {
		return
	}
	key := strings.ToLower(address)
	u, err := a.users.GetByAddress(key)
	if err != nil {
		logrus.WithError(err).WithField("address", key).Warn("user lookup failed")
		return
	}
	if u == nil {
		err = a.users.Create(&models.User{Address: key, Nonce: nonce, Roles: pq.StringArray{"user"}})
	} else {
		err = a.users.UpdateNonce(key, nonce)
	}
	if err != nil {
		logrus.WithError(err).WithField("address", key).Warn("failed to record login")
	}
}

func (a *AuthMiddleware) verifyEthereumSignature(message, signatureHex, address string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil {
		return errors.New("invalid signature encoding")
	}
	if len(sig) != 65 {
		return errors.New("invalid signature length")
	}
	// Wallets emit V as 27/28; crypto.SigToPub wants 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixed))

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return errors.New("signature recovery failed")
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), address) {
		return errors.New("signature does not match address")
	}
	return nil
}

// getUserRoles resolves an address's roles from the users table, with
// the ADMIN_ADDRESSES bootstrap granting admin regardless. Records are
// keyed by lowercased address.
func (a *AuthMiddleware) getUserRoles(address string) []string {
	roles := []string{"user"}
	if a.users != nil {
		if u, err := a.users.GetByAddress(strings.ToLower(address)); err == nil && u != nil && len(u.Roles) > 0 {
			roles = append([]string{}, u.Roles...)
		}
	}
	if a.adminSet[strings.ToLower(address)] {
		roles = append(roles, "admin")
	}
	return roles
}

// RequireRole gates a route to callers holding at least one of the
// given roles. Must run after RequireAuth.
func (a *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userAddress, exists := c.Get("user_address")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
				"code":  "USER_NOT_AUTHENTICATED",
			})
			c.Abort()
			return
		}

		userRoles := a.getUserRoles(userAddress.(string))
		hasRole := false
		for _, required := range roles {
			for _, held := range userRoles {
				if held == required {
					hasRole = true
					break
				}
			}
			if hasRole {
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
				"code":  "INSUFFICIENT_PERMISSIONS",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimitByAddress caps authenticated requests per address within a
// one-minute fixed window.
func (a *AuthMiddleware) RateLimitByAddress(perMinute int) gin.HandlerFunc {
	type window struct {
		start time.Time
		count int
	}
	var mu sync.Mutex
	windows := make(map[string]*window)

	return func(c *gin.Context) {
		address := c.GetString("user_address")
		if address == "" {
			c.Next()
			return
		}

		mu.Lock()
		w, ok := windows[address]
		now := time.Now()
		if !ok || now.Sub(w.start) >= time.Minute {
			w = &window{start: now}
			windows[address] = w
		}
		w.count++
		over := w.count > perMinute
		mu.Unlock()

		if over {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityHeaders sets the standard hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// SecureCORS allows cross-origin calls only from the origins listed in
// ALLOWED_ORIGINS (comma separated; defaults to the local frontend).
func SecureCORS() gin.HandlerFunc {
	allowed := make(map[string]bool)
	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		origins = "http://localhost:3000"
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
