package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vabboost/internal/pkg/logger"
	"vabboost/internal/pkg/response"
)

const maxSignedBody = 1 << 20

// WebhookAuthConfig describes how gateway notifications are authenticated.
type WebhookAuthConfig struct {
	Secret          string
	SignatureHeader string
	// AllowedIPs holds addresses or CIDR ranges; empty allows any source.
	AllowedIPs []string
}

// WebhookAuth rejects notifications that fail the source allowlist or carry
// no valid hex HMAC-SHA256 of the raw body. The body is restored for the handler.
func WebhookAuth(cfg WebhookAuthConfig) gin.HandlerFunc {
	nets := parseAllowlist(cfg.AllowedIPs)
	secret := []byte(cfg.Secret)

	return func(c *gin.Context) {
		if len(nets) > 0 && !ipInNets(c.ClientIP(), nets) {
			logWebhookRejection(c, "ip_not_allowed")
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "Source not allowed")
			return
		}

		sig := strings.TrimSpace(c.GetHeader(cfg.SignatureHeader))
		if sig == "" {
			logWebhookRejection(c, "missing_signature")
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Missing webhook signature")
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSignedBody))
		if err != nil {
			response.Abort(c, http.StatusBadRequest, response.CodeValidation, "Unreadable body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ValidSignature(secret, body, sig) {
			logWebhookRejection(c, "bad_signature")
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid webhook signature")
			return
		}

		c.Next()
	}
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature compares in constant time. A "sha256=" prefix is accepted.
func ValidSignature(secret, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func parseAllowlist(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			if ip := net.ParseIP(e); ip != nil && ip.To4() != nil {
				e += "/32"
			} else {
				e += "/128"
			}
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			logger.Logger.Warn().Str("entry", e).Msg("ignoring invalid webhook allowlist entry")
			continue
		}
		nets = append(nets, n)
	}
	return nets
}

func ipInNets(addr string, nets []*net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func logWebhookRejection(c *gin.Context, reason string) {
	logger.Logger.Warn().
		Str("reason", reason).
		Str("client_ip", c.ClientIP()).
		Str("request_id", c.GetString("request_id")).
		Msg("webhook rejected")
}
