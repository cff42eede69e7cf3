package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful admin write
// operations. It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType, resourceID := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var adminID *uuid.UUID
		if aid, exists := c.Get(CtxAdminID); exists {
			if id, ok := aid.(uuid.UUID); ok {
				adminID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Record(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			AdminID:      adminID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string, string) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	// Admin paths look like api/v1/admin/<resource>/<id>/<verb>
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "v1" || parts[2] != "admin" {
		return "", "", ""
	}

	switch {
	case parts[3] == "commissions" && len(parts) == 6 && parts[5] == "confirm" && method == "POST":
		return domain.AuditActionConfirmCommission, "commission", parts[4]
	case parts[3] == "commissions" && len(parts) == 6 && parts[5] == "reverse" && method == "POST":
		return domain.AuditActionReverseCommission, "commission", parts[4]
	case parts[3] == "payouts" && len(parts) == 6 && parts[5] == "process" && method == "POST":
		return domain.AuditActionProcessPayout, "payout", parts[4]
	case parts[3] == "wallets" && len(parts) == 6 && parts[5] == "adjust" && method == "POST":
		return domain.AuditActionAdjustWallet, "wallet", parts[4]
	case parts[3] == "actors" && len(parts) == 4 && method == "POST":
		return domain.AuditActionCreateActor, "actor", ""
	case parts[3] == "referral-settings" && method == "PUT":
		return domain.AuditActionUpdateSettings, "referral_settings", ""
	}
	return "", "", ""
}
