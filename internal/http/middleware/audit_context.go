package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ttahub-resources-backend/internal/platform/ctxutil"
)

const (
	headerUserID          = "X-User-Id"
	headerImpersonationID = "X-Impersonation-Id"
	headerSessionSig      = "X-Session-Sig"
)

// AttachAuditContext copies the caller identity set by the upstream auth layer
// into the request context, with a fresh transaction id per request.
func AttachAuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ad := &ctxutil.AuditData{
			UserID:          strings.TrimSpace(c.GetHeader(headerUserID)),
			ImpersonationID: strings.TrimSpace(c.GetHeader(headerImpersonationID)),
			SessionSig:      strings.TrimSpace(c.GetHeader(headerSessionSig)),
			TransactionID:   uuid.New().String(),
		}
		c.Request = c.Request.WithContext(ctxutil.WithAuditData(c.Request.Context(), ad))
		c.Next()
	}
}
