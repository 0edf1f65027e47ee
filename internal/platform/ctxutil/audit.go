package ctxutil

import (
	"context"
	"strings"
)

type auditDataKey struct{}

// AuditData identifies who a write is attributed to. It travels with the
// request and is copied into async job payloads so worker writes stay attributable.
type AuditData struct {
	UserID          string `json:"userId"`
	ImpersonationID string `json:"impersonationId"`
	TransactionID   string `json:"transactionId"`
	SessionSig      string `json:"sessionSig"`
}

func (a *AuditData) Empty() bool {
	if a == nil {
		return true
	}
	return strings.TrimSpace(a.UserID) == "" &&
		strings.TrimSpace(a.ImpersonationID) == "" &&
		strings.TrimSpace(a.TransactionID) == "" &&
		strings.TrimSpace(a.SessionSig) == ""
}

func WithAuditData(ctx context.Context, ad *AuditData) context.Context {
	return context.WithValue(Default(ctx), auditDataKey{}, ad)
}

func GetAuditData(ctx context.Context) *AuditData {
	if ctx == nil {
		return nil
	}
	if ad, ok := ctx.Value(auditDataKey{}).(*AuditData); ok {
		return ad
	}
	return nil
}
