package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/platform/ctxutil"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// AuditPlugin stamps the request's reference data into transaction-local
// Postgres settings ahead of every write, where the audit triggers read them.
type AuditPlugin struct {
	log *logger.Logger
}

func NewAuditPlugin(log *logger.Logger) *AuditPlugin {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditPlugin{log: log.With("plugin", "audit")}
}

func (p *AuditPlugin) Name() string { return "audit" }

func (p *AuditPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("audit:stamp_create", p.stamp); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("audit:stamp_update", p.stamp); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("audit:stamp_delete", p.stamp); err != nil {
		return err
	}
	return db.Callback().Raw().Before("gorm:raw").Register("audit:stamp_raw", p.stamp)
}

const stampSQL = `SELECT
	set_config('audit.loggedUser', $1, true),
	set_config('audit.impersonationUserId', $2, true),
	set_config('audit.transactionId', $3, true),
	set_config('audit.sessionSig', $4, true)`

func (p *AuditPlugin) stamp(tx *gorm.DB) {
	if tx.Error != nil || tx.Statement == nil || tx.Dialector.Name() != "postgres" {
		return
	}
	ad := ctxutil.GetAuditData(tx.Statement.Context)
	if ad.Empty() {
		return
	}
	// ConnPool is the open transaction when one exists, so the settings
	// share its scope and vanish on commit.
	if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, stampSQL,
		ad.UserID, ad.ImpersonationID, ad.TransactionID, ad.SessionSig,
	); err != nil {
		p.log.Warn("audit stamp failed", "error", err, "table", tx.Statement.Table)
	}
}
