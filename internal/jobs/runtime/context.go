package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/ctxutil"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
)

/*
Context is the handle a handler gets for one claimed job run. Handlers never
touch job_run directly; they report the outcome through Fail or Succeed, which
own the retry schedule and the dead-letter transition.
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	Events  repos.JobRunEventRepo
	Backoff time.Duration
	payload map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, events repos.JobRunEventRepo, backoff time.Duration) *Context {
	c := &Context{
		Ctx:     ctxutil.Default(ctx),
		DB:      db,
		Job:     job,
		Repo:    repo,
		Events:  events,
		Backoff: backoff,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	c.applyAuditData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	traceID := c.PayloadString("trace_id")
	reqID := c.PayloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

// applyAuditData restores the enqueuing request's attribution so the audit
// plugin stamps worker writes with it.
func (c *Context) applyAuditData() {
	raw, ok := c.Payload()["referenceData"]
	if !ok || raw == nil {
		return
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return
	}
	var ad ctxutil.AuditData
	if err := json.Unmarshal(b, &ad); err != nil || ad.Empty() {
		return
	}
	c.Ctx = ctxutil.WithAuditData(c.Ctx, &ad)
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// DecodePayload unmarshals the raw payload into v.
func (c *Context) DecodePayload(v any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(c.Job.Payload, v)
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// PayloadInt64 accepts JSON numbers and numeric strings.
func (c *Context) PayloadInt64(key string) (int64, bool) {
	switch v := c.Payload()[key].(type) {
	case float64:
		return int64(v), v > 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil && n > 0
	default:
		return 0, false
	}
}

// DBContext is the dbctx handlers should write through.
func (c *Context) DBContext() dbctx.Context {
	return dbctx.Context{Ctx: c.Ctx}
}

func (c *Context) Heartbeat() {
	if c == nil || c.Repo == nil || c.Job == nil {
		return
	}
	_ = c.Repo.Heartbeat(dbctx.Context{Ctx: c.Ctx}, c.Job.ID)
}

// RetryDelay is base * 2^(attempt-1).
func RetryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	return base * time.Duration(1<<(attempt-1))
}

/*
Fail records a failed attempt. With attempts left the run goes back to failed
with next_attempt_at pushed out by the backoff; otherwise it becomes dead and
is never claimed again. Dead or succeeded runs are not overwritten.
*/
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	dead := c.Job.Attempts >= c.Job.MaxAttempts
	updates := map[string]interface{}{
		"stage":         stage,
		"error":         msg,
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}
	var next *time.Time
	status, kind := types.JobStatusFailed, types.JobEventRetrying
	if dead {
		status, kind = types.JobStatusDead, types.JobEventDead
		updates["next_attempt_at"] = nil
	} else {
		at := now.Add(RetryDelay(c.Backoff, c.Job.Attempts))
		next = &at
		updates["next_attempt_at"] = at
	}
	updates["status"] = status

	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, []string{types.JobStatusDead, types.JobStatusSucceeded}, updates)
		if !ok {
			return
		}
	}
	c.Job.Status = status
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
	c.Job.NextAttemptAt = next
	c.Job.UpdatedAt = now

	data := map[string]any{"stage": stage}
	if next != nil {
		data["next_attempt_at"] = next.Format(time.RFC3339)
	}
	c.recordEvent(kind, msg, data)
	observability.Current().IncJobOutcome(c.Job.JobType, status)
}

func (c *Context) Succeed(finalStage string, result any) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	res := datatypes.JSON([]byte(`{}`))
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, []string{types.JobStatusDead}, map[string]interface{}{
			"status":          types.JobStatusSucceeded,
			"stage":           finalStage,
			"error":           "",
			"result":          res,
			"locked_at":       nil,
			"next_attempt_at": nil,
			"heartbeat_at":    now,
			"updated_at":      now,
		})
		if !ok {
			return
		}
	}
	c.Job.Status = types.JobStatusSucceeded
	c.Job.Stage = finalStage
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.NextAttemptAt = nil
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now

	c.recordEvent(types.JobEventSucceeded, "", nil)
	observability.Current().IncJobOutcome(c.Job.JobType, types.JobStatusSucceeded)
}

func (c *Context) recordEvent(kind types.JobEventKind, msg string, data map[string]any) {
	if c.Events == nil || c.Job == nil {
		return
	}
	raw := datatypes.JSON([]byte(`{}`))
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = datatypes.JSON(b)
		}
	}
	_ = c.Events.Create(dbctx.Context{Ctx: c.Ctx}, []*types.JobRunEvent{{
		JobID:   c.Job.ID,
		JobType: c.Job.JobType,
		Kind:    string(kind),
		Status:  c.Job.Status,
		Attempt: c.Job.Attempts,
		Message: msg,
		Data:    raw,
	}})
}
