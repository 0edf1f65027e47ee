package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/http/response"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

type ResourceHandler struct {
	log       *logger.Logger
	db        *gorm.DB
	resources services.ResourceService
	jobs      services.JobService
}

func NewResourceHandler(baseLog *logger.Logger, db *gorm.DB, resources services.ResourceService, jobs services.JobService) *ResourceHandler {
	return &ResourceHandler{
		log:       baseLog.With("handler", "ResourceHandler"),
		db:        db,
		resources: resources,
		jobs:      jobs,
	}
}

type saveParentResourcesRequest struct {
	Fields map[string]string `json:"fields"`
	// Resources is a pointer so an absent list keeps the stored explicit links.
	Resources *[]string  `json:"resources"`
	SeenAt    *time.Time `json:"seenAt"`
}

type destroyParentResourcesRequest struct {
	AffectedParentIDs []int64 `json:"affectedParentIds"`
}

type updateResourceRequest struct {
	URL string `json:"url"`
}

// inTx runs fn in one transaction and wakes the worker after commit when
// anything was enqueued.
func (h *ResourceHandler) inTx(ctx context.Context, fn func(dbc dbctx.Context) (int, error)) error {
	enqueued := 0
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := fn(dbctx.Context{Ctx: ctx, Tx: tx})
		enqueued = n
		return err
	})
	if err != nil {
		return err
	}
	if enqueued > 0 && h.jobs != nil {
		h.jobs.Dispatch(ctx, services.EngineJobTypes...)
	}
	return nil
}

// GET /api/resources/:id
func (h *ResourceHandler) GetResource(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.RespondServiceError(c, err, "invalid_resource_id")
		return
	}
	res, err := h.resources.GetResource(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondServiceError(c, err, "get_resource_failed")
		return
	}
	response.RespondOK(c, gin.H{"resource": res})
}

// PATCH /api/resources/:id
func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.RespondServiceError(c, err, "invalid_resource_id")
		return
	}
	var req updateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	var res *types.Resource
	err = h.inTx(ctx, func(dbc dbctx.Context) (int, error) {
		enqueued, err := h.resources.UpdateResourceURL(dbc, id, req.URL)
		if err != nil {
			return 0, err
		}
		res, err = h.resources.GetResource(dbc, id)
		if enqueued {
			return 1, err
		}
		return 0, err
	})
	if err != nil {
		response.RespondServiceError(c, err, "update_resource_failed")
		return
	}
	response.RespondOK(c, gin.H{"resource": res})
}

// GET /api/parents/:parentType/:parentId/resources
func (h *ResourceHandler) ListParentResources(c *gin.Context) {
	pt, err := paramParentType(c)
	if err != nil {
		response.RespondServiceError(c, err, "invalid_parent_type")
		return
	}
	parentID, err := paramID(c, "parentId")
	if err != nil {
		response.RespondServiceError(c, err, "invalid_parent_id")
		return
	}
	list, err := h.resources.ResourcesFor(dbctx.Context{Ctx: c.Request.Context()}, pt, parentID)
	if err != nil {
		response.RespondServiceError(c, err, "list_resources_failed")
		return
	}
	response.RespondOK(c, gin.H{"resources": list})
}

// PUT /api/parents/:parentType/:parentId/resources
func (h *ResourceHandler) SaveParentResources(c *gin.Context) {
	pt, err := paramParentType(c)
	if err != nil {
		response.RespondServiceError(c, err, "invalid_parent_type")
		return
	}
	parentID, err := paramID(c, "parentId")
	if err != nil {
		response.RespondServiceError(c, err, "invalid_parent_id")
		return
	}
	var req saveParentResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.ReconcileInput{
		ParentType: pt,
		ParentID:   parentID,
		Fields:     make(map[types.SourceField]string, len(req.Fields)),
		SeenAt:     time.Now(),
	}
	for k, v := range req.Fields {
		in.Fields[types.SourceField(k)] = v
	}
	if req.Resources != nil {
		in.Resources = append([]string{}, (*req.Resources)...)
	}
	if req.SeenAt != nil && !req.SeenAt.IsZero() {
		in.SeenAt = *req.SeenAt
	}

	ctx := c.Request.Context()
	var out *services.ReconcileResult
	err = h.inTx(ctx, func(dbc dbctx.Context) (int, error) {
		res, err := h.resources.UpsertAndAssociate(dbc, in)
		if err != nil {
			return 0, err
		}
		out = res
		return res.Enqueued, nil
	})
	if err != nil {
		h.log.Warn("save parent resources failed", "parent_type", pt, "parent_id", parentID, "error", err)
		response.RespondServiceError(c, err, "reconcile_failed")
		return
	}
	list, err := h.resources.ResourcesFor(dbctx.Context{Ctx: ctx}, pt, parentID)
	if err != nil {
		response.RespondServiceError(c, err, "list_resources_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"created":   out.Created,
		"updated":   out.Updated,
		"removed":   out.Removed,
		"enqueued":  out.Enqueued,
		"resources": list,
	})
}

// DELETE /api/parents/:parentType/:parentId/resources
func (h *ResourceHandler) DestroyParentResources(c *gin.Context) {
	pt, err := paramParentType(c)
	if err != nil {
		response.RespondServiceError(c, err, "invalid_parent_type")
		return
	}
	parentID, err := paramID(c, "parentId")
	if err != nil {
		response.RespondServiceError(c, err, "invalid_parent_id")
		return
	}
	var req destroyParentResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var out *services.DestroyResult
	err = h.inTx(c.Request.Context(), func(dbc dbctx.Context) (int, error) {
		res, err := h.resources.DestroyParent(dbc, pt, parentID, services.DestroyOptions{AffectedParentIDs: req.AffectedParentIDs})
		if err != nil {
			return 0, err
		}
		out = res
		return res.Enqueued, nil
	})
	if err != nil {
		response.RespondServiceError(c, err, "destroy_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"removed":        out.Removed,
		"filesRemoved":   out.FilesRemoved,
		"resourcesSwept": out.ResourcesSwept,
		"filesSwept":     out.FilesSwept,
	})
}

// POST /api/reports/:id/status-sync
func (h *ResourceHandler) SyncReportStatus(c *gin.Context) {
	reportID, err := paramID(c, "id")
	if err != nil {
		response.RespondServiceError(c, err, "invalid_report_id")
		return
	}
	err = h.inTx(c.Request.Context(), func(dbc dbctx.Context) (int, error) {
		return 0, h.resources.SyncReportStatus(dbc, reportID)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) {
			h.log.Warn("report status sync failed", "report_id", reportID, "error", err)
		}
		response.RespondServiceError(c, err, "status_sync_failed")
		return
	}
	response.RespondOK(c, gin.H{"reportId": reportID, "synced": true})
}
