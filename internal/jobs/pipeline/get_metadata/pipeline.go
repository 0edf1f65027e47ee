package get_metadata

import (
	"errors"
	"fmt"
	"time"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	jobrt "github.com/yungbote/ttahub-resources-backend/internal/jobs/runtime"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	var payload services.GetMetadataPayload
	if err := jc.DecodePayload(&payload); err != nil || payload.ResourceID <= 0 {
		jc.Fail("validate", fmt.Errorf("invalid payload: %v", err))
		return nil
	}
	dbc := jc.DBContext()

	res, err := p.registry.Get(dbc, payload.ResourceID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		jc.Succeed("skipped", map[string]any{"reason": "resource_deleted"})
		return nil
	}
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if res.HasTitle() {
		jc.Succeed("skipped", map[string]any{"reason": "already_titled"})
		return nil
	}

	started := time.Now()
	out, fetchErr := p.fetcher.Fetch(jc.Ctx, res.URL)
	status := 0
	if out != nil {
		status = out.StatusCode
	}
	observability.Current().ObserveFetch(status, time.Since(started))

	if fetchErr != nil {
		if out != nil && out.StatusCode > 0 {
			if err := p.registry.UpdateMetadata(dbc, res.ID, services.MetadataUpdate{
				StatusCode: out.StatusCode,
				MimeType:   out.MimeType,
			}); err != nil {
				p.log.Warn("persist status code failed", "resource_id", res.ID, "error", err)
			}
		}
		jc.Fail("fetch", fetchErr)
		if jc.Job.Status == types.JobStatusDead {
			p.log.Error("metadata fetch exhausted retries", "resource_id", res.ID, "url", res.URL, "attempts", jc.Job.Attempts, "error", fetchErr)
		}
		return nil
	}

	update := services.MetadataUpdate{
		Metadata:   out.Metadata,
		StatusCode: out.StatusCode,
		MimeType:   out.MimeType,
	}
	if out.Title != "" {
		title := out.Title
		update.Title = &title
	}
	if err := p.registry.UpdateMetadata(dbc, res.ID, update); err != nil {
		jc.Fail("persist", err)
		return nil
	}
	jc.Succeed("done", map[string]any{
		"resource_id": res.ID,
		"status_code": out.StatusCode,
		"mime_type":   out.MimeType,
		"titled":      update.Title != nil,
	})
	return nil
}
