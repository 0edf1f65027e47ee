package delete_file_blob

import (
	"fmt"

	jobrt "github.com/yungbote/ttahub-resources-backend/internal/jobs/runtime"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	var payload services.DeleteFileBlobPayload
	if err := jc.DecodePayload(&payload); err != nil || payload.Key == "" {
		jc.Fail("validate", fmt.Errorf("invalid payload: %v", err))
		return nil
	}
	if err := p.blobs.DeleteObject(jc.Ctx, payload.Key); err != nil {
		jc.Fail("delete", err)
		return nil
	}
	p.log.Debug("file blob deleted", "file_id", payload.FileID, "key", payload.Key)
	jc.Succeed("done", map[string]any{"file_id": payload.FileID, "key": payload.Key})
	return nil
}
