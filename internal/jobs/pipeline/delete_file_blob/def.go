package delete_file_blob

import (
	"github.com/yungbote/ttahub-resources-backend/internal/clients/gcp"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

type Pipeline struct {
	log   *logger.Logger
	blobs gcp.BlobStore
}

func New(baseLog *logger.Logger, blobs gcp.BlobStore) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("job", services.JobTypeDeleteFileBlob),
		blobs: blobs,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeDeleteFileBlob }
