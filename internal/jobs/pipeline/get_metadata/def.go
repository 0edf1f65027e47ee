package get_metadata

import (
	"context"

	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/webmeta"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*webmeta.Result, error)
}

type Pipeline struct {
	log      *logger.Logger
	registry services.ResourceRegistry
	fetcher  Fetcher
}

func New(baseLog *logger.Logger, registry services.ResourceRegistry, fetcher Fetcher) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", services.JobTypeGetMetadata),
		registry: registry,
		fetcher:  fetcher,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeGetMetadata }
