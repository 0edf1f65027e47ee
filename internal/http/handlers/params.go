package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
)

func paramID(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", pkgerrors.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

// paramParentType also accepts file-only parents such as session.
func paramParentType(c *gin.Context) (types.ParentType, error) {
	raw := c.Param("parentType")
	if pt, ok := types.ParseParentType(raw); ok {
		return pt, nil
	}
	if strings.EqualFold(strings.TrimSpace(raw), string(types.ParentSession)) {
		return types.ParentSession, nil
	}
	return "", fmt.Errorf("%w: unknown parent type %q", pkgerrors.ErrInvalidArgument, raw)
}
