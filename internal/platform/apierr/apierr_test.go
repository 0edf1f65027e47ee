package apierr

import (
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("resource 4: %w", pkgerrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"invalid", fmt.Errorf("bad field: %w", pkgerrors.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"passthrough", New(http.StatusTeapot, "teapot", nil), http.StatusTeapot, "teapot"},
		{"generic", fmt.Errorf("boom"), http.StatusInternalServerError, "reconcile_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromError(tc.err, "reconcile_failed")
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("want=%d/%s got=%d/%s", tc.status, tc.code, got.Status, got.Code)
			}
		})
	}
	if FromError(nil, "x") != nil {
		t.Fatalf("nil error should map to nil")
	}
	if msg := FromError(fmt.Errorf("db password leaked"), "x").Error(); msg != "internal error" {
		t.Fatalf("generic errors must not leak detail, got %q", msg)
	}
}
