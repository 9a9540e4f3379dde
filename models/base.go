package models

import (
	"context"

	"github.com/google/uuid"
	"github.com/seadatafocus/memp_backend/utils"
)

// correlationIdFromContextOrNew reuses the request-scoped correlation id when
// the middleware set one, otherwise mints a fresh id so background writers
// (cmd tools, rebuilds) still produce traceable rows.
func correlationIdFromContextOrNew(ctx context.Context) string {
	if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
		return v
	}
	return uuid.NewString()
}
