package utils

import (
	"context"

	"github.com/seadatafocus/memp_backend/appctx"
)

var (
	ContextKeyFleetId       = appctx.ContextKeyFleetId
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId

	ContextKeyIsAdmin        = appctx.ContextKeyIsAdmin
	ContextKeySkipFleetScope = appctx.ContextKeySkipFleetScope
)

func GetFleetIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyFleetId)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetFleetIdInContext(ctx context.Context, fleetId string) context.Context {
	return appctx.Set(ctx, ContextKeyFleetId, fleetId)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}

// SetSkipFleetScopeInContext disables the fleet-guard plugin for internal
// tooling whose queries carry explicit fleet filters. Use sparingly.
func SetSkipFleetScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipFleetScope, skip)
}
