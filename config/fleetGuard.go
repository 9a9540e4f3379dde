package config

import (
	"context"
	"strings"

	"github.com/seadatafocus/memp_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FleetGuardPlugin enforces fleet isolation by automatically scoping
// queries/updates/deletes to the request's fleet_id when the model has a fleet_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include fleet_id manually.
// - Admin/internal bypass is explicit via context flags.
type FleetGuardPlugin struct{}

func NewFleetGuardPlugin() *FleetGuardPlugin { return &FleetGuardPlugin{} }

func (p *FleetGuardPlugin) Name() string { return "fleet_guard" }

func (p *FleetGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("fleet_guard:query", fleetGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("fleet_guard:row", fleetGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("fleet_guard:update", fleetGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("fleet_guard:delete", fleetGuardCallback); err != nil {
		return err
	}
	return nil
}

func fleetGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassFleetScope(ctx) {
		return
	}
	fleetID := fleetIdFromContext(ctx)
	if fleetID == "" {
		return
	}

	// Only apply if the current model/table includes a fleet_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasFleetID := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "fleet_id") {
			hasFleetID = true
			break
		}
	}
	if !hasFleetID {
		return
	}

	// Don't duplicate an explicit fleet filter.
	if whereHasFleetID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "fleet_id"},
				Value:  fleetID,
			},
		},
	})
}

func fleetIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyFleetId).(string); ok && v != "" {
		return v
	}
	return ""
}

func shouldBypassFleetScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipFleetScope).(bool); ok && v {
		return true
	}
	if v, ok := ctx.Value(appctx.ContextKeyIsAdmin).(bool); ok && v {
		return true
	}
	return false
}

func whereHasFleetID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasFleetID(e) {
			return true
		}
	}
	return false
}

func exprHasFleetID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsFleetID(v.Column)
	case clause.Neq:
		return colIsFleetID(v.Column)
	case clause.Gt:
		return colIsFleetID(v.Column)
	case clause.Gte:
		return colIsFleetID(v.Column)
	case clause.Lt:
		return colIsFleetID(v.Column)
	case clause.Lte:
		return colIsFleetID(v.Column)
	case clause.IN:
		return colIsFleetID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasFleetID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasFleetID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "fleet_id")
	default:
		return false
	}
}

func colIsFleetID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "fleet_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "fleet_id")
	default:
		return false
	}
}
