package api

import (
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/planservice"
	"github.com/starford/bootplan/internal/planstore"
)

// PlanRecord is a plan history entry (aliased from the storage layer).
type PlanRecord = planstore.Record

// CompileResponse is returned by POST /plan/compile (aliased from the domain layer).
type CompileResponse = planservice.Result

// PlanResponse wraps a plan with its history record.
type PlanResponse struct {
	Record PlanRecord   `json:"record" validate:"required"`
	Plan   *models.Plan `json:"plan" validate:"required"`
}

// ModelListResponse lists model instructions in plan order.
type ModelListResponse struct {
	Models []models.ModelInstruction `json:"models" validate:"required"`
}

// MixinListResponse lists mixin instructions in plan order.
type MixinListResponse struct {
	Mixins []models.MixinInstruction `json:"mixins" validate:"required"`
}

// BootListResponse lists boot scripts in execution order.
type BootListResponse struct {
	Boot []string `json:"boot" example:"/app/boot/a.js,/app/boot/b.js" validate:"required"`
}

// HistoryResponse wraps paginated plan history.
type HistoryResponse struct {
	Plans []PlanRecord `json:"plans" validate:"required"`
	Total int          `json:"total" example:"42" validate:"required"`
}
