package dto

import "erpsaas/internal/model"

type CreatePlanRequest struct {
	Name        string           `json:"name" validate:"required"`
	Price       float64          `json:"price"`
	Currency    string           `json:"currency,omitempty"`
	Interval    string           `json:"interval,omitempty"`
	Features    []string         `json:"features"`
	AccessRoles []string         `json:"accessRoles"`
	Limits      model.PlanLimits `json:"limits"`
}

type UpdatePlanRequest struct {
	Name        *string           `json:"name,omitempty"`
	Price       *float64          `json:"price,omitempty"`
	Currency    *string           `json:"currency,omitempty"`
	Interval    *string           `json:"interval,omitempty"`
	Features    []string          `json:"features,omitempty"`
	AccessRoles []string          `json:"accessRoles,omitempty"`
	Limits      *model.PlanLimits `json:"limits,omitempty"`
}
