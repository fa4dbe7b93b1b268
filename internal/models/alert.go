package models

import "time"

// AlertCondition represents the type of alert condition.
type AlertCondition string

const (
	// AlertConditionAbove triggers when price reaches or exceeds the target.
	AlertConditionAbove AlertCondition = "above"
	// AlertConditionBelow triggers when price reaches or falls below the target.
	AlertConditionBelow AlertCondition = "below"
)

// Valid reports whether c is a known alert condition.
func (c AlertCondition) Valid() bool {
	return c == AlertConditionAbove || c == AlertConditionBelow
}

// PriceAlert represents a user-defined threshold condition on a symbol's
// price. Alerts are one-shot: triggered flips false to true once and is
// never reset automatically, even if the price crosses back.
// Field names mirror the backend's price_alerts table columns.
type PriceAlert struct {
	ID          string         `json:"id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	Symbol      string         `json:"symbol"`
	Condition   AlertCondition `json:"alert_type"`
	TargetPrice float64        `json:"target_price"`
	Triggered   bool           `json:"triggered"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
}

// ShouldTrigger reports whether the given price satisfies the alert
// condition. It does not consult the Triggered flag; one-shot semantics are
// enforced by the caller.
func (a *PriceAlert) ShouldTrigger(price float64) bool {
	switch a.Condition {
	case AlertConditionAbove:
		return price >= a.TargetPrice
	case AlertConditionBelow:
		return price <= a.TargetPrice
	default:
		return false
	}
}
