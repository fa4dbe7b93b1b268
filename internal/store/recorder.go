// Package store provides local persistence of refresh history.
package store

import "time"

// RefreshSnapshot holds the outcome of one completed quote refresh.
type RefreshSnapshot struct {
	Timestamp     time.Time
	Symbols       []string
	APICalls      int
	TotalValue    float64
	TotalInvested float64
	GainLoss      float64
	Prices        map[string]float64
}

// Recorder persists refresh history for later inspection. Recording is
// advisory: a recorder failure must never block or fail a refresh.
type Recorder interface {
	RecordRefresh(snap *RefreshSnapshot) error
	History(limit int) ([]RefreshSnapshot, error)
	Close() error
}
