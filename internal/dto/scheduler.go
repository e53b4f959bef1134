package dto

import "time"

// RunSchedulerRequest triggers one scheduler pass. AsOf defaults to now.
type RunSchedulerRequest struct {
	AsOf *time.Time `json:"asOf"`
}
