package model

import "time"

// Run records one analysis pass.
type Run struct {
	ID                   string    `json:"id" yaml:"id"`
	StartedAt            time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt          time.Time `json:"completed_at" yaml:"completed_at"`
	Area                 string    `json:"area" yaml:"area"`
	Years                []int     `json:"years" yaml:"years"`
	TargetCRS            string    `json:"target_crs" yaml:"target_crs"`
	Regions              int       `json:"regions" yaml:"regions"`
	Observations         int       `json:"observations" yaml:"observations"`
	Points               int       `json:"points" yaml:"points"`
	UnassignedPoints     int       `json:"unassigned_points" yaml:"unassigned_points"`
	ExcludedObservations int       `json:"excluded_observations" yaml:"excluded_observations"`
}
