package model

import (
	"time"

	"github.com/google/uuid"
)

// Round is one finished game session.
type Round struct {
	ID       uuid.UUID     `json:"id"`
	Mode     string        `json:"mode"`
	Roster   []string      `json:"roster"`
	Winners  []string      `json:"winners"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Forced   bool          `json:"forced"`
}
