package model

import (
	"time"

	"github.com/google/uuid"
)

type Conclusion string

const (
	ConclusionWon         Conclusion = "won"
	ConclusionOut         Conclusion = "out"
	ConclusionSurvived    Conclusion = "survived"
	ConclusionInterrupted Conclusion = "interrupted"
)

// Stat is the outcome of one round for one controller.
type Stat struct {
	RoundID    uuid.UUID     `json:"roundID"`
	Address    string        `json:"address"`
	Mode       string        `json:"mode"`
	Team       string        `json:"team,omitempty"`
	Conclusion Conclusion    `json:"conclusion"`
	PlayersNum int           `json:"playersNum"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type AggregationStat struct {
	Count        int
	Wins         int
	Outs         int
	Interrupted  int
	Modes        map[string]int
	AvgDuration  time.Duration
	LongestRound time.Duration
}
