// Package chizuquiz defines the core domain types of the map quiz.
// It depends only on the geo package; everything here is pure Go.
package chizuquiz

import (
	"strings"

	"github.com/playperu/chizuquiz/internal/geo"
)

// Region is one answer in the question pool.
type Region struct {
	ID     string
	Name   string
	Coords geo.Point
	Hint   string
	// ToleranceKm overrides the deployment tolerance when positive.
	ToleranceKm float64
}

type Status string

const (
	StatusPlaying    Status = "playing"
	StatusEvaluating Status = "evaluating"
	StatusFinished   Status = "finished"
)

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseDirection accepts direction names and browser arrow key names.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "arrowup":
		return DirectionUp, true
	case "down", "arrowdown":
		return DirectionDown, true
	case "left", "arrowleft":
		return DirectionLeft, true
	case "right", "arrowright":
		return DirectionRight, true
	}
	return "", false
}

// Delta returns the signed latitude and longitude change for one step.
func (d Direction) Delta(step float64) (dLat, dLng float64) {
	switch d {
	case DirectionUp:
		return step, 0
	case DirectionDown:
		return -step, 0
	case DirectionLeft:
		return 0, -step
	case DirectionRight:
		return 0, step
	}
	return 0, 0
}

// Verdict is the outcome of one confirmed guess.
type Verdict struct {
	Correct    bool
	DistanceKm float64
	Answer     geo.Point
	Guess      geo.Point
	Score      int
}
