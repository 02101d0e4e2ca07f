package room

import (
	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
	"github.com/playperu/chizuquiz/internal/quiz"
)

// Reply answers every command sent to a room.
type Reply struct {
	Applied bool
	View    quiz.View
}

// Move: one directional step; a zero Step uses the room default.
type Move struct {
	Direction chizuquiz.Direction
	Step      float64
	Reply     chan<- Reply
}

// Place: pointer placed directly (drag or tap).
type Place struct {
	Point geo.Point
	Reply chan<- Reply
}

type Confirm struct {
	Reply chan<- Reply
}

type Restart struct {
	Reply chan<- Reply
}

// Observe reads the view without changing anything.
type Observe struct {
	Reply chan<- Reply
}

// settle carries an elapsed timer back onto the room goroutine.
type settle struct {
	fn func()
}
