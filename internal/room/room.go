// Package room hosts one quiz session per room on its own goroutine.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
	"github.com/playperu/chizuquiz/internal/quiz"
)

var ErrClosed = errors.New("room closed")

const DefaultMoveStep = 1.0

type EventType string

const (
	EventQuestion EventType = "question"
	EventPointer  EventType = "pointer"
	EventVerdict  EventType = "verdict"
	EventScore    EventType = "score"
	EventEnd      EventType = "end"
)

// Event is a render command pushed to the room's clients.
type Event struct {
	Type    EventType  `json:"type"`
	Name    string     `json:"name,omitempty"`
	Hint    string     `json:"hint,omitempty"`
	Pointer *geo.Point `json:"pointer,omitempty"`
	Correct *bool      `json:"correct,omitempty"`
	Answer  *geo.Point `json:"answer,omitempty"`
	Score   int        `json:"score"`
}

// Result is reported once per finished session.
type Result struct {
	RoomID     string
	Score      int
	Total      int
	FinishedAt time.Time
}

type Options struct {
	Quiz     quiz.Config
	MoveStep float64
	Publish  func(roomID string, e Event)
	OnFinish func(Result)
	Logger   *slog.Logger
	Rand     *rand.Rand
}

type Room struct {
	ID    string
	Inbox chan any

	ctrl       *quiz.Controller
	step       float64
	total      int
	publish    func(roomID string, e Event)
	onFinish   func(Result)
	logger     *slog.Logger
	quit       chan struct{}
	stopOnce   sync.Once
	lastActive atomic.Int64
}

// New builds a room with its first question already asked. Call Run to
// start processing the inbox.
func New(id string, opts Options) (*Room, error) {
	if opts.MoveStep <= 0 {
		opts.MoveStep = DefaultMoveStep
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Room{
		ID:       id,
		Inbox:    make(chan any, 64),
		step:     opts.MoveStep,
		total:    len(opts.Quiz.Regions),
		publish:  opts.Publish,
		onFinish: opts.OnFinish,
		logger:   opts.Logger.With("room_id", id),
		quit:     make(chan struct{}),
	}

	ctrl, err := quiz.New(opts.Quiz, renderer{r}, scheduler{r}, opts.Rand)
	if err != nil {
		return nil, err
	}
	r.ctrl = ctrl
	r.touch()
	r.ctrl.Start()
	return r, nil
}

func (r *Room) Run() {
	for {
		select {
		case <-r.quit:
			r.ctrl.Stop()
			return
		case msg := <-r.Inbox:
			r.handle(msg)
		}
	}
}

func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done is closed once the room stops.
func (r *Room) Done() <-chan struct{} {
	return r.quit
}

// LastActive is the time of the latest player command.
func (r *Room) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

func (r *Room) touch() {
	r.lastActive.Store(time.Now().UnixNano())
}

func (r *Room) handle(msg any) {
	switch c := msg.(type) {
	case Move:
		r.touch()
		step := c.Step
		if step == 0 {
			step = r.step
		}
		applied := r.ctrl.MovePointer(c.Direction, step)
		c.Reply <- Reply{Applied: applied, View: r.ctrl.View()}
	case Place:
		r.touch()
		applied := r.ctrl.SetPointer(c.Point)
		c.Reply <- Reply{Applied: applied, View: r.ctrl.View()}
	case Confirm:
		r.touch()
		_, applied := r.ctrl.Confirm()
		c.Reply <- Reply{Applied: applied, View: r.ctrl.View()}
	case Restart:
		r.touch()
		r.ctrl.Restart()
		r.logger.Debug("session restarted")
		c.Reply <- Reply{Applied: true, View: r.ctrl.View()}
	case Observe:
		c.Reply <- Reply{View: r.ctrl.View()}
	case settle:
		c.fn()
	default:
		r.logger.Warn("unknown room command", "type", fmt.Sprintf("%T", msg))
	}
}

func (r *Room) Move(ctx context.Context, d chizuquiz.Direction, step float64) (Reply, error) {
	reply := make(chan Reply, 1)
	return r.send(ctx, Move{Direction: d, Step: step, Reply: reply}, reply)
}

func (r *Room) Place(ctx context.Context, p geo.Point) (Reply, error) {
	reply := make(chan Reply, 1)
	return r.send(ctx, Place{Point: p, Reply: reply}, reply)
}

func (r *Room) Confirm(ctx context.Context) (Reply, error) {
	reply := make(chan Reply, 1)
	return r.send(ctx, Confirm{Reply: reply}, reply)
}

func (r *Room) Restart(ctx context.Context) (Reply, error) {
	reply := make(chan Reply, 1)
	return r.send(ctx, Restart{Reply: reply}, reply)
}

func (r *Room) Observe(ctx context.Context) (quiz.View, error) {
	reply := make(chan Reply, 1)
	rep, err := r.send(ctx, Observe{Reply: reply}, reply)
	return rep.View, err
}

func (r *Room) send(ctx context.Context, msg any, reply <-chan Reply) (Reply, error) {
	select {
	case <-r.quit:
		return Reply{}, ErrClosed
	default:
	}

	select {
	case r.Inbox <- msg:
	case <-r.quit:
		return Reply{}, ErrClosed
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case rep := <-reply:
		return rep, nil
	case <-r.quit:
		return Reply{}, ErrClosed
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (r *Room) emit(e Event) {
	if r.publish != nil {
		r.publish(r.ID, e)
	}
}

// renderer turns controller display commands into events.
type renderer struct{ r *Room }

func (x renderer) RenderQuestion(name, hint string) {
	x.r.emit(Event{Type: EventQuestion, Name: name, Hint: hint})
}

func (x renderer) RenderPointer(p geo.Point) {
	x.r.emit(Event{Type: EventPointer, Pointer: &p})
}

func (x renderer) RenderVerdict(correct bool, answer geo.Point, score int) {
	x.r.emit(Event{Type: EventVerdict, Correct: &correct, Answer: &answer, Score: score})
}

func (x renderer) RenderScore(score int) {
	x.r.emit(Event{Type: EventScore, Score: score})
}

func (x renderer) RenderSessionEnd(score int) {
	x.r.emit(Event{Type: EventEnd, Score: score})
	x.r.logger.Info("session finished", "score", score, "total", x.r.total)
	if x.r.onFinish != nil {
		x.r.onFinish(Result{
			RoomID:     x.r.ID,
			Score:      score,
			Total:      x.r.total,
			FinishedAt: time.Now().UTC(),
		})
	}
}

// scheduler posts elapsed timers into the inbox so the callback runs on
// the room goroutine.
type scheduler struct{ r *Room }

func (s scheduler) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, func() {
		select {
		case s.r.Inbox <- settle{fn: fn}:
		case <-s.r.quit:
		}
	})
	return func() { t.Stop() }
}
