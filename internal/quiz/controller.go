// Package quiz implements the map quiz session state machine.
//
// A Controller owns exactly one Session at a time. It reacts to discrete
// input (pointer steps, pointer placement, confirm, restart) and describes
// the desired display through a Renderer. The pause between a verdict and
// the next question is delegated to a Scheduler; a generation counter makes
// sure a callback scheduled for an earlier session never touches a newer one.
//
// A Controller is not safe for concurrent use. Hosts serialize every call,
// including the scheduled callbacks, onto one goroutine.
package quiz

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
)

var (
	ErrNoRegions     = errors.New("no regions configured")
	ErrInvalidConfig = errors.New("invalid quiz config")
)

const DefaultSettleDelay = 3 * time.Second

// Renderer receives display commands. Implementations must not call back
// into the Controller.
type Renderer interface {
	RenderQuestion(name, hint string)
	RenderPointer(p geo.Point)
	RenderVerdict(correct bool, answer geo.Point, score int)
	RenderScore(score int)
	RenderSessionEnd(score int)
}

// Scheduler runs fn once after delay. The returned cancel func prevents a
// callback that has not started yet from running.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type Config struct {
	Regions []chizuquiz.Region
	Bounds  geo.Bounds
	// ToleranceKm is used for regions without their own tolerance.
	ToleranceKm float64
	SettleDelay time.Duration
}

func (c Config) validate() error {
	if len(c.Regions) == 0 {
		return ErrNoRegions
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !(c.ToleranceKm > 0) || math.IsInf(c.ToleranceKm, 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %v", ErrInvalidConfig, c.ToleranceKm)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("%w: negative settle delay %v", ErrInvalidConfig, c.SettleDelay)
	}
	for _, r := range c.Regions {
		if !r.Coords.Finite() {
			return fmt.Errorf("%w: region %q has invalid coordinates", ErrInvalidConfig, r.Name)
		}
	}
	return nil
}

// ToleranceFor returns the radius within which a guess for r counts.
func (c Config) ToleranceFor(r chizuquiz.Region) float64 {
	if r.ToleranceKm > 0 {
		return r.ToleranceKm
	}
	return c.ToleranceKm
}

// Session is the mutable state of one play-through.
type Session struct {
	Pointer     geo.Point
	Current     *chizuquiz.Region
	Remaining   []chizuquiz.Region
	Score       int
	Answered    int
	Status      chizuquiz.Status
	Generation  uint64
	LastVerdict *chizuquiz.Verdict
}

type Controller struct {
	cfg   Config
	out   Renderer
	sched Scheduler
	rng   *rand.Rand

	sess         *Session
	generation   uint64
	cancelSettle func()
}

// New validates cfg and returns an idle Controller; call Start to begin.
// A nil rng selects a randomly seeded source.
func New(cfg Config, out Renderer, sched Scheduler, rng *rand.Rand) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	cfg.Regions = slices.Clone(cfg.Regions)
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Controller{cfg: cfg, out: out, sched: sched, rng: rng}, nil
}

func (c *Controller) Config() Config { return c.cfg }

// Start discards any current session and begins a fresh one with the
// first question already asked.
func (c *Controller) Start() {
	c.stopSettle()
	c.generation++
	c.sess = &Session{
		Pointer:    c.cfg.Bounds.Center(),
		Remaining:  slices.Clone(c.cfg.Regions),
		Status:     chizuquiz.StatusPlaying,
		Generation: c.generation,
	}
	c.beginNextRound()
}

// Restart is allowed from every state, including mid-settle.
func (c *Controller) Restart() {
	c.Start()
}

// Stop cancels a pending settle transition. The session stays readable.
func (c *Controller) Stop() {
	c.stopSettle()
	c.generation++
}

// BeginNextRound advances out of the evaluating state ahead of the
// settle timer. It reports false when there is nothing to advance.
func (c *Controller) BeginNextRound() bool {
	if c.sess == nil || c.sess.Status != chizuquiz.StatusEvaluating {
		return false
	}
	c.stopSettle()
	c.beginNextRound()
	return true
}

func (c *Controller) beginNextRound() {
	s := c.sess
	s.Current = nil

	if s.Answered >= len(c.cfg.Regions) || len(s.Remaining) == 0 {
		s.Status = chizuquiz.StatusFinished
		c.out.RenderSessionEnd(s.Score)
		return
	}

	i := c.rng.IntN(len(s.Remaining))
	next := s.Remaining[i]
	last := len(s.Remaining) - 1
	s.Remaining[i] = s.Remaining[last]
	s.Remaining = s.Remaining[:last]

	s.Current = &next
	s.Pointer = c.cfg.Bounds.Center()
	s.Status = chizuquiz.StatusPlaying
	s.LastVerdict = nil

	c.out.RenderQuestion(next.Name, next.Hint)
	c.out.RenderPointer(s.Pointer)
	c.out.RenderScore(s.Score)
}

// MovePointer applies one directional step. Input outside the playing
// state, unknown directions and non-positive steps are ignored.
func (c *Controller) MovePointer(d chizuquiz.Direction, step float64) bool {
	if !c.playing() {
		return false
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return false
	}
	dLat, dLng := d.Delta(step)
	if dLat == 0 && dLng == 0 {
		return false
	}
	c.placePointer(geo.Point{
		Lat: c.sess.Pointer.Lat + dLat,
		Lng: c.sess.Pointer.Lng + dLng,
	})
	return true
}

// SetPointer places the pointer directly, clamped into the bounds.
func (c *Controller) SetPointer(p geo.Point) bool {
	if !c.playing() {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	c.placePointer(p)
	return true
}

func (c *Controller) placePointer(p geo.Point) {
	c.sess.Pointer = c.cfg.Bounds.Clamp(p)
	c.out.RenderPointer(c.sess.Pointer)
}

// Confirm scores the pointer against the current region and schedules the
// next round. A second Confirm before the next round is a no-op.
func (c *Controller) Confirm() (chizuquiz.Verdict, bool) {
	if !c.playing() || c.sess.Current == nil {
		return chizuquiz.Verdict{}, false
	}
	s := c.sess
	region := *s.Current

	d := geo.DistanceKm(s.Pointer, region.Coords)
	correct := geo.IsCorrect(d, c.cfg.ToleranceFor(region))
	if correct {
		s.Score++
	}
	s.Answered++
	s.Status = chizuquiz.StatusEvaluating

	v := chizuquiz.Verdict{
		Correct:    correct,
		DistanceKm: d,
		Answer:     region.Coords,
		Guess:      s.Pointer,
		Score:      s.Score,
	}
	s.LastVerdict = &v

	c.out.RenderVerdict(correct, region.Coords, s.Score)
	c.out.RenderScore(s.Score)

	gen := c.generation
	c.cancelSettle = c.sched.Schedule(c.cfg.SettleDelay, func() {
		if c.generation != gen || c.sess == nil || c.sess.Status != chizuquiz.StatusEvaluating {
			return
		}
		c.cancelSettle = nil
		c.beginNextRound()
	})
	return v, true
}

func (c *Controller) playing() bool {
	return c.sess != nil && c.sess.Status == chizuquiz.StatusPlaying
}

func (c *Controller) stopSettle() {
	if c.cancelSettle != nil {
		c.cancelSettle()
		c.cancelSettle = nil
	}
}

// Session returns a copy of the current session, or false before Start.
func (c *Controller) Session() (Session, bool) {
	if c.sess == nil {
		return Session{}, false
	}
	s := *c.sess
	s.Remaining = slices.Clone(c.sess.Remaining)
	if c.sess.Current != nil {
		cur := *c.sess.Current
		s.Current = &cur
	}
	if c.sess.LastVerdict != nil {
		v := *c.sess.LastVerdict
		s.LastVerdict = &v
	}
	return s, true
}
