package quiz

import (
	"github.com/playperu/chizuquiz/internal/chizuquiz"
	"github.com/playperu/chizuquiz/internal/geo"
)

// View is the client-facing snapshot of a session. The current region's
// coordinates only appear through LastVerdict, after a guess is confirmed.
type View struct {
	Status      chizuquiz.Status `json:"status"`
	Generation  uint64           `json:"generation"`
	Pointer     geo.Point        `json:"pointer"`
	Bounds      geo.Bounds       `json:"bounds"`
	Question    *Question        `json:"question"`
	Score       int              `json:"score"`
	Answered    int              `json:"answered"`
	Total       int              `json:"total"`
	Remaining   int              `json:"remaining"`
	LastVerdict *VerdictView     `json:"lastVerdict,omitempty"`
}

type Question struct {
	Name string `json:"name"`
	Hint string `json:"hint"`
}

type VerdictView struct {
	Correct    bool      `json:"correct"`
	DistanceKm float64   `json:"distanceKm"`
	Answer     geo.Point `json:"answer"`
	Guess      geo.Point `json:"guess"`
	Score      int       `json:"score"`
}

func (c *Controller) View() View {
	v := View{
		Bounds: c.cfg.Bounds,
		Total:  len(c.cfg.Regions),
	}
	s := c.sess
	if s == nil {
		v.Pointer = c.cfg.Bounds.Center()
		v.Remaining = len(c.cfg.Regions)
		return v
	}

	v.Status = s.Status
	v.Generation = s.Generation
	v.Pointer = s.Pointer
	v.Score = s.Score
	v.Answered = s.Answered
	v.Remaining = len(s.Remaining)
	if s.Current != nil {
		v.Question = &Question{Name: s.Current.Name, Hint: s.Current.Hint}
	}
	if s.LastVerdict != nil {
		v.LastVerdict = &VerdictView{
			Correct:    s.LastVerdict.Correct,
			DistanceKm: s.LastVerdict.DistanceKm,
			Answer:     s.LastVerdict.Answer,
			Guess:      s.LastVerdict.Guess,
			Score:      s.LastVerdict.Score,
		}
	}
	return v
}
