package watch

import (
	"strings"
	"time"
)

// Ticker rotates through frames to show the poll loop is alive. A frozen
// frame means ticks stopped arriving.
type Ticker struct {
	frames   []string
	index    int
	lastTick time.Time
}

func NewTicker() Ticker {
	return Ticker{
		frames:   []string{"⟲", "⟳"},
		lastTick: time.Now(),
	}
}

func (t *Ticker) Tick() {
	t.index = (t.index + 1) % len(t.frames)
	t.lastTick = time.Now()
}

func (t Ticker) Current() string {
	return t.frames[t.index]
}

// maxDots is the spinner width; one dot fades roughly every two seconds.
const maxDots = 5

// Spinner shows delivery activity as a row of dots that lights up on each
// event and fades while the stream is quiet.
type Spinner struct {
	dots      int
	lastEvent time.Time
}

func NewSpinner() Spinner {
	return Spinner{}
}

func (s *Spinner) OnEvent() {
	s.dots = maxDots
	s.lastEvent = time.Now()
}

// Decay dims the spinner according to time since the last event.
func (s *Spinner) Decay() {
	if s.dots == 0 {
		return
	}
	faded := int(time.Since(s.lastEvent) / (2 * time.Second))
	if faded <= 0 {
		return
	}
	s.dots = maxDots - faded
	if s.dots < 0 {
		s.dots = 0
	}
}

func (s Spinner) Render(theme Theme) string {
	var result strings.Builder
	for i := 0; i < maxDots; i++ {
		if i < s.dots {
			result.WriteString(theme.TickerActive.Render("●"))
		} else {
			result.WriteString(theme.TickerInactive.Render("○"))
		}
	}
	return result.String()
}

func (s Spinner) LastEvent() time.Time {
	return s.lastEvent
}
