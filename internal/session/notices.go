package session

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
)

const DefaultNoticeTTL = 2500 * time.Millisecond

type Notice struct {
	Category apperror.Category
	Text     string
}

// Notices holds at most one notice. A new notice replaces the current one, nothing is queued.
type Notices struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu         sync.Mutex
	current    *Notice
	timer      clockwork.Timer
	generation uint64
	observers  []func(*Notice)
}

func NewNotices(clock clockwork.Clock, ttl time.Duration) *Notices {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}

	return &Notices{clock: clock, ttl: ttl}
}

// OnChange - observer receives the new notice, or nil once it was cleared.
func (that *Notices) OnChange(observer func(*Notice)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.observers = append(that.observers, observer)
}

// Show - replaces the current notice and restarts the expiry timer.
func (that *Notices) Show(category apperror.Category) {
	that.show(Notice{Category: category, Text: category.Message()})
}

// ShowError - shows the notice for the category of err. A remote rejection keeps its own message.
func (that *Notices) ShowError(err error) {
	notice := Notice{Category: apperror.CategoryOf(err)}

	var rejection *apperror.Rejection
	if errors.As(err, &rejection) && rejection.Message != "" {
		notice.Text = rejection.Message
	} else {
		notice.Text = notice.Category.Message()
	}

	that.show(notice)
}

func (that *Notices) show(notice Notice) {
	that.mu.Lock()
	if that.timer != nil {
		that.timer.Stop()
	}

	that.generation++
	generation := that.generation
	that.current = &notice
	that.timer = that.clock.AfterFunc(that.ttl, func() { that.expire(generation) })
	observers := that.observersLocked()
	that.mu.Unlock()

	for _, observer := range observers {
		observer(&notice)
	}
}

func (that *Notices) Current() (Notice, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.current == nil {
		return Notice{}, false
	}

	return *that.current, true
}

// Stop - drops the current notice without notifying.
func (that *Notices) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}

	that.generation++
	that.current = nil
}

// expire - a timer from a replaced notice must not clear its successor.
func (that *Notices) expire(generation uint64) {
	that.mu.Lock()
	if generation != that.generation || that.current == nil {
		that.mu.Unlock()
		return
	}

	that.current = nil
	that.timer = nil
	observers := that.observersLocked()
	that.mu.Unlock()

	for _, observer := range observers {
		observer(nil)
	}
}

func (that *Notices) observersLocked() []func(*Notice) {
	observers := make([]func(*Notice), len(that.observers))
	copy(observers, that.observers)

	return observers
}
