package conversation

import (
	"sync"
	"time"
)

// MaxHistoryEntries bounds the rolling history (10 exchanges).
const MaxHistoryEntries = 20

type pair struct {
	exchange Exchange
	user     Turn
	answer   Turn
	seq      uint64
	logged   bool
}

// History is the bounded in-memory record of recent exchanges reused as
// context. Entries are stored as whole pairs, so truncation never splits a
// question from its answer.
type History struct {
	mu       sync.Mutex
	pairs    []pair
	maxPairs int
	seq      uint64
}

// NewHistory returns an empty history holding at most maxEntries turns.
// maxEntries is rounded down to an even count; values below 2 use the default.
func NewHistory(maxEntries int) *History {
	if maxEntries < 2 {
		maxEntries = MaxHistoryEntries
	}
	return &History{maxPairs: maxEntries / 2}
}

// Append records an answered question and drops the oldest pairs past the
// cap. logged marks exchanges already written to a session log. It returns
// the resulting entry count.
func (h *History) Append(ex Exchange, logged bool) int {
	if ex.At.IsZero() {
		ex.At = time.Now().UTC()
	}
	p := pair{
		exchange: ex,
		user:     Turn{Role: RoleUser, Content: HistoryText(ex.Question, ex.HadScreenshot)},
		answer:   Turn{Role: RoleAssistant, Content: ex.Response},
		logged:   logged,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	p.seq = h.seq
	h.pairs = append(h.pairs, p)
	if over := len(h.pairs) - h.maxPairs; over > 0 {
		h.pairs = append([]pair(nil), h.pairs[over:]...)
	}
	return len(h.pairs) * 2
}

// Turns returns a copy of the history as alternating user/assistant turns,
// oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, 0, len(h.pairs)*2)
	for _, p := range h.pairs {
		out = append(out, p.user, p.answer)
	}
	return out
}

// Len returns the number of turns held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pairs) * 2
}

// Unlogged returns exchanges not yet written to a session log, oldest first,
// and a mark to pass to MarkLogged once they are persisted. Nothing changes
// until MarkLogged is called.
func (h *History) Unlogged() ([]Exchange, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var (
		out     []Exchange
		through uint64
	)
	for _, p := range h.pairs {
		if p.logged {
			continue
		}
		out = append(out, p.exchange)
		through = p.seq
	}
	return out, through
}

// MarkLogged flags every exchange appended up to and including mark as
// written to a session log.
func (h *History) MarkLogged(mark uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.pairs {
		if h.pairs[i].seq <= mark {
			h.pairs[i].logged = true
		}
	}
}

// Clear drops every entry.
func (h *History) Clear() {
	h.mu.Lock()
	h.pairs = nil
	h.mu.Unlock()
}
