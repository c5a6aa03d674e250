package twelvedata

import (
	"fmt"
	"sync"
	"time"

	"aurum/internal/logger"
)

// Usage is a snapshot of the day's request accounting.
type Usage struct {
	Day       string `json:"day"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// Quota counts requests per UTC day against the plan's daily limit. The
// counter lives on the source instance, not in a package global, so tests
// and parallel sources do not share state.
type Quota struct {
	mu     sync.Mutex
	limit  int
	warnAt int
	day    string
	used   int
	now    func() time.Time
}

// NewQuota returns a counter for the given daily limit. The warning log
// fires once at 80% usage.
func NewQuota(limit int) *Quota {
	if limit <= 0 {
		limit = 800
	}
	return &Quota{
		limit:  limit,
		warnAt: limit * 8 / 10,
		now:    time.Now,
	}
}

// Spend consumes one request or fails when the day's budget is gone.
// The counter resets on the first call of each UTC day.
func (q *Quota) Spend() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	today := q.now().UTC().Format("2006-01-02")
	if q.day != today {
		q.day = today
		q.used = 0
	}
	if q.used >= q.limit {
		return fmt.Errorf("twelvedata: daily quota exhausted (%d/%d)", q.used, q.limit)
	}
	q.used++
	if q.used == q.warnAt {
		logger.Warnf("twelvedata quota at %d/%d for %s", q.used, q.limit, q.day)
	}
	return nil
}

// Usage reports the current counters.
func (q *Quota) Usage() Usage {
	q.mu.Lock()
	defer q.mu.Unlock()
	today := q.now().UTC().Format("2006-01-02")
	used := q.used
	if q.day != today {
		used = 0
	}
	return Usage{
		Day:       today,
		Used:      used,
		Limit:     q.limit,
		Remaining: q.limit - used,
	}
}
