package session

import (
	"time"

	"github.com/questdeck/questdeck/internal/domain"
)

// actionQueue buffers validated requests that arrive while the GM is away.
// It is owned by a single session actor and never touched concurrently, so
// it needs no locking. Contents are in-memory only: a process restart while
// draining is outstanding drops them, a documented trade-off.
type actionQueue struct {
	items []domain.QueuedAction
}

func newActionQueue() *actionQueue {
	return &actionQueue{}
}

// Enqueue appends a request with its enqueue timestamp.
func (q *actionQueue) Enqueue(req domain.GameActionRequest) domain.QueuedAction {
	qa := domain.QueuedAction{Request: req, EnqueuedAt: time.Now().UTC()}
	q.items = append(q.items, qa)
	return qa
}

// DrainAll removes and returns every queued action in enqueue order.
func (q *actionQueue) DrainAll() []domain.QueuedAction {
	drained := q.items
	q.items = nil
	return drained
}

// Len reports the number of buffered actions.
func (q *actionQueue) Len() int {
	return len(q.items)
}
