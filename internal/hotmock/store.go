package hotmock

import (
	"go.uber.org/zap"
)

// MaxStoredSamples is the per-connector queue capacity.
const MaxStoredSamples = 20

// ring is a fixed-capacity FIFO. Pushing into a full ring drops the oldest entry.
type ring[T any] struct {
	buf  [MaxStoredSamples]T
	head int
	n    int
}

func (r *ring[T]) push(v T) {
	if r.n == MaxStoredSamples {
		r.head = (r.head + 1) % MaxStoredSamples
		r.n--
	}
	r.buf[(r.head+r.n)%MaxStoredSamples] = v
	r.n++
}

func (r *ring[T]) pop() T {
	v := r.buf[r.head]
	var zero T
	r.buf[r.head] = zero
	r.head = (r.head + 1) % MaxStoredSamples
	r.n--
	return v
}

func (r *ring[T]) newest() T {
	return r.buf[(r.head+r.n-1)%MaxStoredSamples]
}

func (r *ring[T]) reset() {
	*r = ring[T]{}
}

// Store buffers received values for every connector of one type.
// It is not safe for concurrent use.
type Store[T any] struct {
	kind   ConnectorType
	first  int
	queues []ring[T]
	logger *zap.Logger
}

// NewStore creates an empty store. Call Initialize before use.
func NewStore[T any](kind ConnectorType, logger *zap.Logger) *Store[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store[T]{kind: kind, logger: logger}
}

// Initialize discards all data and sizes the store for count connectors
// numbered from firstID.
func (s *Store[T]) Initialize(count, firstID int) {
	if count < 0 {
		count = 0
	}
	s.first = firstID
	s.queues = make([]ring[T], count)
}

// Clear drops every buffered value but keeps the current sizing.
func (s *Store[T]) Clear() {
	for i := range s.queues {
		s.queues[i].reset()
	}
}

// Count returns the number of connectors the store is sized for.
func (s *Store[T]) Count() int {
	return len(s.queues)
}

func (s *Store[T]) index(id int) (int, bool) {
	i := id - s.first
	if i < 0 || i >= len(s.queues) {
		return 0, false
	}
	return i, true
}

// SetData appends v to the queue of id, evicting the oldest value when full.
func (s *Store[T]) SetData(id int, v T) error {
	i, ok := s.index(id)
	if !ok {
		s.logger.Warn("Buffer write out of range",
			zap.String("type", s.kind.String()),
			zap.Int("id", id))
		return ErrOutOfRange
	}
	s.queues[i].push(v)
	return nil
}

// IsNew reports whether unread values are queued for id.
func (s *Store[T]) IsNew(id int) bool {
	i, ok := s.index(id)
	if !ok {
		s.logger.Warn("Buffer check out of range",
			zap.String("type", s.kind.String()),
			zap.Int("id", id))
		return false
	}
	return s.queues[i].n > 0
}

// Len returns the number of queued values for id.
func (s *Store[T]) Len(id int) int {
	i, ok := s.index(id)
	if !ok {
		return 0
	}
	return s.queues[i].n
}

// NextData pops the oldest queued value of id.
func (s *Store[T]) NextData(id int) (T, bool) {
	var zero T
	i, ok := s.index(id)
	if !ok || s.queues[i].n == 0 {
		return zero, false
	}
	return s.queues[i].pop(), true
}

// LatestData returns the newest queued value of id and discards the rest,
// so readers that only want the current reading skip the backlog.
func (s *Store[T]) LatestData(id int) (T, bool) {
	var zero T
	i, ok := s.index(id)
	if !ok || s.queues[i].n == 0 {
		return zero, false
	}
	v := s.queues[i].newest()
	s.queues[i].reset()
	return v, true
}
