package forum

import (
	"context"
	"sync"
	"time"

	"launchpad/internal/metrics"
)

const (
	syncQueueSize = 1000
	syncBatchSize = 50
)

// counterSync writes optimistic counter values back to the store. One worker
// per board serializes the writes; a post queued several times before the
// worker reaches it is written once with its latest local value.
type counterSync struct {
	board    *Board
	interval time.Duration

	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex

	flush   chan chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newCounterSync(b *Board, interval time.Duration) *counterSync {
	s := &counterSync{
		board:    b,
		interval: interval,
		queue:    make(chan uint, syncQueueSize),
		pending:  make(map[uint]bool),
		flush:    make(chan chan struct{}),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// Schedule queues a write of post id. It never blocks.
func (s *counterSync) Schedule(id uint) {
	s.mu.Lock()
	if s.pending[id] {
		s.mu.Unlock()
		return
	}
	s.pending[id] = true
	s.mu.Unlock()

	select {
	case <-s.done:
		s.unmark(id)
		s.board.dropWrite(id)
		return
	default:
	}

	select {
	case s.queue <- id:
		select {
		case <-s.done:
			// Close may have drained the queue before id arrived. Once the
			// worker is gone nobody else will read it.
			<-s.stopped
			s.processBatch(s.drain(nil))
		default:
		}
	default:
		s.unmark(id)
		metrics.CounterSyncDropped.Inc()
		s.board.log.WithField("post_id", id).Warn("counter sync queue full, write dropped")
		s.board.dropWrite(id)
	}
}

func (s *counterSync) unmark(id uint) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *counterSync) worker() {
	defer close(s.stopped)

	batch := make([]uint, 0, syncBatchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= syncBatchSize {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case reply := <-s.flush:
			batch = s.drain(batch)
			s.processBatch(batch)
			batch = batch[:0]
			close(reply)
		case <-s.done:
			s.processBatch(s.drain(batch))
			return
		}
	}
}

// drain moves everything already queued into batch.
func (s *counterSync) drain(batch []uint) []uint {
	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
		default:
			return batch
		}
	}
}

func (s *counterSync) processBatch(ids []uint) {
	for _, id := range ids {
		// Unmark before reading the value: an increment racing with this
		// write queues the post again instead of being lost.
		s.unmark(id)
		s.write(id)
	}
}

func (s *counterSync) write(id uint) {
	patch, seq, ok := s.board.pendingWrite(id)
	if !ok {
		return
	}
	metrics.CounterSyncWrites.Inc()
	err := s.board.store.UpdatePost(context.Background(), id, patch)
	s.board.settleWrite(id, seq, err)
}

// Flush waits until every write queued before the call has been attempted.
func (s *counterSync) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case s.flush <- reply:
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the worker.
func (s *counterSync) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}
