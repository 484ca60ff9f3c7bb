package audio

import (
	"log/slog"
	"sync"
)

// Saver persists one labelled PCM buffer.
type Saver interface {
	Save(pcm []byte, label string)
}

type saveJob struct {
	pcm   []byte
	label string
}

// RecorderQueue moves debug writes off the audio path: Enqueue never blocks,
// and a single worker performs the saves in submission order.
type RecorderQueue struct {
	saver  Saver
	logger *slog.Logger
	jobs   chan saveJob

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRecorderQueue starts the worker. size bounds the number of pending saves.
func NewRecorderQueue(saver Saver, size int, logger *slog.Logger) *RecorderQueue {
	if size <= 0 {
		size = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &RecorderQueue{
		saver:  saver,
		logger: logger,
		jobs:   make(chan saveJob, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *RecorderQueue) run() {
	defer close(q.done)
	for job := range q.jobs {
		q.saver.Save(job.pcm, job.label)
	}
}

// Enqueue schedules a save. It reports false when the queue is full or closed;
// the buffer is dropped in that case.
func (q *RecorderQueue) Enqueue(pcm []byte, label string) bool {
	if q == nil || len(pcm) == 0 {
		return false
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	select {
	case q.jobs <- saveJob{pcm: pcm, label: label}:
		return true
	default:
		q.logger.Warn("debug recorder queue full, dropping buffer", "label", label, "bytes", len(pcm))
		return false
	}
}

// Close stops accepting work and waits for pending saves to finish.
func (q *RecorderQueue) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.done
}
