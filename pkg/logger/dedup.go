package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultFlushDelay is how long a repeated message waits for more repeats
// before it is written.
const DefaultFlushDelay = 2 * time.Second

// Deduplicator collapses consecutive identical messages into one entry
// carrying a repeat count.
type Deduplicator struct {
	log        *zap.Logger
	flushDelay time.Duration

	mu      sync.Mutex
	lastMsg string
	fields  []zap.Field
	count   int
	timer   *time.Timer
}

func NewDeduplicator(log *zap.Logger, flushDelay time.Duration) *Deduplicator {
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Deduplicator{log: log, flushDelay: flushDelay}
}

// Info records msg. Fields of the latest repeat are the ones written.
func (d *Deduplicator) Info(msg string, fields ...zap.Field) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if msg != d.lastMsg {
		d.flush()
		d.lastMsg = msg
	}
	d.fields = fields
	d.count++

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

// Flush writes any pending message now.
func (d *Deduplicator) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.flush()
}

func (d *Deduplicator) flush() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.log.Info(d.lastMsg, d.fields...)
	} else {
		d.log.Info(d.lastMsg, append(d.fields, zap.Int("repeats", d.count))...)
	}
	d.count = 0
	d.lastMsg = ""
	d.fields = nil
}
