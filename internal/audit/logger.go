package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry represents an audit log entry for one facade operation.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Operation string            `json:"operation"`
	Code      string            `json:"result_code"`
	KeyID     string            `json:"key_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Logger records operations off the caller's path. Entries are appended to
// an in-memory trail and, when out is set, written as JSON lines.
type Logger struct {
	entries chan Entry
	out     io.Writer

	mu    sync.RWMutex
	trail []Entry

	sendMu sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewLogger starts a logger queueing up to bufferSize entries. out may be
// nil to keep entries in memory only.
func NewLogger(bufferSize int, out io.Writer) *Logger {
	l := &Logger{
		entries: make(chan Entry, bufferSize),
		out:     out,
		done:    make(chan struct{}),
	}
	go l.processLoop()
	return l
}

// Log queues an entry without blocking. Entries are dropped when the buffer
// is full or the logger is closed.
func (l *Logger) Log(operation, code, keyID string, metadata map[string]string) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Code:      code,
		KeyID:     keyID,
		Metadata:  metadata,
	}

	l.sendMu.RLock()
	defer l.sendMu.RUnlock()
	if l.closed {
		slog.Debug("audit logger closed, dropping entry", "operation", operation)
		return
	}
	select {
	case l.entries <- entry:
	default:
		slog.Warn("audit log buffer full, dropping entry", "operation", operation)
	}
}

// Query returns stored entries matching the filter, newest first. Empty
// strings and zero times match everything; limit 0 means no limit.
func (l *Logger) Query(operation, code string, start, end time.Time, limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []Entry
	for i := len(l.trail) - 1; i >= 0; i-- {
		e := l.trail[i]
		if operation != "" && e.Operation != operation {
			continue
		}
		if code != "" && e.Code != code {
			continue
		}
		if !start.IsZero() && e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && e.Timestamp.After(end) {
			continue
		}
		results = append(results, e)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// Close stops accepting entries and waits for queued ones to be written.
// It is safe to call more than once.
func (l *Logger) Close() {
	l.sendMu.Lock()
	if !l.closed {
		l.closed = true
		close(l.entries)
	}
	l.sendMu.Unlock()
	<-l.done
}

func (l *Logger) processLoop() {
	defer close(l.done)

	for entry := range l.entries {
		l.mu.Lock()
		l.trail = append(l.trail, entry)
		l.mu.Unlock()

		if l.out == nil {
			continue
		}
		data, err := json.Marshal(entry)
		if err != nil {
			slog.Error("audit marshal", "error", err)
			continue
		}
		fmt.Fprintf(l.out, "%s\n", data)
	}
}
