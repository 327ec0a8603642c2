// Package querylog keeps a short, newest-first history of the queries a
// component issued. It is diagnostics only; nothing reads it back as data.
package querylog

import (
	"sync"
	"time"
)

// DefaultCapacity is how many entries the relay and the storefront keep.
const DefaultCapacity = 30

type Kind string

const (
	Select Kind = "SELECT"
	Insert Kind = "INSERT"
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
	Error  Kind = "ERROR"
)

type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Type      Kind      `json:"type"`
}

// Log is a fixed-capacity ring; once full, adding evicts the oldest entry.
type Log struct {
	mu    sync.Mutex
	buf   []Entry
	next  int
	count int
	now   func() time.Time
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Entry, capacity), now: time.Now}
}

func (l *Log) Add(kind Kind, query string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = Entry{Timestamp: l.now(), Query: query, Type: kind}
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// Entries returns a copy, most recent first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, l.count)
	for i := 1; i <= l.count; i++ {
		idx := (l.next - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *Log) Cap() int { return len(l.buf) }
