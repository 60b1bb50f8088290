package notify

import (
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a user-visible toast.
type Notification struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notification)
}

// Recorder buffers notifications until the client drains them.
type Recorder struct {
	mu      sync.Mutex
	pending []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, n)
}

// Drain returns buffered notifications oldest first and empties the buffer.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

func (r *Recorder) Peek() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.pending...)
}

func Info(title, message string) Notification {
	return Notification{Level: LevelInfo, Title: title, Message: message}
}

func Success(title, message string) Notification {
	return Notification{Level: LevelSuccess, Title: title, Message: message}
}

func Error(title, message string) Notification {
	return Notification{Level: LevelError, Title: title, Message: message}
}
