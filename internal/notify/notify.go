// Package notify queues user-facing messages for the page to show.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Level distinguishes blocking alerts from auto-dismissing toasts.
type Level string

const (
	LevelAlert Level = "alert"
	LevelToast Level = "toast"
)

// ToastTTL is how long a toast stays on screen.
const ToastTTL = 3 * time.Second

// Notifier is the notification surface the controller talks to.
type Notifier interface {
	// Alert shows a message the user must dismiss.
	Alert(msg string)
	// Toast shows a message that disappears on its own.
	Toast(msg string)
}

// Notification is one queued message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	TTLMs   int64     `json:"ttl_ms,omitempty"`
}

// Center collects notifications until the page drains them.
type Center struct {
	mu      sync.Mutex
	pending []Notification
	log     *slog.Logger
	now     func() time.Time
}

func NewCenter(log *slog.Logger) *Center {
	return &Center{log: log, now: time.Now}
}

func (c *Center) Alert(msg string) {
	c.log.Warn("alert", "message", msg)
	c.push(Notification{Level: LevelAlert, Message: msg})
}

func (c *Center) Toast(msg string) {
	c.log.Info("toast", "message", msg)
	c.push(Notification{Level: LevelToast, Message: msg, TTLMs: ToastTTL.Milliseconds()})
}

func (c *Center) push(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n.At = c.now()
	c.pending = append(c.pending, n)
}

// Drain returns the queued notifications in order and empties the queue.
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
