package audio

import (
	"sync"
	"time"
)

// EventKind names a notification channel of the engine
type EventKind string

const (
	EventProgress EventKind = "recordingProgress"
	EventFinished EventKind = "recordingFinished"
	EventError    EventKind = "recordingError"
)

// Notification is an unsolicited message from the engine about the recording at Path
type Notification struct {
	Kind EventKind `json:"kind"`
	Path string    `json:"path"`

	// Error payload
	Code  Code `json:"code,omitempty"`
	Extra int  `json:"extra,omitempty"`

	// Finished payload
	Metadata *RecordingMetadata `json:"metadata,omitempty"`

	// Progress payload
	CurrentTime  time.Duration `json:"current_time,omitempty"`
	CurrentLevel float64       `json:"current_level,omitempty"`
}

// Handler receives notifications. It runs on the publisher's goroutine.
type Handler func(Notification)

// Subscription is a handle for a registered handler
type Subscription interface {
	Cancel()
}

// Notifier delivers engine notifications to subscribers
type Notifier interface {
	Subscribe(kind EventKind, h Handler) Subscription
}

// Feed is an in-process Notifier. Engines publish to it, recorders subscribe.
type Feed struct {
	mutex    sync.RWMutex
	nextID   int
	handlers map[EventKind]map[int]Handler
}

func NewFeed() *Feed {
	return &Feed{handlers: make(map[EventKind]map[int]Handler)}
}

// Subscribe registers h for kind until the returned subscription is cancelled
func (f *Feed) Subscribe(kind EventKind, h Handler) Subscription {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.nextID++
	id := f.nextID
	if f.handlers[kind] == nil {
		f.handlers[kind] = make(map[int]Handler)
	}
	f.handlers[kind][id] = h
	return &feedSubscription{feed: f, kind: kind, id: id}
}

// Publish delivers n to every handler subscribed to n.Kind.
// Handlers are called outside the feed lock so they may subscribe or cancel.
func (f *Feed) Publish(n Notification) {
	f.mutex.RLock()
	handlers := make([]Handler, 0, len(f.handlers[n.Kind]))
	for _, h := range f.handlers[n.Kind] {
		handlers = append(handlers, h)
	}
	f.mutex.RUnlock()

	for _, h := range handlers {
		h(n)
	}
}

// Subscribers returns the number of handlers registered for kind
func (f *Feed) Subscribers(kind EventKind) int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.handlers[kind])
}

type feedSubscription struct {
	feed *Feed
	kind EventKind
	id   int
	once sync.Once
}

func (s *feedSubscription) Cancel() {
	s.once.Do(func() {
		s.feed.mutex.Lock()
		defer s.feed.mutex.Unlock()
		delete(s.feed.handlers[s.kind], s.id)
	})
}
