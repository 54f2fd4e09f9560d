package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// sequentialIDs yields task-1, task-2, ...
type sequentialIDs struct {
	n atomic.Int64
}

func (g *sequentialIDs) NewID() string {
	return fmt.Sprintf("task-%d", g.n.Add(1))
}

// steppingClock advances by one second on every call.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{now: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// failingPublisher rejects every event.
type failingPublisher struct{}

func (failingPublisher) Publish(domain.LifecycleEvent) error {
	return fmt.Errorf("channel closed")
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (p *recordingPublisher) Publish(ev domain.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) all() []domain.LifecycleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LifecycleEvent(nil), p.events...)
}

// failingDeleteArchive fails Delete, to exercise restore compensation.
type failingDeleteArchive struct {
	domain.ArchiveStore
}

func (failingDeleteArchive) Delete(context.Context, string) error {
	return fmt.Errorf("archive locked")
}

var (
	u1  = domain.Principal{UserID: "u1"}
	u2  = domain.Principal{UserID: "u2"}
	due = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)
