package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcuan/cuanbot/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	return &fakeTimer{ch: make(chan time.Time, 1)}
}

type fakeTimer struct{ ch chan time.Time }

func (t *fakeTimer) C() <-chan time.Time { return t.ch }
func (t *fakeTimer) Stop() bool          { return true }
func (t *fakeTimer) Reset(time.Duration) bool {
	return true
}
func (t *fakeTimer) fire() { t.ch <- time.Time{} }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func activeHours(t *testing.T) []config.HourWeight {
	t.Helper()
	hours, err := config.ParseActiveHours("07:00=0.7,12:00=0.6,19:00=1.0,21:00=0.9,23:00=0.5")
	require.NoError(t, err)
	return hours
}

func jakarta(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	return loc
}

func newTestScheduler(t *testing.T, run RunFunc, notify Notifier, clock Clock) *Scheduler {
	t.Helper()
	return New(activeHours(t), 3, jakarta(t), run, notify, clock, rand.New(rand.NewSource(42)))
}

func TestPickSlotWithinJitterOfTableEntry(t *testing.T) {
	loc := jakarta(t)
	clock := &fakeClock{now: time.Date(2026, 8, 30, 1, 0, 0, 0, loc)}
	s := newTestScheduler(t, nil, nil, clock)

	for i := 0; i < 200; i++ {
		slot := s.pickSlot(clock.Now())
		require.True(t, slot.After(clock.Now()), "slot must be in the future")

		// The slot must sit within ±30min of some table entry.
		withinJitter := false
		for _, hw := range s.Hours {
			anchor := time.Date(slot.Year(), slot.Month(), slot.Day(), hw.Hour, hw.Minute, 0, 0, loc)
			diff := slot.Sub(anchor)
			if diff < 0 {
				diff = -diff
			}
			if diff <= 30*time.Minute {
				withinJitter = true
				break
			}
		}
		assert.True(t, withinJitter, "slot %s not near any table entry", slot)
	}
}

func TestPickSlotRollsPastTimesToNextDay(t *testing.T) {
	loc := jakarta(t)
	// Just before midnight, every table entry today is in the past or near it.
	clock := &fakeClock{now: time.Date(2026, 8, 30, 23, 59, 0, 0, loc)}
	s := newTestScheduler(t, nil, nil, clock)

	for i := 0; i < 50; i++ {
		slot := s.pickSlot(clock.Now())
		assert.True(t, slot.After(clock.Now()))
	}
}

func TestArmDayArmsAndNotifies(t *testing.T) {
	loc := jakarta(t)
	clock := &fakeClock{now: time.Date(2026, 8, 30, 1, 0, 0, 0, loc)}
	notifier := &recordingNotifier{}
	s := newTestScheduler(t, nil, notifier, clock)

	s.armDay(context.Background())

	slots := s.Upcoming()
	require.Len(t, slots, 3)
	for i := 1; i < len(slots); i++ {
		assert.False(t, slots[i].Before(slots[i-1]), "slots must be sorted")
	}
	assert.Equal(t, 3, notifier.count())
}

func TestExecuteFailureArmsRetryWithBackoff(t *testing.T) {
	loc := jakarta(t)
	clock := &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, loc)}
	s := newTestScheduler(t, func(context.Context) error { return errors.New("boom") }, nil, clock)

	s.execute(context.Background(), clock.Now())

	slots := s.Upcoming()
	require.Len(t, slots, 1)
	assert.Equal(t, clock.Now().Add(5*time.Minute).Unix(), slots[0].Unix())

	// Second consecutive failure doubles the backoff.
	s.execute(context.Background(), clock.Now())
	slots = s.Upcoming()
	require.Len(t, slots, 2)
	assert.Equal(t, clock.Now().Add(10*time.Minute).Unix(), slots[1].Unix())
}

func TestExecuteSuccessResetsFailures(t *testing.T) {
	loc := jakarta(t)
	clock := &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, loc)}

	calls := 0
	s := newTestScheduler(t, func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	}, nil, clock)

	s.execute(context.Background(), clock.Now())
	s.execute(context.Background(), clock.Now())
	assert.Equal(t, 0, s.failures)
}

func TestPopDueOnlyReturnsDueSlots(t *testing.T) {
	loc := jakarta(t)
	clock := &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, loc)}
	s := newTestScheduler(t, nil, nil, clock)

	s.mu.Lock()
	s.slots = []time.Time{clock.Now().Add(time.Hour)}
	s.mu.Unlock()

	_, due := s.popDue()
	assert.False(t, due)

	clock.Advance(time.Hour)
	slot, due := s.popDue()
	assert.True(t, due)
	assert.False(t, slot.IsZero())
	assert.Empty(t, s.Upcoming())
}
