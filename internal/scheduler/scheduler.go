// Package scheduler arms weighted daily production slots and drives the
// pipeline at the picked times.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/techcuan/cuanbot/internal/config"
	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/metrics"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer abstracts time.Timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time        { return r.t.C }
func (r *realTimer) Stop() bool                 { return r.t.Stop() }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

// RunFunc executes one production cycle.
type RunFunc func(ctx context.Context) error

// Notifier delivers operator messages; nil disables notifications.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

const (
	baseBackoff = 5 * time.Minute
	maxBackoff  = time.Hour
)

// Scheduler arms PerDay slots per day, drawn from the weighted activity table
// with ±Jitter, and runs the pipeline when each slot fires. A failed run is
// retried once after an exponential backoff before the next armed slot.
type Scheduler struct {
	Hours    []config.HourWeight
	PerDay   int
	Location *time.Location
	Jitter   time.Duration

	run    RunFunc
	notify Notifier
	clock  Clock
	rand   *rand.Rand
	logger *zerolog.Logger

	mu       sync.Mutex
	slots    []time.Time
	failures int
}

// New creates a scheduler. Pass a non-nil clock/rng for deterministic tests.
func New(hours []config.HourWeight, perDay int, loc *time.Location, run RunFunc, notify Notifier, clock Clock, rng *rand.Rand) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Hours:    hours,
		PerDay:   perDay,
		Location: loc,
		Jitter:   30 * time.Minute,
		run:      run,
		notify:   notify,
		clock:    clock,
		rand:     rng,
		logger:   log.WithComponent("scheduler"),
	}
}

// Start begins the scheduling loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Upcoming returns the currently armed slot times, soonest first.
func (s *Scheduler) Upcoming() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.slots...)
}

func (s *Scheduler) loop(ctx context.Context) {
	s.logger.Info().Str("event", "scheduler.started").Int("per_day", s.PerDay).Msg("scheduler started")

	s.armDay(ctx)
	timer := s.clock.NewTimer(s.untilNext())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("event", "scheduler.stopped").Msg("scheduler stopped")
			return

		case <-timer.C():
			if slot, due := s.popDue(); due {
				s.execute(ctx, slot)
			}
			if len(s.Upcoming()) == 0 {
				s.armDay(ctx)
			}
			timer.Reset(s.untilNext())
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, slot time.Time) {
	s.logger.Info().
		Str("event", "scheduler.fire").
		Str("slot", slot.In(s.Location).Format("15:04")).
		Msg("scheduled production starting")

	if err := s.run(ctx); err != nil {
		s.mu.Lock()
		s.failures++
		shift := s.failures - 1
		if shift > 4 {
			shift = 4
		}
		backoff := baseBackoff << shift
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		retry := s.clock.Now().Add(backoff)
		s.slots = append(s.slots, retry)
		sort.Slice(s.slots, func(i, j int) bool { return s.slots[i].Before(s.slots[j]) })
		s.mu.Unlock()

		s.logger.Error().
			Err(err).
			Str("event", "scheduler.run_failed").
			Dur("retry_in", backoff).
			Msg("scheduled run failed, retry armed")
		return
	}

	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

// armDay draws PerDay weighted slots and announces them.
func (s *Scheduler) armDay(ctx context.Context) {
	now := s.clock.Now().In(s.Location)

	slots := make([]time.Time, 0, s.PerDay)
	for i := 0; i < s.PerDay; i++ {
		slots = append(slots, s.pickSlot(now))
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })

	s.mu.Lock()
	s.slots = slots
	s.mu.Unlock()

	metrics.RecordSchedulesArmed(len(slots))
	for _, slot := range slots {
		local := slot.In(s.Location).Format("15:04")
		s.logger.Info().Str("event", "scheduler.armed").Str("slot", local).Msg("production slot armed")
		if s.notify != nil {
			if err := s.notify.Send(ctx, fmt.Sprintf("🕒 Konten dijadwalkan pada %s WIB", local)); err != nil {
				s.logger.Warn().Err(err).Msg("schedule notification failed")
			}
		}
	}
}

// pickSlot draws one activity-table entry by weight and jitters it. Slots in
// the past roll over to the next day.
func (s *Scheduler) pickSlot(now time.Time) time.Time {
	var total float64
	for _, hw := range s.Hours {
		total += hw.Weight
	}

	r := s.float64() * total
	chosen := s.Hours[len(s.Hours)-1]
	for _, hw := range s.Hours {
		if r < hw.Weight {
			chosen = hw
			break
		}
		r -= hw.Weight
	}

	jitterMinutes := s.intn(int(2*s.Jitter.Minutes())+1) - int(s.Jitter.Minutes())
	slot := time.Date(now.Year(), now.Month(), now.Day(), chosen.Hour, chosen.Minute, 0, 0, s.Location).
		Add(time.Duration(jitterMinutes) * time.Minute)
	if !slot.After(now) {
		slot = slot.Add(24 * time.Hour)
	}
	return slot
}

// untilNext returns the wait until the soonest slot, with a floor so a slot
// armed in the immediate past still fires.
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.slots) == 0 {
		return time.Minute
	}
	d := s.slots[0].Sub(s.clock.Now())
	if d < time.Second {
		d = time.Second
	}
	return d
}

// popDue removes and returns the soonest slot if it is due.
func (s *Scheduler) popDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.slots) == 0 {
		return time.Time{}, false
	}
	if s.slots[0].After(s.clock.Now().Add(time.Second)) {
		return time.Time{}, false
	}
	slot := s.slots[0]
	s.slots = s.slots[1:]
	return slot, true
}

func (s *Scheduler) float64() float64 {
	if s.rand != nil {
		return s.rand.Float64()
	}
	return rand.Float64()
}

func (s *Scheduler) intn(n int) int {
	if s.rand != nil {
		return s.rand.Intn(n)
	}
	return rand.Intn(n)
}
