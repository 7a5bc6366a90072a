// Package soak drives a FairRWLock (or a FairRWLockGroup) with many
// goroutines performing random read and write cycles, checking mutual
// exclusion on every hold and the lock's counters once everyone is done.
package soak

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/fairlock"
)

// ErrInvariant is returned when a worker or the monitor observes a broken
// lock invariant.
var ErrInvariant = errors.New("soak: invariant violated")

// Config describes one soak run.
type Config struct {
	Goroutines int
	Cycles     int
	// WriteRatio is the probability of a cycle taking the write lock.
	WriteRatio float64
	// Hold is how long each cycle keeps the lock.
	Hold time.Duration
	// Keys > 0 spreads cycles over a FairRWLockGroup with that many keys;
	// 0 uses a single FairRWLock.
	Keys int
	Seed uint64
}

func (c Config) validate() error {
	switch {
	case c.Goroutines <= 0:
		return fmt.Errorf("soak: goroutines must be positive, got %d", c.Goroutines)
	case c.Cycles <= 0:
		return fmt.Errorf("soak: cycles must be positive, got %d", c.Cycles)
	case c.WriteRatio < 0 || c.WriteRatio > 1:
		return fmt.Errorf("soak: write ratio must be within [0,1], got %v", c.WriteRatio)
	case c.Keys < 0:
		return fmt.Errorf("soak: keys must not be negative, got %d", c.Keys)
	case c.Hold < 0:
		return fmt.Errorf("soak: hold must not be negative, got %v", c.Hold)
	}
	return nil
}

// Result summarizes a completed run.
type Result struct {
	Reads       int64
	Writes      int64
	PeakReaders int32
	Elapsed     time.Duration
}

type keyedLock interface {
	RLock(k int)
	RUnlock(k int)
	Lock(k int)
	Unlock(k int)
}

type singleLock struct{ rw *fairlock.FairRWLock }

func (l singleLock) RLock(int)   { l.rw.RLock() }
func (l singleLock) RUnlock(int) { l.rw.RUnlock() }
func (l singleLock) Lock(int)    { l.rw.Lock() }
func (l singleLock) Unlock(int)  { l.rw.Unlock() }

type slot struct {
	readers atomic.Int32
	writers atomic.Int32
}

type runner struct {
	cfg   Config
	log   *zap.Logger
	lock  keyedLock
	slots []slot

	reads  atomic.Int64
	writes atomic.Int64
	peak   atomic.Int32
}

// Run executes cfg and returns once every worker has finished, ctx is
// canceled, or an invariant breaks.
func Run(ctx context.Context, cfg Config, log *zap.Logger) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		rw    fairlock.FairRWLock
		group fairlock.FairRWLockGroup[int]
	)
	r := &runner{cfg: cfg, log: log}
	if cfg.Keys == 0 {
		r.lock = singleLock{&rw}
		r.slots = make([]slot, 1)
	} else {
		r.lock = &group
		r.slots = make([]slot, cfg.Keys)
	}

	log.Info("soak started",
		zap.Int("goroutines", cfg.Goroutines),
		zap.Int("cycles", cfg.Cycles),
		zap.Float64("write_ratio", cfg.WriteRatio),
		zap.Duration("hold", cfg.Hold),
		zap.Int("keys", cfg.Keys),
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Goroutines {
		g.Go(func() error {
			return r.worker(gctx, i)
		})
	}

	var monitorErr error
	stop := make(chan struct{})
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if cfg.Keys == 0 {
			monitorErr = monitor(&rw, stop)
		}
	}()

	err := g.Wait()
	close(stop)
	<-monitorDone
	if err == nil {
		err = monitorErr
	}

	res := Result{
		Reads:       r.reads.Load(),
		Writes:      r.writes.Load(),
		PeakReaders: r.peak.Load(),
		Elapsed:     time.Since(start),
	}
	if err != nil {
		log.Error("soak failed", zap.Error(err))
		return res, err
	}

	if cfg.Keys == 0 {
		if s := rw.Snapshot(); s != (fairlock.Snapshot{}) {
			return res, fmt.Errorf("%w: lock not idle at quiescence: %+v", ErrInvariant, s)
		}
		rw.Destroy()
	} else {
		for k := range cfg.Keys {
			if s, ok := group.Snapshot(k); ok {
				return res, fmt.Errorf("%w: key %d still referenced: %+v", ErrInvariant, k, s)
			}
		}
	}

	log.Info("soak finished",
		zap.Int64("reads", res.Reads),
		zap.Int64("writes", res.Writes),
		zap.Int32("peak_readers", res.PeakReaders),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (r *runner) worker(ctx context.Context, id int) error {
	rnd := rand.New(rand.NewPCG(r.cfg.Seed, uint64(id)))
	for range r.cfg.Cycles {
		if err := ctx.Err(); err != nil {
			return err
		}
		k := 0
		if r.cfg.Keys > 0 {
			k = rnd.IntN(r.cfg.Keys)
		}
		var err error
		if rnd.Float64() < r.cfg.WriteRatio {
			err = r.write(k)
		} else {
			err = r.read(k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) read(k int) error {
	s := &r.slots[k]
	r.lock.RLock(k)
	defer r.lock.RUnlock(k)

	n := s.readers.Add(1)
	defer s.readers.Add(-1)
	if w := s.writers.Load(); w != 0 {
		return fmt.Errorf("%w: reader on key %d saw %d writers", ErrInvariant, k, w)
	}
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	r.hold()
	r.reads.Add(1)
	return nil
}

func (r *runner) write(k int) error {
	s := &r.slots[k]
	r.lock.Lock(k)
	defer r.lock.Unlock(k)

	w := s.writers.Add(1)
	defer s.writers.Add(-1)
	if w != 1 {
		return fmt.Errorf("%w: %d writers on key %d", ErrInvariant, w, k)
	}
	if n := s.readers.Load(); n != 0 {
		return fmt.Errorf("%w: writer on key %d saw %d readers", ErrInvariant, k, n)
	}
	r.hold()
	r.writes.Add(1)
	return nil
}

func (r *runner) hold() {
	if r.cfg.Hold > 0 {
		time.Sleep(r.cfg.Hold)
	}
}

// monitor samples rw until stop closes, checking the counters against the
// live queue.
func monitor(rw *fairlock.FairRWLock, stop <-chan struct{}) error {
	t := time.NewTicker(100 * time.Microsecond)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-t.C:
		}
		s := rw.Snapshot()
		if int(s.Queued) != s.QueueLen {
			return fmt.Errorf("%w: queued=%d but queue holds %d", ErrInvariant, s.Queued, s.QueueLen)
		}
		if s.WriteHeld && s.Readers != 0 {
			return fmt.Errorf("%w: write held with %d readers", ErrInvariant, s.Readers)
		}
	}
}
