/*
Package pool schedules sweep jobs over a bounded set of workers with
retry/backoff. Build and simulate phases both run through it: a sweep over a
large configuration matrix must not launch one simulator process per
configuration at once, and transient simulator failures (license contention,
timeouts) deserve another try.
*/
package pool

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBackoffBase = 2 * time.Second
	defaultBackoffCap  = 60 * time.Second
)

// Job is one unit of work: a named closure. The attempt number (starting at
// 1) is passed in so jobs can log their own retries.
type Job struct {
	Name string
	Run  func(ctx context.Context, attempt int) error
}

// Pool runs jobs with bounded parallelism and per-job retry.
type Pool struct {
	Workers     int           // maximum jobs in flight at once
	Retries     int           // additional attempts after the first failure
	BackoffBase time.Duration // first retry delay, doubled each retry
	BackoffCap  time.Duration // upper bound on the retry delay
	FailFast    bool          // cancel remaining jobs on the first permanent failure
	OnStatus    func(name string, status string)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying, e.g., a build failure that
// will fail identically on every attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Run executes all jobs and blocks until they finish. With FailFast set, the
// first permanent failure cancels the remaining jobs and is returned alone;
// otherwise all failures are collected and returned joined.
func (p *Pool) Run(ctx context.Context, jobs []Job) error {
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	var mu sync.Mutex
	var failures []error
	for _, job := range jobs {
		job := job
		group.Go(func() error {
			err := p.runOne(groupCtx, job)
			if err == nil {
				return nil
			}
			if p.FailFast {
				return err // cancels groupCtx
			}
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return errors.Join(failures...)
}

// runOne runs a single job through its retry budget.
func (p *Pool) runOne(ctx context.Context, job Job) error {
	backoff := p.BackoffBase
	if backoff <= 0 {
		backoff = defaultBackoffBase
	}
	cap := p.BackoffCap
	if cap <= 0 {
		cap = defaultBackoffCap
	}
	var err error
	for attempt := 1; attempt <= p.Retries+1; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = job.Run(ctx, attempt)
		if err == nil {
			return nil
		}
		if isPermanent(err) || errors.Is(err, context.Canceled) {
			return err
		}
		if attempt > p.Retries {
			break
		}
		delay := jitter(backoff)
		slog.Warn("job failed, retrying", slog.String("job", job.Name), slog.Int("attempt", attempt), slog.String("backoff", delay.String()), slog.String("error", err.Error()))
		if p.OnStatus != nil {
			p.OnStatus(job.Name, fmt.Sprintf("retrying in %s (attempt %d failed)", delay.Round(time.Second), attempt))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		backoff = min(backoff*2, cap)
	}
	return fmt.Errorf("job %s failed after %d attempts: %w", job.Name, p.Retries+1, err)
}

// jitter spreads retry delays by ±20% so parallel jobs that fail together
// don't hammer the simulator license server together.
func jitter(d time.Duration) time.Duration {
	spread := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * spread)
}
