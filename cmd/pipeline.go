package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/fakeyudi/aurasync/internal/clock"
	"github.com/fakeyudi/aurasync/internal/collector"
	"github.com/fakeyudi/aurasync/internal/delivery"
	"github.com/fakeyudi/aurasync/internal/profile"
	"github.com/fakeyudi/aurasync/internal/session"
	"github.com/fakeyudi/aurasync/internal/signal"
)

// flushTimeout bounds how long a command waits for queued heartbeats on
// exit.
const flushTimeout = 5 * time.Second

// pipeline is one collector wired to the HTTP sender for the current
// config and profile.
type pipeline struct {
	env       *collector.HostEnv
	queue     *delivery.Queue
	collector *collector.Collector

	mu     sync.Mutex
	status *session.Status
}

// sourceFunc builds the signal sources for a pipeline once its host
// environment exists.
type sourceFunc func(env *collector.HostEnv) []signal.Source

func newPipeline(workDir string, sources sourceFunc) *pipeline {
	clk := clock.Real{}
	env := collector.NewHostEnv(workDir, cfg.ProjectName, cfg.HostVersion, logger)
	status := session.NewStatus(workDir, time.Now())
	status.User = profile.ResolveIdentity(cfg.User, activeProfile, profile.Lookup{
		GitEmail: func() string { return collector.GitUserEmail(workDir, nil) },
	})
	status.Project = env.ProductName()

	sender := delivery.NewHTTPSender(delivery.HTTPConfig{
		Endpoint:  cfg.Endpoint,
		APIKey:    cfg.APIKey,
		User:      status.User,
		Project:   status.Project,
		SessionID: status.ID,
		Timeout:   cfg.SendTimeout,
	}, nil, logger)
	if !sender.Configured() {
		logger.Info("no endpoint or api key configured; heartbeats will not be sent")
	}
	queue := delivery.NewQueue(sender, delivery.Options{Pace: cfg.SendPace, Clock: clk}, logger)

	var srcs []signal.Source
	if sources != nil {
		srcs = sources(env)
	}
	c := collector.New(collector.Deps{
		Clock:   clk,
		Env:     env,
		Queue:   queue,
		Sources: srcs,
		Logger:  logger,
		Options: collectorOptions(),
	})
	return &pipeline{env: env, queue: queue, collector: c, status: status}
}

func collectorOptions() collector.Options {
	return collector.Options{
		Debounce:        cfg.Debounce,
		ProjectDebounce: cfg.ProjectDebounce,
		Session: session.Options{
			PollInterval:        cfg.PollInterval,
			InactivityThreshold: cfg.InactivityThreshold,
			ContextRefresh:      cfg.ContextRefresh,
		},
	}
}

// snapshot refreshes the status record from the live counters and returns
// a copy of it.
func (p *pipeline) snapshot() session.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	eng := p.collector.Session()
	cs := p.collector.Stats()
	qs := p.queue.Stats()

	s := p.status
	s.UpdatedAt = now
	s.State = eng.State().String()
	s.Active = eng.Active(now)
	s.Branch = eng.Branch()
	s.LastActivity = eng.LastActivity()
	s.Emitted = cs.Emitted
	s.Suppressed = cs.Suppressed
	s.Tags = cs.Tags
	s.Enqueued = qs.Enqueued
	s.Pending = qs.Pending
	s.Outcomes = make(map[string]int64, len(qs.Outcomes))
	for o, n := range qs.Outcomes {
		if n > 0 {
			s.Outcomes[o.String()] = n
		}
	}
	return *s
}

// flush waits a bounded time for the queue to drain.
func (p *pipeline) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := p.queue.Flush(ctx); err != nil {
		logger.Warn("heartbeats still pending at exit", "pending", p.queue.Len(), "error", err)
	}
}
