package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	"spacetraveling/internal/logger"
)

// Scheduler 는 cron 표현식(예: "@every 30m")으로 주기 작업을 돌린다.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Add 는 ctx 가 살아 있는 동안 spec 주기로 job 을 실행하도록 등록한다.
func (s *Scheduler) Add(ctx context.Context, name, spec string, job func(ctx context.Context) error) error {
	run := func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		err := job(ctx)
		fields := logger.Fields{"task": name, "duration": time.Since(start).String()}
		if err != nil {
			fields["error"] = err.Error()
			logger.ErrorWithFields("scheduled task failed", fields)
			return
		}
		logger.DebugWithFields("scheduled task finished", fields)
	}

	if _, err := s.cron.AddFunc(spec, recoveryWrapper(name, run)); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	logger.InfoWithFields("task scheduled", logger.Fields{"task": name, "spec": spec})
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 은 새 실행을 막고, 진행 중인 작업이 끝날 때까지 기다린다.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func recoveryWrapper(name string, job func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorWithFields("scheduled task panicked", logger.Fields{
					"task":  name,
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				})
			}
		}()
		job()
	}
}
