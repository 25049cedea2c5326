package syncjob

import (
	"time"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// Scheduler enqueues a sync trigger on a fixed interval. The queue's
// MaxAckPending of 1 keeps overlapping triggers from running concurrently,
// so a slow run simply delays the next one.
type Scheduler struct {
	interval time.Duration
	enqueue  func(TriggerPayload) error
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler. An interval of zero disables it.
func NewScheduler(interval time.Duration, enqueue func(TriggerPayload) error) *Scheduler {
	return &Scheduler{
		interval: interval,
		enqueue:  enqueue,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. The first trigger fires immediately so a
// fresh deployment has data before the first interval elapses.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		logger.Log.Info("Periodic sync disabled")
		close(s.done)
		return
	}

	logger.Log.Info("Periodic sync scheduled", zap.Duration("interval", s.interval))
	utils.SafeGo(func() {
		defer close(s.done)

		s.trigger()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.trigger()
			case <-s.stop:
				return
			}
		}
	}, nil)
}

func (s *Scheduler) trigger() {
	err := s.enqueue(TriggerPayload{
		RequestedBy: "scheduler",
		Reason:      "periodic",
		RequestedAt: utils.Now(),
	})
	if err != nil {
		logger.Log.Warn("Failed to enqueue periodic sync trigger", zap.Error(err))
	}
}

// Stop halts the ticker loop.
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}
