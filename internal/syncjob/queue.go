package syncjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/config"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

const (
	nakBaseDelay = 30 * time.Second
	nakMaxDelay  = 5 * time.Minute
	fetchWait    = 5 * time.Second
)

// Runner executes one sync run. Implemented by usecase.Syncer.
type Runner interface {
	SyncFromProvider(ctx context.Context) (int, error)
}

// TriggerPayload is the body of a queued sync trigger.
type TriggerPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// redeliveryAction is the fate of a consumed trigger.
type redeliveryAction int

const (
	actionAck      redeliveryAction = iota // run succeeded
	actionDrop                             // terminal failure or retries exhausted, ACK and drop
	actionNakDelay                         // retryable failure, NAK with backoff delay
)

// decideRedelivery picks the ack action for a finished run. Retryable errors
// NAK with exponential delay until MaxDeliver; everything else is dropped so
// a poisoned trigger cannot wedge the work queue.
func decideRedelivery(err error, delivered uint64, maxDeliver int) (redeliveryAction, time.Duration) {
	if err == nil {
		return actionAck, 0
	}
	if !apperrors.IsRetryable(err) || delivered >= uint64(maxDeliver) {
		return actionDrop, 0
	}

	delay := nakBaseDelay
	if delivered > 1 {
		delay = nakBaseDelay * (1 << (delivered - 1))
	}
	if delay > nakMaxDelay {
		delay = nakMaxDelay
	}
	return actionNakDelay, delay
}

// Queue owns the sync trigger work queue: a single-subject JetStream stream
// with a durable pull consumer. MaxAckPending of 1 serializes runs across
// every replica of the service.
type Queue struct {
	client *Client
	runner Runner
	cfg    config.NATSConfig
	sub    *nats.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue creates a queue on an established client.
func NewQueue(client *Client, runner Runner, cfg config.NATSConfig) *Queue {
	return &Queue{
		client: client,
		runner: runner,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// Setup ensures the stream and the durable consumer exist.
func (q *Queue) Setup(ctx context.Context) error {
	streamCfg := &nats.StreamConfig{
		Name:      q.cfg.Stream,
		Subjects:  []string{q.cfg.Subject},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
	}
	if err := q.client.SetupStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("failed to setup sync stream: %w", err)
	}

	consumerCfg := &nats.ConsumerConfig{
		Durable:       q.cfg.Consumer,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       q.cfg.AckWait,
		MaxDeliver:    q.cfg.MaxDeliver,
		MaxAckPending: 1,
		FilterSubject: q.cfg.Subject,
	}
	if err := q.client.SetupConsumer(ctx, q.cfg.Stream, consumerCfg); err != nil {
		return fmt.Errorf("failed to setup sync consumer: %w", err)
	}
	return nil
}

// Enqueue publishes a sync trigger.
func (q *Queue) Enqueue(payload TriggerPayload) error {
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = utils.Now()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sync trigger: %w", err)
	}
	headers := map[string]string{"Nats-Msg-Id": uuid.NewString()}
	return q.client.Publish(q.cfg.Subject, data, headers)
}

// Start binds the pull subscription and consumes triggers until Stop.
func (q *Queue) Start() error {
	sub, err := q.client.Subscribe(q.cfg.Stream, q.cfg.Subject, q.cfg.Consumer)
	if err != nil {
		return err
	}
	q.sub = sub

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	utils.SafeGo(func() {
		defer close(q.done)
		q.consumeLoop(ctx)
	}, nil)

	logger.Log.Info("Sync job consumer started",
		zap.String("stream", q.cfg.Stream),
		zap.String("subject", q.cfg.Subject),
		zap.String("consumer", q.cfg.Consumer),
	)
	return nil
}

func (q *Queue) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := q.sub.Fetch(1, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Log.Warn("Sync trigger fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range msgs {
			q.handle(ctx, msg)
		}
	}
}

// handle runs one sync trigger end to end.
func (q *Queue) handle(ctx context.Context, msg *nats.Msg) {
	runID := uuid.NewString()
	log := logger.Log.Named("syncjob").With(zap.String("run_id", runID))
	runCtx := logger.WithLogger(ctx, log)
	start := utils.Now()

	var payload TriggerPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Warn("Dropping malformed sync trigger", zap.Error(err))
		q.ack(msg, log)
		return
	}
	log.Info("Sync trigger received",
		zap.String("requested_by", payload.RequestedBy),
		zap.String("reason", payload.Reason),
	)

	total, runErr := q.runner.SyncFromProvider(runCtx)

	delivered := uint64(1)
	if metadata, err := msg.Metadata(); err == nil {
		delivered = metadata.NumDelivered
	}

	action, delay := decideRedelivery(runErr, delivered, q.cfg.MaxDeliver)
	switch action {
	case actionAck:
		log.Info("Sync trigger processed",
			zap.Int("records_upserted", total),
			zap.Duration("duration", time.Since(start)),
		)
		q.ack(msg, log)

	case actionNakDelay:
		log.Warn("Sync run failed, NAKing trigger for redelivery",
			zap.Error(runErr),
			zap.Uint64("num_delivered", delivered),
			zap.Int("max_deliver", q.cfg.MaxDeliver),
			zap.Duration("nak_delay", delay),
		)
		if err := msg.NakWithDelay(delay); err != nil {
			log.Error("Failed to NAK sync trigger", zap.Error(err))
		}

	case actionDrop:
		log.Error("Dropping sync trigger",
			zap.Error(runErr),
			zap.Uint64("num_delivered", delivered),
			zap.Int("max_deliver", q.cfg.MaxDeliver),
		)
		q.ack(msg, log)
	}
}

func (q *Queue) ack(msg *nats.Msg, log *zap.Logger) {
	if err := msg.Ack(); err != nil {
		log.Error("Failed to ACK sync trigger", zap.Error(err))
	}
}

// Stop drains the subscription and waits for the consume loop to exit.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	if q.sub != nil {
		if err := q.sub.Drain(); err != nil {
			logger.Log.Error("Error draining sync subscription", zap.Error(err))
		}
	}
	select {
	case <-q.done:
	case <-time.After(fetchWait + time.Second):
		logger.Log.Warn("Timed out waiting for sync consumer to stop")
	}
}
