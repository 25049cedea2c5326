package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/cache"
	"gitlab.com/voxlane/api/voicedash/internal/config"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/observer"
	"gitlab.com/voxlane/api/voicedash/internal/provider"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// backfillTask asks a pool worker to fetch one conversation's detail and fill
// the phone metadata the list payload lacked. The worker writes only to its
// own index of the shared page slice.
type backfillTask struct {
	ctx   context.Context
	page  []model.Conversation
	index int
	wg    *sync.WaitGroup
}

// Syncer pulls the provider's conversation list into the local store. Runs
// are additive upserts keyed by conversation_id; re-running over the same
// data converges to the same rows. The caller (the job queue consumer)
// serializes runs; the Syncer itself only parallelizes detail backfills.
type Syncer struct {
	convRepo   storage.ConversationRepo
	client     provider.Client
	names      *cache.AgentNameCache
	pool       *ants.PoolWithFunc
	baseLogger *zap.Logger
}

// NewSyncer creates a syncer with a bounded detail-backfill worker pool.
func NewSyncer(
	cfg config.SyncWorkerConfig,
	convRepo storage.ConversationRepo,
	client provider.Client,
	names *cache.AgentNameCache,
	baseLogger *zap.Logger,
) (*Syncer, error) {
	s := &Syncer{
		convRepo:   convRepo,
		client:     client,
		names:      names,
		baseLogger: baseLogger.Named("syncer"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(backfillTask)
		if !ok {
			s.baseLogger.Error("Invalid backfill task type received", zap.Any("data", i))
			return
		}
		s.processBackfill(task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			s.baseLogger.Error("Panic recovered in backfill worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backfill worker pool: %w", err)
	}
	s.pool = pool
	s.baseLogger.Info("Sync backfill pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
	)
	return s, nil
}

// Stop releases the worker pool.
func (s *Syncer) Stop() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// SyncFromProvider walks the provider's conversation list page by page and
// upserts every record. Returns the number of records written. Failures are
// wrapped as retryable so the job queue redelivers the run; pages already
// committed stay committed, which is safe because the writes are idempotent.
func (s *Syncer) SyncFromProvider(ctx context.Context) (int, error) {
	start := utils.Now()
	log := logger.FromContext(ctx)

	if err := s.refreshAgentNames(ctx); err != nil {
		observer.IncSyncRun("error")
		return 0, apperrors.NewRetryable(err, "failed to fetch provider agents")
	}

	total := 0
	cursor := ""
	for {
		page, err := s.client.ListConversations(ctx, cursor)
		if err != nil {
			observer.IncSyncRun("error")
			return total, apperrors.NewRetryable(err, "failed to list provider conversations")
		}

		records := s.recordsFromPage(ctx, page.Conversations)
		if len(records) > 0 {
			if err := s.convRepo.BulkUpsert(ctx, records); err != nil {
				observer.IncSyncRun("error")
				return total, apperrors.NewRetryable(err, "failed to upsert conversation page")
			}
			total += len(records)
			observer.AddSyncRecords(len(records))
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	observer.IncSyncRun("success")
	observer.ObserveSyncRun(time.Since(start))
	log.Info("Sync run complete",
		zap.Int("records_upserted", total),
		zap.Duration("duration", time.Since(start)),
	)
	return total, nil
}

// refreshAgentNames loads the provider agent list into the name cache.
func (s *Syncer) refreshAgentNames(ctx context.Context) error {
	agents, err := s.client.ListAgents(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(agents))
	for i := range agents {
		id := agents[i].Identifier()
		if id == "" {
			continue
		}
		name := agents[i].Name
		if name == "" {
			name = id
		}
		names[id] = name
	}
	s.names.Replace(names)
	return nil
}

// recordsFromPage maps one provider page to local records and backfills
// missing phone metadata through the worker pool.
func (s *Syncer) recordsFromPage(ctx context.Context, summaries []provider.ConversationSummary) []model.Conversation {
	records := make([]model.Conversation, 0, len(summaries))
	for i := range summaries {
		if summaries[i].ConversationID == "" {
			continue
		}
		records = append(records, s.conversationFromSummary(&summaries[i]))
	}

	var wg sync.WaitGroup
	for i := range records {
		if records[i].ReceiverNumber != "" {
			continue
		}
		wg.Add(1)
		task := backfillTask{ctx: ctx, page: records, index: i, wg: &wg}
		if err := s.pool.Invoke(task); err != nil {
			wg.Done()
			s.baseLogger.Warn("Failed to submit backfill task",
				zap.String("conversation_id", records[i].ConversationID),
				zap.Error(err))
		}
	}
	wg.Wait()

	return records
}

// processBackfill fetches one conversation detail and fills the fields the
// list payload lacked. Fetch failures leave the record as the list gave it;
// the next run gets another chance.
func (s *Syncer) processBackfill(task backfillTask) {
	defer task.wg.Done()

	record := &task.page[task.index]
	detail, err := s.client.GetConversation(task.ctx, record.ConversationID)
	if err != nil {
		s.baseLogger.Warn("Backfill fetch failed",
			zap.String("conversation_id", record.ConversationID),
			zap.Error(err))
		return
	}

	caller, receiver := detail.PhoneNumbers()
	if record.CallerNumber == "" {
		record.CallerNumber = caller
	}
	if record.ReceiverNumber == "" {
		record.ReceiverNumber = receiver
	}
	if record.Duration == 0 {
		record.Duration = detail.Duration()
	}
	if record.Sentiment == nil {
		record.Sentiment = detail.Sentiment()
	}
	if detail.Analysis != nil {
		record.TranscriptSummary = detail.Analysis.TranscriptSummary
		record.CallSummaryTitle = detail.Analysis.CallSummaryTitle
		record.CallSuccessful = detail.Analysis.CallSuccessful
		if len(detail.Analysis.DataCollectionResults) > 0 {
			record.DataCollectionResults = datatypes.JSON(detail.Analysis.DataCollectionResults)
		}
		if len(detail.Analysis.EvaluationCriteriaResults) > 0 {
			record.EvaluationCriteriaResults = datatypes.JSON(detail.Analysis.EvaluationCriteriaResults)
		}
	}
}

// conversationFromSummary maps one provider list entry to a local record.
func (s *Syncer) conversationFromSummary(summary *provider.ConversationSummary) model.Conversation {
	caller, receiver := summary.PhoneNumbers()

	agentName := summary.AgentName
	if agentName == "" && summary.AgentID != "" {
		if name, ok := s.names.Get(summary.AgentID); ok {
			agentName = name
		} else {
			agentName = summary.AgentID
		}
	}

	conv := model.Conversation{
		ConversationID: summary.ConversationID,
		AgentID:        summary.AgentID,
		Agent:          agentName,
		CallerNumber:   caller,
		ReceiverNumber: receiver,
		Duration:       summary.CallDurationSecs,
		Sentiment:      summary.SentimentScore,
		CallSuccessful: summary.CallSuccessful,
		CreatedAt:      utils.Now(),
	}
	start := summary.StartTimeUnixSecs
	if start == 0 && summary.Metadata != nil {
		start = summary.Metadata.StartTimeUnixSecs
	}
	if start > 0 {
		conv.CreatedAt = utils.UnixToTime(start)
	}
	if conv.Duration == 0 && summary.Metadata != nil {
		conv.Duration = summary.Metadata.CallDurationSecs
	}
	return conv
}
