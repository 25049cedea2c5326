package storage

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/model"
)

func testConversation(id string) model.Conversation {
	sentiment := 0.8
	return model.Conversation{
		ConversationID:            id,
		AgentID:                   "agent_1",
		Agent:                     "Support Agent",
		CallerNumber:              "+14155550100",
		ReceiverNumber:            "+6281111111111",
		Duration:                  95,
		Sentiment:                 &sentiment,
		DataCollectionResults:     datatypes.JSON(`{"topic":"billing"}`),
		EvaluationCriteriaResults: datatypes.JSON(`{"resolved":{"result":"success"}}`),
		TranscriptSummary:         "Caller asked about an invoice.",
		CallSummaryTitle:          "Invoice question",
		CallSuccessful:            "success",
		CreatedAt:                 time.Now().Add(-time.Hour),
	}
}

// --- Conversation Repository Tests ---

// TestPostgresRepo_SaveConversation_Insert tests saving a record seen for the first time.
func TestPostgresRepo_SaveConversation_Insert(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	conv := testConversation("conv_insert_1")

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "conversations" WHERE conversation_id = $1 ORDER BY "conversations"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(conv.ConversationID, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	insertQuery := `INSERT INTO "conversations" ("conversation_id","agent_id","agent","caller_number","receiver_number","duration","sentiment","data_collection_results","evaluation_criteria_results","transcript_summary","call_summary_title","call_successful","created_at","updated_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING "id"`
	mock.ExpectQuery(insertQuery).
		WithArgs(
			conv.ConversationID, conv.AgentID, conv.Agent, conv.CallerNumber, conv.ReceiverNumber,
			conv.Duration, conv.Sentiment, conv.DataCollectionResults, conv.EvaluationCriteriaResults,
			conv.TranscriptSummary, conv.CallSummaryTitle, conv.CallSuccessful, conv.CreatedAt, AnyTime{},
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	mock.ExpectCommit()

	err := repo.Save(ctx, conv)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_BulkUpsertConversations_Success tests the per-page sync
// write: insert-or-rewrite keyed by conversation_id.
func TestPostgresRepo_BulkUpsertConversations_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	convs := []model.Conversation{
		testConversation("conv_bulk_1"),
		testConversation("conv_bulk_2"),
	}

	mock.ExpectBegin()

	upsertQuery := `INSERT INTO "conversations" ("conversation_id","agent_id","agent","caller_number","receiver_number","duration","sentiment","data_collection_results","evaluation_criteria_results","transcript_summary","call_summary_title","call_successful","created_at","updated_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14),($15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28) ON CONFLICT ("conversation_id") DO UPDATE SET "agent_id"="excluded"."agent_id","agent"="excluded"."agent","caller_number"="excluded"."caller_number","receiver_number"="excluded"."receiver_number","duration"="excluded"."duration","sentiment"="excluded"."sentiment","data_collection_results"="excluded"."data_collection_results","evaluation_criteria_results"="excluded"."evaluation_criteria_results","transcript_summary"="excluded"."transcript_summary","call_summary_title"="excluded"."call_summary_title","call_successful"="excluded"."call_successful","created_at"="excluded"."created_at","updated_at"="excluded"."updated_at" RETURNING "id"`

	var expectedArgs []driver.Value
	for _, c := range convs {
		expectedArgs = append(expectedArgs,
			c.ConversationID, c.AgentID, c.Agent, c.CallerNumber, c.ReceiverNumber,
			c.Duration, c.Sentiment, c.DataCollectionResults, c.EvaluationCriteriaResults,
			c.TranscriptSummary, c.CallSummaryTitle, c.CallSuccessful, c.CreatedAt, AnyTime{},
		)
	}

	returningRows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2)
	mock.ExpectQuery(upsertQuery).
		WithArgs(expectedArgs...).
		WillReturnRows(returningRows)

	mock.ExpectCommit()

	err := repo.BulkUpsert(ctx, convs)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_BulkUpsertConversations_EmptyPage tests that an empty page is a no-op.
func TestPostgresRepo_BulkUpsertConversations_EmptyPage(t *testing.T) {
	repo, mock := newTestRepo(t)

	err := repo.BulkUpsert(context.Background(), nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindConversationByID_NotFound tests lookup of an unknown id.
func TestPostgresRepo_FindConversationByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	selectQuery := `SELECT * FROM "conversations" WHERE conversation_id = $1 ORDER BY "conversations"."id" LIMIT $2`
	mock.ExpectQuery(selectQuery).WithArgs("conv_missing", 1).WillReturnError(gorm.ErrRecordNotFound)

	conv, err := repo.FindByConversationID(ctx, "conv_missing")

	assert.Nil(t, conv)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindRange_Bounded tests the dated listing query. The end
// bound is exclusive; a record timestamped exactly at the next midnight stays
// outside the range.
func TestPostgresRepo_FindRange_Bounded(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	selectQuery := `SELECT * FROM "conversations" WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC`
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "receiver_number", "created_at"}).
		AddRow(2, "conv_b", "+6281111111111", end.Add(-time.Hour)).
		AddRow(1, "conv_a", "+6282222222222", start.Add(time.Hour))
	mock.ExpectQuery(selectQuery).WithArgs(start, end).WillReturnRows(rows)

	convs, err := repo.FindRange(ctx, &start, &end)

	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "conv_b", convs[0].ConversationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindRange_Unbounded tests the open listing query; an empty
// table yields an empty slice, not an error.
func TestPostgresRepo_FindRange_Unbounded(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	selectQuery := `SELECT * FROM "conversations" ORDER BY created_at DESC`
	mock.ExpectQuery(selectQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id"}))

	convs, err := repo.FindRange(ctx, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, convs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Transcript Repository Tests ---

// TestPostgresRepo_SaveTranscript tests caching a fetched transcript.
func TestPostgresRepo_SaveTranscript(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	transcript := model.Transcript{
		ConversationID: "conv_t_1",
		Text:           "agent: Hello!\nuser: Hi there.",
	}

	insertQuery := `INSERT INTO "transcripts" ("conversation_id","text","created_at") VALUES ($1,$2,$3) RETURNING "id"`
	mock.ExpectQuery(insertQuery).
		WithArgs(transcript.ConversationID, transcript.Text, AnyTime{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.SaveTranscript(ctx, transcript)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindTranscript tests latest-first transcript retrieval.
func TestPostgresRepo_FindTranscript(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	selectQuery := `SELECT * FROM "transcripts" WHERE conversation_id = $1 ORDER BY created_at DESC,"transcripts"."id" LIMIT $2`
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "text"}).
		AddRow(4, "conv_t_1", "agent: Hello!")
	mock.ExpectQuery(selectQuery).WithArgs("conv_t_1", 1).WillReturnRows(rows)

	transcript, err := repo.FindTranscriptByConversationID(ctx, "conv_t_1")

	require.NoError(t, err)
	assert.Equal(t, "agent: Hello!", transcript.Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindTranscript_NotFound tests the cache-miss path.
func TestPostgresRepo_FindTranscript_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	selectQuery := `SELECT * FROM "transcripts" WHERE conversation_id = $1 ORDER BY created_at DESC,"transcripts"."id" LIMIT $2`
	mock.ExpectQuery(selectQuery).WithArgs("conv_t_missing", 1).WillReturnError(gorm.ErrRecordNotFound)

	transcript, err := repo.FindTranscriptByConversationID(ctx, "conv_t_missing")

	assert.Nil(t, transcript)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
