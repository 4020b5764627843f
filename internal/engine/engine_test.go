package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/dedup"
	"github.com/kopeckbot/kopeck/internal/extract"
	"github.com/kopeckbot/kopeck/internal/ledger"
	"github.com/kopeckbot/kopeck/internal/model"
	"github.com/kopeckbot/kopeck/internal/rules"
)

type mockTranscriber struct {
	text  string
	err   error
	calls int
}

func (m *mockTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	m.calls++
	return m.text, m.err
}

type mockStructurer struct {
	candidates []model.Candidate
	err        error
	calls      int
}

func (m *mockStructurer) Structure(_ context.Context, _ string) ([]model.Candidate, error) {
	m.calls++
	return m.candidates, m.err
}

type fixture struct {
	engine      *Engine
	ledger      *ledger.MockLedger
	structurer  *mockStructurer
	transcriber *mockTranscriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ruleEngine, err := rules.NewEngine()
	require.NoError(t, err)

	mockLedger := ledger.NewMockLedger()
	structurer := &mockStructurer{}
	transcriber := &mockTranscriber{}
	cache := dedup.NewCache(time.Minute, 100)
	t.Cleanup(cache.Close)

	eng, err := New(context.Background(), Config{
		AllowedUser: "alice",
		Transcriber: transcriber,
		Extractor:   extract.New(structurer, time.Second, nil),
		Rules:       ruleEngine,
		Ledger:      mockLedger,
		Seen:        cache,
	})
	require.NoError(t, err)

	return &fixture{
		engine:      eng,
		ledger:      mockLedger,
		structurer:  structurer,
		transcriber: transcriber,
	}
}

func textMessage(id int, text string) model.IncomingMessage {
	return model.IncomingMessage{MessageID: id, ChatID: 100, Sender: "alice", Text: text}
}

func TestUnauthorizedSenderReachesNothing(t *testing.T) {
	f := newFixture(t)

	msg := model.IncomingMessage{MessageID: 1, ChatID: 100, Sender: "mallory", Text: "такси 300"}
	_, err := f.engine.HandleMessage(context.Background(), msg)

	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Zero(t, f.structurer.calls, "structuring adapter must not be invoked")
	assert.Zero(t, f.transcriber.calls, "transcriber must not be invoked")
	assert.Empty(t, f.ledger.Rows, "no ledger write")
}

func TestAuthorizedIsExactMatch(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.engine.Authorized("alice"))
	assert.False(t, f.engine.Authorized("Alice"))
	assert.False(t, f.engine.Authorized("mallory"))
	assert.False(t, f.engine.Authorized(""))
}

func TestUnauthorizedSenderCannotUndo(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Description: "такси", Amount: "300"},
	}
	_, err := f.engine.HandleMessage(context.Background(), textMessage(1, "такси 300"))
	require.NoError(t, err)
	require.Len(t, f.ledger.Rows, 1)

	_, err = f.engine.Undo(context.Background(), "mallory")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Len(t, f.ledger.Rows, 1, "row must survive the unauthorized undo")

	// The owner can still undo afterwards.
	_, err = f.engine.Undo(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, f.ledger.Rows)
}

func TestSingleTransactionFlow(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Description: "Яндекс", Amount: "450"},
	}

	result, err := f.engine.HandleMessage(context.Background(), textMessage(1, "такси яндекс 450"))
	require.NoError(t, err)

	require.Len(t, result.Written, 1)
	require.Len(t, result.Receipts, 1)
	assert.Equal(t, -1, result.Written[0].Amount.Sign())
	assert.Equal(t, "Такси", result.Written[0].Category)
	require.Len(t, f.ledger.Rows, 1)
}

func TestDedupSecondDeliveryWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Amount: "450"},
	}

	first, err := f.engine.HandleMessage(context.Background(), textMessage(1, "такси 450"))
	require.NoError(t, err)
	require.Len(t, first.Receipts, 1)

	// Same message id, even with different payload
	second, err := f.engine.HandleMessage(context.Background(), textMessage(1, "другой текст 9999"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Empty(t, second.Receipts)
	assert.Len(t, f.ledger.Rows, 1, "exactly one set of rows")
}

func TestMultiTransactionMessagePreservesOrder(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Прочее", Description: "Кофе", Amount: "300"},
		{Type: "income", Category: "-", Description: "Зарплата", Amount: "50000"},
	}

	result, err := f.engine.HandleMessage(context.Background(), textMessage(1, "кофе 300, зарплата 50000"))
	require.NoError(t, err)

	require.Len(t, result.Written, 2)
	assert.Equal(t, "Кофе", result.Written[0].Description)
	assert.Equal(t, "Зарплата", result.Written[1].Description)
	assert.Equal(t, -1, result.Written[0].Amount.Sign())
	assert.Equal(t, 1, result.Written[1].Amount.Sign())
	require.Len(t, f.ledger.Rows, 2)
	assert.Equal(t, "Кофе", f.ledger.Rows[0].Description)
}

func TestRejectedCandidateDoesNotBlockSiblings(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Description: "Без суммы", Amount: ""},
		{Type: "expense", Category: "Связь", Description: "Телефон", Amount: "500"},
	}

	result, err := f.engine.HandleMessage(context.Background(), textMessage(1, "..."))
	require.NoError(t, err)

	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "Без суммы", result.Rejected[0])
	require.Len(t, result.Written, 1)
	assert.Equal(t, "Телефон", result.Written[0].Description)
}

func TestStructuringFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.structurer.err = errors.New("model unavailable")

	result, err := f.engine.HandleMessage(context.Background(), textMessage(1, "зарплата Петрову 40000"))
	require.NoError(t, err, "structuring failure is never surfaced as an error")

	require.Len(t, result.Written, 1, "fallback extraction still records the transaction")
	assert.Equal(t, "Зарплаты сотрудникам", result.Written[0].Category)
	assert.Equal(t, -1, result.Written[0].Amount.Sign())
}

func TestVoiceMessageIsTranscribed(t *testing.T) {
	f := newFixture(t)
	f.transcriber.text = "такси 300"
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Amount: "300"},
	}

	msg := model.IncomingMessage{MessageID: 1, ChatID: 100, Sender: "alice", Audio: []byte("ogg")}
	result, err := f.engine.HandleMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, "такси 300", result.Transcript)
	require.Len(t, result.Written, 1)
}

func TestTranscriptionFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("unintelligible")

	msg := model.IncomingMessage{MessageID: 1, ChatID: 100, Sender: "alice", Audio: []byte("ogg")}
	_, err := f.engine.HandleMessage(context.Background(), msg)

	assert.ErrorIs(t, err, common.ErrTranscription)
	assert.Zero(t, f.structurer.calls, "no extraction on transcription failure")
	assert.Empty(t, f.ledger.Rows)
}

func TestUndoRemovesExactlyLastRow(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Description: "Первая", Amount: "100"},
	}
	_, err := f.engine.HandleMessage(context.Background(), textMessage(1, "x 100"))
	require.NoError(t, err)

	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Связь", Description: "Вторая", Amount: "200"},
	}
	_, err = f.engine.HandleMessage(context.Background(), textMessage(2, "y 200"))
	require.NoError(t, err)

	receipt, err := f.engine.Undo(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Вторая", receipt.Summary)
	require.Len(t, f.ledger.Rows, 1)
	assert.Equal(t, "Первая", f.ledger.Rows[0].Description)
}

func TestDoubleUndoReportsNothingToUndo(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Amount: "100"},
	}
	_, err := f.engine.HandleMessage(context.Background(), textMessage(1, "x 100"))
	require.NoError(t, err)

	_, err = f.engine.Undo(context.Background(), "alice")
	require.NoError(t, err)

	_, err = f.engine.Undo(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrNothingToUndo)
	assert.Empty(t, f.ledger.Rows, "ledger unchanged by the failed undo")
}

func TestUndoWithNoWritesAtAll(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Undo(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrNothingToUndo)
}

func TestBatchUndoRemovesOneRowPerInvocation(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Прочее", Description: "Кофе", Amount: "300"},
		{Type: "income", Category: "-", Description: "Зарплата", Amount: "50000"},
	}
	_, err := f.engine.HandleMessage(context.Background(), textMessage(1, "кофе 300, зарплата 50000"))
	require.NoError(t, err)
	require.Len(t, f.ledger.Rows, 2)

	_, err = f.engine.Undo(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, f.ledger.Rows, 1, "one undo removes one row, not the whole batch")
	assert.Equal(t, "Кофе", f.ledger.Rows[0].Description)
}

func TestLedgerWriteFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = []model.Candidate{
		{Type: "expense", Category: "Такси", Amount: "100"},
	}
	f.ledger.AppendErr = errors.New("sheets down")

	_, err := f.engine.HandleMessage(context.Background(), textMessage(1, "x 100"))
	assert.ErrorIs(t, err, common.ErrLedgerWrite)

	// The message counts as processed: a transport retry must not
	// risk duplicate rows.
	result, err := f.engine.HandleMessage(context.Background(), textMessage(1, "x 100"))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
}

func TestNoTransactionFoundIsBenign(t *testing.T) {
	f := newFixture(t)
	f.structurer.candidates = nil

	result, err := f.engine.HandleMessage(context.Background(), textMessage(1, "привет"))
	require.NoError(t, err)
	assert.Empty(t, result.Written)
	assert.Empty(t, result.Rejected)
	assert.Empty(t, f.ledger.Rows)
}
