package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/parchment-labs/stagechat/internal/adapters/driven/storage/memory"
	vectormem "github.com/parchment-labs/stagechat/internal/adapters/driven/vector/memory"
	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// chatFixture wires a chat service over in-memory adapters.
type chatFixture struct {
	embedding  *mockEmbedding
	completion *mockCompletion
	index      *vectormem.Index
	sessions   *storagemem.SessionStore
	chat       *ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		embedding:  newMockEmbedding(),
		completion: &mockCompletion{},
		index:      vectormem.NewIndex(),
		sessions:   storagemem.NewSessionStore(),
	}
	retrieval := NewRetrievalService(f.embedding, f.index, defaultRetrievalConfig())
	f.chat = NewChatService(retrieval, f.completion, f.sessions, ChatConfig{
		HistoryWindow:   7,
		Temperature:     0.2,
		MaxOutputTokens: 512,
	})
	return f
}

// seedPassage indexes one passage reachable by the given keyword.
func (f *chatFixture) seedPassage(docID string, start, end int, content, keyword string, vec []float32) {
	f.embedding.keyed[keyword] = vec
	_ = f.index.Upsert(context.Background(), docID, []domain.Passage{
		passage(docID, start, end, content, vec),
	})
}

func TestChat_Ask_EmptyInput(t *testing.T) {
	f := newChatFixture()

	_, err := f.chat.Ask(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.chat.Ask(context.Background(), "", "question")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChat_Ask_EmptyIndex_Fallback(t *testing.T) {
	f := newChatFixture()

	answer, err := f.chat.Ask(context.Background(), "s1", "what is in the docs?")

	require.NoError(t, err)
	assert.True(t, answer.UsedFallback)
	assert.Equal(t, FallbackAnswer, answer.Text)
	assert.Empty(t, answer.Citations)

	// The completion backend was never consulted.
	assert.Empty(t, f.completion.recordedPrompts())

	// The turn is still recorded.
	session, err := f.sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, session.Turns, 1)
	assert.Equal(t, FallbackAnswer, session.Turns[0].Answer)
}

func TestChat_Ask_GroundedAnswer(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "The reactor runs at 400 degrees.", "reactor", []float32{1, 0, 0})
	f.completion.responses = []string{"The reactor runs at 400 degrees [1]."}

	answer, err := f.chat.Ask(context.Background(), "s1", "how hot does the reactor run?")

	require.NoError(t, err)
	assert.False(t, answer.UsedFallback)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, domain.Citation{DocumentID: "manual.txt", Start: 0, End: 120}, answer.Citations[0])

	// The prompt carries the passage and the question between tags.
	prompts := f.completion.recordedPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "<context>")
	assert.Contains(t, prompts[0], "The reactor runs at 400 degrees.")
	assert.Contains(t, prompts[0], "how hot does the reactor run?")

	session, err := f.sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, session.Turns, 1)
	assert.Equal(t, answer.Citations, session.Turns[0].Citations)
}

func TestChat_Ask_InvalidCitationsIgnored(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "content", "reactor", []float32{1, 0, 0})
	f.completion.responses = []string{"Answer citing [1] and [7] and [0]."}

	answer, err := f.chat.Ask(context.Background(), "s1", "reactor question")

	require.NoError(t, err)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "manual.txt", answer.Citations[0].DocumentID)
}

func TestChat_Ask_DuplicateCitationsCollapsed(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "content", "reactor", []float32{1, 0, 0})
	f.completion.responses = []string{"First [1], and again [1]."}

	answer, err := f.chat.Ask(context.Background(), "s1", "reactor question")

	require.NoError(t, err)
	assert.Len(t, answer.Citations, 1)
}

func TestChat_Ask_CompletionError_NoTurnRecorded(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "content", "reactor", []float32{1, 0, 0})
	f.completion.err = domain.ErrBackendUnavailable

	_, err := f.chat.Ask(context.Background(), "s1", "reactor question")

	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)

	_, err = f.sessions.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChat_Ask_FollowUpCondensesQuestion(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "The reactor runs hot.", "reactor", []float32{1, 0, 0})
	f.completion.responses = []string{
		"It runs hot [1].",                      // first answer
		"how hot does the reactor run",          // condensed query for the follow-up
		"About 400 degrees [1].",                // second answer
	}

	_, err := f.chat.Ask(context.Background(), "s1", "tell me about the reactor")
	require.NoError(t, err)

	answer, err := f.chat.Ask(context.Background(), "s1", "how hot does it run?")
	require.NoError(t, err)
	assert.Equal(t, "About 400 degrees [1].", answer.Text)

	prompts := f.completion.recordedPrompts()
	require.Len(t, prompts, 3)

	// The condensation prompt sees the previous exchange.
	assert.Contains(t, prompts[1], "<chat_history>")
	assert.Contains(t, prompts[1], "tell me about the reactor")
	assert.Contains(t, prompts[1], "It runs hot [1].")
	assert.Contains(t, prompts[1], "how hot does it run?")

	// The answer prompt carries the same history.
	assert.Contains(t, prompts[2], "tell me about the reactor")

	session, err := f.sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, session.Turns, 2)
}

func TestChat_Ask_CondensationFailureFallsBackToRawQuestion(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "content", "reactor", []float32{1, 0, 0})

	calls := 0
	f.completion.respond = func(prompt string) (string, error) {
		calls++
		if strings.Contains(prompt, "generate a query") {
			return "", errors.New("condense backend hiccup")
		}
		return "Recovered answer [1].", nil
	}

	_, err := f.chat.Ask(context.Background(), "s1", "reactor basics")
	require.NoError(t, err)

	answer, err := f.chat.Ask(context.Background(), "s1", "more reactor details")
	require.NoError(t, err)
	assert.Equal(t, "Recovered answer [1].", answer.Text)
}

func TestChat_Ask_HistoryWindowBounded(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "content", "reactor", []float32{1, 0, 0})
	f.completion.responses = []string{"ok [1]"}

	// Ten prior turns is twenty messages; only the last seven may appear.
	for i := 0; i < 10; i++ {
		turn := domain.Turn{Question: "q" + string(rune('0'+i)), Answer: "a" + string(rune('0'+i))}
		require.NoError(t, f.sessions.AppendTurn(context.Background(), "s1", turn))
	}

	_, err := f.chat.Ask(context.Background(), "s1", "reactor question")
	require.NoError(t, err)

	prompts := f.completion.recordedPrompts()
	condense := prompts[0]
	assert.NotContains(t, condense, "q0")
	assert.NotContains(t, condense, "a5")
	assert.Contains(t, condense, "a9")
	assert.Contains(t, condense, "q7")
}

func TestChat_EndSession(t *testing.T) {
	f := newChatFixture()
	require.NoError(t, f.sessions.AppendTurn(context.Background(), "s1", domain.Turn{Question: "q", Answer: "a"}))

	require.NoError(t, f.chat.EndSession(context.Background(), "s1"))

	_, err := f.sessions.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChat_EndSession_Missing_Noop(t *testing.T) {
	f := newChatFixture()
	assert.NoError(t, f.chat.EndSession(context.Background(), "never-existed"))
}

func TestChat_EndSession_BusyWhileAskInFlight(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "content", "reactor", []float32{1, 0, 0})
	f.completion.entered = make(chan struct{})
	f.completion.release = make(chan struct{})
	f.completion.responses = []string{"slow answer [1]"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.chat.Ask(context.Background(), "s1", "reactor question")
	}()

	// Wait for the ask to reach the completion call.
	<-f.completion.entered

	err := f.chat.EndSession(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	close(f.completion.release)
	<-done
	assert.NoError(t, f.chat.EndSession(context.Background(), "s1"))
}

func TestChat_Ask_ConcurrentSameSessionSerialized(t *testing.T) {
	f := newChatFixture()
	f.seedPassage("manual.txt", 0, 120, "content", "reactor", []float32{1, 0, 0})
	f.completion.responses = []string{"answer [1]"}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.chat.Ask(context.Background(), "shared", "reactor question")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := f.sessions.Get(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, session.Turns, 4)
}
