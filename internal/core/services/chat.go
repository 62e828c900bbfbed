package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
	"github.com/parchment-labs/stagechat/internal/core/ports/driving"
	"github.com/parchment-labs/stagechat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// FallbackAnswer is returned when the index holds nothing relevant to
// ground an answer on.
const FallbackAnswer = "I couldn't find an answer to that in the available documents."

// condensePrompt rewrites a follow-up question into a standalone query
// using the recent conversation, so retrieval is not blind to pronouns
// and references to earlier turns.
const condensePrompt = `Based on the chat history below and the question, generate a query that extends the question with the chat history provided. The query should be in natural language.
Answer with only the query. Do not add any explanation.

<chat_history>
%s
</chat_history>
<question>
%s
</question>`

// answerPrompt grounds the answer on the retrieved passages. The model
// must only use what is between the context tags and admit when the
// answer is not there.
const answerPrompt = `You are an expert chat assistant that extracts information from the CONTEXT provided between <context> and </context> tags.
When answering the question contained between <question> and </question> tags, be concise and do not hallucinate.
If you don't have the information, just say so.
Only answer the question if you can extract it from the CONTEXT provided.
Each passage in the CONTEXT is numbered. Cite every passage you draw on with its number in square brackets, like [1].
Do not mention the CONTEXT or the CHAT HISTORY in your answer.

<chat_history>
%s
</chat_history>
<context>
%s
</context>
<question>
%s
</question>
Answer:`

// citationPattern matches [n] citation markers in generated answers.
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ChatConfig holds generation and history settings.
type ChatConfig struct {
	// HistoryWindow is the number of recent messages included in
	// prompts. A question and an answer count as two messages.
	HistoryWindow int

	// Temperature controls answer generation randomness.
	Temperature float64

	// MaxOutputTokens bounds the generated answer length.
	MaxOutputTokens int
}

// ChatService answers questions about the corpus with multi-turn
// memory. Asks against the same session run one at a time; sessions
// are independent of each other.
type ChatService struct {
	retrieval  *RetrievalService
	completion driven.CompletionService
	sessions   driven.SessionStore
	cfg        ChatConfig

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(
	retrieval *RetrievalService,
	completion driven.CompletionService,
	sessions driven.SessionStore,
	cfg ChatConfig,
) *ChatService {
	return &ChatService{
		retrieval:  retrieval,
		completion: completion,
		sessions:   sessions,
		cfg:        cfg,
		locks:      make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

// sessionLock returns the mutex serializing operations on one session.
func (s *ChatService) sessionLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// Ask answers a question within a session. The turn is recorded only
// after generation succeeds; a failed ask leaves the history untouched.
func (s *ChatService) Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if sessionID == "" || question == "" {
		return nil, fmt.Errorf("%w: session ID and question are required", domain.ErrInvalidInput)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	logger.Section("Ask")
	logger.Debug("Session %s: %q", sessionID, question)

	history := s.historyWindow(ctx, sessionID)

	query := question
	if history != "" {
		condensed, err := s.condense(ctx, history, question)
		if err != nil {
			logger.Warn("Question condensation failed, using raw question: %v", err)
		} else {
			query = condensed
			logger.Debug("Condensed query: %q", query)
		}
	}

	block, err := s.retrieval.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	var answer *domain.Answer
	if block.NoDocuments || len(block.Passages) == 0 {
		logger.Debug("No usable context, answering with fallback")
		answer = &domain.Answer{Text: FallbackAnswer, UsedFallback: true}
	} else {
		answer, err = s.generate(ctx, history, question, block)
		if err != nil {
			return nil, err
		}
	}

	turn := domain.Turn{
		Question:  question,
		Citations: answer.Citations,
		Answer:    answer.Text,
		CreatedAt: s.now(),
	}
	if err := s.sessions.AppendTurn(ctx, sessionID, turn); err != nil {
		return nil, fmt.Errorf("recording turn: %w", err)
	}

	return answer, nil
}

// EndSession deletes a session and its history. An ask in flight on
// the session makes this fail with domain.ErrSessionBusy.
func (s *ChatService) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session ID is required", domain.ErrInvalidInput)
	}

	lock := s.sessionLock(sessionID)
	if !lock.TryLock() {
		return fmt.Errorf("%w: session %s has an ask in flight", domain.ErrSessionBusy, sessionID)
	}
	defer lock.Unlock()

	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}

	s.locksMu.Lock()
	delete(s.locks, sessionID)
	s.locksMu.Unlock()
	return nil
}

// historyWindow renders the most recent messages of the session as
// prompt text. A missing session means an empty history.
func (s *ChatService) historyWindow(ctx context.Context, sessionID string) string {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Loading session %s failed: %v", sessionID, err)
		}
		return ""
	}

	type message struct {
		role string
		text string
	}
	var messages []message
	for _, turn := range session.Turns {
		messages = append(messages, message{"user", turn.Question})
		messages = append(messages, message{"assistant", turn.Answer})
	}
	if len(messages) > s.cfg.HistoryWindow {
		messages = messages[len(messages)-s.cfg.HistoryWindow:]
	}

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.role, m.text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// condense rewrites a follow-up question into a standalone query.
func (s *ChatService) condense(ctx context.Context, history, question string) (string, error) {
	prompt := fmt.Sprintf(condensePrompt, history, question)
	result, err := s.completion.Complete(ctx, prompt, driven.CompleteOptions{
		MaxTokens: 200,
	})
	if err != nil {
		return "", err
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return "", fmt.Errorf("empty condensed query")
	}
	return result, nil
}

// generate produces a grounded answer from the packed context and
// resolves the citation markers the model emitted.
func (s *ChatService) generate(ctx context.Context, history, question string, block *domain.ContextBlock) (*domain.Answer, error) {
	var b strings.Builder
	for i, sp := range block.Passages {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, sp.Passage.DocumentID, sp.Passage.Content)
	}

	prompt := fmt.Sprintf(answerPrompt, history, strings.TrimRight(b.String(), "\n"), question)

	text, err := s.completion.Complete(ctx, prompt, driven.CompleteOptions{
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty answer", domain.ErrGenerationRejected)
	}

	return &domain.Answer{
		Text:      text,
		Citations: resolveCitations(text, block.Passages),
	}, nil
}

// resolveCitations maps [n] markers back to the passages they cite, in
// first-cited order without duplicates. Markers outside the passage
// range are ignored.
func resolveCitations(text string, passages []domain.ScoredPassage) []domain.Citation {
	var citations []domain.Citation
	seen := make(map[int]bool)

	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(passages) {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true

		p := passages[n-1].Passage
		citations = append(citations, domain.Citation{
			DocumentID: p.DocumentID,
			Start:      p.Start,
			End:        p.End,
		})
	}
	return citations
}
