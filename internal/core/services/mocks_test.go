package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

var (
	errEmbedFailed        = errors.New("embedding backend down")
	errNoScriptedResponse = errors.New("no scripted response")
)

// --- Mock implementations ---

// mockEmbedding implements driven.EmbeddingService for testing.
// Texts are mapped to vectors by substring match so test documents can
// carry a keyword that determines where they land in vector space.
type mockEmbedding struct {
	keyed    map[string][]float32
	fallback []float32
	failOn   string // texts containing this substring fail to embed
	embedErr error
}

func newMockEmbedding() *mockEmbedding {
	return &mockEmbedding{
		keyed:    make(map[string][]float32),
		fallback: []float32{0, 0, 1},
	}
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errEmbedFailed
	}
	for key, vec := range m.keyed {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return m.fallback, nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (m *mockEmbedding) Dimensions() int            { return len(m.fallback) }
func (m *mockEmbedding) ModelName() string          { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error               { return nil }

// mockCompletion implements driven.CompletionService for testing.
// Responses are either scripted in order or computed by respond.
type mockCompletion struct {
	mu        sync.Mutex
	responses []string
	respond   func(prompt string) (string, error)
	err       error

	// prompts records every prompt received, in order.
	prompts []string

	// entered and release, when set, let tests hold an ask in flight:
	// Complete signals entered, then waits for release.
	entered chan struct{}
	release chan struct{}
}

func (m *mockCompletion) Complete(_ context.Context, prompt string, _ driven.CompleteOptions) (string, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)

	if m.err != nil {
		return "", m.err
	}
	if m.respond != nil {
		return m.respond(prompt)
	}
	if len(m.responses) == 0 {
		return "", errNoScriptedResponse
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockCompletion) recordedPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *mockCompletion) ModelName() string          { return "mock-llm" }
func (m *mockCompletion) Ping(_ context.Context) error { return nil }
func (m *mockCompletion) Close() error               { return nil }
