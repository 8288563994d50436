package services

import (
	"context"
	"sync"

	"graph-investigator/models"
)

// MockGenerationService provides a mock implementation for testing
type MockGenerationService struct {
	mu           sync.Mutex
	CompleteFunc func(ctx context.Context, systemInstruction, userContent string, temperature float64) (string, error)

	// Calls records every invocation for bound assertions.
	Calls []GenerationCall
}

// GenerationCall captures the arguments of one Complete invocation
type GenerationCall struct {
	SystemInstruction string
	UserContent       string
	Temperature       float64
}

// Complete implements GenerationService.Complete with mock behavior
func (m *MockGenerationService) Complete(ctx context.Context, systemInstruction, userContent string, temperature float64) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, GenerationCall{
		SystemInstruction: systemInstruction,
		UserContent:       userContent,
		Temperature:       temperature,
	})
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemInstruction, userContent, temperature)
	}
	return "", nil
}

// CallCount returns how many completions were requested.
func (m *MockGenerationService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockGraphStore provides a mock graph store for testing
type MockGraphStore struct {
	mu      sync.Mutex
	RunFunc func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error)

	// Statements records every executed statement for round-trip assertions.
	Statements []string
}

// Run implements GraphStore.Run with mock behavior
func (m *MockGraphStore) Run(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
	m.mu.Lock()
	m.Statements = append(m.Statements, statement)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, statement, params)
	}
	return nil, nil
}

// RunCount returns how many statements were executed.
func (m *MockGraphStore) RunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Statements)
}
