package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
// Stream replays the deltas passed as the first return value.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Stream(ctx context.Context, text string, maxLength int, onDelta DeltaFunc) error {
	args := m.Called(ctx, text, maxLength)
	if deltas, ok := args.Get(0).([]string); ok {
		for _, d := range deltas {
			if err := onDelta(d); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

func (m *MockClient) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	args := m.Called(ctx, text, maxLength)
	return args.String(0), args.Error(1)
}
