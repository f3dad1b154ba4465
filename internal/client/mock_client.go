package client

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"smart-summary/internal/domain"
)

// MockTransport is a mock implementation of Transport using testify/mock.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Open(ctx context.Context, req domain.Request) (*http.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}
