package embedder

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Ensure MockClient implements Client interface
var _ Client = (*MockClient)(nil)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Embed(ctx context.Context, subject int64, sequence []int64) ([]float32, error) {
	args := m.Called(ctx, subject, sequence)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).([]float32), nil
}
