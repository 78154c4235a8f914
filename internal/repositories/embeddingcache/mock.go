package embeddingcache

import (
	"context"

	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// Ensure MockDatabase implements Database interface
var _ Database = (*MockDatabase)(nil)

type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) GetFresh(subject int64) (*repositories.Embedding, bool) {
	args := m.Called(subject)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*repositories.Embedding), args.Bool(1)
}

func (m *MockDatabase) GetStale(subject int64) (*repositories.Embedding, bool) {
	args := m.Called(subject)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*repositories.Embedding), args.Bool(1)
}

func (m *MockDatabase) GetOrCompute(ctx context.Context, subject int64, compute ComputeFunc) ([]float32, error) {
	args := m.Called(ctx, subject, compute)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).([]float32), nil
}

func (m *MockDatabase) Put(subject int64, vector []float32) error {
	args := m.Called(subject, vector)
	return args.Error(0)
}

func (m *MockDatabase) Invalidate(subject int64) {
	m.Called(subject)
}
