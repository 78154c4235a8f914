package recordstore

import (
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SeenItems(subject int64, limit int) ([]int64, error) {
	args := m.Called(subject, limit)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).([]int64), nil
}

func (m *MockStore) RecentInteractions(subject int64, limit int) ([]int64, error) {
	args := m.Called(subject, limit)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).([]int64), nil
}

func (m *MockStore) InteractionCount(subject int64) (int, error) {
	args := m.Called(subject)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) SaveRating(subject, item int64, rating float64) error {
	args := m.Called(subject, item, rating)
	return args.Error(0)
}

func (m *MockStore) PopularItems(limit int) ([]repositories.Candidate, error) {
	args := m.Called(limit)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).([]repositories.Candidate), nil
}

func (m *MockStore) HealthCheck() error {
	args := m.Called()
	return args.Error(0)
}
