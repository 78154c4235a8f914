package vector

import (
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// Ensure MockDatabase implements Database interface
var _ Database = (*MockDatabase)(nil)

type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) EnsureCollection() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDatabase) BulkUpsert(entries []repositories.Entry) error {
	args := m.Called(entries)
	return args.Error(0)
}

func (m *MockDatabase) BulkDelete(ids []int64) error {
	args := m.Called(ids)
	return args.Error(0)
}

func (m *MockDatabase) SearchFiltered(request *SearchRequest, metricTags []string) ([]repositories.Candidate, error) {
	args := m.Called(request, metricTags)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).([]repositories.Candidate), nil
}

func (m *MockDatabase) ScrollAll() ([]repositories.Entry, error) {
	args := m.Called()
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).([]repositories.Entry), nil
}

func (m *MockDatabase) CollectionInfo() (*CollectionInfoResponse, error) {
	args := m.Called()
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).(*CollectionInfoResponse), nil
}

func (m *MockDatabase) HealthCheck() error {
	args := m.Called()
	return args.Error(0)
}

// SetTestInstance sets the package-level vectorDb singleton to the given mock.
// Use only in tests.
func SetTestInstance(db Database) {
	vectorDb = db
}

// ResetTestInstance clears the package-level vectorDb singleton.
// Use only in tests.
func ResetTestInstance() {
	vectorDb = nil
}
