package insider

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/snapshot"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, dir string, maxRows int) (activity.Tables, error) {
	args := m.Called(ctx, dir, maxRows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(activity.Tables), args.Error(1)
}

type MockRunRecorder struct {
	mock.Mock
}

func (m *MockRunRecorder) Save(ctx context.Context, run *training.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockRunRecorder) ListRecent(ctx context.Context, limit int) ([]*training.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*training.Run), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, event training.Event) {
	m.Called(ctx, event)
}

type MockMetricsCollector struct {
	mock.Mock
}

func (m *MockMetricsCollector) RecordTraining(ctx context.Context, duration time.Duration, users, anomalies int) {
	m.Called(ctx, duration, users, anomalies)
}

func (m *MockMetricsCollector) RecordSnapshot(ctx context.Context, op string, err error) {
	m.Called(ctx, op, err)
}

func (m *MockMetricsCollector) RecordRefresh(ctx context.Context, err error) {
	m.Called(ctx, err)
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	mu      sync.Mutex
	data    []byte
	saveErr error
	saves   int
}

func (s *memStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, snapshot.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *memStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Location() string {
	return "mem://snapshot"
}
