package rest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) LoadData(ctx context.Context, dir string, maxRows int) (*features.Matrix, error) {
	args := m.Called(ctx, dir, maxRows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*features.Matrix), args.Error(1)
}

func (m *MockService) Train(ctx context.Context, persist bool) (*features.Matrix, error) {
	args := m.Called(ctx, persist)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*features.Matrix), args.Error(1)
}

func (m *MockService) Refresh(ctx context.Context) (*features.Matrix, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*features.Matrix), args.Error(1)
}

func (m *MockService) Bootstrap(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockService) RiskyUsers(ctx context.Context, topN int) []features.Record {
	return m.Called(ctx, topN).Get(0).([]features.Record)
}

func (m *MockService) UserFeatures(ctx context.Context, user string) []insider.DailyFeatures {
	return m.Called(ctx, user).Get(0).([]insider.DailyFeatures)
}

func (m *MockService) UserRaw(ctx context.Context, user string) map[string][]map[string]any {
	return m.Called(ctx, user).Get(0).(map[string][]map[string]any)
}

func (m *MockService) Status(ctx context.Context) insider.Status {
	return m.Called(ctx).Get(0).(insider.Status)
}

func (m *MockService) Runs(ctx context.Context, limit int) ([]*training.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*training.Run), args.Error(1)
}

var _ insider.Service = (*MockService)(nil)
