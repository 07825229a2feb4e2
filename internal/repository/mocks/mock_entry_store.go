package mocks

import (
	"context"

	"lorewiki/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockEntryStore struct {
	mock.Mock
}

func (m *MockEntryStore) LoadAll(ctx context.Context) []model.Entry {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.Entry)
}

func (m *MockEntryStore) SaveAll(ctx context.Context, entries []model.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockEntryStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
