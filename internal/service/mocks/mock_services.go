package mocks

import (
	"context"
	"io"

	"lorewiki/internal/model"
	"lorewiki/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) List(ctx context.Context) ([]model.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Entry), args.Error(1)
}

func (m *MockEntryService) Create(ctx context.Context, in model.EntryInput) (*model.Entry, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockEntryService) Update(ctx context.Context, id string, patch model.EntryPatch) (*model.Entry, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockEntryService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) Upload(ctx context.Context, r io.Reader, originalFilename, mimetype string, size int64) (*model.MediaRef, error) {
	args := m.Called(ctx, r, originalFilename, mimetype, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MediaRef), args.Error(1)
}

func (m *MockMediaService) Attach(ctx context.Context, entryID string, ref model.MediaRef) (*model.Entry, error) {
	args := m.Called(ctx, entryID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockMediaService) Detach(ctx context.Context, entryID, filename string) (*model.Entry, error) {
	args := m.Called(ctx, entryID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockMediaService) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockMediaService) DownloadURL(ctx context.Context, filename string) (string, error) {
	args := m.Called(ctx, filename)
	return args.String(0), args.Error(1)
}
