package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/princedesai012/Doc-Flow/internal/model"
)

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) Create(ctx context.Context, clientName, contactHandle string, docTypes []string) (*model.Request, error) {
	args := m.Called(ctx, clientName, contactHandle, docTypes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestService) List(ctx context.Context) ([]model.Request, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Request), args.Error(1)
}

func (m *MockRequestService) Get(ctx context.Context, id string) (*model.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestService) Resolve(ctx context.Context, token string) (*model.Request, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestService) Ingest(ctx context.Context, token, docType string, payload io.Reader, size int64, mimeType string) (*model.Request, error) {
	args := m.Called(ctx, token, docType, payload, size, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestService) SetDocumentStatus(ctx context.Context, requestID, docID string, status model.DocumentStatus, reason string) (*model.Request, error) {
	args := m.Called(ctx, requestID, docID, status, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
