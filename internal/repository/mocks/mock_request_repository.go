package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/princedesai012/Doc-Flow/internal/model"
)

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByID(ctx context.Context, id string) (*model.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByToken(ctx context.Context, token string) (*model.Request, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestRepository) List(ctx context.Context) ([]model.Request, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Request), args.Error(1)
}

func (m *MockRequestRepository) SetStatus(ctx context.Context, id string, status model.RequestStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRequestRepository) UpdateDocument(ctx context.Context, requestID string, doc *model.Document, status model.RequestStatus) (*model.Request, error) {
	args := m.Called(ctx, requestID, doc, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
