package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, contactHandle, text string) error {
	args := m.Called(ctx, contactHandle, text)
	return args.Error(0)
}
