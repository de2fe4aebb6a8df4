package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/cibere/starapi"
	"github.com/cibere/starapi/middleware"
)

type MockAuthBackend struct {
	mock.Mock
}

func (m *MockAuthBackend) Authenticate(r *starapi.Request) (*middleware.AuthResult, error) {
	args := m.Called(r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*middleware.AuthResult), args.Error(1)
}
