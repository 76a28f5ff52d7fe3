// Package testutil provides testing utilities shared by package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// MockInvoker is a mock implementation of types.Invoker for testing.
type MockInvoker struct {
	mock.Mock
}

// Invoke mocks the Invoke method. The first return value may be a
// types.Response or a func(context.Context, types.Request) types.Response.
func (m *MockInvoker) Invoke(ctx context.Context, req types.Request) (types.Response, error) {
	args := m.Called(ctx, req)
	switch v := args.Get(0).(type) {
	case func(context.Context, types.Request) types.Response:
		return v(ctx, req), args.Error(1)
	case types.Response:
		return v, args.Error(1)
	}
	return types.Response{}, args.Error(1)
}

// NewMockInvoker creates a mock invoker that answers every request with data.
func NewMockInvoker(t *testing.T, data interface{}) *MockInvoker {
	t.Helper()
	m := new(MockInvoker)
	m.On("Invoke", mock.Anything, mock.Anything).Return(types.Response{Data: data}, nil)
	return m
}

// WriteFile writes content at the slash path rel under root, creating parents.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// WriteTree writes every file of tree under a fresh temp dir and returns it.
func WriteTree(t *testing.T, tree map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range tree {
		WriteFile(t, root, rel, content)
	}
	return root
}
