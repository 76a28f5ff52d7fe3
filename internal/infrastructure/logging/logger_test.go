package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty", OutputPaths: []string{"stderr"}})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	l, err := New(DevelopmentConfig())
	require.NoError(t, err)
	require.NotNil(t, l.Logger)
	l.Component("test").Debug("hello")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil).Logger)

	l := NewDefault()
	assert.Same(t, l, OrNop(l))
}
