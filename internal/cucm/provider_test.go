package cucm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	cfg := Config{}
	p := NewProvider(func() Config { return cfg })

	_, err := p.Client()
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg = Config{Host: "cucm.example.org", Username: "axl", Password: "secret"}
	first, err := p.Client()
	require.NoError(t, err)
	second, err := p.Client()
	require.NoError(t, err)
	assert.Same(t, first, second)

	cfg.Password = "rotated"
	third, err := p.Client()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, "rotated", third.Config().Password)
}
