//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactory_CreateUnavailable(t *testing.T) {
	f := NewFactory(DefaultConfig())

	_, err := f.Create(context.Background(), "/music/a.mp3", 0, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, Available)
}
