package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSha256Factory_New(t *testing.T) {
	factory := NewSha256Factory()
	require.NotNil(t, factory.New())
	require.Equal(t, 32, factory.New().Size())
}

func TestHashFactory_UnknownAlgorithm(t *testing.T) {
	factory := NewHashFactory(HashAlgorithm(99))

	require.Panics(t, func() { factory.New() })
}
