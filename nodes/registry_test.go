package nodes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConstructsRegisteredTag(t *testing.T) {
	n, ok := New(TagGain)
	require.True(t, ok)
	require.Equal(t, TagGain, n.TypeTag())
}

func TestNewReportsUnknownTag(t *testing.T) {
	_, ok := New("not_a_real_tag")
	require.False(t, ok)
}

func TestTagsIncludesEveryRegisteredFactory(t *testing.T) {
	tags := Tags()
	require.Len(t, tags, len(registry))
	require.Contains(t, tags, TagOscillator)
	require.Contains(t, tags, TagSampler)
	require.Contains(t, tags, TagOscilloscope)
}

func TestEveryRegisteredTagRoundTripsThroughNew(t *testing.T) {
	for _, tag := range Tags() {
		n, ok := New(tag)
		require.True(t, ok, "tag %s", tag)
		require.Equal(t, tag, n.TypeTag())
	}
}
