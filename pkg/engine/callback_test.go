package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/chatview/pkg/errors"
)

func TestCodecRoundTrip(t *testing.T) {
	c := Codec{}.withDefaults()
	id := uuid.New()

	p, ours, err := c.Decode(c.Encode(id, "page", "3"))
	require.NoError(t, err)
	require.True(t, ours)
	require.Equal(t, id, p.RecordID)
	require.Equal(t, "page", p.Action)
	require.Equal(t, "3", p.Args)

	// args keep embedded separators
	p, _, err = c.Decode(c.Encode(id, "jump", "a:b:c"))
	require.NoError(t, err)
	require.Equal(t, "a:b:c", p.Args)

	p, ours, err = c.Decode(c.Encode(id, "noargs", ""))
	require.NoError(t, err)
	require.True(t, ours)
	require.Empty(t, p.Args)
}

func TestCodecForeignAndMalformed(t *testing.T) {
	c := Codec{}.withDefaults()

	_, ours, err := c.Decode("h:whatever")
	require.NoError(t, err)
	require.False(t, ours)

	for _, data := range []string{
		"v",
		"v:" + uuid.NewString(),
		"v:not-a-uuid:act",
		"v:" + uuid.NewString() + "::args",
	} {
		_, _, err := c.Decode(data)
		require.True(t, errors.IsCode(err, errors.CodeBadCallback), "data %q", data)
	}
}

func TestCodecCustomPrefix(t *testing.T) {
	c := Codec{Prefix: "h", Separator: "|"}.withDefaults()
	id := uuid.New()

	p, ours, err := c.Decode(c.Encode(id, "go", ""))
	require.NoError(t, err)
	require.True(t, ours)
	require.Equal(t, "go", p.Action)

	_, ours, err = c.Decode("v|" + id.String() + "|go")
	require.NoError(t, err)
	require.False(t, ours)
}
