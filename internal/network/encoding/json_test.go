package encoding_test

import (
	"strings"
	"testing"

	"github.com/leighmacdonald/steam-friends/internal/network/encoding"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	value, err := encoding.UnmarshalJSON[payload](strings.NewReader(`{"name":"Toonice"}`))
	require.NoError(t, err)
	require.Equal(t, "Toonice", value.Name)

	_, errBad := encoding.UnmarshalJSON[payload](strings.NewReader(`{"name":`))
	require.ErrorIs(t, errBad, encoding.ErrDecodeJSON)
}
