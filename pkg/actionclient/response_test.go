package actionclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_OK(t *testing.T) {
	res, err := ParseResponse[map[string]int]([]byte(`{"ok": true, "data": {"x": 1}}`))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.Data["x"])
	assert.Empty(t, res.Code)
	assert.Empty(t, res.Message)
}

func TestParseResponse_TypedData(t *testing.T) {
	type award struct {
		Student string `json:"student"`
		XP      int    `json:"xp"`
	}
	res, err := ParseResponse[award]([]byte(`{"ok":true,"code":"AWARDED","data":{"student":"s1","xp":25}}`))
	require.NoError(t, err)
	assert.Equal(t, award{Student: "s1", XP: 25}, res.Data)
	assert.Equal(t, "AWARDED", res.Code)
}

func TestParseResponse_OkFalseKeepsDetails(t *testing.T) {
	res, err := ParseResponse[map[string]any]([]byte(`{"ok":false,"code":"NOT_FOUND","message":"quest missing"}`))
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "NOT_FOUND", res.Code)
	assert.Equal(t, "quest missing", res.Message)
	assert.Nil(t, res.Data)
}

func TestParseResponse_Malformed(t *testing.T) {
	cases := map[string]string{
		"missing ok":      `{"data":{"x":1}}`,
		"null ok":         `{"ok":null,"data":{}}`,
		"string ok":       `{"ok":"true"}`,
		"numeric ok":      `{"ok":1}`,
		"not json":        `ok=true`,
		"empty body":      ``,
		"array":           `[{"ok":true}]`,
		"json null":       `null`,
		"truncated":       `{"ok":true,"data":{"x":`,
		"data wrong type": `{"ok":true,"data":"nope"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResponse[map[string]int]([]byte(body))
			require.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, CodeMalformedResponse, CodeOf(err))
		})
	}
}
