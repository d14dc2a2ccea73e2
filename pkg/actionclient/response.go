package actionclient

import (
	"bytes"
	"encoding/json"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
)

// ParseResponse decodes a 2xx body. A body that is not a JSON object, or
// whose ok field is absent or not a boolean, is a contract violation.
func ParseResponse[T any](body []byte) (*envelope.Response[T], error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, malformed("response body is not a JSON object", err)
	}
	okRaw, present := probe["ok"]
	if !present {
		return nil, malformed("response is missing ok", nil)
	}
	okRaw = bytes.TrimSpace(okRaw)
	if !bytes.Equal(okRaw, []byte("true")) && !bytes.Equal(okRaw, []byte("false")) {
		return nil, malformed("response ok is not a boolean", nil)
	}

	var out envelope.Response[T]
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, malformed("response data does not match the expected shape", err)
	}
	return &out, nil
}
