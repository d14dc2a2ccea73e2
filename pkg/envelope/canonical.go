package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Separator joins the canonical message fields. None of ts, requestId,
// action, actorEmail or compact JSON may contain a raw newline.
const Separator = "\n"

var emptyObject = json.RawMessage(`{}`)

func NewRequestID() string { return "req_" + uuid.NewString() }

// EncodeData is the single serialization used for the data field, both
// when signing and on the wire. Map keys are sorted, struct fields keep
// declaration order and HTML characters are left unescaped. A verifier
// must reproduce these bytes exactly; changing this function is a
// protocol break.
func EncodeData(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return compactRaw(raw)
	}
	if v == nil {
		return emptyObject, nil
	}
	b, err := marshalNoEscape(v)
	if err != nil {
		return nil, fmt.Errorf("encode action data: %w", err)
	}
	if bytes.Equal(b, []byte("null")) {
		return emptyObject, nil
	}
	return b, nil
}

func compactRaw(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyObject, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("encode action data: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CanonicalMessage builds the signed string:
//
//	ts \n requestId \n action \n lower(actorEmail) \n data
//
// data must already be the output of EncodeData.
func CanonicalMessage(ts int64, requestID, action, actorEmail string, data json.RawMessage) string {
	if len(data) == 0 {
		data = emptyObject
	}
	var b strings.Builder
	b.Grow(len(requestID) + len(action) + len(actorEmail) + len(data) + 24)
	b.WriteString(strconv.FormatInt(ts, 10))
	b.WriteString(Separator)
	b.WriteString(requestID)
	b.WriteString(Separator)
	b.WriteString(action)
	b.WriteString(Separator)
	b.WriteString(strings.ToLower(actorEmail))
	b.WriteString(Separator)
	b.Write(data)
	return b.String()
}

func (e ActionEnvelope) CanonicalMessage() string {
	return CanonicalMessage(e.TS, e.RequestID, e.Action, e.ActorEmail, e.Data)
}

// Marshal encodes the envelope for transport without HTML escaping so the
// data bytes on the wire are the bytes that were signed.
func Marshal(e ActionEnvelope) ([]byte, error) {
	return marshalNoEscape(e)
}
