package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var ErrTrailingData = errors.New("unexpected data after JSON body")

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	return decodeStrict(r.Body, dst)
}

// DecodeStrict applies the ReadJSON rules to a body that was already read,
// for handlers that also need the raw bytes.
func DecodeStrict(raw []byte, dst any) error {
	return decodeStrict(bytes.NewReader(raw), dst)
}

// decodeStrict accepts exactly one JSON value with no unknown fields.
// Trailing whitespace is allowed; anything else after the value is not.
func decodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

type envelopeBody struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// WriteEnvelope writes the {ok, code?, message?, data} reply every portal
// caller expects. A nil data is sent as an empty object.
func WriteEnvelope(w http.ResponseWriter, status int, ok bool, code, message string, data any) {
	if data == nil {
		data = json.RawMessage(`{}`)
	}
	WriteJSON(w, status, envelopeBody{OK: ok, Code: code, Message: message, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteEnvelope(w, status, false, code, message, nil)
}
