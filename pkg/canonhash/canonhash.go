package canonhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
)

// SumBytes returns "sha256:<hex>" over b as received.
func SumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// SumData hashes v in the same serialization used for signing, so two
// payloads that sign identically also hash identically.
func SumData(v any) (string, json.RawMessage, error) {
	b, err := envelope.EncodeData(v)
	if err != nil {
		return "", nil, err
	}
	return SumBytes(b), b, nil
}
