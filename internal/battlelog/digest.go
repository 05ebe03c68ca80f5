package battlelog

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/cory-johannsen/warsim/internal/battle"
)

// Digest returns the hex BLAKE2b-256 of the JSON encoding of events, one
// encoded event per line. Identical event sequences produce identical digests.
//
// Postcondition: Returns a 64-character hex string, or an encoding error.
func Digest(events []battle.Event) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("creating digest: %w", err)
	}
	enc := json.NewEncoder(h)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return "", fmt.Errorf("encoding event %d: %w", i, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
