// Package model defines the edit-history engine's wire types: identifiers,
// the edit-entry tagged sum type, and the operation/status enums that gate
// construction of an [Entry].
package model

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EditID uniquely identifies one recorded edit. Opaque on the wire; wrapped
// here so an EditID can never be passed where a ConversationID is expected,
// even though both are plain strings underneath.
type EditID string

// ConversationID groups the edits emitted by one LM turn.
type ConversationID string

// crockfordBase32 is a sortable, human-transcribable base32 alphabet (no
// 0/O, 1/I/L confusion).
const crockfordBase32 = "0123456789abcdefghjkmnpqrstvwxyz"

var crockfordEncoding = base32.NewEncoding(crockfordBase32).WithPadding(base32.NoPadding)

// NewConversationID generates a time-ordered, collision-resistant
// conversation identifier: a UUIDv7 (48-bit timestamp + 74 random bits)
// re-encoded as Crockford base32 so IDs sort the way they were created,
// without needing a separate timestamp field.
func NewConversationID() (ConversationID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new conversation id: %w", err)
	}

	return ConversationID(crockfordEncoding.EncodeToString(id[:])), nil
}

// NewEditID generates a globally unique, collision-resistant edit
// identifier. Unlike conversation IDs, edit IDs don't need to sort by
// creation time against each other across conversations (tool_call_index
// already orders them within a conversation) so a plain random UUIDv4 is
// sufficient and avoids leaking wall-clock info into every log line.
func NewEditID() (EditID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("new edit id: %w", err)
	}

	return EditID(crockfordEncoding.EncodeToString(id[:])), nil
}

// randomSuffix returns n random characters from the Crockford base32
// alphabet, drawn from crypto/rand. Kept here alongside the other
// ID-shaped helpers since it uses the same alphabet.
func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)

	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}

	out := make([]byte, n)
	for i, b := range buf {
		out[i] = crockfordBase32[int(b)%len(crockfordBase32)]
	}

	return string(out), nil
}

// RandomSuffix is the exported form of randomSuffix for callers outside
// this package.
func RandomSuffix(n int) (string, error) {
	return randomSuffix(n)
}

// Now is the engine's clock. Exists as a variable (not a direct
// time.Now() call) so tests can inject deterministic timestamps instead
// of calling time.Now() inline everywhere.
var Now = func() time.Time { return time.Now().UTC() }
