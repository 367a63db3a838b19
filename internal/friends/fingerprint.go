package friends

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
)

var ErrFingerprint = errors.New("failed to fingerprint friend list")

// Fingerprint is a digest over the ordered public shape of a friend list.
type Fingerprint [sha256.Size]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// FingerprintOf hashes the canonical encoding of the list. Order matters, callers are expected
// to have sorted the list first.
func FingerprintOf(list []Friend) (Fingerprint, error) {
	if list == nil {
		list = []Friend{}
	}

	body, errBody := json.Marshal(list)
	if errBody != nil {
		return Fingerprint{}, errors.Join(errBody, ErrFingerprint)
	}

	return sha256.Sum256(body), nil
}

// ChangeGate remembers the last published fingerprint and only lets through lists that differ.
type ChangeGate struct {
	mu   sync.Mutex
	last Fingerprint
	seen bool
}

// Check fingerprints the list and reports whether it differs from the previously accepted one. A
// changed list becomes the new baseline.
func (g *ChangeGate) Check(list []Friend) (Fingerprint, bool, error) {
	fingerprint, errFingerprint := FingerprintOf(list)
	if errFingerprint != nil {
		return Fingerprint{}, false, errFingerprint
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.seen && g.last == fingerprint {
		return fingerprint, false, nil
	}

	g.last = fingerprint
	g.seen = true

	return fingerprint, true, nil
}

// Reset forgets the previous fingerprint so the next list is always published.
func (g *ChangeGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.last = Fingerprint{}
	g.seen = false
}
