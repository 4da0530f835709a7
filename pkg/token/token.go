// Package token implements the capability token gate for signed media access.
// Each stored object gets its own randomly generated token; the token is never
// derived from the object id, so knowing an id (which ends up in URLs and
// logs) grants nothing.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
)

// EntropyBytes is the number of random bytes backing each token.
const EntropyBytes = 16

// Gate mints and validates per-object access tokens. It owns the
// objectID -> token mapping; every access check funnels through Verify.
type Gate struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewGate() *Gate {
	return &Gate{tokens: make(map[string]string)}
}

// Mint generates a fresh token for objectID and records the binding,
// replacing any previous token for the same id.
func (g *Gate) Mint(objectID string) (string, error) {
	buf := make([]byte, EntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("minting access token: %w", err)
	}
	tok := hex.EncodeToString(buf)

	g.mu.Lock()
	g.tokens[objectID] = tok
	g.mu.Unlock()

	return tok, nil
}

// Verify reports whether presented matches the token minted for objectID.
// It fails closed: unknown ids, revoked ids and empty tokens all return
// false, with no distinction between the cases.
func (g *Gate) Verify(objectID, presented string) bool {
	g.mu.RLock()
	actual, ok := g.tokens[objectID]
	g.mu.RUnlock()

	if !ok || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(actual)) == 1
}

// Revoke forgets the token bound to objectID. Verify returns false for the
// id afterwards. Revoking an unknown id is a no-op.
func (g *Gate) Revoke(objectID string) {
	g.mu.Lock()
	delete(g.tokens, objectID)
	g.mu.Unlock()
}
