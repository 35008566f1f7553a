package model

import "time"

// Nonce is the ephemeral login challenge for a public key. One row per key,
// overwritten on each challenge request, deleted on use or expiry.
type Nonce struct {
	PublicKey string    `json:"publicKey"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (n *Nonce) Expired(now time.Time) bool {
	return now.After(n.ExpiresAt)
}
