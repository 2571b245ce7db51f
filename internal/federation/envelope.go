package federation

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
)

// Envelope wraps a serialized DualCfcCheckpoint with an Ed25519 signature
// over its canonical JSON bytes, so a hub can reject tampered or
// impersonated uploads without maintaining per-rig session state.
type Envelope struct {
	RigID     string `json:"rig_id"`
	Payload   []byte `json:"payload"`
	PublicKey []byte `json:"public_key"`
	Signature []byte `json:"signature"`
}

// Sign builds a signed Envelope around payload (typically a marshaled
// DualCfcCheckpoint) using the rig's Ed25519 private key.
func Sign(rigID string, payload []byte, priv ed25519.PrivateKey) Envelope {
	sig := ed25519.Sign(priv, payload)
	pub := priv.Public().(ed25519.PublicKey)
	return Envelope{
		RigID:     rigID,
		Payload:   payload,
		PublicKey: []byte(pub),
		Signature: sig,
	}
}

// Verify checks the envelope's signature against its own embedded public
// key. Callers that maintain a known-rigs registry should additionally
// check PublicKey against the registry entry for RigID; Verify alone only
// proves the payload was not altered after signing.
func (e Envelope) Verify() error {
	if len(e.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("federation: invalid public key length %d", len(e.PublicKey))
	}
	if !ed25519.Verify(ed25519.PublicKey(e.PublicKey), e.Payload, e.Signature) {
		return fmt.Errorf("federation: signature verification failed for rig %q", e.RigID)
	}
	return nil
}

// MarshalPayload is a small convenience wrapper so callers don't need to
// import encoding/json just to build an Envelope.
func MarshalPayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
