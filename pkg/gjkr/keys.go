package gjkr

import (
	"io"

	"github.com/keep-network/threshold-dkg/pkg/group"
	"github.com/keep-network/threshold-dkg/pkg/hybrid"
)

// CommunicationKey is a member's long-lived secret communication keypair,
// used to hybrid-decrypt shares addressed to it. Grounded on
// original_source/src/dkg/procedure_keys.rs's MemberCommunicationKey.
type CommunicationKey struct {
	secret hybrid.SecretKey
}

// CommunicationPublicKey is the public half of a CommunicationKey,
// published to the whole committee ahead of the ceremony.
type CommunicationPublicKey struct {
	public hybrid.PublicKey
}

// NewCommunicationKey samples a fresh communication keypair.
func NewCommunicationKey(rng io.Reader) (CommunicationKey, error) {
	sk, err := hybrid.GenerateSecretKey(rng)
	if err != nil {
		return CommunicationKey{}, err
	}
	return CommunicationKey{sk}, nil
}

// Public returns the public half of the key.
func (k CommunicationKey) Public() CommunicationPublicKey {
	return CommunicationPublicKey{k.secret.Public()}
}

// Bytes returns the canonical encoding of the public key.
func (pk CommunicationPublicKey) Bytes() []byte {
	return pk.public.Bytes()
}

// Less implements the deterministic total order over communication public
// keys required by `spec.md` §8 ("Communication-key ordering is a total
// order, deterministic from public-key bytes, and stable across runs"),
// carried forward from original_source/src/dkg/procedure_keys.rs's `Ord`
// implementation.
func (pk CommunicationPublicKey) Less(other CommunicationPublicKey) bool {
	return pk.public.Less(other.public)
}

// MasterPublicKey is the jointly-generated group public key
// `Y = g^x = Σ_{i in Q} A_{i,0}`.
type MasterPublicKey struct {
	Y group.Element
}

// Bytes returns the canonical encoding of the master public key.
func (mpk MasterPublicKey) Bytes() []byte {
	return mpk.Y.Bytes()
}

// SecretShare is a qualified member's Shamir share of the jointly
// generated secret: `x_my = Σ_{i in Q} p_i(my)`.
type SecretShare struct {
	Value group.Scalar
}
