package gjkr

import (
	"github.com/keep-network/threshold-dkg/pkg/dleq"
	"github.com/keep-network/threshold-dkg/pkg/group"
	"github.com/keep-network/threshold-dkg/pkg/hybrid"
)

// IndexedEncryptedShares is the hybrid ciphertext one dealer addresses to
// one recipient: a single encryption of the concatenated `(s, t)` share
// pair, keyed by the recipient's 1-based index. Packing both scalars into
// one ciphertext (rather than the two separate ciphertexts `c_comm`/
// `c_shek` of `spec.md` §3) lets a single correct-decryption NIZK cover
// both values, since they share one ephemeral `r` / symmetric key `K`.
type IndexedEncryptedShares struct {
	RecipientIndex int
	Ciphertext     hybrid.Ciphertext
}

// Broadcast1 is the dealer-phase payload of `spec.md` §3: Pedersen
// commitments to this member's two polynomials' coefficients, plus one
// hybrid-encrypted share pair per other committee member.
type Broadcast1 struct {
	SenderIndex           int
	CommittedCoefficients []group.Element // E_k = h^{b_k} * g^{a_k}, k = 0..t
	EncryptedShares       []IndexedEncryptedShares
}

// FetchedRound1 is one peer's Broadcast1 as routed to the local member:
// the sender's commitments plus only the slice of encrypted shares
// addressed to this recipient (the routing the upstream transport is
// responsible for, per `spec.md` §6).
type FetchedRound1 struct {
	SenderIndex           int
	CommittedCoefficients []group.Element
	SharesForMe           IndexedEncryptedShares
}

// MisbehaviourReason names why a member was accused, mirroring
// `spec.md` §3's Broadcast2 `reason` field.
type MisbehaviourReason int

const (
	// ReasonScalarOutOfBounds means decryption of the accused's share
	// failed to AEAD-open or decode a canonical scalar pair.
	ReasonScalarOutOfBounds MisbehaviourReason = iota
	// ReasonShareValidityFailed means decryption succeeded but the
	// Pedersen check against the accused's Broadcast1 failed.
	ReasonShareValidityFailed
)

// Complaint is a self-contained, publicly verifiable accusation against a
// dealer: the exact ciphertext the accuser received, the plaintext the
// accuser claims it decrypted to (meaningless when Reason is
// ReasonScalarOutOfBounds), and a correct-decryption NIZK binding the
// claimed symmetric key to the accuser's own communication keypair, per
// `spec.md` §4.5.
type Complaint struct {
	AccuserIndex     int
	AccusedIndex     int
	Reason           MisbehaviourReason
	Shares           IndexedEncryptedShares
	ClaimedS         group.Scalar
	ClaimedT         group.Scalar
	ClaimedSymmetric hybrid.SymmetricKey
	Proof            dleq.Proof
}

// Broadcast2 is the verification-phase payload: the complaints one member
// raised while processing round 1, possibly empty.
type Broadcast2 struct {
	SenderIndex int
	Complaints  []Complaint
}

// Broadcast3 is the disclosure-phase payload: the same coefficient
// commitments as Broadcast1, but without the Pedersen blinding term
// (`A_k = g^{a_k}` rather than `E_k = h^{b_k} * g^{a_k}`).
type Broadcast3 struct {
	SenderIndex           int
	CommittedCoefficients []group.Element
}

// ShareDisclosure reveals the plaintext share pair a member received from
// an accused dealer, so any third party can re-run the Pedersen check
// against the accused's Broadcast3.
type ShareDisclosure struct {
	AccusedIndex int
	S            group.Scalar
	T            group.Scalar
}

// Broadcast4 is the Phase3->Phase4 payload: disclosures of shares
// received from dealers whose Broadcast3 contradicts what was received in
// Broadcast1.
type Broadcast4 struct {
	SenderIndex int
	Disclosures []ShareDisclosure
}

// Broadcast5 is the Phase4->Phase5 payload: for any dealer named in the
// aggregate Broadcast4 that the sender still counts as qualified, every
// member who holds a validly-decrypted share from that dealer
// re-publishes it, giving the committee enough
// points to Lagrange-reconstruct that dealer's polynomial at Finalise.
// This schema is this module's resolution of the under-specified Phase5
// wire format flagged in `spec.md` §9.
type Broadcast5 struct {
	SenderIndex int
	Disclosures []ShareDisclosure
}
