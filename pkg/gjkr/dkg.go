// Package gjkr implements the per-member Distributed Key Generation phase
// driver: the typestate machine Init -> Phase1 -> Phase2 -> Phase3 ->
// Phase4 -> Phase5 -> Finalise, the dealer/verification/qualification/
// disclosure logic, and the complaint machinery that binds the pedersen,
// hybrid, dleq and polynomial packages together.
//
// Grounded on the teacher's pkg/beacon/relay/gjkr (protocol.go, dkg.go,
// group.go) together with the typestate struct hierarchy of
// pkg/beacon/relay/gjkr/member.go (memberCore embedded progressively
// through each phase), generalized from the teacher's math/big safe-prime
// field to the group.Scalar/group.Element API and re-keyed to the
// spec's two-polynomial Pedersen dealer construction and self-contained,
// publicly verifiable complaints.
package gjkr

import (
	"io"

	"github.com/keep-network/threshold-dkg/pkg/dleq"
	"github.com/keep-network/threshold-dkg/pkg/group"
	"github.com/keep-network/threshold-dkg/pkg/hybrid"
	"github.com/keep-network/threshold-dkg/pkg/pedersen"
	"github.com/keep-network/threshold-dkg/pkg/polynomial"
)

// memberCore is the state every phase carries, mirroring the teacher's
// embedded memberCore struct in pkg/beacon/relay/gjkr/member.go.
type memberCore struct {
	index        int // 1-based, spec.md's "my"
	environment  Environment
	secretKey    CommunicationKey
	committeePKs []CommunicationPublicKey // ordered, committeePKs[k] is member k+1's public key
}

func scalarOf(idx int) group.Scalar {
	return group.ScalarFromUint64(uint64(idx))
}

// shareRecord is one decrypted (or self-dealt) share pair this member
// holds for a given dealer.
type shareRecord struct {
	S, T  group.Scalar
	valid bool
}

// Phase1 is the post-dealing state: this member has sampled its two
// polynomials, computed its commitments, and produced Broadcast1. It is
// waiting to process the committee's round-1 broadcasts.
type Phase1 struct {
	memberCore
	shekCoefficients      []group.Scalar  // a_k of p_shek
	commCoefficients      []group.Scalar  // b_k of p_comm
	committedCoefficients []group.Element // A_k = g^{a_k}
	dealtCommitments      []group.Element // E_k = h^{b_k} * g^{a_k}, as actually broadcast
}

// Init constructs the dealer phase: it samples this member's two degree-t
// polynomials, commits to their coefficients, and hybrid-encrypts one
// share pair per other committee member. Grounded on
// CalculateMembersSharesAndCommitments in the teacher's protocol.go.
func Init(
	rng io.Reader,
	env Environment,
	sk CommunicationKey,
	committeePKs []CommunicationPublicKey,
	my int,
) (Phase1, Broadcast1, error) {
	if len(committeePKs) != env.N {
		return Phase1{}, Broadcast1{}, newError(FetchedInvalidData,
			"committee has %d public keys, expected n=%d", len(committeePKs), env.N)
	}
	if my < 1 || my > env.N {
		return Phase1{}, Broadcast1{}, newError(FetchedInvalidData,
			"member index %d out of range [1, %d]", my, env.N)
	}

	pShek, err := polynomial.Random(env.T, rng)
	if err != nil {
		return Phase1{}, Broadcast1{}, wrapError(FetchedInvalidData, err, "failed to sample p_shek")
	}
	pComm, err := polynomial.Random(env.T, rng)
	if err != nil {
		return Phase1{}, Broadcast1{}, wrapError(FetchedInvalidData, err, "failed to sample p_comm")
	}

	shekCoeffs := pShek.Coefficients()
	commCoeffs := pComm.Coefficients()

	committedCoefficients := make([]group.Element, env.T+1)
	broadcastCommitments := make([]group.Element, env.T+1)
	for k := 0; k <= env.T; k++ {
		committedCoefficients[k] = group.ScalarBaseMul(shekCoeffs[k])
		broadcastCommitments[k] = env.CK.Commit(shekCoeffs[k], commCoeffs[k])
	}

	encryptedShares := make([]IndexedEncryptedShares, 0, env.N-1)
	for j := 1; j <= env.N; j++ {
		if j == my {
			continue
		}
		x := scalarOf(j)
		s := pShek.Evaluate(x)
		t := pComm.Evaluate(x)

		plaintext := append(append([]byte{}, s.Bytes()...), t.Bytes()...)
		ct, err := hybrid.Encrypt(committeePKs[j-1].public, plaintext, rng)
		if err != nil {
			return Phase1{}, Broadcast1{}, wrapError(FetchedInvalidData, err,
				"failed to encrypt share for member %d", j)
		}
		encryptedShares = append(encryptedShares, IndexedEncryptedShares{
			RecipientIndex: j,
			Ciphertext:     ct,
		})
	}

	phase1 := Phase1{
		memberCore: memberCore{
			index:        my,
			environment:  env,
			secretKey:    sk,
			committeePKs: committeePKs,
		},
		shekCoefficients:      shekCoeffs,
		commCoefficients:      commCoeffs,
		committedCoefficients: committedCoefficients,
		dealtCommitments:      broadcastCommitments,
	}

	broadcast := Broadcast1{
		SenderIndex:           my,
		CommittedCoefficients: broadcastCommitments,
		EncryptedShares:       encryptedShares,
	}

	logger.Infof("member %d: dealt phase 1, %d encrypted shares", my, len(encryptedShares))

	return phase1, broadcast, nil
}

// Phase2 is the post-verification state: this member has decrypted and
// checked every peer's round-1 share, recording a qualified-set and any
// complaints, and is waiting to process the committee's round-2
// complaints.
type Phase2 struct {
	memberCore
	qualifiedSet                []bool // len n, index i-1 for member i
	receivedShares              map[int]shareRecord
	committedCoefficients       []group.Element          // this member's own A_k, carried to Broadcast3
	round1CommittedCoefficients map[int][]group.Element // sender -> E_k, needed to verify complaints
}

// ToPhase2 decrypts and Pedersen-checks every peer's round-1 share sent to
// this member, building the qualified set and any complaints. Grounded on
// VerifyReceivedSharesAndCommitmentsMessages in the teacher's protocol.go.
func (p Phase1) ToPhase2(fetched []FetchedRound1) (Phase2, *Broadcast2, error) {
	qualifiedSet := make([]bool, p.environment.N)
	for i := range qualifiedSet {
		qualifiedSet[i] = true
	}

	// A dealer's own contribution to its final share is its own polynomial
	// evaluated at its own index, computed directly rather than routed
	// through encryption.
	receivedShares := map[int]shareRecord{
		p.index: {
			S:     polynomial.FromCoefficients(p.shekCoefficients).Evaluate(scalarOf(p.index)),
			T:     polynomial.FromCoefficients(p.commCoefficients).Evaluate(scalarOf(p.index)),
			valid: true,
		},
	}

	// The self entry must be the blinded E_k values actually dealt in round
	// 1, not the unblinded A_k: this map backs VerifyAgainstCoefficients
	// when this member later processes a complaint lodged against itself.
	round1Commitments := map[int][]group.Element{
		p.index: p.dealtCommitments,
	}

	var complaints []Complaint

	for _, item := range fetched {
		if item.SharesForMe.RecipientIndex != p.index {
			return Phase2{}, nil, newError(FetchedInvalidData,
				"round-1 item from sender %d addressed to recipient %d, expected %d",
				item.SenderIndex, item.SharesForMe.RecipientIndex, p.index)
		}

		sender := item.SenderIndex
		round1Commitments[sender] = item.CommittedCoefficients

		msg, ok := p.secretKey.secret.Decrypt(item.SharesForMe.Ciphertext)
		if !ok {
			complaints = append(complaints, p.buildComplaint(sender, item.SharesForMe,
				ReasonScalarOutOfBounds, group.ScalarZero(), group.ScalarZero()))
			qualifiedSet[sender-1] = false
			continue
		}

		s, t, ok := decodeSharePair(msg)
		if !ok {
			complaints = append(complaints, p.buildComplaint(sender, item.SharesForMe,
				ReasonScalarOutOfBounds, group.ScalarZero(), group.ScalarZero()))
			qualifiedSet[sender-1] = false
			continue
		}

		pedersenOK := p.environment.CK.VerifyAgainstCoefficients(
			s, t, scalarOf(p.index), item.CommittedCoefficients,
		)
		if !pedersenOK {
			complaints = append(complaints, p.buildComplaint(sender, item.SharesForMe,
				ReasonShareValidityFailed, s, t))
			qualifiedSet[sender-1] = false
			continue
		}

		receivedShares[sender] = shareRecord{S: s, T: t, valid: true}
	}

	phase2 := Phase2{
		memberCore:                  p.memberCore,
		qualifiedSet:                qualifiedSet,
		receivedShares:              receivedShares,
		committedCoefficients:       p.committedCoefficients,
		round1CommittedCoefficients: round1Commitments,
	}

	var broadcast *Broadcast2
	if len(complaints) > 0 {
		broadcast = &Broadcast2{SenderIndex: p.index, Complaints: complaints}
	}

	if len(complaints) >= p.environment.T {
		return phase2, broadcast, newError(MisbehaviourHigherThreshold,
			"%d complaints at phase 1->2, threshold is %d", len(complaints), p.environment.T)
	}

	return phase2, broadcast, nil
}

func (p Phase1) buildComplaint(
	accused int,
	shares IndexedEncryptedShares,
	reason MisbehaviourReason,
	claimedS, claimedT group.Scalar,
) Complaint {
	// The correct-decryption proof needs a fresh random nonce; a nonce
	// derived deterministically from the member's own secret key material
	// could leak information. ToPhase2 takes no reader, so the nonce is
	// drawn from group.SecureRandom.
	sym := p.secretKey.secret.RecoverSymmetricKey(shares.Ciphertext)
	proof, err := dleq.Generate(
		group.Generator(), shares.Ciphertext.C1,
		p.secretKey.secret.Public().Element(), sym.GroupElement,
		p.secretKey.secret.Scalar(), group.SecureRandom,
	)
	if err != nil {
		// Proof generation only fails if the CSPRNG itself fails; there is
		// no good local recovery, so the complaint carries a zero proof
		// that will simply fail verification rather than panicking.
		proof = dleq.Proof{T1: group.Identity(), T2: group.Identity(), Z: group.ScalarZero()}
	}
	return Complaint{
		AccuserIndex:     p.index,
		AccusedIndex:     accused,
		Reason:           reason,
		Shares:           shares,
		ClaimedS:         claimedS,
		ClaimedT:         claimedT,
		ClaimedSymmetric: sym,
		Proof:            proof,
	}
}

func decodeSharePair(msg []byte) (s, t group.Scalar, ok bool) {
	const scalarLen = 32
	if len(msg) != 2*scalarLen {
		return group.Scalar{}, group.Scalar{}, false
	}
	s, ok1 := group.ScalarFromBytes(msg[:scalarLen])
	t, ok2 := group.ScalarFromBytes(msg[scalarLen:])
	if !ok1 || !ok2 {
		return group.Scalar{}, group.Scalar{}, false
	}
	return s, t, true
}

// Phase3 is the post-qualification state: complaints from round 2 have
// been verified and folded into the qualified set, and this member is
// waiting to process the committee's round-3 plain commitments.
type Phase3 struct {
	memberCore
	qualifiedSet          []bool
	receivedShares        map[int]shareRecord
	committedCoefficients []group.Element
}

// ToPhase3 verifies every round-2 complaint against the accused's round-1
// commitments and folds valid ones into the qualified set. Grounded on
// ResolveSecretSharesAccusationsMessages in the teacher's protocol.go,
// generalized from the teacher's ECDH evidence-log resolution to verifying
// the self-contained DLEQ proof each complaint now carries.
func (p Phase2) ToPhase3(broadcast2s []Broadcast2) (Phase3, Broadcast3, error) {
	qualifiedSet := make([]bool, len(p.qualifiedSet))
	copy(qualifiedSet, p.qualifiedSet)

	for _, b2 := range broadcast2s {
		for _, c := range b2.Complaints {
			accuserPK := p.committeePKs[c.AccuserIndex-1]
			accusedCommitments, known := p.round1CommittedCoefficients[c.AccusedIndex]
			if !known {
				continue
			}
			if verifyComplaint(accuserPK.public, p.environment.CK, accusedCommitments, c) {
				qualifiedSet[c.AccusedIndex-1] = false
			}
		}
	}

	qualifiedCount := 0
	for _, q := range qualifiedSet {
		if q {
			qualifiedCount++
		}
	}

	phase3 := Phase3{
		memberCore:            p.memberCore,
		qualifiedSet:          qualifiedSet,
		receivedShares:        p.receivedShares,
		committedCoefficients: p.committedCoefficients,
	}

	broadcast := Broadcast3{SenderIndex: p.index, CommittedCoefficients: p.committedCoefficients}

	if qualifiedCount < p.environment.T {
		return phase3, broadcast, newError(MisbehaviourHigherThreshold,
			"only %d qualified members after phase 2, threshold is %d", qualifiedCount, p.environment.T)
	}

	return phase3, broadcast, nil
}

// verifyComplaint replays the accusation: it re-derives the claimed
// symmetric key's DLEQ relation, re-opens the AEAD, and re-runs the
// Pedersen check against the accused's published round-1 commitments, per
// spec.md §4.5.
func verifyComplaint(
	accuserPK hybrid.PublicKey,
	ck pedersen.CommitmentKey,
	accusedCommitments []group.Element,
	c Complaint,
) bool {
	if err := dleq.VerifyCorrectDecryption(accuserPK, c.Shares.Ciphertext, c.ClaimedSymmetric, c.Proof); err != nil {
		return false
	}

	msg, opened := hybrid.OpenWithSymmetricKey(c.ClaimedSymmetric, c.Shares.Ciphertext)

	switch c.Reason {
	case ReasonScalarOutOfBounds:
		if !opened {
			return true
		}
		_, _, decodeOK := decodeSharePair(msg)
		return !decodeOK
	case ReasonShareValidityFailed:
		if !opened {
			return false
		}
		s, t, decodeOK := decodeSharePair(msg)
		if !decodeOK || !s.Equal(c.ClaimedS) || !t.Equal(c.ClaimedT) {
			return false
		}
		recipientIdx := c.Shares.RecipientIndex
		valid := ck.VerifyAgainstCoefficients(s, t, scalarOf(recipientIdx), accusedCommitments)
		return !valid
	default:
		return false
	}
}

// Phase4 is the post-disclosure-check state: this member has compared
// every qualified peer's round-3 plain commitments against the share it
// privately received, and is waiting to process the committee's round-4
// disclosures.
type Phase4 struct {
	memberCore
	qualifiedSet          []bool
	honestSet             map[int]bool
	receivedShares        map[int]shareRecord
	round3CommittedCoeffs map[int][]group.Element
}

// ToPhase4 checks each qualified peer's Broadcast3 against the share this
// member privately decrypted from them, disclosing any mismatch. Grounded
// on CombineMemberShares / isShareValidAgainstPublicKeySharePoints in the
// teacher's protocol.go.
func (p Phase3) ToPhase4(fetchedRound3 []Broadcast3) (Phase4, *Broadcast4, error) {
	round3Coeffs := map[int][]group.Element{p.index: p.committedCoefficients}
	honestSet := map[int]bool{p.index: true}
	var disclosures []ShareDisclosure

	for _, b3 := range fetchedRound3 {
		sender := b3.SenderIndex
		if sender == p.index {
			continue
		}
		if sender < 1 || sender > p.environment.N || !p.qualifiedSet[sender-1] {
			continue
		}
		round3Coeffs[sender] = b3.CommittedCoefficients

		share, ok := p.receivedShares[sender]
		if !ok || !share.valid {
			continue
		}

		if pedersen.VerifyAgainstPublicCoefficients(group.Generator(), share.S, scalarOf(p.index), b3.CommittedCoefficients) {
			honestSet[sender] = true
		} else {
			disclosures = append(disclosures, ShareDisclosure{AccusedIndex: sender, S: share.S, T: share.T})
		}
	}

	phase4 := Phase4{
		memberCore:            p.memberCore,
		qualifiedSet:          p.qualifiedSet,
		honestSet:             honestSet,
		receivedShares:        p.receivedShares,
		round3CommittedCoeffs: round3Coeffs,
	}

	var broadcast *Broadcast4
	if len(disclosures) > 0 {
		broadcast = &Broadcast4{SenderIndex: p.index, Disclosures: disclosures}
	}

	if len(honestSet) < p.environment.T {
		return phase4, broadcast, newError(MisbehaviourHigherThreshold,
			"only %d honest members after phase 3, threshold is %d", len(honestSet), p.environment.T)
	}

	return phase4, broadcast, nil
}

// Phase5 is the post-dispute-resolution state: disclosed disputes from
// round 4 have been checked against the disputed dealers' round-3
// commitments to compute the final qualified set, and this member is
// waiting to process the committee's round-5 reconstruction disclosures
// before finalising.
type Phase5 struct {
	memberCore
	finalQualifiedSet     []bool
	receivedShares        map[int]shareRecord
	round3CommittedCoeffs map[int][]group.Element
	disputedDealers       map[int]bool
}

// ToPhase5 verifies every round-4 disclosure against the accused dealer's
// round-3 commitments: a genuine mismatch disqualifies the dealer for
// everyone, identically, since the check runs against public data only.
// It then re-publishes this member's own valid share for every disputed
// dealer that is still in its final qualified set (disqualified dealers
// are not re-published), so the committee collectively holds enough points to
// Lagrange-reconstruct any dealer's polynomial at Finalise. This design
// resolves the Phase5 wire-schema ambiguity flagged in spec.md §9.
func (p Phase4) ToPhase5(broadcast4s []Broadcast4) (Phase5, *Broadcast5, error) {
	finalQualifiedSet := make([]bool, len(p.qualifiedSet))
	copy(finalQualifiedSet, p.qualifiedSet)

	disputedDealers := map[int]bool{}

	for _, b4 := range broadcast4s {
		discloserIdx := b4.SenderIndex
		for _, d := range b4.Disclosures {
			disputedDealers[d.AccusedIndex] = true

			coeffs, known := p.round3CommittedCoeffs[d.AccusedIndex]
			if !known {
				// The accused never published round-3 commitments at all;
				// it is simply absent and excluded below, not "disproved".
				continue
			}
			consistent := pedersen.VerifyAgainstPublicCoefficients(
				group.Generator(), d.S, scalarOf(discloserIdx), coeffs,
			)
			if !consistent {
				finalQualifiedSet[d.AccusedIndex-1] = false
			}
		}
	}

	// A qualified dealer who never published round-3 commitments at all
	// (absent from round 3 onward) cannot contribute to the master key or
	// be reconstructed, and is excluded from the final qualified set.
	for i := 1; i <= p.environment.N; i++ {
		if finalQualifiedSet[i-1] {
			if _, known := p.round3CommittedCoeffs[i]; !known {
				finalQualifiedSet[i-1] = false
			}
		}
	}

	var disclosures []ShareDisclosure
	for dealer := range disputedDealers {
		if !finalQualifiedSet[dealer-1] {
			continue
		}
		share, ok := p.receivedShares[dealer]
		if !ok || !share.valid {
			continue
		}
		disclosures = append(disclosures, ShareDisclosure{AccusedIndex: dealer, S: share.S, T: share.T})
	}

	qualifiedCount := 0
	for _, q := range finalQualifiedSet {
		if q {
			qualifiedCount++
		}
	}

	phase5 := Phase5{
		memberCore:            p.memberCore,
		finalQualifiedSet:     finalQualifiedSet,
		receivedShares:        p.receivedShares,
		round3CommittedCoeffs: p.round3CommittedCoeffs,
		disputedDealers:       disputedDealers,
	}

	var broadcast *Broadcast5
	if len(disclosures) > 0 {
		broadcast = &Broadcast5{SenderIndex: p.index, Disclosures: disclosures}
	}

	if qualifiedCount < p.environment.T {
		return phase5, broadcast, newError(MisbehaviourHigherThreshold,
			"only %d qualified members after phase 4, threshold is %d", qualifiedCount, p.environment.T)
	}

	return phase5, broadcast, nil
}

// Finalise computes the master public key and this member's final secret
// share. For any qualified dealer whose share this member does not itself
// hold (because it was disputed and this member's own copy was never
// valid), the share is Lagrange-reconstructed from the round-5 disclosures
// of other members who did hold a valid copy. Grounded on
// CombineGroupPublicKey / ReconstructIndividualPrivateKeys in the
// teacher's protocol.go.
func (p Phase5) Finalise(broadcast5s []Broadcast5) (MasterPublicKey, SecretShare, error) {
	pointsByDealer := map[int][]polynomial.Point{}
	for _, b5 := range broadcast5s {
		for _, d := range b5.Disclosures {
			pointsByDealer[d.AccusedIndex] = append(pointsByDealer[d.AccusedIndex], polynomial.Point{
				X: scalarOf(b5.SenderIndex),
				Y: d.S,
			})
		}
	}

	masterKey := group.Identity()
	secretShare := group.ScalarZero()

	for i := 1; i <= p.environment.N; i++ {
		if !p.finalQualifiedSet[i-1] {
			continue
		}

		coeffs := p.round3CommittedCoeffs[i]
		if len(coeffs) == 0 {
			return MasterPublicKey{}, SecretShare{}, newError(InconsistentMasterKey,
				"qualified dealer %d has no round-3 commitments", i)
		}
		masterKey = masterKey.Add(coeffs[0])

		share, ok := p.receivedShares[i]
		var s group.Scalar
		if ok && share.valid {
			s = share.S
		} else {
			points := pointsByDealer[i]
			if len(points) < p.environment.T+1 {
				return MasterPublicKey{}, SecretShare{}, newError(InconsistentMasterKey,
					"insufficient disclosed points (%d) to reconstruct dealer %d's share, need %d",
					len(points), i, p.environment.T+1)
			}
			s = polynomial.Interpolate(points, scalarOf(p.index))
		}
		secretShare = secretShare.Add(s)
	}

	logger.Infof("member %d: finalised DKG, qualified set size %d", p.index, qualifiedSetSize(p.finalQualifiedSet))

	return MasterPublicKey{Y: masterKey}, SecretShare{Value: secretShare}, nil
}

func qualifiedSetSize(set []bool) int {
	n := 0
	for _, q := range set {
		if q {
			n++
		}
	}
	return n
}
