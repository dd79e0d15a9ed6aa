package gjkr

import (
	"testing"

	"github.com/keep-network/threshold-dkg/pkg/group"
)

func TestHonestDKGTwoOfTwo(t *testing.T) {
	c := newTestCommittee(t, 2, 2)

	phase1s, b1s := runInit(t, c)

	phase2s, b2s, errs := runToPhase2(c.env.N, phase1s, b1s)
	requireNoErrors(t, "ToPhase2", errs)
	if len(b2s) != 0 {
		t.Fatalf("honest run raised %d complaints, want 0", len(b2s))
	}

	phase3s, b3s, errs := runToPhase3(c.env.N, phase2s, b2s)
	requireNoErrors(t, "ToPhase3", errs)

	phase4s, b4s, errs := runToPhase4(c.env.N, phase3s, b3s)
	requireNoErrors(t, "ToPhase4", errs)
	if len(b4s) != 0 {
		t.Fatalf("honest run raised %d disclosures, want 0", len(b4s))
	}

	phase5s, b5s, errs := runToPhase5(c.env.N, phase4s, b4s)
	requireNoErrors(t, "ToPhase5", errs)

	mpks, shares, errs := runFinalise(c.env.N, phase5s, b5s)
	requireNoErrors(t, "Finalise", errs)

	if !mpks[1].Y.Equal(mpks[2].Y) {
		t.Fatal("members 1 and 2 disagree on the master public key")
	}

	// The final share must lie on the combined committed polynomial:
	// g^{x_i} == sum over qualified dealers k of (A_{k,0} * i^{0} + ... +
	// A_{k,t} * i^t), which for member i is just coeffs[0]+coeffs[1]*i+...
	for member := 1; member <= c.env.N; member++ {
		lhs := group.ScalarBaseMul(shares[member].Value)

		rhs := group.Identity()
		for dealer := 1; dealer <= c.env.N; dealer++ {
			coeffs := phase5s[member].round3CommittedCoeffs[dealer]
			powers := scalarOf(member).Powers()
			for _, ck := range coeffs {
				rhs = rhs.Add(ck.Mul(powers.Next()))
			}
		}

		if !lhs.Equal(rhs) {
			t.Fatalf("member %d's share does not lie on the combined committed polynomial", member)
		}
	}
}

func TestDealerWithZeroCommitmentsIsDisqualifiedByShareValidity(t *testing.T) {
	c := newTestCommittee(t, 3, 2)

	phase1s, b1s := runInit(t, c)

	// Member 3 submits all-identity Pedersen commitments in round 1, while
	// its actual encrypted shares still carry genuine (s, t) values: the
	// commitments no longer match what was dealt.
	tampered := b1s[3]
	zeroed := make([]group.Element, len(tampered.CommittedCoefficients))
	for k := range zeroed {
		zeroed[k] = group.Identity()
	}
	tampered.CommittedCoefficients = zeroed
	b1s[3] = tampered

	phase2s, b2s, errs := runToPhase2(c.env.N, phase1s, b1s)
	requireNoErrors(t, "ToPhase2", errs)

	foundComplaint := false
	for _, b2 := range b2s {
		for _, complaint := range b2.Complaints {
			if complaint.AccusedIndex == 3 {
				if complaint.Reason != ReasonShareValidityFailed {
					t.Fatalf("complaint against member 3 has reason %v, want ReasonShareValidityFailed", complaint.Reason)
				}
				foundComplaint = true
			}
		}
	}
	if !foundComplaint {
		t.Fatal("expected at least one ShareValidityFailed complaint against member 3")
	}

	phase3s, b3s, errs := runToPhase3(c.env.N, phase2s, b2s)
	requireNoErrors(t, "ToPhase3", errs)

	if phase3s[1].qualifiedSet[2] {
		t.Fatal("member 3 should be disqualified in member 1's qualified set")
	}
	if !phase3s[1].qualifiedSet[0] || !phase3s[1].qualifiedSet[1] {
		t.Fatal("members 1 and 2 should remain qualified")
	}
	if phase3s[2].qualifiedSet[2] {
		t.Fatal("member 3 should be disqualified in member 2's qualified set")
	}

	phase4s, b4s, errs := runToPhase4(c.env.N, phase3s, b3s)
	requireNoErrors(t, "ToPhase4", errs)

	phase5s, b5s, errs := runToPhase5(c.env.N, phase4s, b4s)
	requireNoErrors(t, "ToPhase5", errs)

	// Monotonicity: a member disqualified at phase 2 stays disqualified
	// all the way through phase 5, it never comes back.
	if phase5s[1].finalQualifiedSet[2] {
		t.Fatal("member 3, disqualified at phase 2, reappears in member 1's final qualified set")
	}
	if phase5s[2].finalQualifiedSet[2] {
		t.Fatal("member 3, disqualified at phase 2, reappears in member 2's final qualified set")
	}

	mpks, _, errs := runFinalise(c.env.N, phase5s, b5s)
	if errs[1] != nil {
		t.Fatalf("member 1 Finalise: %v", errs[1])
	}
	if errs[2] != nil {
		t.Fatalf("member 2 Finalise: %v", errs[2])
	}
	if !mpks[1].Y.Equal(mpks[2].Y) {
		t.Fatal("members 1 and 2 disagree on the master public key")
	}
}

func TestTwoBadDealersHitComplaintThreshold(t *testing.T) {
	c := newTestCommittee(t, 3, 2)

	phase1s, b1s := runInit(t, c)

	for _, bad := range []int{2, 3} {
		tampered := b1s[bad]
		zeroed := make([]group.Element, len(tampered.CommittedCoefficients))
		for k := range zeroed {
			zeroed[k] = group.Identity()
		}
		tampered.CommittedCoefficients = zeroed
		b1s[bad] = tampered
	}

	_, b2s, errs := runToPhase2(c.env.N, phase1s, b1s)

	if errs[1] == nil {
		t.Fatal("expected member 1 to hit the complaint threshold")
	}
	gjkrErr, ok := errs[1].(*Error)
	if !ok || gjkrErr.Kind != MisbehaviourHigherThreshold {
		t.Fatalf("member 1's error = %v, want MisbehaviourHigherThreshold", errs[1])
	}

	var member1Complaints []Complaint
	for _, b2 := range b2s {
		if b2.SenderIndex == 1 {
			member1Complaints = b2.Complaints
		}
	}
	if len(member1Complaints) != 2 {
		t.Fatalf("member 1 raised %d complaints, want 2", len(member1Complaints))
	}
}

func TestTamperedRound3CommitmentsAreDisqualified(t *testing.T) {
	c := newTestCommittee(t, 3, 2)

	phase1s, b1s := runInit(t, c)
	phase2s, b2s, errs := runToPhase2(c.env.N, phase1s, b1s)
	requireNoErrors(t, "ToPhase2", errs)

	phase3s, b3s, errs := runToPhase3(c.env.N, phase2s, b2s)
	requireNoErrors(t, "ToPhase3", errs)

	// Member 1 publishes tampered (identity) round-3 commitments: they no
	// longer match the shares it dealt in round 1.
	tampered := b3s[1]
	zeroed := make([]group.Element, len(tampered.CommittedCoefficients))
	for k := range zeroed {
		zeroed[k] = group.Identity()
	}
	tampered.CommittedCoefficients = zeroed
	b3s[1] = tampered

	phase4s, b4s, errs := runToPhase4(c.env.N, phase3s, b3s)
	requireNoErrors(t, "ToPhase4", errs)

	foundDisclosure := false
	for _, b4 := range b4s {
		for _, d := range b4.Disclosures {
			if d.AccusedIndex == 1 {
				foundDisclosure = true
			}
		}
	}
	if !foundDisclosure {
		t.Fatal("expected a disclosure naming member 1")
	}

	phase5s, b5s, errs := runToPhase5(c.env.N, phase4s, b4s)
	requireNoErrors(t, "ToPhase5", errs)

	if phase5s[2].finalQualifiedSet[0] {
		t.Fatal("member 1 should be disqualified after round-3 commitment mismatch")
	}

	mpks, _, errs := runFinalise(c.env.N, phase5s, b5s)
	if errs[2] != nil {
		t.Fatalf("member 2 Finalise: %v", errs[2])
	}
	if errs[3] != nil {
		t.Fatalf("member 3 Finalise: %v", errs[3])
	}
	if !mpks[2].Y.Equal(mpks[3].Y) {
		t.Fatal("members 2 and 3 disagree on the master public key")
	}
}

func TestDealerAbsentFromRound3IsExcludedButCeremonyCompletes(t *testing.T) {
	c := newTestCommittee(t, 3, 2)

	phase1s, b1s := runInit(t, c)
	phase2s, b2s, errs := runToPhase2(c.env.N, phase1s, b1s)
	requireNoErrors(t, "ToPhase2", errs)

	phase3s, b3s, errs := runToPhase3(c.env.N, phase2s, b2s)
	requireNoErrors(t, "ToPhase3", errs)

	// Member 3 never publishes round-3 commitments at all.
	var fetched []Broadcast3
	for i := 1; i <= c.env.N; i++ {
		if i == 3 {
			continue
		}
		fetched = append(fetched, b3s[i])
	}

	phase4s := map[int]Phase4{}
	for i := 1; i <= 2; i++ {
		p4, _, err := phase3s[i].ToPhase4(fetched)
		if err != nil {
			t.Fatalf("member %d ToPhase4: %v", i, err)
		}
		phase4s[i] = p4
	}

	phase5s := map[int]Phase5{}
	var broadcast5s []Broadcast5
	for i := 1; i <= 2; i++ {
		p5, b5, err := phase4s[i].ToPhase5(nil)
		if err != nil {
			t.Fatalf("member %d ToPhase5: %v", i, err)
		}
		phase5s[i] = p5
		if b5 != nil {
			broadcast5s = append(broadcast5s, *b5)
		}
	}

	if phase5s[1].finalQualifiedSet[2] {
		t.Fatal("member 3 should be excluded, having never published round-3 commitments")
	}

	mpks := map[int]MasterPublicKey{}
	for i := 1; i <= 2; i++ {
		mpk, _, err := phase5s[i].Finalise(broadcast5s)
		if err != nil {
			t.Fatalf("member %d Finalise: %v", i, err)
		}
		mpks[i] = mpk
	}

	if !mpks[1].Y.Equal(mpks[2].Y) {
		t.Fatal("members 1 and 2 disagree on the master public key")
	}
}

func TestInitRejectsWrongCommitteeSize(t *testing.T) {
	c := newTestCommittee(t, 3, 2)
	if _, _, err := Init(group.SecureRandom, c.env, c.sks[0], c.pks[:2], 1); err == nil {
		t.Fatal("Init accepted a committee of the wrong size")
	}
}

func TestInitRejectsOutOfRangeIndex(t *testing.T) {
	c := newTestCommittee(t, 3, 2)
	if _, _, err := Init(group.SecureRandom, c.env, c.sks[0], c.pks, 0); err == nil {
		t.Fatal("Init accepted member index 0")
	}
	if _, _, err := Init(group.SecureRandom, c.env, c.sks[0], c.pks, 4); err == nil {
		t.Fatal("Init accepted member index beyond n")
	}
}

func TestNewEnvironmentRejectsInvalidThresholds(t *testing.T) {
	cases := map[string]struct {
		t, n int
	}{
		"threshold zero":       {0, 3},
		"threshold above n":    {4, 3},
		"threshold at half":    {1, 2},
		"threshold below half": {2, 5},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewEnvironment(tc.t, tc.n, []byte("seed")); err == nil {
				t.Fatalf("NewEnvironment(%d, %d) succeeded, want error", tc.t, tc.n)
			}
		})
	}
}
