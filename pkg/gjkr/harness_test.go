package gjkr

import (
	"crypto/rand"
	"testing"
)

// committee is a set of members' long-lived keys sharing one Environment,
// used to drive a full multi-member DKG run across test cases.
type committee struct {
	env Environment
	sks []CommunicationKey
	pks []CommunicationPublicKey
}

func newTestCommittee(t *testing.T, n, threshold int) committee {
	t.Helper()
	env, err := NewEnvironment(threshold, n, []byte("gjkr harness seed"))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}

	sks := make([]CommunicationKey, n)
	pks := make([]CommunicationPublicKey, n)
	for i := 0; i < n; i++ {
		sk, err := NewCommunicationKey(rand.Reader)
		if err != nil {
			t.Fatalf("NewCommunicationKey: %v", err)
		}
		sks[i] = sk
		pks[i] = sk.Public()
	}
	return committee{env: env, sks: sks, pks: pks}
}

// routeRound1 simulates the transport layer's job of routing each sender's
// encrypted share to the one recipient it's addressed to.
func routeRound1(broadcasts map[int]Broadcast1, recipient int) []FetchedRound1 {
	var fetched []FetchedRound1
	for sender, b := range broadcasts {
		if sender == recipient {
			continue
		}
		for _, shares := range b.EncryptedShares {
			if shares.RecipientIndex == recipient {
				fetched = append(fetched, FetchedRound1{
					SenderIndex:           sender,
					CommittedCoefficients: b.CommittedCoefficients,
					SharesForMe:           shares,
				})
			}
		}
	}
	return fetched
}

func runInit(t *testing.T, c committee) (map[int]Phase1, map[int]Broadcast1) {
	t.Helper()
	phase1s := map[int]Phase1{}
	broadcasts := map[int]Broadcast1{}
	for i := 1; i <= c.env.N; i++ {
		p1, b1, err := Init(rand.Reader, c.env, c.sks[i-1], c.pks, i)
		if err != nil {
			t.Fatalf("Init(member %d): %v", i, err)
		}
		phase1s[i] = p1
		broadcasts[i] = b1
	}
	return phase1s, broadcasts
}

func runToPhase2(
	n int,
	phase1s map[int]Phase1,
	broadcasts map[int]Broadcast1,
) (map[int]Phase2, []Broadcast2, map[int]error) {
	phase2s := map[int]Phase2{}
	var broadcast2s []Broadcast2
	errs := map[int]error{}
	for i := 1; i <= n; i++ {
		p2, b2, err := phase1s[i].ToPhase2(routeRound1(broadcasts, i))
		phase2s[i] = p2
		if b2 != nil {
			broadcast2s = append(broadcast2s, *b2)
		}
		errs[i] = err
	}
	return phase2s, broadcast2s, errs
}

func runToPhase3(
	n int,
	phase2s map[int]Phase2,
	broadcast2s []Broadcast2,
) (map[int]Phase3, map[int]Broadcast3, map[int]error) {
	phase3s := map[int]Phase3{}
	broadcast3s := map[int]Broadcast3{}
	errs := map[int]error{}
	for i := 1; i <= n; i++ {
		p3, b3, err := phase2s[i].ToPhase3(broadcast2s)
		phase3s[i] = p3
		broadcast3s[i] = b3
		errs[i] = err
	}
	return phase3s, broadcast3s, errs
}

func runToPhase4(
	n int,
	phase3s map[int]Phase3,
	broadcast3s map[int]Broadcast3,
) (map[int]Phase4, []Broadcast4, map[int]error) {
	var fetched []Broadcast3
	for i := 1; i <= n; i++ {
		fetched = append(fetched, broadcast3s[i])
	}

	phase4s := map[int]Phase4{}
	var broadcast4s []Broadcast4
	errs := map[int]error{}
	for i := 1; i <= n; i++ {
		p4, b4, err := phase3s[i].ToPhase4(fetched)
		phase4s[i] = p4
		if b4 != nil {
			broadcast4s = append(broadcast4s, *b4)
		}
		errs[i] = err
	}
	return phase4s, broadcast4s, errs
}

func runToPhase5(
	n int,
	phase4s map[int]Phase4,
	broadcast4s []Broadcast4,
) (map[int]Phase5, []Broadcast5, map[int]error) {
	phase5s := map[int]Phase5{}
	var broadcast5s []Broadcast5
	errs := map[int]error{}
	for i := 1; i <= n; i++ {
		p5, b5, err := phase4s[i].ToPhase5(broadcast4s)
		phase5s[i] = p5
		if b5 != nil {
			broadcast5s = append(broadcast5s, *b5)
		}
		errs[i] = err
	}
	return phase5s, broadcast5s, errs
}

func runFinalise(
	n int,
	phase5s map[int]Phase5,
	broadcast5s []Broadcast5,
) (map[int]MasterPublicKey, map[int]SecretShare, map[int]error) {
	mpks := map[int]MasterPublicKey{}
	shares := map[int]SecretShare{}
	errs := map[int]error{}
	for i := 1; i <= n; i++ {
		mpk, share, err := phase5s[i].Finalise(broadcast5s)
		mpks[i] = mpk
		shares[i] = share
		errs[i] = err
	}
	return mpks, shares, errs
}

func requireNoErrors(t *testing.T, step string, errs map[int]error) {
	t.Helper()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("member %d %s: %v", i, step, err)
		}
	}
}
