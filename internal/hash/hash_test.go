package hash

import "testing"

func TestHashVerifyRoundTrip(t *testing.T) {
	encoded, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := Verify(encoded, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("Verify: expected match for correct candidate")
	}

	ok, err = Verify(encoded, "wrong password")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("Verify: expected mismatch for wrong candidate")
	}
}

func TestHashProducesDistinctSaltsEachCall(t *testing.T) {
	h1, err := Hash("same-input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash("same-input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected distinct encoded hashes for the same input due to random salts")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if _, err := Verify("not-a-valid-hash", "x"); err == nil {
		t.Fatal("expected error for malformed encoded hash")
	}
}

func TestVerifyRejectsEmptyCandidate(t *testing.T) {
	encoded, err := Hash("something")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	ok, err := Verify(encoded, "")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected empty candidate to fail verification")
	}
}
