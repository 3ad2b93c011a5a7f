package crypto_test

import (
	"testing"

	"pairlink/internal/crypto"
)

func TestSharedKeySymmetry(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bPriv, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	ab, err := crypto.SharedKey(aPriv, aPub, bPub)
	if err != nil {
		t.Fatalf("SharedKey(a, b): %v", err)
	}
	ba, err := crypto.SharedKey(bPriv, bPub, aPub)
	if err != nil {
		t.Fatalf("SharedKey(b, a): %v", err)
	}
	if ab != ba {
		t.Fatalf("initiator and responder derived different keys:\n a: %s\n b: %s", ab.Hex(), ba.Hex())
	}
}

func TestSharedKeyDistinctPerPeer(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_, cPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	ab, err := crypto.SharedKey(aPriv, aPub, bPub)
	if err != nil {
		t.Fatalf("SharedKey: %v", err)
	}
	ac, err := crypto.SharedKey(aPriv, aPub, cPub)
	if err != nil {
		t.Fatalf("SharedKey: %v", err)
	}
	if ab == ac {
		t.Fatal("shared keys for different peers collided")
	}
}

func TestTopicForDeterministic(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	t1 := crypto.TopicFor(pub.Hex())
	t2 := crypto.TopicFor(pub.Hex())
	if t1 != t2 {
		t.Fatalf("topic not deterministic: %s vs %s", t1, t2)
	}
	if len(t1) != 64 {
		t.Fatalf("want 64 hex chars, got %d", len(t1))
	}
}

func TestTopicForKnownVector(t *testing.T) {
	// SHA-256 of the ASCII hex string, not of the raw key bytes.
	got := crypto.TopicFor("00")
	const want = "f1534392279bddbf9d43dde8701cb5be14b82f76ec6607bf8d6ad557f60f304e"
	if string(got) != want {
		t.Fatalf("TopicFor(\"00\") = %s, want %s", got, want)
	}
}

func TestGeneratedPrivateKeyIsClamped(t *testing.T) {
	priv, _, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	if priv[0]&7 != 0 {
		t.Fatalf("low bits not cleared: %08b", priv[0])
	}
	if priv[31]&128 != 0 || priv[31]&64 == 0 {
		t.Fatalf("high bits not clamped: %08b", priv[31])
	}
}
