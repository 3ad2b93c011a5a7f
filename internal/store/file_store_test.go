package store_test

import (
	"errors"
	"testing"
	"time"

	"pairlink/internal/domain"
	"pairlink/internal/store"
)

func TestKeyStorage_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	var ks domain.KeyStorage = store.NewFileKeyStorage(home, pass)

	pub := domain.X25519Public{1}
	priv := domain.X25519Private{2}

	if err := ks.SaveKeyPair(pub, priv); err != nil {
		t.Fatalf("save key pair: %v", err)
	}

	// Reopen to prove the pair survived the sealed file round trip.
	ks = store.NewFileKeyStorage(home, pass)
	got, ok, err := ks.LoadKeyPair(pub)
	if err != nil {
		t.Fatalf("load key pair: %v", err)
	}
	if !ok {
		t.Fatal("key pair missing after reopen")
	}
	if got != priv {
		t.Fatal("mismatch after load")
	}

	if err := ks.DeleteKeyPair(pub); err != nil {
		t.Fatalf("delete key pair: %v", err)
	}
	if _, ok, err := ks.LoadKeyPair(pub); err != nil || ok {
		t.Fatalf("pair still present after delete: ok=%v err=%v", ok, err)
	}
}

func TestKeyStorage_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()

	ks := store.NewFileKeyStorage(home, "correct")
	if err := ks.SaveKeyPair(domain.X25519Public{1}, domain.X25519Private{2}); err != nil {
		t.Fatalf("save key pair: %v", err)
	}

	bad := store.NewFileKeyStorage(home, "wrong")
	_, _, err := bad.LoadKeyPair(domain.X25519Public{1})
	if err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("want ErrPersistence, got %v", err)
	}
}

func TestKeyStorage_TopicKeysAndIdentity(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	ks := store.NewFileKeyStorage(home, pass)

	sym := domain.SymmetricKey{9}
	if err := ks.SaveTopicKeys("topic-a", domain.TopicKeys{Sym: &sym}); err != nil {
		t.Fatalf("save topic keys: %v", err)
	}
	identity := domain.X25519Public{7}
	if err := ks.SaveIdentity(identity); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	ks = store.NewFileKeyStorage(home, pass)
	tk, ok, err := ks.LoadTopicKeys("topic-a")
	if err != nil || !ok {
		t.Fatalf("load topic keys: ok=%v err=%v", ok, err)
	}
	if tk.Sym == nil || *tk.Sym != sym {
		t.Fatal("symmetric key mismatch after reopen")
	}

	gotID, ok, err := ks.LoadIdentity()
	if err != nil || !ok {
		t.Fatalf("load identity: ok=%v err=%v", ok, err)
	}
	if gotID != identity {
		t.Fatal("identity mismatch after reopen")
	}

	if err := ks.DeleteTopicKeys("topic-a"); err != nil {
		t.Fatalf("delete topic keys: %v", err)
	}
	if _, ok, _ := ks.LoadTopicKeys("topic-a"); ok {
		t.Fatal("topic keys still present after delete")
	}
}

func TestRelationshipStore_RoundTrip(t *testing.T) {
	home := t.TempDir()

	var rs domain.RelationshipStore = store.NewFileRelationshipStore(home)

	rec := domain.RelationshipRecord{
		Topic:     "topic-b",
		RequestID: 42,
		Protocol:  "pairing",
		State:     domain.StateProposed,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := rs.Save(rec); err != nil {
		t.Fatalf("save record: %v", err)
	}

	rs = store.NewFileRelationshipStore(home)
	got, ok, err := rs.Load("topic-b")
	if err != nil || !ok {
		t.Fatalf("load record: ok=%v err=%v", ok, err)
	}
	if got.RequestID != rec.RequestID || got.State != rec.State {
		t.Fatal("mismatch after reopen")
	}

	byID, ok, err := rs.LoadByRequestID(42)
	if err != nil || !ok {
		t.Fatalf("load by request id: ok=%v err=%v", ok, err)
	}
	if byID.Topic != rec.Topic {
		t.Fatal("wrong record by request id")
	}

	all, err := rs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want 1 record, got %d", len(all))
	}

	if err := rs.Delete("topic-b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := rs.Load("topic-b"); ok {
		t.Fatal("record still present after delete")
	}
}

func TestPendingRequestStore_RoundTrip(t *testing.T) {
	home := t.TempDir()

	var ps domain.PendingRequestStore = store.NewFilePendingRequestStore(home)

	req := domain.PendingRequest{
		ID:        7,
		Topic:     "topic-c",
		Method:    "pairing_invite",
		Params:    []byte(`{"publicKey":"00"}`),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := ps.Save(req); err != nil {
		t.Fatalf("save pending: %v", err)
	}

	ps = store.NewFilePendingRequestStore(home)
	got, ok, err := ps.Load(7)
	if err != nil || !ok {
		t.Fatalf("load pending: ok=%v err=%v", ok, err)
	}
	if got.Method != req.Method || string(got.Params) != string(req.Params) {
		t.Fatal("mismatch after reopen")
	}

	if err := ps.Delete(7); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	if _, ok, _ := ps.Load(7); ok {
		t.Fatal("pending still present after delete")
	}
}

func TestHistoryStore_DetectsDuplicates(t *testing.T) {
	home := t.TempDir()

	var hs domain.HistoryStore = store.NewFileHistoryStore(home)

	entry := domain.HistoryEntry{
		RequestID:   11,
		Topic:       "topic-d",
		Direction:   domain.DirectionInbound,
		PayloadHash: "abc",
	}
	if err := hs.Record(entry); err != nil {
		t.Fatalf("record: %v", err)
	}

	hs = store.NewFileHistoryStore(home)
	ok, err := hs.Exists(11, "topic-d")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatal("entry missing after reopen")
	}

	// Same id on another topic is a distinct exchange.
	ok, err = hs.Exists(11, "topic-e")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("unexpected hit for different topic")
	}
}
