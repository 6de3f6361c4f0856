package cache

import (
	"testing"
	"time"

	"crisisengine.dev/ensemble/internal/models"
)

func TestResponseCachePutGet(t *testing.T) {
	c := NewResponseCache(10, time.Minute)
	assessment := models.CrisisAssessment{CrisisScore: 0.7}
	c.Put("key1", assessment)

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.CrisisScore != 0.7 {
		t.Errorf("CrisisScore = %v, want 0.7", got.CrisisScore)
	}
}

func TestResponseCacheMissOnUnknownKey(t *testing.T) {
	c := NewResponseCache(10, time.Minute)
	_, ok := c.Get("missing")
	if ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestResponseCacheExpiresAfterTTL(t *testing.T) {
	c := NewResponseCache(10, time.Millisecond)
	c.Put("key1", models.CrisisAssessment{})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Error("expected the entry to have expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %v, want 0 after expiry eviction", c.Len())
	}
}

func TestResponseCacheEvictsLRUAtCapacity(t *testing.T) {
	c := NewResponseCache(2, time.Minute)
	c.Put("a", models.CrisisAssessment{})
	c.Put("b", models.CrisisAssessment{})
	c.Get("a") // touch a, making b the least recently used
	c.Put("c", models.CrisisAssessment{})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted as the least recently used entry")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction (recently touched)")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present (just inserted)")
	}
}

func TestKeyDeterministicAndDistinguishesInputs(t *testing.T) {
	k1 := Key("hello", models.AlgorithmWeighted, models.VerbosityStandard, "")
	k2 := Key("hello", models.AlgorithmWeighted, models.VerbosityStandard, "")
	if k1 != k2 {
		t.Error("Key should be deterministic for identical inputs")
	}
	k3 := Key("hello", models.AlgorithmMajority, models.VerbosityStandard, "")
	if k1 == k3 {
		t.Error("Key should differ when the algorithm differs")
	}
}

func TestHistoryFingerprintEmptyIsEmptyString(t *testing.T) {
	if got := HistoryFingerprint(nil); got != "" {
		t.Errorf("HistoryFingerprint(nil) = %q, want empty string", got)
	}
}

func TestHistoryFingerprintDistinguishesContent(t *testing.T) {
	h1 := []models.MessageHistoryItem{{Text: "a", Timestamp: time.Unix(0, 0)}}
	h2 := []models.MessageHistoryItem{{Text: "b", Timestamp: time.Unix(0, 0)}}
	if HistoryFingerprint(h1) == HistoryFingerprint(h2) {
		t.Error("different history content should produce different fingerprints")
	}
}
