package graphcol

import (
	"strings"
	"testing"
	"time"
)

func TestBuildManifest(t *testing.T) {
	orig := now
	defer func() { now = orig }()

	loc := time.FixedZone("CET", 3600)
	now = func() time.Time { return time.Date(2024, 3, 9, 13, 4, 5, 999, loc) }

	stats := Stats{TotalTriples: 3, TotalChunks: 1, TotalSizeBytes: 512}
	m := BuildManifest("wikidata/humans", testNamespace, stats)

	if m.Version != 1 {
		t.Errorf("expected version 1, got %d", m.Version)
	}
	if m.CreatedAt != "2024-03-09T12:04:05Z" {
		t.Errorf("expected UTC second precision, got %s", m.CreatedAt)
	}
	if m.Stats != stats {
		t.Errorf("stats mismatch: %+v", m.Stats)
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for _, key := range []string{`"totalTriples": 3`, `"totalChunks": 1`, `"totalSizeBytes": 512`, `"dataset": "wikidata/humans"`, `"createdAt": "2024-03-09T12:04:05Z"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("manifest missing %s:\n%s", key, data)
		}
	}

	parsed, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *parsed != m {
		t.Errorf("parsed manifest differs: %+v", parsed)
	}

	created, err := parsed.Created()
	if err != nil {
		t.Fatalf("created: %v", err)
	}
	if !created.Equal(time.Date(2024, 3, 9, 12, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected created time %v", created)
	}
}

func TestStatsAdd(t *testing.T) {
	a := Stats{TotalTriples: 1, TotalChunks: 2, TotalSizeBytes: 3}
	b := Stats{TotalTriples: 10, TotalChunks: 20, TotalSizeBytes: 30}

	if got := a.Add(b); got != (Stats{TotalTriples: 11, TotalChunks: 22, TotalSizeBytes: 33}) {
		t.Errorf("unexpected sum %+v", got)
	}
}
