package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/models"
)

func newTestJournal(t *testing.T) *SnapshotJournal {
	t.Helper()
	j, err := NewSnapshotJournal(filepath.Join(t.TempDir(), "snapshots.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSnapshotJournal: %v", err)
	}
	return j
}

func snapAt(ts string) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Timestamp: ts,
		Summary:   models.Summary{PositiveCount: 1},
		Underlyings: []models.UnderlyingSnapshot{
			{Name: "NIFTY", Status: models.ClassPositive, Spot: 22512.35},
		},
	}
}

func waitForCount(t *testing.T, j *SnapshotJournal, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, err := j.Count(); err == nil && n == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	n, _ := j.Count()
	t.Fatalf("journal count = %d, want %d", n, want)
}

func TestJournalPersistAndRecent(t *testing.T) {
	j := newTestJournal(t)
	defer j.Close()

	j.Persist(snapAt("10:15:00"))
	j.Persist(snapAt("10:15:05"))
	waitForCount(t, j, 2)

	recent, err := j.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(recent))
	}
	if recent[0].Timestamp != "10:15:05" {
		t.Errorf("newest first: got %q", recent[0].Timestamp)
	}
	if recent[0].Underlyings[0].Name != "NIFTY" {
		t.Errorf("payload round trip lost data: %+v", recent[0])
	}
}

func TestJournalIgnoresNil(t *testing.T) {
	j := newTestJournal(t)
	defer j.Close()

	j.Persist(nil)
	j.Persist(snapAt("10:15:00"))
	waitForCount(t, j, 1)
}

func TestJournalCloseDrains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	j, err := NewSnapshotJournal(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSnapshotJournal: %v", err)
	}
	for i := 0; i < 10; i++ {
		j.Persist(snapAt("10:15:00"))
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen to verify every queued snapshot hit disk before close.
	reopened, err := NewSnapshotJournal(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if n, err := reopened.Count(); err != nil || n != 10 {
		t.Errorf("count after reopen = %d, %v; want 10", n, err)
	}
}
