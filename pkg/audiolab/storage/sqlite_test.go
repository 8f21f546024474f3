//go:build !js && !wasm

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_audiolab.sqlite3")

	oldPath := os.Getenv("AUDIOLAB_DB_PATH")
	os.Setenv("AUDIOLAB_DB_PATH", dbPath)
	t.Cleanup(func() {
		if oldPath == "" {
			os.Unsetenv("AUDIOLAB_DB_PATH")
		} else {
			os.Setenv("AUDIOLAB_DB_PATH", oldPath)
		}
	})

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func registerPair(t *testing.T, client *DBClient) (string, string) {
	t.Helper()
	a, err := client.RegisterTrack("hash-a", "a.wav", 44100, 2, 10000)
	if err != nil {
		t.Fatalf("RegisterTrack(a) failed: %v", err)
	}
	b, err := client.RegisterTrack("hash-b", "b.wav", 48000, 1, 9000)
	if err != nil {
		t.Fatalf("RegisterTrack(b) failed: %v", err)
	}
	return a, b
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected non-nil database handles")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithCustomPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	if err != nil {
		t.Fatalf("Failed to create DB with custom path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(customPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at custom path %s", customPath)
	}
}

func TestRegisterTrackIsIdempotent(t *testing.T) {
	client, _ := setupTestDB(t)

	id1, err := client.RegisterTrack("abc", "", 44100, 2, 1000)
	if err != nil {
		t.Fatalf("RegisterTrack failed: %v", err)
	}
	id2, err := client.RegisterTrack("abc", "named.wav", 44100, 2, 1000)
	if err != nil {
		t.Fatalf("second RegisterTrack failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("same hash gave different IDs: %s vs %s", id1, id2)
	}

	track, err := client.GetTrack(id1)
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if track.Name != "named.wav" {
		t.Errorf("empty name should be filled in, got %q", track.Name)
	}

	other, _ := client.RegisterTrack("def", "other.wav", 8000, 1, 500)
	if other == id1 {
		t.Error("different hashes must give different IDs")
	}

	tracks, err := client.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("expected 2 tracks, got %d", len(tracks))
	}

	if _, err := client.GetTrack("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAlignmentUpserts(t *testing.T) {
	client, _ := setupTestDB(t)
	a, b := registerPair(t, client)

	id, err := client.SaveAlignment(Alignment{
		TrackAID: a, TrackBID: b, LagSec: 0.25, Score: 0.8,
		EnvelopeRate: 200, CommonDurationSec: 8.75, Method: "direct",
	})
	if err != nil {
		t.Fatalf("SaveAlignment failed: %v", err)
	}

	id2, err := client.SaveAlignment(Alignment{
		TrackAID: a, TrackBID: b, LagSec: -0.1, Score: 0.9,
		EnvelopeRate: 200, CommonDurationSec: 8.9, Method: "fft",
	})
	if err != nil {
		t.Fatalf("second SaveAlignment failed: %v", err)
	}
	if id != id2 {
		t.Errorf("overwrite changed the ID: %s -> %s", id, id2)
	}

	got, err := client.FindAlignment(a, b)
	if err != nil {
		t.Fatalf("FindAlignment failed: %v", err)
	}
	if got.LagSec != -0.1 || got.Score != 0.9 || got.Method != "fft" {
		t.Errorf("alignment not overwritten: %+v", got)
	}
	if got.TrackA.Name != "a.wav" || got.TrackB.Name != "b.wav" {
		t.Errorf("tracks not preloaded: %q %q", got.TrackA.Name, got.TrackB.Name)
	}

	if _, err := client.FindAlignment(b, a); !errors.Is(err, ErrNotFound) {
		t.Errorf("reversed pair should not match, got %v", err)
	}

	list, err := client.ListAlignments()
	if err != nil {
		t.Fatalf("ListAlignments failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 alignment, got %d", len(list))
	}
}

func TestAlignmentKeepsPairNames(t *testing.T) {
	client, _ := setupTestDB(t)
	id, err := client.RegisterTrack("same-hash", "first.wav", 44100, 1, 1000)
	if err != nil {
		t.Fatalf("RegisterTrack failed: %v", err)
	}
	again, err := client.RegisterTrack("same-hash", "second.wav", 44100, 1, 1000)
	if err != nil {
		t.Fatalf("RegisterTrack failed: %v", err)
	}
	if id != again {
		t.Fatalf("identical content should share a track: %s vs %s", id, again)
	}

	if _, err := client.SaveAlignment(Alignment{
		TrackAID: id, TrackBID: id, NameA: "first.wav", NameB: "second.wav",
		Method: "direct", TargetRate: 200, MaxLagSec: 1.5,
	}); err != nil {
		t.Fatalf("SaveAlignment failed: %v", err)
	}
	if _, err := client.SaveAlignment(Alignment{
		TrackAID: id, TrackBID: id, NameA: "first.wav", NameB: "third.wav",
		Method: "direct", TargetRate: 200, MaxLagSec: 0.5,
	}); err != nil {
		t.Fatalf("second SaveAlignment failed: %v", err)
	}

	got, err := client.FindAlignment(id, id)
	if err != nil {
		t.Fatalf("FindAlignment failed: %v", err)
	}
	if got.NameA != "first.wav" || got.NameB != "third.wav" {
		t.Errorf("pair names = %q, %q", got.NameA, got.NameB)
	}
	if got.MaxLagSec != 0.5 || got.TargetRate != 200 {
		t.Errorf("search settings not stored: %+v", got)
	}
}

func TestGetAndDeleteAlignment(t *testing.T) {
	client, _ := setupTestDB(t)
	a, b := registerPair(t, client)

	id, err := client.SaveAlignment(Alignment{TrackAID: a, TrackBID: b, LagSec: 1})
	if err != nil {
		t.Fatalf("SaveAlignment failed: %v", err)
	}

	got, err := client.GetAlignment(id)
	if err != nil {
		t.Fatalf("GetAlignment failed: %v", err)
	}
	if got.ID != id || got.LagSec != 1 {
		t.Errorf("unexpected alignment: %+v", got)
	}

	if err := client.DeleteAlignment(id); err != nil {
		t.Fatalf("DeleteAlignment failed: %v", err)
	}
	if _, err := client.GetAlignment(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := client.DeleteAlignment(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestDeleteTrackRemovesAlignments(t *testing.T) {
	client, _ := setupTestDB(t)
	a, b := registerPair(t, client)
	if _, err := client.SaveAlignment(Alignment{TrackAID: a, TrackBID: b}); err != nil {
		t.Fatalf("SaveAlignment failed: %v", err)
	}

	tracks, alignments, err := client.Counts()
	if err != nil || tracks != 2 || alignments != 1 {
		t.Fatalf("Counts = %d, %d, %v", tracks, alignments, err)
	}

	if err := client.DeleteTrack(b); err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	tracks, alignments, _ = client.Counts()
	if tracks != 1 || alignments != 0 {
		t.Errorf("after delete Counts = %d, %d, want 1, 0", tracks, alignments)
	}

	if err := client.DeleteTrack(b); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var client *DBClient
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client = %v", err)
	}
	if _, err := client.RegisterTrack("h", "n", 1, 1, 1); err == nil {
		t.Error("expected error from nil client")
	}
	if _, err := client.ListAlignments(); err == nil {
		t.Error("expected error from nil client")
	}
}
