//go:build !js && !wasm

package audiolab

import (
	"errors"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/storage"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) RegisterTrack(hash, name string, sampleRate, channels, durationMs int) (string, error) {
	return s.db.RegisterTrack(hash, name, sampleRate, channels, durationMs)
}

func (s *storageAdapter) SaveAlignment(rec AlignmentRecord) (string, error) {
	return s.db.SaveAlignment(storage.Alignment{
		ID:                rec.ID,
		TrackAID:          rec.TrackAID,
		TrackBID:          rec.TrackBID,
		NameA:             rec.TrackAName,
		NameB:             rec.TrackBName,
		LagSec:            rec.LagSec,
		Score:             rec.Score,
		EnvelopeRate:      rec.EnvelopeRate,
		CommonDurationSec: rec.CommonDurationSec,
		Method:            rec.Method,
		TargetRate:        rec.TargetRate,
		MaxLagSec:         rec.MaxLagSec,
	})
}

func (s *storageAdapter) FindAlignment(trackAID, trackBID string) (*AlignmentRecord, error) {
	row, err := s.db.FindAlignment(trackAID, trackBID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	rec := toRecord(*row)
	return &rec, nil
}

func (s *storageAdapter) GetAlignment(id string) (*AlignmentRecord, error) {
	row, err := s.db.GetAlignment(id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	rec := toRecord(*row)
	return &rec, nil
}

func (s *storageAdapter) ListAlignments() ([]AlignmentRecord, error) {
	rows, err := s.db.ListAlignments()
	if err != nil {
		return nil, err
	}
	out := make([]AlignmentRecord, len(rows))
	for i, row := range rows {
		out[i] = toRecord(row)
	}
	return out, nil
}

func (s *storageAdapter) DeleteAlignment(id string) error {
	return mapNotFound(s.db.DeleteAlignment(id))
}

func (s *storageAdapter) Counts() (int, int, error) {
	tracks, alignments, err := s.db.Counts()
	return int(tracks), int(alignments), err
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func toRecord(a storage.Alignment) AlignmentRecord {
	nameA, nameB := a.NameA, a.NameB
	if nameA == "" {
		nameA = a.TrackA.Name
	}
	if nameB == "" {
		nameB = a.TrackB.Name
	}
	return AlignmentRecord{
		ID:                a.ID,
		TrackAID:          a.TrackAID,
		TrackBID:          a.TrackBID,
		TrackAName:        nameA,
		TrackBName:        nameB,
		LagSec:            a.LagSec,
		Score:             a.Score,
		EnvelopeRate:      a.EnvelopeRate,
		CommonDurationSec: a.CommonDurationSec,
		Method:            a.Method,
		TargetRate:        a.TargetRate,
		MaxLagSec:         a.MaxLagSec,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
