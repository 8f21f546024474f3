//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	customlogger "github.com/himanishpuri/AudioLab/pkg/logger"
	"github.com/himanishpuri/AudioLab/pkg/utils"
)

const DefaultDBFile = "audiolab.sqlite3"
const errDBClientNil = "db client is nil"

var ErrNotFound = errors.New("storage: record not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Track is a decoded source file, keyed by the sha256 of its bytes.
type Track struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ContentHash string `gorm:"uniqueIndex:idx_track_hash;type:varchar(64)" json:"content_hash"`
	Name        string `gorm:"index:idx_track_name" json:"name"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	DurationMs  int    `json:"duration_ms"`
	CreatedAt   time.Time
}

// Alignment caches the estimated lag of TrackB against TrackA.
type Alignment struct {
	ID                string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TrackAID          string  `gorm:"type:varchar(36);uniqueIndex:idx_alignment_pair,priority:1" json:"track_a_id"`
	TrackBID          string  `gorm:"type:varchar(36);uniqueIndex:idx_alignment_pair,priority:2;index:idx_alignment_b" json:"track_b_id"`
	TrackA            Track   `gorm:"foreignKey:TrackAID;constraint:OnDelete:CASCADE" json:"-"`
	TrackB            Track   `gorm:"foreignKey:TrackBID;constraint:OnDelete:CASCADE" json:"-"`
	NameA             string  `json:"name_a"` // source names as given for this pair
	NameB             string  `json:"name_b"`
	LagSec            float64 `json:"lag_sec"`
	Score             float64 `json:"score"`
	EnvelopeRate      float64 `json:"envelope_rate"`
	CommonDurationSec float64 `json:"common_duration_sec"`
	Method            string  `gorm:"type:varchar(16)" json:"method"`
	TargetRate        float64 `json:"target_rate"`
	MaxLagSec         float64 `json:"max_lag_sec"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("AUDIOLAB_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Track{}, &Alignment{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	customlogger.GetLogger().Debugf("Opened alignment database at %s", dbPath)
	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) check() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

// RegisterTrack returns the ID of the track with hash, creating it if needed.
func (c *DBClient) RegisterTrack(hash, name string, sampleRate, channels, durationMs int) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}

	var track Track
	err := c.DB.Where("content_hash = ?", hash).First(&track).Error
	if err == nil {
		if track.Name == "" && name != "" {
			if err := c.DB.Model(&track).Update("Name", name).Error; err != nil {
				return "", fmt.Errorf("updating track name: %w", err)
			}
		}
		return track.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing track: %w", err)
	}

	track = Track{
		ID:          utils.GenerateUUID(),
		ContentHash: hash,
		Name:        name,
		SampleRate:  sampleRate,
		Channels:    channels,
		DurationMs:  durationMs,
	}
	if err := c.DB.Create(&track).Error; err != nil {
		if isUniqueViolation(err) {
			if fetchErr := c.DB.Where("content_hash = ?", hash).First(&track).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching track after constraint violation: %w", fetchErr)
			}
			return track.ID, nil
		}
		return "", fmt.Errorf("creating track: %w", err)
	}
	return track.ID, nil
}

func (c *DBClient) GetTrack(id string) (*Track, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var track Track
	if err := c.DB.Where("id = ?", id).First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying track: %w", err)
	}
	return &track, nil
}

func (c *DBClient) ListTracks() ([]Track, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var tracks []Track
	if err := c.DB.Order("created_at desc").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	return tracks, nil
}

// DeleteTrack removes a track and every alignment that references it.
func (c *DBClient) DeleteTrack(id string) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_a_id = ? OR track_b_id = ?", id, id).Delete(&Alignment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Track{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SaveAlignment inserts a, or overwrites the stored result for the same
// ordered track pair. It returns the row ID, which is stable across
// overwrites.
func (c *DBClient) SaveAlignment(a Alignment) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}

	var id string
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		var existing Alignment
		err := tx.Where("track_a_id = ? AND track_b_id = ?", a.TrackAID, a.TrackBID).First(&existing).Error
		switch {
		case err == nil:
			id = existing.ID
			return tx.Model(&existing).Updates(map[string]any{
				"lag_sec":             a.LagSec,
				"score":               a.Score,
				"envelope_rate":       a.EnvelopeRate,
				"common_duration_sec": a.CommonDurationSec,
				"method":              a.Method,
				"target_rate":         a.TargetRate,
				"max_lag_sec":         a.MaxLagSec,
				"name_a":              a.NameA,
				"name_b":              a.NameB,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			if a.ID == "" {
				a.ID = utils.GenerateUUID()
			}
			id = a.ID
			a.TrackA, a.TrackB = Track{}, Track{}
			return tx.Omit("TrackA", "TrackB").Create(&a).Error
		default:
			return err
		}
	})
	if err != nil {
		return "", fmt.Errorf("saving alignment: %w", err)
	}
	return id, nil
}

// FindAlignment looks up the cached result for the ordered pair (a, b).
func (c *DBClient) FindAlignment(trackAID, trackBID string) (*Alignment, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var a Alignment
	err := c.DB.Preload("TrackA").Preload("TrackB").
		Where("track_a_id = ? AND track_b_id = ?", trackAID, trackBID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying alignment: %w", err)
	}
	return &a, nil
}

func (c *DBClient) GetAlignment(id string) (*Alignment, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var a Alignment
	if err := c.DB.Preload("TrackA").Preload("TrackB").Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying alignment: %w", err)
	}
	return &a, nil
}

// ListAlignments returns stored alignments, newest first.
func (c *DBClient) ListAlignments() ([]Alignment, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var rows []Alignment
	if err := c.DB.Preload("TrackA").Preload("TrackB").Order("updated_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing alignments: %w", err)
	}
	return rows, nil
}

func (c *DBClient) DeleteAlignment(id string) error {
	if err := c.check(); err != nil {
		return err
	}
	res := c.DB.Where("id = ?", id).Delete(&Alignment{})
	if res.Error != nil {
		return fmt.Errorf("deleting alignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Counts returns the number of stored tracks and alignments.
func (c *DBClient) Counts() (tracks, alignments int64, err error) {
	if err := c.check(); err != nil {
		return 0, 0, err
	}
	if err := c.DB.Model(&Track{}).Count(&tracks).Error; err != nil {
		return 0, 0, fmt.Errorf("counting tracks: %w", err)
	}
	if err := c.DB.Model(&Alignment{}).Count(&alignments).Error; err != nil {
		return 0, 0, fmt.Errorf("counting alignments: %w", err)
	}
	return tracks, alignments, nil
}
