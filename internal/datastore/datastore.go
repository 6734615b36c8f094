// Package datastore persists normalized call records to the relational
// store.
package datastore

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/config"
	"trunk-processor/internal/logger"
	"trunk-processor/internal/metadata"
)

const maxOpenConns = 10

type Store struct {
	DB  *gorm.DB
	log *logger.Logger
}

// Open connects to Postgres, bounds the connection pool and migrates the
// schema.
func Open(cfg *config.Config, log *logger.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindDatabase, err, "opening database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindDatabase, err, "configuring connection pool")
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)

	store := &Store{DB: db, log: log}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing GORM handle. Used by tests.
func NewWithDB(db *gorm.DB, log *logger.Logger) *Store {
	return &Store{DB: db, log: log}
}

func (s *Store) migrate() error {
	err := s.DB.AutoMigrate(
		&metadata.Talkgroup{},
		&metadata.Source{},
		&metadata.Call{},
		&metadata.FreqEntry{},
		&metadata.SrcEntry{},
	)
	if err != nil {
		return apperror.Wrap(apperror.KindDatabase, err, "migrating schema")
	}
	return nil
}

// Migrate exposes schema migration for test databases.
func (s *Store) Migrate() error { return s.migrate() }

// Persist writes one call record: source and talkgroup reference rows
// first, then the call with its child entries. The reference upserts are
// deliberately outside the call transaction, matching the recorder
// pipeline's baseline behavior (a failed call write can leave reference
// rows already updated).
func (s *Store) Persist(rec *metadata.CallRecord) error {
	if err := s.UpsertSources(rec.Sources); err != nil {
		return err
	}
	if err := s.UpsertTalkgroup(rec.Talkgroup); err != nil {
		return err
	}
	return s.SaveCall(rec)
}

// UpsertSources writes each distinct source; on conflict the stored tag
// is overwritten. Duplicate ids within one record collapse to the last
// occurrence.
func (s *Store) UpsertSources(sources []metadata.Source) error {
	for _, src := range dedupeSources(sources) {
		err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "src"}},
			DoUpdates: clause.AssignmentColumns([]string{"tag"}),
		}).Create(&src).Error
		if err != nil {
			return apperror.Wrap(apperror.KindDatabase, err, "upserting source %d", src.Src)
		}
	}
	return nil
}

// UpsertTalkgroup writes the talkgroup reference row, last write wins.
func (s *Store) UpsertTalkgroup(tg metadata.Talkgroup) error {
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "talkgroup"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"talkgroup_tag", "talkgroup_description", "talkgroup_group_tag", "talkgroup_group",
		}),
	}).Create(&tg).Error
	if err != nil {
		return apperror.Wrap(apperror.KindDatabase, err, "upserting talkgroup %d", tg.ID)
	}
	return nil
}

// SaveCall upserts the call and inserts its freqlist/srclist entries in
// one transaction. Child keys are recomputed from the call's final
// storage key inside the transaction, so identical re-ingestion inserts
// zero new child rows.
func (s *Store) SaveCall(rec *metadata.CallRecord) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "filename"}},
			UpdateAll: true,
		}).Create(&rec.Call).Error; err != nil {
			return err
		}

		ensureChildKeys(rec)

		if len(rec.Freqs) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hashed"}},
				DoNothing: true,
			}).Create(&rec.Freqs).Error; err != nil {
				return err
			}
		}

		if len(rec.Srcs) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hashed"}},
				DoNothing: true,
			}).Create(&rec.Srcs).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return apperror.Wrap(apperror.KindDatabase, err, "saving call %s", rec.Call.Filename)
	}

	s.log.Module("datastore").
		WithField("call", rec.Call.Filename).
		WithField("freq_entries", len(rec.Freqs)).
		WithField("src_entries", len(rec.Srcs)).
		Debug("call persisted")
	return nil
}

// ensureChildKeys guarantees every child entry is hashed with the call's
// final storage key before insertion. Entries already stamped by the
// pipeline are left untouched, so a record being read concurrently (for
// notification) is not mutated here.
func ensureChildKeys(rec *metadata.CallRecord) {
	for i := range rec.Freqs {
		if rec.Freqs[i].CallID != rec.Call.Filename {
			rec.Freqs[i].AttachCall(rec.Call.Filename)
			rec.Freqs[i].ComputeKey()
		}
	}
	for i := range rec.Srcs {
		if rec.Srcs[i].CallID != rec.Call.Filename {
			rec.Srcs[i].AttachCall(rec.Call.Filename)
			rec.Srcs[i].ComputeKey()
		}
	}
}

func dedupeSources(sources []metadata.Source) []metadata.Source {
	seen := make(map[int32]int, len(sources))
	var out []metadata.Source
	for _, src := range sources {
		if i, ok := seen[src.Src]; ok {
			out[i] = src
			continue
		}
		seen[src.Src] = len(out)
		out = append(out, src)
	}
	return out
}
