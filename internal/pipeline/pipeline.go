// Package pipeline sequences one upload from multipart intake to durable
// storage, transcription and notification.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"trunk-processor/internal/config"
	"trunk-processor/internal/intake"
	"trunk-processor/internal/logger"
	"trunk-processor/internal/metadata"
	"trunk-processor/internal/pathing"
)

// Collaborator contracts, satisfied by the concrete clients and faked in
// tests.

type BlobUploader interface {
	UploadPair(ctx context.Context, prefix string, upload *intake.Upload) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio intake.Artifact) (string, error)
}

type Persister interface {
	Persist(rec *metadata.CallRecord) error
}

type Notifier interface {
	Send(ctx context.Context, rec *metadata.CallRecord, transcription string, audio intake.Artifact) error
}

type TranscribeFilter interface {
	ShouldTranscribe(talkgroup int32, group string) bool
}

type Pipeline struct {
	cfg         *config.Config
	uploader    BlobUploader
	transcriber Transcriber
	store       Persister
	notifier    Notifier
	filter      TranscribeFilter
	log         *logger.Logger
}

func New(cfg *config.Config, uploader BlobUploader, transcriber Transcriber,
	store Persister, notifier Notifier, filter TranscribeFilter, log *logger.Logger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		uploader:    uploader,
		transcriber: transcriber,
		store:       store,
		notifier:    notifier,
		filter:      filter,
		log:         log,
	}
}

// Process handles one upload request end to end. Terminal states are
// stored (nil) or failed (the first error from any stage).
func (p *Pipeline) Process(ctx context.Context, req *http.Request) error {
	start := time.Now()
	log := p.log.Module("pipeline")
	log.Info("starting upload processing")

	upload, err := intake.Read(req, p.cfg.AllowedAudioExtensions)
	if err != nil {
		return err
	}
	log.WithField("json_file", upload.JSON.Name).
		WithField("json_bytes", len(upload.JSON.Data)).
		WithField("audio_file", upload.Audio.Name).
		WithField("audio_bytes", len(upload.Audio.Data)).
		Info("files received")

	rec, err := metadata.Parse(upload.JSON.Data)
	if err != nil {
		return err
	}

	prefix, err := pathing.Prefix(rec.Call.ShortName, rec.Call.StartTime)
	if err != nil {
		return err
	}
	rec.Call.Talkgroup = rec.Talkgroup.ID
	rec.AttachCallKey(pathing.CallKey(prefix, upload.Audio.Name))

	log.WithField("talkgroup", rec.Talkgroup.ID).
		WithField("path", prefix).
		Info("processed audio metadata")

	if p.shouldTranscribe(req, rec) {
		if err := p.runTranscribePath(ctx, prefix, upload, rec); err != nil {
			return err
		}
	} else {
		if err := p.runArchivePath(ctx, prefix, upload, rec); err != nil {
			return err
		}
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("upload processing completed successfully")
	return nil
}

// shouldTranscribe applies the archive marker first, then the filter
// engine. With filtering disabled the default is to not transcribe.
func (p *Pipeline) shouldTranscribe(req *http.Request, rec *metadata.CallRecord) bool {
	if len(req.Header.Values("archive")) > 0 {
		p.log.Module("pipeline").WithField("file", rec.Call.Filename).Info("set to archive")
		return false
	}
	if p.cfg.Filter.Enabled() {
		return p.filter.ShouldTranscribe(rec.Talkgroup.ID, rec.Talkgroup.Group)
	}
	return false
}

// runArchivePath stores the artifacts and persists the record with no
// transcription, concurrently.
func (p *Pipeline) runArchivePath(ctx context.Context, prefix string, upload *intake.Upload, rec *metadata.CallRecord) error {
	rec.Call.Transcription = nil
	return joinPair(
		func() error { return p.uploader.UploadPair(ctx, prefix, upload) },
		func() error { return p.store.Persist(rec) },
	)
}

// runTranscribePath uploads and transcribes concurrently, then persists
// and notifies concurrently.
func (p *Pipeline) runTranscribePath(ctx context.Context, prefix string, upload *intake.Upload, rec *metadata.CallRecord) error {
	var transcription string
	err := joinPair(
		func() error { return p.uploader.UploadPair(ctx, prefix, upload) },
		func() error {
			text, err := p.transcriber.Transcribe(ctx, upload.Audio)
			if err != nil {
				return err
			}
			transcription = text
			return nil
		},
	)
	if err != nil {
		return err
	}

	rec.Call.Transcription = &transcription

	return joinPair(
		func() error { return p.store.Persist(rec) },
		func() error { return p.notifier.Send(ctx, rec, transcription, upload.Audio) },
	)
}

// joinPair runs both operations concurrently and returns the first error
// as soon as it is known. The other operation is not cancelled; it runs
// to completion and its result is discarded.
func joinPair(a, b func() error) error {
	errs := make(chan error, 2)
	go func() { errs <- a() }()
	go func() { errs <- b() }()
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			return err
		}
	}
	return nil
}
