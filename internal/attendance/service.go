package attendance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/your-org/absensi/internal/config"
	"github.com/your-org/absensi/internal/ingest"
	"github.com/your-org/absensi/internal/models"
	"github.com/your-org/absensi/internal/observability"
	"github.com/your-org/absensi/internal/recognize"
	"github.com/your-org/absensi/internal/staging"
)

// Ledger records attendance transitions.
type Ledger interface {
	InsertCheckIn(ctx context.Context, personID int64, nama string, jamMasuk time.Time) error
	UpdateCheckOut(ctx context.Context, personID int64, jamPulang time.Time) error
}

// Archiver keeps a durable copy of recognized snapshots. Optional.
type Archiver interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Publisher emits attendance events. Optional.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, data interface{}) error
}

// Outcome is a completed recognition, possibly with a recorded transition.
type Outcome struct {
	Result      *recognize.Result
	Jam         time.Time
	SnapshotKey string
}

// Service drives the image→identity→ledger pipeline. Every staged file is
// released before a request returns, whatever the outcome.
type Service struct {
	stage      *staging.Store
	acquirer   *ingest.Acquirer
	recognizer recognize.Recognizer
	ledger     Ledger
	archive    Archiver
	events     Publisher
	cfg        config.RecognitionConfig
}

func NewService(stage *staging.Store, acquirer *ingest.Acquirer, recognizer recognize.Recognizer,
	ledger Ledger, archive Archiver, events Publisher, cfg config.RecognitionConfig) *Service {
	return &Service{
		stage:      stage,
		acquirer:   acquirer,
		recognizer: recognizer,
		ledger:     ledger,
		archive:    archive,
		events:     events,
		cfg:        cfg,
	}
}

// RecognizeUpload identifies a person from an uploaded image without
// touching the ledger.
func (s *Service) RecognizeUpload(ctx context.Context, r io.Reader) (*recognize.Result, error) {
	path, err := s.acquirer.FromUpload(r)
	if err != nil {
		return nil, err
	}
	defer s.stage.Release(path)

	return s.recognizeOnce(ctx, path)
}

// RecognizeURL identifies a person from a remote image without touching
// the ledger.
func (s *Service) RecognizeURL(ctx context.Context, imgURL string) (*recognize.Result, error) {
	path, err := s.acquirer.FromURL(ctx, imgURL)
	if err != nil {
		return nil, err
	}
	defer s.stage.Release(path)

	return s.recognizeOnce(ctx, path)
}

// SubmitUpload records a transition from an uploaded image.
func (s *Service) SubmitUpload(ctx context.Context, r io.Reader, transition models.Transition) (*Outcome, error) {
	path, err := s.acquirer.FromUpload(r)
	if err != nil {
		return nil, err
	}
	defer s.stage.Release(path)

	return s.apply(ctx, path, transition)
}

// SubmitURL records a transition from a remote image.
func (s *Service) SubmitURL(ctx context.Context, imgURL string, transition models.Transition) (*Outcome, error) {
	path, err := s.acquirer.FromURL(ctx, imgURL)
	if err != nil {
		return nil, err
	}
	defer s.stage.Release(path)

	return s.apply(ctx, path, transition)
}

func (s *Service) recognizeOnce(ctx context.Context, path string) (*recognize.Result, error) {
	result, err := s.recognizer.Recognize(ctx, s.cfg.ModelName, path,
		s.cfg.FaceDetThreshold, s.cfg.FaceDistThreshold)
	if err != nil {
		observability.Recognitions.WithLabelValues("failed").Inc()
		return nil, err
	}
	observability.Recognitions.WithLabelValues("ok").Inc()
	return result, nil
}

// apply runs the model exactly once, then records the transition. The
// snapshot archive and event publish are best effort: the ledger row is
// already durable when they run, so their failures only get logged.
func (s *Service) apply(ctx context.Context, path string, transition models.Transition) (*Outcome, error) {
	result, err := s.recognizeOnce(ctx, path)
	if err != nil {
		return nil, err
	}

	jam := time.Now()
	switch transition {
	case models.TransitionMasuk:
		err = s.ledger.InsertCheckIn(ctx, result.PersonID, result.Nama, jam)
	case models.TransitionPulang:
		err = s.ledger.UpdateCheckOut(ctx, result.PersonID, jam)
	default:
		err = fmt.Errorf("unknown transition %q", transition)
	}
	if err != nil {
		return nil, err
	}
	observability.AttendanceEvents.WithLabelValues(string(transition)).Inc()

	out := &Outcome{Result: result, Jam: jam}
	out.SnapshotKey = s.archiveSnapshot(ctx, path, result.PersonID, transition, jam)
	s.publish(ctx, transition, result, jam, out.SnapshotKey)
	return out, nil
}

func (s *Service) archiveSnapshot(ctx context.Context, path string, personID int64, transition models.Transition, jam time.Time) string {
	if s.archive == nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("read snapshot for archive", "path", path, "error", err)
		return ""
	}
	key := fmt.Sprintf("absensi/%d/%s-%s.jpg", personID, transition, jam.UTC().Format("20060102T150405.000"))
	if err := s.archive.PutObject(ctx, key, data, "image/jpeg"); err != nil {
		slog.Warn("archive snapshot", "key", key, "error", err)
		return ""
	}
	return key
}

func (s *Service) publish(ctx context.Context, transition models.Transition, result *recognize.Result, jam time.Time, snapshotKey string) {
	if s.events == nil {
		return
	}
	event := models.AttendanceEvent{
		Type:        transition,
		PersonID:    result.PersonID,
		Nama:        result.Nama,
		Jam:         jam,
		Confidence:  result.Confidence,
		SnapshotKey: snapshotKey,
	}
	if err := s.events.PublishEvent(ctx, string(transition), event); err != nil {
		slog.Warn("publish attendance event", "type", transition, "error", err)
	}
}
