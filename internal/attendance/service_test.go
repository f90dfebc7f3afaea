package attendance

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/your-org/absensi/internal/config"
	"github.com/your-org/absensi/internal/ingest"
	"github.com/your-org/absensi/internal/models"
	"github.com/your-org/absensi/internal/recognize"
	"github.com/your-org/absensi/internal/staging"
	"github.com/your-org/absensi/internal/storage"
)

type fakeRecognizer struct {
	result *recognize.Result
	err    error
	calls  int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _, _ string, _, _ float64) (*recognize.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeLedger struct {
	checkIns  []int64
	checkOuts []int64
	outErr    error
}

func (f *fakeLedger) InsertCheckIn(_ context.Context, personID int64, _ string, _ time.Time) error {
	f.checkIns = append(f.checkIns, personID)
	return nil
}

func (f *fakeLedger) UpdateCheckOut(_ context.Context, personID int64, _ time.Time) error {
	if f.outErr != nil {
		return f.outErr
	}
	f.checkOuts = append(f.checkOuts, personID)
	return nil
}

type fakeArchive struct {
	keys []string
}

func (f *fakeArchive) PutObject(_ context.Context, key string, _ []byte, _ string) error {
	f.keys = append(f.keys, key)
	return nil
}

type fakePublisher struct {
	events []models.AttendanceEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, _ string, data interface{}) error {
	f.events = append(f.events, data.(models.AttendanceEvent))
	return nil
}

func newTestService(t *testing.T, rec *fakeRecognizer, ledger *fakeLedger) (*Service, *staging.Store) {
	t.Helper()
	stage, err := staging.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	acq := ingest.NewAcquirer(stage, 2*time.Second, 1<<20)
	svc := NewService(stage, acq, rec, ledger, nil, nil, config.RecognitionConfig{ModelName: "arcface"})
	return svc, stage
}

func cacheDirEmpty(t *testing.T, stage *staging.Store) {
	t.Helper()
	entries, err := os.ReadDir(stage.Dir())
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cache dir not empty: %d files left", len(entries))
	}
}

func TestSubmitUploadMasuk(t *testing.T) {
	rec := &fakeRecognizer{result: &recognize.Result{PersonID: 7, Nama: "Budi", Confidence: 0.91}}
	ledger := &fakeLedger{}
	svc, stage := newTestService(t, rec, ledger)

	out, err := svc.SubmitUpload(context.Background(), bytes.NewReader([]byte("jpegbytes")), models.TransitionMasuk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Result.PersonID != 7 || out.Result.Nama != "Budi" {
		t.Fatalf("unexpected result: %+v", out.Result)
	}
	if rec.calls != 1 {
		t.Fatalf("recognizer called %d times, want 1", rec.calls)
	}
	if len(ledger.checkIns) != 1 || ledger.checkIns[0] != 7 {
		t.Fatalf("unexpected check-ins: %v", ledger.checkIns)
	}
	cacheDirEmpty(t, stage)
}

func TestSubmitUploadPulang(t *testing.T) {
	rec := &fakeRecognizer{result: &recognize.Result{PersonID: 7, Nama: "Budi"}}
	ledger := &fakeLedger{}
	svc, stage := newTestService(t, rec, ledger)

	if _, err := svc.SubmitUpload(context.Background(), bytes.NewReader([]byte("jpegbytes")), models.TransitionPulang); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(ledger.checkOuts) != 1 || ledger.checkOuts[0] != 7 {
		t.Fatalf("unexpected check-outs: %v", ledger.checkOuts)
	}
	cacheDirEmpty(t, stage)
}

func TestSubmitPulangNoOpenSession(t *testing.T) {
	rec := &fakeRecognizer{result: &recognize.Result{PersonID: 7, Nama: "Budi"}}
	ledger := &fakeLedger{outErr: storage.ErrNoOpenSession}
	svc, stage := newTestService(t, rec, ledger)

	_, err := svc.SubmitUpload(context.Background(), bytes.NewReader([]byte("jpegbytes")), models.TransitionPulang)
	if !errors.Is(err, storage.ErrNoOpenSession) {
		t.Fatalf("want ErrNoOpenSession, got %v", err)
	}
	cacheDirEmpty(t, stage)
}

func TestRecognitionFailureReleasesStagedFile(t *testing.T) {
	rec := &fakeRecognizer{err: &recognize.Error{Kind: recognize.NoFaceDetected, Message: "no face"}}
	ledger := &fakeLedger{}
	svc, stage := newTestService(t, rec, ledger)

	_, err := svc.SubmitUpload(context.Background(), bytes.NewReader([]byte("jpegbytes")), models.TransitionMasuk)
	var rerr *recognize.Error
	if !errors.As(err, &rerr) || rerr.Kind != recognize.NoFaceDetected {
		t.Fatalf("want recognize.Error(no_face_detected), got %v", err)
	}
	if len(ledger.checkIns) != 0 {
		t.Fatal("ledger written despite recognition failure")
	}
	cacheDirEmpty(t, stage)
}

func TestSubmitURLFetchFailureSkipsRecognizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rec := &fakeRecognizer{result: &recognize.Result{PersonID: 7}}
	ledger := &fakeLedger{}
	svc, stage := newTestService(t, rec, ledger)

	_, err := svc.SubmitURL(context.Background(), srv.URL+"/missing.jpg", models.TransitionMasuk)
	var ferr *ingest.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("want FetchError, got %v", err)
	}
	if rec.calls != 0 {
		t.Fatal("recognizer called despite fetch failure")
	}
	cacheDirEmpty(t, stage)
}

func TestSubmitURLMasuk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	rec := &fakeRecognizer{result: &recognize.Result{PersonID: 3, Nama: "Sari"}}
	ledger := &fakeLedger{}
	svc, stage := newTestService(t, rec, ledger)

	out, err := svc.SubmitURL(context.Background(), srv.URL+"/face.jpg", models.TransitionMasuk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Result.PersonID != 3 {
		t.Fatalf("unexpected person: %+v", out.Result)
	}
	cacheDirEmpty(t, stage)
}

func TestSubmitArchivesAndPublishes(t *testing.T) {
	rec := &fakeRecognizer{result: &recognize.Result{PersonID: 7, Nama: "Budi", Confidence: 0.88}}
	ledger := &fakeLedger{}
	archive := &fakeArchive{}
	pub := &fakePublisher{}

	stage, err := staging.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	acq := ingest.NewAcquirer(stage, 2*time.Second, 1<<20)
	svc := NewService(stage, acq, rec, ledger, archive, pub, config.RecognitionConfig{ModelName: "arcface"})

	out, err := svc.SubmitUpload(context.Background(), bytes.NewReader([]byte("jpegbytes")), models.TransitionMasuk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(archive.keys) != 1 || out.SnapshotKey != archive.keys[0] {
		t.Fatalf("snapshot not archived: keys=%v outcome=%q", archive.keys, out.SnapshotKey)
	}
	if len(pub.events) != 1 {
		t.Fatalf("want 1 published event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Type != models.TransitionMasuk || evt.PersonID != 7 || evt.SnapshotKey != out.SnapshotKey {
		t.Fatalf("unexpected event: %+v", evt)
	}
	cacheDirEmpty(t, stage)
}

func TestRecognizeUploadDoesNotTouchLedger(t *testing.T) {
	rec := &fakeRecognizer{result: &recognize.Result{PersonID: 5, Nama: "Tono"}}
	ledger := &fakeLedger{}
	svc, stage := newTestService(t, rec, ledger)

	result, err := svc.RecognizeUpload(context.Background(), bytes.NewReader([]byte("jpegbytes")))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.PersonID != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(ledger.checkIns) != 0 || len(ledger.checkOuts) != 0 {
		t.Fatal("ledger written by pure recognition")
	}
	cacheDirEmpty(t, stage)
}
