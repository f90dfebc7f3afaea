package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/absensi/internal/attendance"
	"github.com/your-org/absensi/internal/ingest"
	"github.com/your-org/absensi/internal/models"
	"github.com/your-org/absensi/internal/recognize"
	"github.com/your-org/absensi/internal/storage"
)

type fakeAttendance struct {
	result *recognize.Result
	err    error

	lastTransition models.Transition
	lastURL        string
	uploads        int
}

func (f *fakeAttendance) RecognizeUpload(_ context.Context, _ io.Reader) (*recognize.Result, error) {
	f.uploads++
	return f.result, f.err
}

func (f *fakeAttendance) RecognizeURL(_ context.Context, imgURL string) (*recognize.Result, error) {
	f.lastURL = imgURL
	return f.result, f.err
}

func (f *fakeAttendance) SubmitUpload(_ context.Context, _ io.Reader, t models.Transition) (*attendance.Outcome, error) {
	f.uploads++
	f.lastTransition = t
	if f.err != nil {
		return nil, f.err
	}
	return &attendance.Outcome{Result: f.result, Jam: time.Now()}, nil
}

func (f *fakeAttendance) SubmitURL(_ context.Context, imgURL string, t models.Transition) (*attendance.Outcome, error) {
	f.lastURL = imgURL
	f.lastTransition = t
	if f.err != nil {
		return nil, f.err
	}
	return &attendance.Outcome{Result: f.result, Jam: time.Now()}, nil
}

type fakeAbsensiStore struct {
	records []models.Absensi
	open    *models.Absensi
	openErr error
}

func (f *fakeAbsensiStore) ListAbsensi(_ context.Context, personID *int64) ([]models.Absensi, error) {
	if personID == nil {
		return f.records, nil
	}
	var out []models.Absensi
	for _, r := range f.records {
		if r.PersonID == *personID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAbsensiStore) OpenSession(_ context.Context, _ int64) (*models.Absensi, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.open, nil
}

type fakeSnapshots struct {
	data map[string][]byte
}

func (f *fakeSnapshots) GetObject(_ context.Context, key string) ([]byte, error) {
	if d, ok := f.data[key]; ok {
		return d, nil
	}
	return nil, io.EOF
}

func newAbsensiRouter(svc Attendance, store AbsensiStore, snaps SnapshotGetter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAbsensiHandler(svc, store, snaps)
	r.POST("/v1/absensi/masuk", h.Masuk)
	r.POST("/v1/absensi/pulang", h.Pulang)
	r.GET("/v1/absensi", h.List)
	r.GET("/v1/absensi/:personId/open", h.Open)
	r.GET("/v1/snapshots/*key", h.Snapshot)
	return r
}

func multipartImage(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("img_file", "face.jpg")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("jpegbytes"))
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestMasukWithUpload(t *testing.T) {
	svc := &fakeAttendance{result: &recognize.Result{PersonID: 7, Nama: "Budi", Confidence: 0.9}}
	r := newAbsensiRouter(svc, &fakeAbsensiStore{}, &fakeSnapshots{})

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/absensi/masuk", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastTransition != models.TransitionMasuk {
		t.Fatalf("transition = %s", svc.lastTransition)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["message"] != "Absen masuk berhasil" {
		t.Fatalf("message = %v", resp["message"])
	}
}

func TestPulangWithURL(t *testing.T) {
	svc := &fakeAttendance{result: &recognize.Result{PersonID: 7, Nama: "Budi"}}
	r := newAbsensiRouter(svc, &fakeAbsensiStore{}, &fakeSnapshots{})

	req := httptest.NewRequest(http.MethodPost, "/v1/absensi/pulang",
		strings.NewReader(`{"img_url":"http://example.com/face.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastURL != "http://example.com/face.jpg" {
		t.Fatalf("url = %s", svc.lastURL)
	}
	if svc.lastTransition != models.TransitionPulang {
		t.Fatalf("transition = %s", svc.lastTransition)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["message"] != "Absensi pulang berhasil disimpan" {
		t.Fatalf("message = %v", resp["message"])
	}
}

func TestPulangNoOpenSessionConflict(t *testing.T) {
	svc := &fakeAttendance{err: storage.ErrNoOpenSession}
	r := newAbsensiRouter(svc, &fakeAbsensiStore{}, &fakeSnapshots{})

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/absensi/pulang", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestMasukRecognitionFailure(t *testing.T) {
	svc := &fakeAttendance{err: &recognize.Error{Kind: recognize.NoFaceDetected, Message: "no face"}}
	r := newAbsensiRouter(svc, &fakeAbsensiStore{}, &fakeSnapshots{})

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/absensi/masuk", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["message"] != "failed to recognize face from image" {
		t.Fatalf("message = %v", resp["message"])
	}
}

func TestMasukBadURL(t *testing.T) {
	svc := &fakeAttendance{err: &ingest.FetchError{URL: "http://bad.example/x.jpg", Err: io.EOF}}
	r := newAbsensiRouter(svc, &fakeAbsensiStore{}, &fakeSnapshots{})

	req := httptest.NewRequest(http.MethodPost, "/v1/absensi/masuk",
		strings.NewReader(`{"img_url":"http://bad.example/x.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := "couldn't download image from 'http://bad.example/x.jpg'. Not a valid link."
	if resp["message"] != want {
		t.Fatalf("message = %v, want %q", resp["message"], want)
	}
}

func TestMasukMissingInput(t *testing.T) {
	svc := &fakeAttendance{result: &recognize.Result{}}
	r := newAbsensiRouter(svc, &fakeAbsensiStore{}, &fakeSnapshots{})

	req := httptest.NewRequest(http.MethodPost, "/v1/absensi/masuk", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.uploads != 0 || svc.lastURL != "" {
		t.Fatal("pipeline invoked without input")
	}
}

func TestListFilterByPerson(t *testing.T) {
	now := time.Now()
	store := &fakeAbsensiStore{records: []models.Absensi{
		{ID: 1, PersonID: 7, Nama: "Budi", JamMasuk: now},
		{ID: 2, PersonID: 8, Nama: "Sari", JamMasuk: now},
	}}
	r := newAbsensiRouter(&fakeAttendance{}, store, &fakeSnapshots{})

	req := httptest.NewRequest(http.MethodGet, "/v1/absensi?person_id=7", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Records []models.Absensi `json:"records"`
		Total   int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Records[0].PersonID != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOpenSessionNotFound(t *testing.T) {
	store := &fakeAbsensiStore{openErr: storage.ErrNoOpenSession}
	r := newAbsensiRouter(&fakeAttendance{}, store, &fakeSnapshots{})

	req := httptest.NewRequest(http.MethodGet, "/v1/absensi/7/open", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSnapshotServesArchivedImage(t *testing.T) {
	snaps := &fakeSnapshots{data: map[string][]byte{
		"absensi/7/masuk-20260101T080000.000.jpg": []byte("jpegbytes"),
	}}
	r := newAbsensiRouter(&fakeAttendance{}, &fakeAbsensiStore{}, snaps)

	req := httptest.NewRequest(http.MethodGet, "/v1/snapshots/absensi/7/masuk-20260101T080000.000.jpg", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "jpegbytes" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}
