package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/absensi/internal/attendance"
	"github.com/your-org/absensi/internal/models"
	"github.com/your-org/absensi/internal/storage"
	"github.com/your-org/absensi/pkg/dto"
)

// AbsensiStore reads attendance rows for the query endpoints.
type AbsensiStore interface {
	ListAbsensi(ctx context.Context, personID *int64) ([]models.Absensi, error)
	OpenSession(ctx context.Context, personID int64) (*models.Absensi, error)
}

// SnapshotGetter retrieves archived snapshot bytes.
type SnapshotGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

type AbsensiHandler struct {
	svc       Attendance
	store     AbsensiStore
	snapshots SnapshotGetter
}

func NewAbsensiHandler(svc Attendance, store AbsensiStore, snapshots SnapshotGetter) *AbsensiHandler {
	return &AbsensiHandler{svc: svc, store: store, snapshots: snapshots}
}

// Masuk records a check-in from either an uploaded or a remote image.
func (h *AbsensiHandler) Masuk(c *gin.Context) {
	h.submit(c, models.TransitionMasuk, "Absen masuk berhasil")
}

// Pulang records a check-out from either an uploaded or a remote image.
func (h *AbsensiHandler) Pulang(c *gin.Context) {
	h.submit(c, models.TransitionPulang, "Absensi pulang berhasil disimpan")
}

// submit accepts an img_file multipart part or an img_url field. The file
// wins when both are present.
func (h *AbsensiHandler) submit(c *gin.Context, transition models.Transition, successMsg string) {
	if file, _, err := c.Request.FormFile("img_file"); err == nil {
		defer file.Close()
		out, err := h.svc.SubmitUpload(c.Request.Context(), file, transition)
		if err != nil {
			respondError(c, err)
			return
		}
		h.respond(c, out, successMsg)
		return
	}

	var req dto.RecognizeURLRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "img_file or img_url is required"})
		return
	}

	out, err := h.svc.SubmitURL(c.Request.Context(), req.ImgURL, transition)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, out, successMsg)
}

func (h *AbsensiHandler) respond(c *gin.Context, out *attendance.Outcome, msg string) {
	resp := dto.AbsensiResponse{
		Status:     "success",
		Message:    msg,
		Data:       dto.PersonData{PersonID: out.Result.PersonID, Nama: out.Result.Nama},
		Confidence: out.Result.Confidence,
		Jam:        out.Jam.Format(time.RFC3339),
	}
	if out.SnapshotKey != "" {
		resp.SnapshotURL = "/v1/snapshots/" + out.SnapshotKey
	}
	c.JSON(http.StatusOK, resp)
}

// List returns attendance rows, optionally filtered by person_id.
func (h *AbsensiHandler) List(c *gin.Context) {
	var personID *int64
	if raw := c.Query("person_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "invalid person_id"})
			return
		}
		personID = &id
	}

	records, err := h.store.ListAbsensi(c.Request.Context(), personID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AbsensiListResponse{Records: records, Total: len(records)})
}

// Open returns the person's current open attendance session, if any.
func (h *AbsensiHandler) Open(c *gin.Context) {
	personID, err := strconv.ParseInt(c.Param("personId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "invalid person id"})
		return
	}

	session, err := h.store.OpenSession(c.Request.Context(), personID)
	if errors.Is(err, storage.ErrNoOpenSession) {
		c.JSON(http.StatusNotFound, gin.H{"status": "failed", "message": "no open session for person"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": session})
}

// Snapshot serves an archived attendance snapshot by object key.
func (h *AbsensiHandler) Snapshot(c *gin.Context) {
	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}

	data, err := h.snapshots.GetObject(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "failed", "message": "snapshot not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}
