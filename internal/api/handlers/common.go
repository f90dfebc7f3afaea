package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/absensi/internal/attendance"
	"github.com/your-org/absensi/internal/ingest"
	"github.com/your-org/absensi/internal/models"
	"github.com/your-org/absensi/internal/recognize"
	"github.com/your-org/absensi/internal/storage"
)

// Attendance is the pipeline surface the HTTP handlers drive.
type Attendance interface {
	RecognizeUpload(ctx context.Context, r io.Reader) (*recognize.Result, error)
	RecognizeURL(ctx context.Context, imgURL string) (*recognize.Result, error)
	SubmitUpload(ctx context.Context, r io.Reader, transition models.Transition) (*attendance.Outcome, error)
	SubmitURL(ctx context.Context, imgURL string, transition models.Transition) (*attendance.Outcome, error)
}

// respondError maps pipeline errors onto client-facing {status, message}
// payloads. Internal details never leak: unclassified errors get a generic
// message and the real cause goes to the log.
func respondError(c *gin.Context, err error) {
	var fetchErr *ingest.FetchError
	if errors.As(err, &fetchErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "failed",
			"message": fmt.Sprintf("couldn't download image from '%s'. Not a valid link.", fetchErr.URL),
		})
		return
	}

	var recErr *recognize.Error
	if errors.As(err, &recErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "failed",
			"message": "failed to recognize face from image",
		})
		return
	}

	if errors.Is(err, storage.ErrNoOpenSession) {
		c.JSON(http.StatusConflict, gin.H{
			"status":  "failed",
			"message": "Absensi pulang tidak dapat diperbarui karena tidak ada absensi masuk yang sesuai",
		})
		return
	}

	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "failed",
			"message": "record not found",
		})
		return
	}

	var schemaErr *storage.SchemaMismatchError
	if errors.As(err, &schemaErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "failed",
			"message": schemaErr.Error(),
		})
		return
	}

	slog.Error("request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "failed",
		"message": "internal server error",
	})
}
