package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/absensi/pkg/dto"
)

type RecognizeHandler struct {
	svc Attendance
}

func NewRecognizeHandler(svc Attendance) *RecognizeHandler {
	return &RecognizeHandler{svc: svc}
}

// File recognizes a person from an uploaded image without recording
// attendance.
func (h *RecognizeHandler) File(c *gin.Context) {
	file, _, err := c.Request.FormFile("img_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "img_file is required"})
		return
	}
	defer file.Close()

	result, err := h.svc.RecognizeUpload(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RecognizeResponse{
		Status:     "success",
		Message:    "face recognized",
		Data:       dto.PersonData{PersonID: result.PersonID, Nama: result.Nama},
		Confidence: result.Confidence,
	})
}

// URL recognizes a person from a remote image without recording attendance.
func (h *RecognizeHandler) URL(c *gin.Context) {
	var req dto.RecognizeURLRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "img_url is required"})
		return
	}

	result, err := h.svc.RecognizeURL(c.Request.Context(), req.ImgURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RecognizeResponse{
		Status:     "success",
		Message:    "face recognized",
		Data:       dto.PersonData{PersonID: result.PersonID, Nama: result.Nama},
		Confidence: result.Confidence,
	})
}
