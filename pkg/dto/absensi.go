package dto

import "github.com/your-org/absensi/internal/models"

// RecognizeURLRequest asks the service to fetch an image by URL.
type RecognizeURLRequest struct {
	ImgURL string `json:"img_url" form:"img_url" binding:"required"`
}

// PersonData identifies the recognized person in a response payload.
type PersonData struct {
	PersonID int64  `json:"person_id"`
	Nama     string `json:"nama"`
}

// RecognizeResponse is the reply for pure recognition (no attendance write).
type RecognizeResponse struct {
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	Data       PersonData `json:"data"`
	Confidence float64    `json:"confidence"`
}

// AbsensiResponse is the reply for a check-in or check-out.
type AbsensiResponse struct {
	Status      string     `json:"status"`
	Message     string     `json:"message"`
	Data        PersonData `json:"data"`
	Confidence  float64    `json:"confidence"`
	Jam         string     `json:"jam"`
	SnapshotURL string     `json:"snapshot_url,omitempty"`
}

type AbsensiListResponse struct {
	Records []models.Absensi `json:"records"`
	Total   int              `json:"total"`
}

// WSEvent is a WebSocket message for real-time attendance delivery.
type WSEvent struct {
	Type string                 `json:"type"` // masuk, pulang
	Data models.AttendanceEvent `json:"data"`
}
