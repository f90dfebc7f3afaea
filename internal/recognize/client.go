package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/your-org/absensi/internal/observability"
)

// Client calls the external face recognition model service over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Skip bypasses the model service and returns a canned identity (dev only).
	Skip bool
}

// New creates a client. Face processing can take a while, so the timeout
// should be generous.
func New(baseURL string, timeout time.Duration, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// wireResponse is the model service's reply shape.
type wireResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Reason     string  `json:"reason"`
	PersonID   int64   `json:"person_id"`
	Nama       string  `json:"nama"`
	Confidence float64 `json:"confidence"`
}

// Recognize uploads the staged file with the tuning knobs and returns the
// identified person. It never retries: the same bytes against the same
// model give the same answer.
func (c *Client) Recognize(ctx context.Context, modelName, filePath string, faceDetThreshold, faceDistThreshold float64) (*Result, error) {
	if c.Skip {
		return &Result{PersonID: 1, Nama: "dev-person", Confidence: 0.99}, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &Error{Kind: ModelError, Message: fmt.Sprintf("read staged file: %v", err)}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("model_name", modelName)
	_ = w.WriteField("face_det_threshold", strconv.FormatFloat(faceDetThreshold, 'f', -1, 64))
	_ = w.WriteField("face_dist_threshold", strconv.FormatFloat(faceDistThreshold, 'f', -1, 64))
	part, err := w.CreateFormFile("img_file", filepath.Base(filePath))
	if err != nil {
		return nil, &Error{Kind: ModelError, Message: err.Error()}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &Error{Kind: ModelError, Message: err.Error()}
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/recognize", &buf)
	if err != nil {
		return nil, &Error{Kind: ModelError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	observability.RecognitionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &Error{Kind: ModelError, Message: fmt.Sprintf("model service request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ModelError, Message: fmt.Sprintf("read model response: %v", err)}
	}

	var out wireResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &Error{Kind: ModelError, Message: fmt.Sprintf("model service error %s", resp.Status)}
	}

	if out.Status != "success" {
		return nil, &Error{Kind: failureKind(out.Reason), Message: out.Message}
	}
	if resp.StatusCode >= 300 {
		return nil, &Error{Kind: ModelError, Message: fmt.Sprintf("model service error %s", resp.Status)}
	}

	return &Result{
		PersonID:   out.PersonID,
		Nama:       out.Nama,
		Confidence: out.Confidence,
	}, nil
}

func failureKind(reason string) FailureKind {
	switch FailureKind(reason) {
	case NoFaceDetected, NoMatch:
		return FailureKind(reason)
	default:
		return ModelError
	}
}
