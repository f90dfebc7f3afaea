package dto

// CreateRecordRequest carries an arbitrary column→value row for the person
// table. Column names are validated against the live schema before use.
type CreateRecordRequest map[string]any

type RecordResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
}

type RecordListResponse struct {
	Status  string           `json:"status"`
	Records []map[string]any `json:"records"`
	Total   int              `json:"total"`
}
