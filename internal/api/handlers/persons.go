package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/absensi/internal/storage"
	"github.com/your-org/absensi/pkg/dto"
)

// recordID keeps numeric path ids typed as integers so the id predicate
// matches BIGINT columns without a cast.
func recordID(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

// RecordStore is the generic row CRUD surface backing the person endpoints.
type RecordStore interface {
	Pool() storage.Querier
	InsertRecord(ctx context.Context, q storage.Querier, table string, row map[string]any) error
	GetRecord(ctx context.Context, table string, id any) (map[string]any, error)
	ListRecords(ctx context.Context, table string) ([]map[string]any, error)
	DeleteRecord(ctx context.Context, q storage.Querier, table string, id any) error
}

// PersonHandler serves CRUD over the configured person table. Rows are
// schemaless maps; the storage layer validates column names against the
// live table before building any SQL.
type PersonHandler struct {
	db    RecordStore
	table string
}

func NewPersonHandler(db RecordStore, table string) *PersonHandler {
	return &PersonHandler{db: db, table: table}
}

func (h *PersonHandler) Create(c *gin.Context) {
	var req dto.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": err.Error()})
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "empty record"})
		return
	}

	if err := h.db.InsertRecord(c.Request.Context(), h.db.Pool(), h.table, req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RecordResponse{Status: "success", Data: req})
}

func (h *PersonHandler) List(c *gin.Context) {
	records, err := h.db.ListRecords(c.Request.Context(), h.table)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RecordListResponse{Status: "success", Records: records, Total: len(records)})
}

func (h *PersonHandler) Get(c *gin.Context) {
	record, err := h.db.GetRecord(c.Request.Context(), h.table, recordID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RecordResponse{Status: "success", Data: record})
}

func (h *PersonHandler) Delete(c *gin.Context) {
	if err := h.db.DeleteRecord(c.Request.Context(), h.db.Pool(), h.table, recordID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "record deleted"})
}
