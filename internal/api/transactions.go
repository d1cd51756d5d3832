package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"donation-api/internal/apperrors"
	"donation-api/internal/models"
	"donation-api/internal/response"
	"donation-api/internal/services"

	"github.com/gin-gonic/gin"
)

// TransactionHandler serves the equipment transaction endpoints
type TransactionHandler struct {
	svc        *services.TransactionService
	idempotent *services.IdempotencyGuard
}

// IdempotencyKeyHeader lets clients retry a create without duplicating it.
const IdempotencyKeyHeader = "Idempotency-Key"

// NewTransactionHandler creates a new transaction handler. guard may be nil.
func NewTransactionHandler(svc *services.TransactionService, guard *services.IdempotencyGuard) *TransactionHandler {
	return &TransactionHandler{svc: svc, idempotent: guard}
}

func bindPayload(c *gin.Context) (payload, bool) {
	var p payload
	if err := c.ShouldBindJSON(&p); err != nil {
		response.DomainErrorJSON(c, apperrors.WithMetadata(apperrors.CodeValidation,
			"Invalid request format: "+err.Error(), nil))
		return nil, false
	}
	return p, true
}

// CreateTransaction creates a new transaction
// POST /api/transactions
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	p, ok := bindPayload(c)
	if !ok {
		return
	}
	in, err := decodeCreate(p)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key != "" && h.idempotent != nil {
		existingID, state := h.idempotent.Begin(key)
		switch state {
		case services.IdempotencyDone:
			txn, err := h.svc.Get(c.Request.Context(), existingID)
			if err != nil {
				response.DomainErrorJSON(c, err)
				return
			}
			c.Header("Idempotent-Replayed", "true")
			response.SuccessJSON(c, txn)
			return
		case services.IdempotencyInFlight:
			response.DomainErrorJSON(c, apperrors.WithMetadata(apperrors.CodeAlreadyExists,
				"a request with this Idempotency-Key is in progress",
				map[string]string{"header": IdempotencyKeyHeader}))
			return
		}
	}

	txn, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		if key != "" && h.idempotent != nil {
			h.idempotent.Release(key)
		}
		response.DomainErrorJSON(c, err)
		return
	}
	if key != "" && h.idempotent != nil {
		h.idempotent.Complete(key, txn.ID)
	}
	response.CreatedJSON(c, "Transaction created successfully", txn)
}

// GetTransaction gets a transaction by ID
// GET /api/transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	txn, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, txn)
}

// UpdateTransaction applies a partial update or status transition
// PATCH|PUT /api/transactions/:id
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	p, ok := bindPayload(c)
	if !ok {
		return
	}
	in, err := decodeUpdate(p)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	if in.ChangedBy == "" {
		in.ChangedBy = c.GetHeader("X-User-ID")
	}

	txn, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, txn)
}

// DeleteTransaction deletes a pending transaction
// DELETE /api/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.JSON(c, http.StatusOK, response.Response{Success: true, Message: "Transaction deleted successfully"})
}

// GetTransactionHistory lists status changes of a transaction
// GET /api/transactions/:id/history
func (h *TransactionHandler) GetTransactionHistory(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, entries)
}

// ListTransactions lists transactions matching query filters
// GET /api/transactions?provider=&providerKind=&recipient=&status=&transactionKind=&equipment=&startFrom=&startTo=&dueFrom=&dueTo=&page=&limit=
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	in, err := parseListQuery(c)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}

	result, err := h.svc.List(c.Request.Context(), in)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, result)
}

func query(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return v
		}
	}
	return ""
}

func parseListQuery(c *gin.Context) (services.ListInput, error) {
	var in services.ListInput
	f := &in.Filter

	ids := []struct {
		dest *uint
		keys []string
	}{
		{&f.ProviderID, []string{"provider", "providerId", "provider_id"}},
		{&f.RecipientID, []string{"recipient", "recipientId", "recipient_id"}},
		{&f.EquipmentID, []string{"equipment", "equipmentId", "equipment_id"}},
	}
	for _, q := range ids {
		raw := query(c, q.keys...)
		if raw == "" {
			continue
		}
		id, err := toID(raw)
		if err != nil {
			return in, badField(q.keys[0], err.Error())
		}
		*q.dest = id
	}

	f.ProviderKind = models.ProviderKind(query(c, "providerKind", "provider_kind"))
	f.TransactionKind = models.TransactionKind(query(c, "transactionKind", "transaction_kind"))
	if status := query(c, "status"); status != "" {
		f.Status = models.TransactionStatus(strings.ToLower(status))
		if !services.IsKnownStatus(f.Status) {
			return in, badField("status", "unknown status")
		}
	}

	dates := []struct {
		dest **time.Time
		keys []string
	}{
		{&f.StartFrom, []string{"startFrom", "start_from"}},
		{&f.StartTo, []string{"startTo", "start_to"}},
		{&f.DueFrom, []string{"dueFrom", "due_from"}},
		{&f.DueTo, []string{"dueTo", "due_to"}},
	}
	for _, q := range dates {
		raw := query(c, q.keys...)
		if raw == "" {
			continue
		}
		t, err := services.ParseDate(raw)
		if err != nil {
			return in, badField(q.keys[0], "must be RFC3339 or YYYY-MM-DD")
		}
		*q.dest = &t
	}

	var err error
	if raw := query(c, "page"); raw != "" {
		if in.Page, err = strconv.Atoi(raw); err != nil {
			return in, badField("page", "must be an integer")
		}
	}
	if raw := query(c, "limit", "pageSize", "page_size"); raw != "" {
		if in.Limit, err = strconv.Atoi(raw); err != nil {
			return in, badField("limit", "must be an integer")
		}
	}
	return in, nil
}
