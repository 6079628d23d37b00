package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/materix-ai/be-mm-materials/internal/errors"
	"github.com/materix-ai/be-mm-materials/internal/logger"
	"github.com/materix-ai/be-mm-materials/internal/service"
)

// HTTPHandler exposes the materials workflows over HTTP. Every error from
// the service layer is converted here into a user-facing status and
// message; authorization and validation failures never propagate as
// unhandled faults.
type HTTPHandler struct {
	transfers *service.TransferService
	documents *service.DocumentService
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(transfers *service.TransferService, documents *service.DocumentService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		transfers: transfers,
		documents: documents,
		log:       log,
	}
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, errors.HTTPStatus(err), map[string]string{
		"code":  string(errors.CodeOf(err)),
		"error": err.Error(),
	})
}

// transferActionRequest is the shared body of the transfer action endpoints.
type transferActionRequest struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

// GetTransfer handles GET /api/v1/transfers/get.
func (h *HTTPHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	tenantID := r.URL.Query().Get("tenant_id")
	if id == "" || tenantID == "" {
		http.Error(w, "Transfer ID and Tenant ID are required", http.StatusBadRequest)
		return
	}

	t, err := h.transfers.GetTransfer(r.Context(), id, tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// CreateTransfer handles POST /api/v1/transfers/create.
func (h *HTTPHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTransferRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	t, err := h.transfers.CreateTransfer(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

// ListTransfers handles GET /api/v1/transfers/list.
func (h *HTTPHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "Tenant ID is required", http.StatusBadRequest)
		return
	}

	var statusPtr *string
	if status := r.URL.Query().Get("status"); status != "" {
		statusPtr = &status
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	transfers, total, err := h.transfers.ListTransfers(r.Context(), tenantID, statusPtr, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transfers": transfers,
		"total":     total,
		"page":      page,
		"pageSize":  pageSize,
	})
}

// GetTransferHistory handles GET /api/v1/transfers/history.
func (h *HTTPHandler) GetTransferHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	tenantID := r.URL.Query().Get("tenant_id")
	if id == "" || tenantID == "" {
		http.Error(w, "Transfer ID and Tenant ID are required", http.StatusBadRequest)
		return
	}

	entries, err := h.transfers.GetTransferHistory(r.Context(), id, tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// SeparateTransfer handles POST /api/v1/transfers/separate.
func (h *HTTPHandler) SeparateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferActionRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	t, err := h.transfers.Separate(r.Context(), req.ID, req.TenantID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// DispatchTransfer handles POST /api/v1/transfers/dispatch.
func (h *HTTPHandler) DispatchTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferActionRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	t, err := h.transfers.Dispatch(r.Context(), req.ID, req.TenantID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// ReceiveTransfer handles POST /api/v1/transfers/receive.
func (h *HTTPHandler) ReceiveTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		transferActionRequest
		ReceivedQuantities map[string]float64 `json:"received_quantities"`
		Justification      string             `json:"justification"`
	}
	if !h.decodePost(w, r, &req) {
		return
	}

	t, err := h.transfers.Receive(r.Context(), req.ID, req.TenantID, req.UserID, req.ReceivedQuantities, req.Justification)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// CancelTransfer handles POST /api/v1/transfers/cancel.
func (h *HTTPHandler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferActionRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	t, err := h.transfers.Cancel(r.Context(), req.ID, req.TenantID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// ApproveRequisition handles POST /api/v1/requisitions/approve.
func (h *HTTPHandler) ApproveRequisition(w http.ResponseWriter, r *http.Request) {
	var req transferActionRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	rm, err := h.documents.ApproveRequisition(r.Context(), req.ID, req.TenantID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rm)
}

// ApprovePurchaseOrder handles POST /api/v1/purchase-orders/approve.
func (h *HTTPHandler) ApprovePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req transferActionRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	po, err := h.documents.ApprovePurchaseOrder(r.Context(), req.ID, req.TenantID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, po)
}

func (h *HTTPHandler) decodePost(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
