package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materix-ai/be-mm-materials/internal/authz"
	"github.com/materix-ai/be-mm-materials/internal/errors"
	"github.com/materix-ai/be-mm-materials/internal/logger"
	"github.com/materix-ai/be-mm-materials/internal/repository"
	"github.com/materix-ai/be-mm-materials/internal/service"
)

// ── stubs ────────────────────────────────────────────────────────────────────

type stubTransferStore struct {
	transfer   *repository.Transfer
	listLimit  int
	listOffset int
}

func (s *stubTransferStore) Create(ctx context.Context, t *repository.Transfer) error {
	t.ID = "tr-new"
	return nil
}

func (s *stubTransferStore) GetByID(ctx context.Context, id, tenantID string) (*repository.Transfer, error) {
	if s.transfer == nil {
		return nil, errors.NotFound("transfer", id)
	}
	return s.transfer, nil
}

func (s *stubTransferStore) List(ctx context.Context, tenantID string, status *string, limit, offset int) ([]*repository.Transfer, int64, error) {
	s.listLimit = limit
	s.listOffset = offset
	return []*repository.Transfer{s.transfer}, 1, nil
}

func (s *stubTransferStore) UpdateStatus(ctx context.Context, id, tenantID, fromStatus, toStatus string) error {
	s.transfer.Status = toStatus
	return nil
}

func (s *stubTransferStore) MarkDispatched(ctx context.Context, id, tenantID, fromStatus, dispatchedBy string) error {
	s.transfer.Status = repository.TransferStatusInTransit
	return nil
}

func (s *stubTransferStore) RecordReceipt(ctx context.Context, t *repository.Transfer, received map[string]float64, finalStatus string, divergenceReason *string, receivedBy string) error {
	s.transfer.Status = finalStatus
	return nil
}

type stubAssignmentStore struct {
	assignments []authz.RoleAssignment
}

func (s *stubAssignmentStore) GetForUser(ctx context.Context, tenantID, userID string) ([]authz.RoleAssignment, error) {
	return s.assignments, nil
}

type stubAuditStore struct {
	entries []*repository.TransferAuditEntry
}

func (s *stubAuditStore) Append(ctx context.Context, entry *repository.TransferAuditEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubAuditStore) GetByTransferID(ctx context.Context, transferID, tenantID string) ([]*repository.TransferAuditEntry, error) {
	return s.entries, nil
}

type stubNotifier struct{}

func (s *stubNotifier) PublishTransferEvent(ctx context.Context, eventType, transferID, tenantID, actorID string, payload map[string]interface{}) {
}

func (s *stubNotifier) PublishDocumentEvent(ctx context.Context, eventType, resourceType, resourceID, tenantID, actorID string, payload map[string]interface{}) {
}

func newTestHandler(transfer *repository.Transfer, assignments []authz.RoleAssignment, entries []*repository.TransferAuditEntry) (*HTTPHandler, *stubTransferStore) {
	store := &stubTransferStore{transfer: transfer}
	log := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	notifier := &stubNotifier{}
	transfers := service.NewTransferService(store, &stubAssignmentStore{assignments: assignments}, &stubAuditStore{entries: entries}, notifier, log)
	documents := service.NewDocumentService(nil, nil, &stubAssignmentStore{assignments: assignments}, notifier, log)
	return NewHTTPHandler(transfers, documents, log), store
}

func tenantOwner() []authz.RoleAssignment {
	return []authz.RoleAssignment{{Role: authz.RoleOwner, Scope: authz.Scope{TenantID: "t1"}}}
}

func inTransitTransfer() *repository.Transfer {
	return &repository.Transfer{
		ID:                "tr1",
		TenantID:          "t1",
		OriginUnitID:      "u1",
		OriginWarehouseID: "wh1",
		DestUnitID:        "u2",
		DestWarehouseID:   "wh2",
		Status:            repository.TransferStatusInTransit,
		Items: []*repository.TransferItem{
			{ID: "i1", TransferID: "tr1", LineNumber: 1, MaterialID: "m1", QtySent: 10},
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// ── transfers ────────────────────────────────────────────────────────────────

func TestCreateTransferEndpoint(t *testing.T) {
	h, _ := newTestHandler(nil, tenantOwner(), nil)

	payload := `{
		"tenant_id": "t1",
		"origin_unit_id": "u1",
		"origin_warehouse_id": "wh1",
		"dest_unit_id": "u2",
		"dest_warehouse_id": "wh2",
		"created_by": "alice",
		"items": [{"line_number": 1, "material_id": "m1", "qty_sent": 10}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers/create", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.CreateTransfer(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "tr-new", body["ID"])
	assert.Equal(t, repository.TransferStatusCreated, body["Status"])
}

func TestCreateTransferEndpointRejectsEmptyItems(t *testing.T) {
	h, _ := newTestHandler(nil, tenantOwner(), nil)

	payload := `{"tenant_id": "t1", "origin_warehouse_id": "wh1", "dest_warehouse_id": "wh2", "items": []}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers/create", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.CreateTransfer(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(errors.ErrCodeValidation), body["code"])
}

func TestListTransfersEndpoint(t *testing.T) {
	h, store := newTestHandler(inTransitTransfer(), tenantOwner(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/list?tenant_id=t1&page=2&page_size=10", nil)
	rec := httptest.NewRecorder()
	h.ListTransfers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(10), body["pageSize"])
	assert.Equal(t, 10, store.listLimit)
	assert.Equal(t, 10, store.listOffset)
}

func TestListTransfersEndpointRequiresTenant(t *testing.T) {
	h, _ := newTestHandler(nil, tenantOwner(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/list", nil)
	rec := httptest.NewRecorder()
	h.ListTransfers(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferHistoryEndpoint(t *testing.T) {
	entries := []*repository.TransferAuditEntry{
		{ID: "a1", TransferID: "tr1", TenantID: "t1", Action: "dispatched", PerformedBy: "alice"},
	}
	h, _ := newTestHandler(inTransitTransfer(), tenantOwner(), entries)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/history?id=tr1&tenant_id=t1", nil)
	rec := httptest.NewRecorder()
	h.GetTransferHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "dispatched", got[0]["Action"])
}

func TestTransferHistoryEndpointUnknownTransfer(t *testing.T) {
	h, _ := newTestHandler(nil, tenantOwner(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/history?id=tr9&tenant_id=t1", nil)
	rec := httptest.NewRecorder()
	h.GetTransferHistory(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(errors.ErrCodeNotFound), body["code"])
}

func TestDispatchEndpointMapsPermissionDenied(t *testing.T) {
	viewer := []authz.RoleAssignment{{Role: authz.RoleViewer, Scope: authz.Scope{TenantID: "t1"}}}
	transfer := inTransitTransfer()
	transfer.Status = repository.TransferStatusCreated
	h, _ := newTestHandler(transfer, viewer, nil)

	payload := `{"id": "tr1", "tenant_id": "t1", "user_id": "bob"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers/dispatch", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.DispatchTransfer(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(errors.ErrCodePermissionDenied), body["code"])
}
