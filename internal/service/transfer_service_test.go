package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materix-ai/be-mm-materials/internal/authz"
	"github.com/materix-ai/be-mm-materials/internal/errors"
	"github.com/materix-ai/be-mm-materials/internal/logger"
	"github.com/materix-ai/be-mm-materials/internal/repository"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeTransferStore struct {
	transfer      *repository.Transfer
	created       *repository.Transfer
	statusCalls   int
	dispatchCalls int
	receiptCalls  int
	lastStatus    string
	lastReason    *string
	lastReceived  map[string]float64
	listStatus    *string
	listLimit     int
	listOffset    int
}

func (f *fakeTransferStore) Create(ctx context.Context, t *repository.Transfer) error {
	t.ID = "tr-new"
	f.created = t
	return nil
}

func (f *fakeTransferStore) GetByID(ctx context.Context, id, tenantID string) (*repository.Transfer, error) {
	return f.transfer, nil
}

func (f *fakeTransferStore) List(ctx context.Context, tenantID string, status *string, limit, offset int) ([]*repository.Transfer, int64, error) {
	f.listStatus = status
	f.listLimit = limit
	f.listOffset = offset
	return []*repository.Transfer{f.transfer}, 1, nil
}

func (f *fakeTransferStore) UpdateStatus(ctx context.Context, id, tenantID, fromStatus, toStatus string) error {
	f.statusCalls++
	f.transfer.Status = toStatus
	return nil
}

func (f *fakeTransferStore) MarkDispatched(ctx context.Context, id, tenantID, fromStatus, dispatchedBy string) error {
	f.dispatchCalls++
	f.transfer.Status = repository.TransferStatusInTransit
	return nil
}

func (f *fakeTransferStore) RecordReceipt(ctx context.Context, t *repository.Transfer, received map[string]float64, finalStatus string, divergenceReason *string, receivedBy string) error {
	f.receiptCalls++
	f.lastStatus = finalStatus
	f.lastReason = divergenceReason
	f.lastReceived = received
	f.transfer.Status = finalStatus
	return nil
}

func (f *fakeTransferStore) mutations() int {
	return f.statusCalls + f.dispatchCalls + f.receiptCalls
}

type fakeAssignmentStore struct {
	assignments []authz.RoleAssignment
}

func (f *fakeAssignmentStore) GetForUser(ctx context.Context, tenantID, userID string) ([]authz.RoleAssignment, error) {
	return f.assignments, nil
}

type fakeAuditStore struct {
	entries []*repository.TransferAuditEntry
}

func (f *fakeAuditStore) Append(ctx context.Context, entry *repository.TransferAuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) GetByTransferID(ctx context.Context, transferID, tenantID string) ([]*repository.TransferAuditEntry, error) {
	return f.entries, nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) PublishTransferEvent(ctx context.Context, eventType, transferID, tenantID, actorID string, payload map[string]interface{}) {
	f.events = append(f.events, eventType)
}

func (f *fakeNotifier) PublishDocumentEvent(ctx context.Context, eventType, resourceType, resourceID, tenantID, actorID string, payload map[string]interface{}) {
	f.events = append(f.events, eventType)
}

// ── fixtures ─────────────────────────────────────────────────────────────────

func testTransfer(status string) *repository.Transfer {
	return &repository.Transfer{
		ID:                "tr1",
		TenantID:          "t1",
		OriginUnitID:      "u1",
		OriginWarehouseID: "wh1",
		DestUnitID:        "u2",
		DestWarehouseID:   "wh2",
		Status:            status,
		Items: []*repository.TransferItem{
			{ID: "i1", TransferID: "tr1", LineNumber: 1, MaterialID: "m1", QtySent: 10},
			{ID: "i2", TransferID: "tr1", LineNumber: 2, MaterialID: "m2", QtySent: 5},
		},
	}
}

func ownerAssignments() []authz.RoleAssignment {
	return []authz.RoleAssignment{
		{Role: authz.RoleOwner, Scope: authz.Scope{TenantID: "t1"}},
	}
}

// operatorAssignments grant TRANSFER_RECEIVE but not
// TRANSFER_REPORT_DIVERGENCE.
func operatorAssignments() []authz.RoleAssignment {
	return []authz.RoleAssignment{
		{Role: authz.RoleWarehouseOperator, Scope: authz.Scope{TenantID: "t1"}},
	}
}

func newTestService(status string, assignments []authz.RoleAssignment) (*TransferService, *fakeTransferStore, *fakeAuditStore, *fakeNotifier) {
	store := &fakeTransferStore{transfer: testTransfer(status)}
	audit := &fakeAuditStore{}
	notifier := &fakeNotifier{}
	log := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	svc := NewTransferService(store, &fakeAssignmentStore{assignments: assignments}, audit, notifier, log)
	return svc, store, audit, notifier
}

// ── create / list / history ──────────────────────────────────────────────────

func createRequest() *CreateTransferRequest {
	return &CreateTransferRequest{
		TenantID:          "t1",
		OriginUnitID:      "u1",
		OriginWarehouseID: "wh1",
		DestUnitID:        "u2",
		DestWarehouseID:   "wh2",
		CreatedBy:         "alice",
		Items: []*TransferItemRequest{
			{LineNumber: 1, MaterialID: "m1", Description: "cement", QtySent: 10},
		},
	}
}

func TestCreateTransfer(t *testing.T) {
	svc, store, _, notifier := newTestService(repository.TransferStatusCreated, ownerAssignments())

	got, err := svc.CreateTransfer(context.Background(), createRequest())
	require.NoError(t, err)
	assert.Equal(t, "tr-new", got.ID)
	assert.Equal(t, repository.TransferStatusCreated, got.Status)
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, "alice", *got.CreatedBy)
	require.Len(t, got.Items, 1)
	require.NotNil(t, store.created)
	assert.Equal(t, []string{"transfer_created"}, notifier.events)
}

func TestCreateTransferRequiresItems(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusCreated, ownerAssignments())

	req := createRequest()
	req.Items = nil
	_, err := svc.CreateTransfer(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	assert.Nil(t, store.created)
}

func TestCreateTransferSameWarehouseRejected(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusCreated, ownerAssignments())

	req := createRequest()
	req.DestWarehouseID = req.OriginWarehouseID
	_, err := svc.CreateTransfer(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	assert.Nil(t, store.created)
}

func TestCreateTransferNonPositiveQuantityRejected(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusCreated, ownerAssignments())

	req := createRequest()
	req.Items[0].QtySent = 0
	_, err := svc.CreateTransfer(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	assert.Nil(t, store.created)
}

func TestListTransfersPagination(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusCreated, ownerAssignments())

	status := repository.TransferStatusCreated
	transfers, total, err := svc.ListTransfers(context.Background(), "t1", &status, 3, 20)
	require.NoError(t, err)
	assert.Len(t, transfers, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 20, store.listLimit)
	assert.Equal(t, 40, store.listOffset)
	require.NotNil(t, store.listStatus)
	assert.Equal(t, status, *store.listStatus)
}

func TestGetTransferHistory(t *testing.T) {
	svc, _, audit, _ := newTestService(repository.TransferStatusInTransit, ownerAssignments())
	audit.entries = []*repository.TransferAuditEntry{
		{TransferID: "tr1", TenantID: "t1", Action: "dispatched", PerformedBy: "alice"},
	}

	entries, err := svc.GetTransferHistory(context.Background(), "tr1", "t1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dispatched", entries[0].Action)
}

// ── dispatch ─────────────────────────────────────────────────────────────────

func TestDispatchFromCreated(t *testing.T) {
	svc, store, audit, notifier := newTestService(repository.TransferStatusCreated, ownerAssignments())

	got, err := svc.Dispatch(context.Background(), "tr1", "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, repository.TransferStatusInTransit, got.Status)
	assert.Equal(t, 1, store.dispatchCalls)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "dispatched", audit.entries[0].Action)
	assert.Equal(t, []string{"transfer_dispatched"}, notifier.events)
}

func TestDispatchFromSeparated(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusSeparated, ownerAssignments())

	_, err := svc.Dispatch(context.Background(), "tr1", "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, store.dispatchCalls)
}

func TestDispatchDeniedIsSideEffectFree(t *testing.T) {
	viewer := []authz.RoleAssignment{{Role: authz.RoleViewer, Scope: authz.Scope{TenantID: "t1"}}}
	svc, store, audit, notifier := newTestService(repository.TransferStatusCreated, viewer)

	_, err := svc.Dispatch(context.Background(), "tr1", "t1", "bob")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
	assert.Empty(t, audit.entries)
	assert.Empty(t, notifier.events)
}

func TestDispatchWrongStateConflicts(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusInTransit, ownerAssignments())

	_, err := svc.Dispatch(context.Background(), "tr1", "t1", "alice")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}

// ── separate / cancel ────────────────────────────────────────────────────────

func TestSeparateFromCreated(t *testing.T) {
	svc, store, _, notifier := newTestService(repository.TransferStatusCreated, ownerAssignments())

	got, err := svc.Separate(context.Background(), "tr1", "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, repository.TransferStatusSeparated, got.Status)
	assert.Equal(t, 1, store.statusCalls)
	assert.Equal(t, []string{"transfer_separated"}, notifier.events)
}

func TestCancelAfterDispatchConflicts(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusInTransit, ownerAssignments())

	_, err := svc.Cancel(context.Background(), "tr1", "t1", "alice")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}

func TestCancelFromSeparated(t *testing.T) {
	svc, store, audit, _ := newTestService(repository.TransferStatusSeparated, ownerAssignments())

	got, err := svc.Cancel(context.Background(), "tr1", "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, repository.TransferStatusCanceled, got.Status)
	assert.Equal(t, 1, store.statusCalls)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "canceled", audit.entries[0].Action)
}

// ── receive ──────────────────────────────────────────────────────────────────

func TestReceiveWithoutDivergence(t *testing.T) {
	// Quantities match what was sent: no divergence permission and no
	// justification needed, even for a role that could never report one.
	svc, store, audit, notifier := newTestService(repository.TransferStatusInTransit, operatorAssignments())

	got, err := svc.Receive(context.Background(), "tr1", "t1", "carol",
		map[string]float64{"i1": 10, "i2": 5}, "")
	require.NoError(t, err)
	assert.Equal(t, repository.TransferStatusReceived, got.Status)
	assert.Equal(t, 1, store.receiptCalls)
	assert.Nil(t, store.lastReason)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "received", audit.entries[0].Action)
	assert.Equal(t, []string{"transfer_received"}, notifier.events)
}

func TestReceiveDivergentRequiresJustification(t *testing.T) {
	// Permission granted but the justification is empty: rejected as a
	// validation failure before any mutation.
	svc, store, _, _ := newTestService(repository.TransferStatusInTransit, ownerAssignments())

	_, err := svc.Receive(context.Background(), "tr1", "t1", "alice",
		map[string]float64{"i1": 10, "i2": 7}, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}

func TestReceiveDivergentShortJustificationRejected(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusInTransit, ownerAssignments())

	_, err := svc.Receive(context.Background(), "tr1", "t1", "alice",
		map[string]float64{"i1": 10, "i2": 7}, "too short")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}

func TestReceiveDivergentPermissionCheckedBeforeJustification(t *testing.T) {
	// The requester holds TRANSFER_RECEIVE but not
	// TRANSFER_REPORT_DIVERGENCE: denied even with an empty justification,
	// and the denial wins over the validation rule.
	svc, store, _, _ := newTestService(repository.TransferStatusInTransit, operatorAssignments())

	_, err := svc.Receive(context.Background(), "tr1", "t1", "carol",
		map[string]float64{"i1": 10, "i2": 7}, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePermissionDenied, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}

func TestReceiveDivergentSuccess(t *testing.T) {
	svc, store, audit, notifier := newTestService(repository.TransferStatusInTransit, ownerAssignments())

	got, err := svc.Receive(context.Background(), "tr1", "t1", "alice",
		map[string]float64{"i1": 10, "i2": 7}, "two units damaged in transit")
	require.NoError(t, err)
	assert.Equal(t, repository.TransferStatusDivergence, got.Status)
	require.NotNil(t, store.lastReason)
	assert.Equal(t, "two units damaged in transit", *store.lastReason)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "divergence_reported", audit.entries[0].Action)
	assert.Equal(t, []string{"transfer_divergence"}, notifier.events)
}

func TestReceiveMissingItemQuantity(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusInTransit, ownerAssignments())

	_, err := svc.Receive(context.Background(), "tr1", "t1", "alice",
		map[string]float64{"i1": 10}, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}

func TestReceiveUnknownItemRejected(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusInTransit, ownerAssignments())

	_, err := svc.Receive(context.Background(), "tr1", "t1", "alice",
		map[string]float64{"i1": 10, "i2": 5, "i9": 1}, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}

func TestReceiveWrongStateConflicts(t *testing.T) {
	svc, store, _, _ := newTestService(repository.TransferStatusCreated, ownerAssignments())

	_, err := svc.Receive(context.Background(), "tr1", "t1", "alice",
		map[string]float64{"i1": 10, "i2": 5}, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
	assert.Zero(t, store.mutations())
}
