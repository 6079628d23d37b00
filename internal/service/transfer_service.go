package service

import (
	"context"
	"fmt"

	"github.com/materix-ai/be-mm-materials/internal/authz"
	"github.com/materix-ai/be-mm-materials/internal/errors"
	"github.com/materix-ai/be-mm-materials/internal/logger"
	"github.com/materix-ai/be-mm-materials/internal/repository"
)

// minJustificationLen is the minimum length of a divergence justification.
const minJustificationLen = 10

// TransferStore is the persistence surface the transfer workflow needs.
type TransferStore interface {
	Create(ctx context.Context, t *repository.Transfer) error
	GetByID(ctx context.Context, id, tenantID string) (*repository.Transfer, error)
	List(ctx context.Context, tenantID string, status *string, limit, offset int) ([]*repository.Transfer, int64, error)
	UpdateStatus(ctx context.Context, id, tenantID, fromStatus, toStatus string) error
	MarkDispatched(ctx context.Context, id, tenantID, fromStatus, dispatchedBy string) error
	RecordReceipt(ctx context.Context, t *repository.Transfer, received map[string]float64, finalStatus string, divergenceReason *string, receivedBy string) error
}

// AssignmentStore loads a user's role assignments within a tenant.
type AssignmentStore interface {
	GetForUser(ctx context.Context, tenantID, userID string) ([]authz.RoleAssignment, error)
}

// AuditStore appends and reads immutable workflow audit entries.
type AuditStore interface {
	Append(ctx context.Context, entry *repository.TransferAuditEntry) error
	GetByTransferID(ctx context.Context, transferID, tenantID string) ([]*repository.TransferAuditEntry, error)
}

// Notifier publishes workflow events. Implementations must be non-fatal.
type Notifier interface {
	PublishTransferEvent(ctx context.Context, eventType, transferID, tenantID, actorID string, payload map[string]interface{})
}

// TransferService runs the permission-gated transfer state machine:
// CREATED → SEPARATED → IN_TRANSIT → RECEIVED|DIVERGENCE → DONE, with
// CANCELED reachable from CREATED and SEPARATED. Every transition is
// authorized against the transfer's scope before any mutation; a deny is
// side-effect-free.
type TransferService struct {
	transfers   TransferStore
	assignments AssignmentStore
	audit       AuditStore
	notifier    Notifier
	log         *logger.Logger
}

// NewTransferService creates a new transfer service.
func NewTransferService(
	transfers TransferStore,
	assignments AssignmentStore,
	audit AuditStore,
	notifier Notifier,
	log *logger.Logger,
) *TransferService {
	return &TransferService{
		transfers:   transfers,
		assignments: assignments,
		audit:       audit,
		notifier:    notifier,
		log:         log,
	}
}

// CreateTransferRequest carries the fields of a new transfer.
type CreateTransferRequest struct {
	TenantID          string                 `json:"tenant_id"`
	OriginUnitID      string                 `json:"origin_unit_id"`
	OriginWarehouseID string                 `json:"origin_warehouse_id"`
	DestUnitID        string                 `json:"dest_unit_id"`
	DestWarehouseID   string                 `json:"dest_warehouse_id"`
	Notes             *string                `json:"notes"`
	CreatedBy         string                 `json:"created_by"`
	Items             []*TransferItemRequest `json:"items"`
}

// TransferItemRequest is one line of a transfer creation request.
type TransferItemRequest struct {
	LineNumber  int     `json:"line_number"`
	MaterialID  string  `json:"material_id"`
	Description string  `json:"description"`
	QtySent     float64 `json:"qty_sent"`
}

// CreateTransfer validates and persists a new transfer in CREATED status.
func (s *TransferService) CreateTransfer(ctx context.Context, req *CreateTransferRequest) (*repository.Transfer, error) {
	if req.TenantID == "" {
		return nil, errors.InvalidInput("tenant_id", "tenant is required")
	}
	if req.OriginWarehouseID == "" || req.DestWarehouseID == "" {
		return nil, errors.InvalidInput("warehouse", "origin and destination warehouses are required")
	}
	if req.OriginWarehouseID == req.DestWarehouseID {
		return nil, errors.InvalidInput("dest_warehouse_id", "destination must differ from origin")
	}
	if len(req.Items) < 1 {
		return nil, errors.InvalidInput("items", "transfer must have at least 1 item")
	}

	t := &repository.Transfer{
		TenantID:          req.TenantID,
		OriginUnitID:      req.OriginUnitID,
		OriginWarehouseID: req.OriginWarehouseID,
		DestUnitID:        req.DestUnitID,
		DestWarehouseID:   req.DestWarehouseID,
		Status:            repository.TransferStatusCreated,
		Notes:             req.Notes,
		Items:             make([]*repository.TransferItem, 0, len(req.Items)),
	}
	if req.CreatedBy != "" {
		t.CreatedBy = &req.CreatedBy
	}

	for _, itemReq := range req.Items {
		if itemReq.MaterialID == "" {
			return nil, errors.InvalidInput("material_id", "material is required")
		}
		if itemReq.QtySent <= 0 {
			return nil, errors.InvalidInput("qty_sent", "sent quantity must be positive")
		}
		t.Items = append(t.Items, &repository.TransferItem{
			LineNumber:  itemReq.LineNumber,
			MaterialID:  itemReq.MaterialID,
			Description: itemReq.Description,
			QtySent:     itemReq.QtySent,
		})
	}

	if err := s.transfers.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer_id", t.ID).
		Str("tenant_id", t.TenantID).
		Str("origin_warehouse", t.OriginWarehouseID).
		Str("dest_warehouse", t.DestWarehouseID).
		Int("items", len(t.Items)).
		Msg("Transfer created")

	s.notifier.PublishTransferEvent(ctx, "transfer_created", t.ID, t.TenantID, req.CreatedBy, map[string]interface{}{
		"dest_warehouse_id": t.DestWarehouseID,
	})

	return t, nil
}

// ListTransfers retrieves a page of a tenant's transfers with an optional
// status filter.
func (s *TransferService) ListTransfers(ctx context.Context, tenantID string, status *string, page, pageSize int) ([]*repository.Transfer, int64, error) {
	offset := (page - 1) * pageSize
	return s.transfers.List(ctx, tenantID, status, pageSize, offset)
}

// GetTransferHistory returns the audit trail of a transfer oldest-first.
func (s *TransferService) GetTransferHistory(ctx context.Context, id, tenantID string) ([]*repository.TransferAuditEntry, error) {
	if _, err := s.transfers.GetByID(ctx, id, tenantID); err != nil {
		return nil, err
	}
	return s.audit.GetByTransferID(ctx, id, tenantID)
}

// gate runs the resolver and converts a deny into a PERMISSION_DENIED
// error. An INVALID_SCOPE error from the resolver propagates unchanged: it
// is a caller bug, not a business condition.
func gate(perm authz.Permission, scope authz.Scope, assignments []authz.RoleAssignment, action string) error {
	ok, err := authz.Can(perm, &scope, assignments)
	if err != nil {
		return err
	}
	if !ok {
		return errors.PermissionDenied(action)
	}
	return nil
}

// Separate marks a transfer as picked and packed: CREATED → SEPARATED.
func (s *TransferService) Separate(ctx context.Context, id, tenantID, userID string) (*repository.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status != repository.TransferStatusCreated {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot separate transfer with status '%s'", t.Status))
	}

	assignments, err := s.assignments.GetForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := gate(authz.PermTransferSeparate, t.AuthScope(), assignments, "separate transfer"); err != nil {
		return nil, err
	}

	if err := s.transfers.UpdateStatus(ctx, id, tenantID, repository.TransferStatusCreated, repository.TransferStatusSeparated); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer_id", id).
		Str("tenant_id", tenantID).
		Str("separated_by", userID).
		Msg("Transfer separated")

	s.appendAudit(ctx, t, "separated", userID, repository.TransferStatusSeparated, nil)
	s.notifier.PublishTransferEvent(ctx, "transfer_separated", id, tenantID, userID, nil)

	return s.transfers.GetByID(ctx, id, tenantID)
}

// Dispatch puts a transfer in transit. Separation is an optional picking
// step, so both CREATED and SEPARATED are valid source states.
func (s *TransferService) Dispatch(ctx context.Context, id, tenantID, userID string) (*repository.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status != repository.TransferStatusCreated && t.Status != repository.TransferStatusSeparated {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot dispatch transfer with status '%s'", t.Status))
	}

	assignments, err := s.assignments.GetForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := gate(authz.PermTransferDispatch, t.AuthScope(), assignments, "dispatch transfer"); err != nil {
		return nil, err
	}

	if err := s.transfers.MarkDispatched(ctx, id, tenantID, t.Status, userID); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer_id", id).
		Str("tenant_id", tenantID).
		Str("dispatched_by", userID).
		Str("origin_warehouse", t.OriginWarehouseID).
		Str("dest_warehouse", t.DestWarehouseID).
		Msg("Transfer dispatched")

	s.appendAudit(ctx, t, "dispatched", userID, repository.TransferStatusInTransit, nil)
	s.notifier.PublishTransferEvent(ctx, "transfer_dispatched", id, tenantID, userID, map[string]interface{}{
		"dest_warehouse_id": t.DestWarehouseID,
	})

	return s.transfers.GetByID(ctx, id, tenantID)
}

// Receive records the received quantity of every item on an in-transit
// transfer. When any quantity differs from what was sent the receipt is
// divergent: it additionally requires the divergence-reporting permission
// (checked first) and a justification of at least ten characters. All
// gates pass before any mutation is attempted.
func (s *TransferService) Receive(ctx context.Context, id, tenantID, userID string, received map[string]float64, justification string) (*repository.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status != repository.TransferStatusInTransit {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot receive transfer with status '%s'", t.Status))
	}

	assignments, err := s.assignments.GetForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := gate(authz.PermTransferReceive, t.AuthScope(), assignments, "receive transfer"); err != nil {
		return nil, err
	}

	divergent, err := diverges(t.Items, received)
	if err != nil {
		return nil, err
	}

	finalStatus := repository.TransferStatusReceived
	var divergenceReason *string
	if divergent {
		if err := gate(authz.PermTransferReportDivergence, t.AuthScope(), assignments, "report transfer divergence"); err != nil {
			return nil, err
		}
		if len(justification) < minJustificationLen {
			return nil, errors.InvalidInput("justification",
				fmt.Sprintf("divergent receipt requires a justification of at least %d characters", minJustificationLen))
		}
		finalStatus = repository.TransferStatusDivergence
		divergenceReason = &justification
	}

	if err := s.transfers.RecordReceipt(ctx, t, received, finalStatus, divergenceReason, userID); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer_id", id).
		Str("tenant_id", tenantID).
		Str("received_by", userID).
		Bool("divergent", divergent).
		Msg("Transfer received")

	metadata := map[string]interface{}{"divergent": divergent}
	if divergent {
		metadata["justification"] = justification
	}
	s.appendAudit(ctx, t, receiptAction(divergent), userID, finalStatus, metadata)

	eventType := "transfer_received"
	if divergent {
		eventType = "transfer_divergence"
	}
	s.notifier.PublishTransferEvent(ctx, eventType, id, tenantID, userID, metadata)

	return s.transfers.GetByID(ctx, id, tenantID)
}

// Cancel aborts a transfer that has not yet left the origin warehouse.
func (s *TransferService) Cancel(ctx context.Context, id, tenantID, userID string) (*repository.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status != repository.TransferStatusCreated && t.Status != repository.TransferStatusSeparated {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot cancel transfer with status '%s'", t.Status))
	}

	assignments, err := s.assignments.GetForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := gate(authz.PermTransferCancel, t.AuthScope(), assignments, "cancel transfer"); err != nil {
		return nil, err
	}

	if err := s.transfers.UpdateStatus(ctx, id, tenantID, t.Status, repository.TransferStatusCanceled); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer_id", id).
		Str("tenant_id", tenantID).
		Str("canceled_by", userID).
		Msg("Transfer canceled")

	s.appendAudit(ctx, t, "canceled", userID, repository.TransferStatusCanceled, nil)
	s.notifier.PublishTransferEvent(ctx, "transfer_canceled", id, tenantID, userID, nil)

	return s.transfers.GetByID(ctx, id, tenantID)
}

// GetTransfer retrieves a transfer with its items.
func (s *TransferService) GetTransfer(ctx context.Context, id, tenantID string) (*repository.Transfer, error) {
	return s.transfers.GetByID(ctx, id, tenantID)
}

// diverges validates the received map against the transfer items and
// reports whether any quantity differs from what was sent. Every item must
// be covered; unknown item IDs are rejected.
func diverges(items []*repository.TransferItem, received map[string]float64) (bool, error) {
	known := make(map[string]struct{}, len(items))
	divergent := false

	for _, item := range items {
		known[item.ID] = struct{}{}
		qty, ok := received[item.ID]
		if !ok {
			return false, errors.InvalidInput("received_quantities",
				fmt.Sprintf("missing received quantity for item %s", item.ID))
		}
		if qty < 0 {
			return false, errors.InvalidInput("received_quantities",
				fmt.Sprintf("received quantity for item %s cannot be negative", item.ID))
		}
		if qty != item.QtySent {
			divergent = true
		}
	}

	for itemID := range received {
		if _, ok := known[itemID]; !ok {
			return false, errors.InvalidInput("received_quantities",
				fmt.Sprintf("item %s does not belong to this transfer", itemID))
		}
	}

	return divergent, nil
}

func receiptAction(divergent bool) string {
	if divergent {
		return "divergence_reported"
	}
	return "received"
}

// appendAudit writes an audit entry and logs a warning on failure.
func (s *TransferService) appendAudit(ctx context.Context, t *repository.Transfer, action, actedBy, statusAfter string, metadata map[string]interface{}) {
	statusBefore := t.Status
	if err := s.audit.Append(ctx, &repository.TransferAuditEntry{
		TransferID:   t.ID,
		TenantID:     t.TenantID,
		Action:       action,
		PerformedBy:  actedBy,
		StatusBefore: &statusBefore,
		StatusAfter:  &statusAfter,
		Metadata:     metadata,
	}); err != nil {
		s.log.Warn().Err(err).
			Str("transfer_id", t.ID).
			Str("action", action).
			Msg("Failed to write audit log entry")
	}
}
