package service

import (
	"context"
	"fmt"

	"github.com/materix-ai/be-mm-materials/internal/authz"
	"github.com/materix-ai/be-mm-materials/internal/errors"
	"github.com/materix-ai/be-mm-materials/internal/logger"
	"github.com/materix-ai/be-mm-materials/internal/repository"
)

// RequisitionStore is the persistence surface for requisition approvals.
type RequisitionStore interface {
	GetByID(ctx context.Context, id, tenantID string) (*repository.Requisition, error)
	ApproveL1(ctx context.Context, id, tenantID, approvedBy string) error
	ApproveL2(ctx context.Context, id, tenantID, approvedBy string) error
}

// PurchaseOrderStore is the persistence surface for purchase order approvals.
type PurchaseOrderStore interface {
	GetByID(ctx context.Context, id, tenantID string) (*repository.PurchaseOrder, error)
	Approve(ctx context.Context, id, tenantID, approvedBy string) error
}

// DocumentNotifier publishes document approval events.
type DocumentNotifier interface {
	PublishDocumentEvent(ctx context.Context, eventType, resourceType, resourceID, tenantID, actorID string, payload map[string]interface{})
}

// DocumentService gates requisition and purchase order approvals on the
// approver's scoped role assignments. A requisition's boundary includes
// its target warehouse; a purchase order is a unit-level concern.
type DocumentService struct {
	requisitions RequisitionStore
	orders       PurchaseOrderStore
	assignments  AssignmentStore
	notifier     DocumentNotifier
	log          *logger.Logger
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	requisitions RequisitionStore,
	orders PurchaseOrderStore,
	assignments AssignmentStore,
	notifier DocumentNotifier,
	log *logger.Logger,
) *DocumentService {
	return &DocumentService{
		requisitions: requisitions,
		orders:       orders,
		assignments:  assignments,
		notifier:     notifier,
		log:          log,
	}
}

// ApproveRequisition advances a requisition one approval level:
// PENDING_L1 → PENDING_L2 (first level) or PENDING_L2 → APPROVED (final).
func (s *DocumentService) ApproveRequisition(ctx context.Context, id, tenantID, userID string) (*repository.Requisition, error) {
	rm, err := s.requisitions.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignments.GetForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	switch rm.Status {
	case repository.RequisitionStatusPendingL1:
		if err := gate(authz.PermRequisitionApproveL1, rm.AuthScope(), assignments, "approve requisition"); err != nil {
			return nil, err
		}
		if err := s.requisitions.ApproveL1(ctx, id, tenantID, userID); err != nil {
			return nil, err
		}
	case repository.RequisitionStatusPendingL2:
		if err := gate(authz.PermRequisitionApproveL2, rm.AuthScope(), assignments, "approve requisition"); err != nil {
			return nil, err
		}
		if err := s.requisitions.ApproveL2(ctx, id, tenantID, userID); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot approve requisition with status '%s'", rm.Status))
	}

	s.log.Info().
		Str("requisition_id", id).
		Str("tenant_id", tenantID).
		Str("approved_by", userID).
		Str("level", rm.Status).
		Msg("Requisition approved")

	s.notifier.PublishDocumentEvent(ctx, "requisition_approved", "requisition", id, tenantID, userID, nil)

	return s.requisitions.GetByID(ctx, id, tenantID)
}

// ApprovePurchaseOrder approves a pending purchase order.
func (s *DocumentService) ApprovePurchaseOrder(ctx context.Context, id, tenantID, userID string) (*repository.PurchaseOrder, error) {
	po, err := s.orders.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if po.Status != repository.PurchaseOrderStatusPending {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot approve purchase order with status '%s'", po.Status))
	}

	assignments, err := s.assignments.GetForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := gate(authz.PermPurchaseOrderApprove, po.AuthScope(), assignments, "approve purchase order"); err != nil {
		return nil, err
	}

	if err := s.orders.Approve(ctx, id, tenantID, userID); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("purchase_order_id", id).
		Str("tenant_id", tenantID).
		Str("approved_by", userID).
		Int64("total_cents", po.TotalCents).
		Msg("Purchase order approved")

	s.notifier.PublishDocumentEvent(ctx, "purchase_order_approved", "purchase_order", id, tenantID, userID, nil)

	return s.orders.GetByID(ctx, id, tenantID)
}
