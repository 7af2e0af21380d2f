package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/internal/sessions"
	"github.com/synqsell/synqsell-backend/pkg/collections"
	"github.com/synqsell/synqsell-backend/pkg/db/models"
	"github.com/synqsell/synqsell-backend/pkg/enums"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/shopify"
)

const (
	cancelReasonCustomer = "CUSTOMER"
	cancelStaffNote      = "Retailer cancelled the order on Synqsell."
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	CancelOrder(ctx context.Context, store shopify.Store, input shopify.OrderCancelInput) error
	FulfillmentOrderOrderID(ctx context.Context, store shopify.Store, fulfillmentOrderID string) (string, error)
	OrderLineItems(ctx context.Context, store shopify.Store, orderID string) ([]shopify.OrderLine, error)
	CreateRefund(ctx context.Context, store shopify.Store, orderID string, lineItems []shopify.RefundLineItem) error
}

// CancelledLine is one cancelled line item reported by the supplier's
// orders/cancelled webhook.
type CancelledLine struct {
	SupplierOrderLineItemID string
	Quantity                int
}

// Service propagates order cancellations between the stores. A retailer
// cancellation kills the whole supplier order; a supplier cancellation is
// refunded line by line on the retailer because Shopify has no partial
// fulfillment order cancel.
type Service interface {
	HandleFulfillmentOrderCancelled(ctx context.Context, shop, fulfillmentOrderID string) (bool, error)
	HandleOrderCancelled(ctx context.Context, shop, shopifySupplierOrderID string, lines []CancelledLine) (bool, error)
}

type service struct {
	repo     Repository
	sessions sessions.Repository
	gw       gateway
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds an order lifecycle service with the required dependencies.
func NewService(repo Repository, sessionRepo sessions.Repository, gw gateway, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lifecycle repository required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("shopify gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, sessions: sessionRepo, gw: gw, tx: tx, logg: logg}, nil
}

// HandleFulfillmentOrderCancelled reacts to a retailer cancelling the routed
// fulfillment order: the supplier order is cancelled with restock and the
// ledger order marked cancelled. The payment status guard stops the two
// cancellation webhooks from retriggering each other.
func (s *service) HandleFulfillmentOrderCancelled(ctx context.Context, shop, fulfillmentOrderID string) (bool, error) {
	retailer, err := s.sessions.GetByShop(ctx, shop)
	if err != nil {
		return false, err
	}

	order, err := s.repo.GetOrderByRetailerFulfillmentOrder(ctx, retailer.ID, fulfillmentOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus == enums.OrderPaymentStatusCancelled {
		return false, nil
	}

	supplier, err := s.sessions.GetByID(ctx, order.SupplierID)
	if err != nil {
		return true, err
	}
	supplierStore := shopify.Store{Shop: supplier.Shop, AccessToken: supplier.AccessToken}

	err = s.gw.CancelOrder(ctx, supplierStore, shopify.OrderCancelInput{
		OrderID:        order.ShopifySupplierOrderID,
		NotifyCustomer: false,
		Reason:         cancelReasonCustomer,
		Refund:         false,
		Restock:        true,
		StaffNote:      cancelStaffNote,
	})
	if err != nil {
		return true, err
	}

	if err := s.repo.SetOrderPaymentStatus(ctx, order.ID, enums.OrderPaymentStatusCancelled); err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order cancelled")
	}
	return true, nil
}

// HandleOrderCancelled reacts to a supplier cancelling their order: the
// mirrored lines are refunded on the retailer's order and the cancelled
// quantities recorded.
func (s *service) HandleOrderCancelled(ctx context.Context, shop, shopifySupplierOrderID string, lines []CancelledLine) (bool, error) {
	supplier, err := s.sessions.GetByShop(ctx, shop)
	if err != nil {
		return false, err
	}

	order, err := s.repo.GetOrderBySupplierOrder(ctx, supplier.ID, shopifySupplierOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus == enums.OrderPaymentStatusCancelled {
		return false, nil
	}
	if len(lines) == 0 {
		return true, nil
	}

	supplierLineIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		supplierLineIDs = append(supplierLineIDs, line.SupplierOrderLineItemID)
	}
	items, err := s.repo.GetLineItemsBySupplierLineIDs(ctx, order.ID, supplierLineIDs)
	if err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line items")
	}
	bySupplierLine := collections.IndexBy(items, func(item models.OrderLineItem) string {
		return item.ShopifySupplierOrderLineItemID
	})

	retailer, err := s.sessions.GetByID(ctx, order.RetailerID)
	if err != nil {
		return true, err
	}
	retailerStore := shopify.Store{Shop: retailer.Shop, AccessToken: retailer.AccessToken}

	// A fulfillment order line cannot be resolved to an order line directly,
	// so the live retailer order is matched back through variant ids.
	retailerOrderID, err := s.gw.FulfillmentOrderOrderID(ctx, retailerStore, order.ShopifyRetailerFulfillmentOrderID)
	if err != nil {
		return true, err
	}
	retailerLines, err := s.gw.OrderLineItems(ctx, retailerStore, retailerOrderID)
	if err != nil {
		return true, err
	}
	byVariant := collections.IndexBy(retailerLines, func(line shopify.OrderLine) string { return line.VariantID })

	refundLines := make([]shopify.RefundLineItem, 0, len(lines))
	cancelledByItem := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		item, ok := bySupplierLine[line.SupplierOrderLineItemID]
		if !ok {
			return true, pkgerrors.New(pkgerrors.CodeConsistency, "cancelled line item is not part of the mirrored order").
				WithDetails(map[string]any{"supplier_line_item_id": line.SupplierOrderLineItemID})
		}
		retailerLine, ok := byVariant[item.RetailerShopifyVariantID]
		if !ok {
			return true, pkgerrors.New(pkgerrors.CodeConsistency, "retailer order has no line for the cancelled variant").
				WithDetails(map[string]any{"retailer_variant_id": item.RetailerShopifyVariantID})
		}
		refundLines = append(refundLines, shopify.RefundLineItem{LineItemID: retailerLine.ID, Quantity: line.Quantity})
		cancelledByItem[item.ID] = line.Quantity
	}

	if err := s.gw.CreateRefund(ctx, retailerStore, retailerOrderID, refundLines); err != nil {
		return true, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for itemID, quantity := range cancelledByItem {
			if err := repo.SetQuantityCancelled(ctx, itemID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cancelled quantity")
			}
		}
		return nil
	})
	if err != nil {
		return true, err
	}
	return true, nil
}
