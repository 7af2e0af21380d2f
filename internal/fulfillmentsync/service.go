package fulfillmentsync

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/internal/sessions"
	"github.com/synqsell/synqsell-backend/internal/settlement"
	"github.com/synqsell/synqsell-backend/pkg/collections"
	"github.com/synqsell/synqsell-backend/pkg/db/models"
	"github.com/synqsell/synqsell-backend/pkg/enums"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/shopify"
)

const (
	statusCancelled   = "cancelled"
	shipmentDelivered = "delivered"
)

type gateway interface {
	FulfillmentDetails(ctx context.Context, store shopify.Store, fulfillmentID string) (*shopify.FulfillmentDetails, error)
	FulfillmentOrderLineItems(ctx context.Context, store shopify.Store, fulfillmentOrderID string) ([]shopify.FulfillmentOrderLineItem, error)
	CreateFulfillment(ctx context.Context, store shopify.Store, input shopify.CreateFulfillmentInput) (string, error)
	CancelFulfillment(ctx context.Context, store shopify.Store, fulfillmentID string) error
}

type settler interface {
	HandleDelivered(ctx context.Context, shop, shopifySupplierOrderID, supplierShopifyFulfillmentID string, lines []settlement.DeliveredLine) (bool, error)
}

// CreateInput is a fulfillments/create event on a supplier store.
type CreateInput struct {
	Shop          string
	FulfillmentID string
	OrderID       string
}

// FulfillmentLine is one line item of a fulfillment webhook payload.
type FulfillmentLine struct {
	LineItemID string
	Quantity   int
}

// TrackingInput is the tracking block of a fulfillment webhook payload.
type TrackingInput struct {
	Company *string
	Numbers []string
	URLs    []string
}

// UpdateInput is a fulfillments/update event from either side of an order pair.
type UpdateInput struct {
	Shop           string
	FulfillmentID  string
	OrderID        string
	Status         string
	ShipmentStatus string
	LineItems      []FulfillmentLine
	Tracking       TrackingInput
}

// Service propagates fulfillments between the supplier and retailer stores.
// The supplier is the source of truth: its fulfillments are mirrored onto the
// retailer, and retailer-side cancellations are rebuilt from supplier data.
type Service interface {
	HandleFulfillmentCreate(ctx context.Context, input CreateInput) (bool, error)
	HandleFulfillmentUpdate(ctx context.Context, input UpdateInput) (bool, error)
}

type service struct {
	repo               Repository
	sessions           sessions.Repository
	gw                 gateway
	settler            settler
	logg               *logger.Logger
	trackingMinEntries int
}

// NewService builds a fulfillment sync service. Tracking is attached to
// mirrored fulfillments only when the supplier fulfillment carries at least
// trackingMinEntries tracking entries.
func NewService(repo Repository, sessionRepo sessions.Repository, gw gateway, stl settler, logg *logger.Logger, trackingMinEntries int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fulfillment sync repository required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("shopify gateway required")
	}
	if stl == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if trackingMinEntries <= 0 {
		trackingMinEntries = 1
	}
	return &service{
		repo:               repo,
		sessions:           sessionRepo,
		gw:                 gw,
		settler:            stl,
		logg:               logg,
		trackingMinEntries: trackingMinEntries,
	}, nil
}

// HandleFulfillmentCreate mirrors a new supplier fulfillment onto the retailer
// store. The bool result reports whether the fulfillment belonged to a
// marketplace order.
func (s *service) HandleFulfillmentCreate(ctx context.Context, input CreateInput) (bool, error) {
	supplier, err := s.sessions.GetByShop(ctx, input.Shop)
	if err != nil {
		return false, err
	}

	order, err := s.repo.GetOrderBySupplier(ctx, supplier.ID, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus == enums.OrderPaymentStatusCancelled {
		return false, nil
	}

	retailer, err := s.sessions.GetByID(ctx, order.RetailerID)
	if err != nil {
		return true, err
	}
	supplierStore := shopify.Store{Shop: supplier.Shop, AccessToken: supplier.AccessToken}
	retailerStore := shopify.Store{Shop: retailer.Shop, AccessToken: retailer.AccessToken}

	details, err := s.gw.FulfillmentDetails(ctx, supplierStore, input.FulfillmentID)
	if err != nil {
		return true, err
	}

	lineInputs, err := s.mapToRetailerLines(ctx, retailerStore, order, details.LineItems)
	if err != nil {
		return true, err
	}

	var tracking []shopify.TrackingInfo
	if len(details.Tracking) >= s.trackingMinEntries {
		tracking = details.Tracking
	}

	retailerFulfillmentID, err := s.gw.CreateFulfillment(ctx, retailerStore, shopify.CreateFulfillmentInput{
		FulfillmentOrderID: order.ShopifyRetailerFulfillmentOrderID,
		LineItems:          lineInputs,
		Tracking:           tracking,
		NotifyCustomer:     true,
	})
	if err != nil {
		return true, err
	}

	_, err = s.repo.CreateFulfillment(ctx, &models.Fulfillment{
		SupplierShopifyFulfillmentID: input.FulfillmentID,
		RetailerShopifyFulfillmentID: retailerFulfillmentID,
		OrderID:                      order.ID,
	})
	if err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record fulfillment pair")
	}
	return true, nil
}

// mapToRetailerLines converts supplier fulfillment lines into retailer
// fulfillment order line inputs, walking supplier order line -> ledger pair ->
// retailer order line -> retailer fulfillment order line.
func (s *service) mapToRetailerLines(
	ctx context.Context,
	retailerStore shopify.Store,
	order *models.Order,
	supplierLines []shopify.FulfillmentLineItem,
) ([]shopify.FulfillmentLineInput, error) {
	orderLines, err := s.repo.GetOrderLineItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line items")
	}
	bySupplierLine := collections.IndexBy(orderLines, func(item models.OrderLineItem) string {
		return item.ShopifySupplierOrderLineItemID
	})

	foLines, err := s.gw.FulfillmentOrderLineItems(ctx, retailerStore, order.ShopifyRetailerFulfillmentOrderID)
	if err != nil {
		return nil, err
	}
	byRetailerLine := collections.IndexBy(foLines, func(line shopify.FulfillmentOrderLineItem) string {
		return line.LineItemID
	})

	inputs := make([]shopify.FulfillmentLineInput, 0, len(supplierLines))
	for _, line := range supplierLines {
		pair, ok := bySupplierLine[line.LineItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, "fulfillment references a line item outside the mirrored order").
				WithDetails(map[string]any{"supplier_line_item_id": line.LineItemID})
		}
		foLine, ok := byRetailerLine[pair.ShopifyRetailerOrderLineItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, "retailer fulfillment order is missing a mirrored line item").
				WithDetails(map[string]any{"retailer_line_item_id": pair.ShopifyRetailerOrderLineItemID})
		}
		inputs = append(inputs, shopify.FulfillmentLineInput{ID: foLine.ID, Quantity: line.Quantity})
	}
	return inputs, nil
}

// HandleFulfillmentUpdate reacts to fulfillment status changes on either
// store. The fulfillment id classifies the side: supplier cancellations
// propagate to the retailer, retailer cancellations are resynced from the
// webhook payload, and supplier deliveries trigger settlement.
func (s *service) HandleFulfillmentUpdate(ctx context.Context, input UpdateInput) (bool, error) {
	session, err := s.sessions.GetByShop(ctx, input.Shop)
	if err != nil {
		return false, err
	}

	if pair, err := s.repo.GetBySupplierFulfillmentID(ctx, input.FulfillmentID); err == nil {
		return s.handleSupplierSide(ctx, session, pair, input)
	} else if err != gorm.ErrRecordNotFound {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment pair")
	}

	if pair, err := s.repo.GetByRetailerFulfillmentID(ctx, input.FulfillmentID); err == nil {
		return s.handleRetailerSide(ctx, session, pair, input)
	} else if err != gorm.ErrRecordNotFound {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment pair")
	}

	return false, nil
}

func (s *service) handleSupplierSide(ctx context.Context, supplier *models.Session, pair *models.Fulfillment, input UpdateInput) (bool, error) {
	order, err := s.repo.GetOrderByID(ctx, pair.OrderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SupplierID != supplier.ID || order.PaymentStatus == enums.OrderPaymentStatusCancelled {
		return false, nil
	}

	switch {
	case input.Status == statusCancelled:
		return s.cancelRetailerFulfillment(ctx, order, pair)
	case input.ShipmentStatus == shipmentDelivered:
		lines := make([]settlement.DeliveredLine, 0, len(input.LineItems))
		for _, line := range input.LineItems {
			lines = append(lines, settlement.DeliveredLine{
				SupplierOrderLineItemID: line.LineItemID,
				Quantity:                line.Quantity,
			})
		}
		return s.settler.HandleDelivered(ctx, input.Shop, input.OrderID, input.FulfillmentID, lines)
	}
	return false, nil
}

// cancelRetailerFulfillment mirrors a supplier-side cancellation. The retailer
// fulfillment is cancelled remotely first; the pair row is removed only after
// the mutation succeeds so a retry can find it again.
func (s *service) cancelRetailerFulfillment(ctx context.Context, order *models.Order, pair *models.Fulfillment) (bool, error) {
	retailer, err := s.sessions.GetByID(ctx, order.RetailerID)
	if err != nil {
		return true, err
	}
	retailerStore := shopify.Store{Shop: retailer.Shop, AccessToken: retailer.AccessToken}

	if err := s.gw.CancelFulfillment(ctx, retailerStore, pair.RetailerShopifyFulfillmentID); err != nil {
		return true, err
	}
	if err := s.repo.DeleteFulfillment(ctx, pair.ID); err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove fulfillment pair")
	}
	return true, nil
}

func (s *service) handleRetailerSide(ctx context.Context, retailer *models.Session, pair *models.Fulfillment, input UpdateInput) (bool, error) {
	order, err := s.repo.GetOrderByID(ctx, pair.OrderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.RetailerID != retailer.ID || order.PaymentStatus == enums.OrderPaymentStatusCancelled {
		return false, nil
	}
	if input.Status != statusCancelled {
		return false, nil
	}
	return s.resyncRetailerFulfillment(ctx, retailer, order, pair, input)
}

// resyncRetailerFulfillment rebuilds a retailer fulfillment the retailer
// cancelled. The supplier already shipped, so the fulfillment is re-created
// from the cancelled payload and the pair row repointed at the new id.
func (s *service) resyncRetailerFulfillment(
	ctx context.Context,
	retailer *models.Session,
	order *models.Order,
	pair *models.Fulfillment,
	input UpdateInput,
) (bool, error) {
	retailerStore := shopify.Store{Shop: retailer.Shop, AccessToken: retailer.AccessToken}

	lineInputs := make([]shopify.FulfillmentLineInput, 0, len(input.LineItems))
	for _, line := range input.LineItems {
		lineInputs = append(lineInputs, shopify.FulfillmentLineInput{ID: line.LineItemID, Quantity: line.Quantity})
	}

	newID, err := s.gw.CreateFulfillment(ctx, retailerStore, shopify.CreateFulfillmentInput{
		FulfillmentOrderID: order.ShopifyRetailerFulfillmentOrderID,
		LineItems:          lineInputs,
		Tracking:           input.Tracking.entries(),
		NotifyCustomer:     true,
	})
	if err != nil {
		return true, err
	}
	if err := s.repo.SetRetailerFulfillmentID(ctx, pair.ID, newID); err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repoint fulfillment pair")
	}
	return true, nil
}

// entries expands the payload tracking block into per-number tracking entries.
// The company rides on the first entry.
func (t TrackingInput) entries() []shopify.TrackingInfo {
	count := len(t.Numbers)
	if len(t.URLs) > count {
		count = len(t.URLs)
	}
	if count == 0 && t.Company == nil {
		return nil
	}
	if count == 0 {
		count = 1
	}

	entries := make([]shopify.TrackingInfo, count)
	for i := range entries {
		if i < len(t.Numbers) {
			number := t.Numbers[i]
			entries[i].Number = &number
		}
		if i < len(t.URLs) {
			url := t.URLs[i]
			entries[i].URL = &url
		}
	}
	entries[0].Company = t.Company
	return entries
}
