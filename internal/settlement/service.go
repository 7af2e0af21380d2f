package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db"
	"github.com/synqsell/synqsell-backend/pkg/db/models"
	"github.com/synqsell/synqsell-backend/pkg/enums"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/stripe"
)

// shippingRoundingTolerance absorbs cent-level drift from prorating shipping
// across fulfillments, e.g. 5.00/3 rounding to 1.67 three times.
var shippingRoundingTolerance = decimal.RequireFromString("0.10")

// DeliveredLine is one delivered line item reported by the supplier's
// fulfillment webhook.
type DeliveredLine struct {
	SupplierOrderLineItemID string
	Quantity                int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type charger interface {
	Charge(ctx context.Context, in stripe.ChargeInput) (string, error)
}

// Service pays the supplier for a delivered fulfillment: the retailer's card
// on file is debited and the funds transferred to the supplier's connected
// account.
type Service interface {
	HandleDelivered(ctx context.Context, shop, shopifySupplierOrderID, supplierShopifyFulfillmentID string, lines []DeliveredLine) (bool, error)
}

type service struct {
	repo    Repository
	charger charger
	tx      txRunner
	logg    *logger.Logger
}

// NewService builds a settlement service with the required dependencies.
func NewService(repo Repository, chg charger, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if chg == nil {
		return nil, fmt.Errorf("stripe charger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, charger: chg, tx: tx, logg: logg}, nil
}

// HandleDelivered settles one delivered supplier fulfillment. An existing
// payment for the fulfillment makes the call a no-op, so webhook redeliveries
// never double-charge.
func (s *service) HandleDelivered(ctx context.Context, shop, shopifySupplierOrderID, supplierShopifyFulfillmentID string, lines []DeliveredLine) (bool, error) {
	pair, err := s.repo.GetFulfillmentBySupplierID(ctx, supplierShopifyFulfillmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment pair")
	}

	order, err := s.repo.GetOrderBySupplierOrderID(ctx, shopifySupplierOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return true, pkgerrors.New(pkgerrors.CodeConsistency, "fulfillment pair references an order that does not exist").
				WithDetails(map[string]any{"shopify_supplier_order_id": shopifySupplierOrderID})
		}
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ID != pair.OrderID {
		return true, pkgerrors.New(pkgerrors.CodeConsistency, "fulfillment pair does not belong to the delivered order").
			WithDetails(map[string]any{
				"fulfillment_order_id": pair.OrderID,
				"order_id":             order.ID,
			})
	}

	alreadyPaid, err := s.repo.HasPaymentForFulfillment(ctx, pair.ID)
	if err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check for existing payment")
	}
	if alreadyPaid {
		s.logg.Info(s.logg.WithShop(ctx, shop), fmt.Sprintf("fulfillment %s already settled", supplierShopifyFulfillmentID))
		return true, nil
	}

	lineItems, err := s.repo.GetOrderLineItems(ctx, order.ID)
	if err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line items")
	}

	orderPayable, deliveredByLine, err := orderPayableAmount(lines, lineItems)
	if err != nil {
		return true, err
	}
	shippingPayable, err := s.shippingPayableAmount(ctx, order, lines, lineItems)
	if err != nil {
		return true, err
	}
	totalPayable := orderPayable.Add(shippingPayable)

	connect, err := s.repo.GetConnectAccount(ctx, order.SupplierID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return true, pkgerrors.New(pkgerrors.CodeStateConflict, "supplier has no connected stripe account").
				WithDetails(map[string]any{"supplier_id": order.SupplierID})
		}
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stripe connect account")
	}
	customer, err := s.repo.GetCustomerAccount(ctx, order.RetailerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return true, pkgerrors.New(pkgerrors.CodeStateConflict, "retailer has no stripe customer account").
				WithDetails(map[string]any{"retailer_id": order.RetailerID})
		}
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stripe customer account")
	}

	intentID, err := s.charger.Charge(ctx, stripe.ChargeInput{
		CustomerID:           customer.StripeCustomerID,
		DestinationAccountID: connect.StripeAccountID,
		Amount:               totalPayable,
		Currency:             order.Currency,
		Description:          fmt.Sprintf("Payout for supplier order %s", order.ShopifySupplierOrderID),
	})
	if err != nil {
		return true, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		_, err := repo.CreatePayment(ctx, &models.Payment{
			OrderID:               order.ID,
			FulfillmentID:         pair.ID,
			Status:                enums.PaymentStatusInitiated,
			OrderPaid:             orderPayable,
			ShippingPaid:          shippingPayable,
			TotalPaid:             totalPayable,
			StripePaymentIntentID: &intentID,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "payments_fulfillment_id_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConsistency, err, "fulfillment settled concurrently after charge").
					WithDetails(map[string]any{
						"fulfillment_id":    pair.ID,
						"payment_intent_id": intentID,
					})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		for lineItemID, quantity := range deliveredByLine {
			if err := repo.AddDeliveredQuantities(ctx, lineItemID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivered quantities")
			}
		}
		return nil
	})
	if err != nil {
		s.logg.Error(s.logg.WithShop(ctx, shop), "charge succeeded but the payment could not be recorded", err)
		return true, err
	}
	return true, nil
}

// orderPayableAmount sums the payable amount of the delivered lines and
// returns the delivered quantity per ledger line. The guards keep a bad
// webhook from charging the retailer past the quantity ordered.
func orderPayableAmount(lines []DeliveredLine, lineItems []models.OrderLineItem) (decimal.Decimal, map[uuid.UUID]int, error) {
	byID := make(map[string]models.OrderLineItem, len(lineItems))
	for _, item := range lineItems {
		byID[item.ShopifySupplierOrderLineItemID] = item
	}

	total := decimal.Zero
	deliveredByLine := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		item, ok := byID[line.SupplierOrderLineItemID]
		if !ok {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeConsistency, "delivered line item is not part of the mirrored order").
				WithDetails(map[string]any{"supplier_line_item_id": line.SupplierOrderLineItemID})
		}
		if item.QuantityCancelled+item.QuantityFulfilled+line.Quantity > item.Quantity {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeConsistency, "delivery would exceed the quantity ordered").
				WithDetails(map[string]any{"supplier_line_item_id": line.SupplierOrderLineItemID})
		}
		if item.QuantityPaid+line.Quantity > item.Quantity {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeConsistency, "payment would exceed the quantity ordered").
				WithDetails(map[string]any{"supplier_line_item_id": line.SupplierOrderLineItemID})
		}
		total = total.Add(item.AmountPayablePerUnit.Mul(decimal.NewFromInt(int64(line.Quantity))))
		deliveredByLine[item.ID] += line.Quantity
	}
	return total, deliveredByLine, nil
}

// shippingPayableAmount prorates the order's shipping cost by the share of
// units this fulfillment delivered. When the remainder after this payment is
// within the rounding tolerance it is folded in, so the last fulfillment of an
// order never strands a cent.
func (s *service) shippingPayableAmount(ctx context.Context, order *models.Order, lines []DeliveredLine, lineItems []models.OrderLineItem) (decimal.Decimal, error) {
	deliveredQty := 0
	for _, line := range lines {
		deliveredQty += line.Quantity
	}
	orderQty := 0
	for _, item := range lineItems {
		orderQty += item.Quantity
	}
	if orderQty == 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeConsistency, "order has no quantity to prorate shipping over").
			WithDetails(map[string]any{"order_id": order.ID})
	}

	estimate := order.ShippingCost.
		Mul(decimal.NewFromInt(int64(deliveredQty))).
		Div(decimal.NewFromInt(int64(orderQty))).
		Round(2)

	payments, err := s.repo.GetPaymentsForOrder(ctx, order.ID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prior payments")
	}
	paidToDate := decimal.Zero
	for _, payment := range payments {
		paidToDate = paidToDate.Add(payment.ShippingPaid)
	}

	payable := estimate
	difference := order.ShippingCost.Sub(estimate).Sub(paidToDate)
	if difference.Abs().LessThanOrEqual(shippingRoundingTolerance) {
		payable = payable.Add(difference)
	}
	if payable.IsNegative() {
		return decimal.Zero, nil
	}
	return payable, nil
}
