package shopify

import (
	"context"

	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
)

// Typed wrappers around the GraphQL documents. Paginated reads loop the
// initial/subsequent document pair until hasNextPage is false.

// RoutingDetails is the routing-relevant slice of a fulfillment order.
type RoutingDetails struct {
	OrderID     string
	LocationID  string
	Destination *Destination
}

// FulfillmentOrderLineItem is one line of a fulfillment order.
type FulfillmentOrderLineItem struct {
	ID         string
	Quantity   int
	LineItemID string
	VariantID  string
}

// OrderLine is one line of an order.
type OrderLine struct {
	ID        string
	VariantID string
	Quantity  int
}

// OrderDetails carries the order fields mirrored into the ledger. Amounts are
// presentment-currency strings as Shopify returns them.
type OrderDetails struct {
	ID           string
	CurrencyCode string
	ShippingCost string
	LineItems    []OrderLine
}

// FulfillmentLineItem is one line of a fulfillment.
type FulfillmentLineItem struct {
	Quantity   int
	LineItemID string
	VariantID  string
}

// FulfillmentDetails is the tracking and line items of a fulfillment.
type FulfillmentDetails struct {
	Tracking  []TrackingInfo
	LineItems []FulfillmentLineItem
}

// VariantInfo is the live price and inventory of a product variant.
type VariantInfo struct {
	ID                string `json:"id"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventoryQuantity"`
}

// SplitLineItem selects a fulfillment order line and quantity to split off.
type SplitLineItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// DraftOrderLineItem is one line on a supplier draft order.
type DraftOrderLineItem struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// DraftOrderShippingAddress is the shipping address on a draft order.
type DraftOrderShippingAddress struct {
	FirstName    *string `json:"firstName,omitempty"`
	LastName     *string `json:"lastName,omitempty"`
	Address1     *string `json:"address1,omitempty"`
	Address2     *string `json:"address2,omitempty"`
	City         *string `json:"city,omitempty"`
	Company      *string `json:"company,omitempty"`
	CountryCode  *string `json:"countryCode,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	ProvinceCode *string `json:"provinceCode,omitempty"`
	Zip          *string `json:"zip,omitempty"`
}

// DraftOrderInput is the draft order mirrored onto the supplier store.
type DraftOrderInput struct {
	Email           *string                    `json:"email,omitempty"`
	LineItems       []DraftOrderLineItem       `json:"lineItems"`
	ShippingAddress *DraftOrderShippingAddress `json:"shippingAddress,omitempty"`
	Tags            string                     `json:"tags,omitempty"`
}

// ShippingAddress converts a fulfillment order destination into draft order
// address input. The destination's province maps to provinceCode.
func (d *Destination) ShippingAddress() *DraftOrderShippingAddress {
	if d == nil {
		return nil
	}
	return &DraftOrderShippingAddress{
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Address1:     d.Address1,
		Address2:     d.Address2,
		City:         d.City,
		Company:      d.Company,
		CountryCode:  d.CountryCode,
		Phone:        d.Phone,
		ProvinceCode: d.Province,
		Zip:          d.Zip,
	}
}

// FulfillmentLineInput selects a fulfillment order line and quantity to fulfill.
type FulfillmentLineInput struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// CreateFulfillmentInput builds a fulfillmentCreateV2 call against one
// fulfillment order. Tracking is attached only when present.
type CreateFulfillmentInput struct {
	FulfillmentOrderID string
	LineItems          []FulfillmentLineInput
	Tracking           []TrackingInfo
	NotifyCustomer     bool
}

// OrderCancelInput parameterizes orderCancel.
type OrderCancelInput struct {
	OrderID        string
	NotifyCustomer bool
	Reason         string
	Refund         bool
	Restock        bool
	StaffNote      string
}

// RefundLineItem selects an order line and quantity to refund.
type RefundLineItem struct {
	LineItemID string `json:"lineItemId"`
	Quantity   int    `json:"quantity"`
}

// InventoryQuantityInput sets available inventory at a location.
type InventoryQuantityInput struct {
	AvailableQuantity int    `json:"availableQuantity"`
	LocationID        string `json:"locationId"`
}

// VariantBulkUpdate is one variant entry for productVariantsBulkUpdate.
type VariantBulkUpdate struct {
	ID                  string                   `json:"id"`
	Price               *string                  `json:"price,omitempty"`
	InventoryQuantities []InventoryQuantityInput `json:"inventoryQuantities,omitempty"`
}

type idEnvelope struct {
	ID string `json:"id"`
}

type fulfillmentOrderLineItemNode struct {
	ID       string `json:"id"`
	Quantity int    `json:"totalQuantity"`
	LineItem struct {
		ID      string      `json:"id"`
		Variant *idEnvelope `json:"variant"`
	} `json:"lineItem"`
}

type fulfillmentOrderLineItemsConnection struct {
	Edges []struct {
		Node fulfillmentOrderLineItemNode `json:"node"`
	} `json:"edges"`
	PageInfo PageInfo `json:"pageInfo"`
}

// RoutingDetails fetches the order id, assigned location and destination of a
// fulfillment order.
func (c *Client) RoutingDetails(ctx context.Context, store Store, fulfillmentOrderID string) (*RoutingDetails, error) {
	var out struct {
		FulfillmentOrder *struct {
			OrderID          string `json:"orderId"`
			AssignedLocation struct {
				Location *idEnvelope `json:"location"`
			} `json:"assignedLocation"`
			Destination *Destination `json:"destination"`
		} `json:"fulfillmentOrder"`
	}
	if err := c.Query(ctx, store, FulfillmentOrderRoutingDetailsQuery, map[string]any{"id": fulfillmentOrderID}, &out); err != nil {
		return nil, err
	}
	if out.FulfillmentOrder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment order not found").
			WithDetails(map[string]any{"fulfillment_order_id": fulfillmentOrderID})
	}
	details := &RoutingDetails{
		OrderID:     out.FulfillmentOrder.OrderID,
		Destination: out.FulfillmentOrder.Destination,
	}
	if loc := out.FulfillmentOrder.AssignedLocation.Location; loc != nil {
		details.LocationID = loc.ID
	}
	return details, nil
}

// FulfillmentOrderLineItems fetches every line item of a fulfillment order.
func (c *Client) FulfillmentOrderLineItems(ctx context.Context, store Store, fulfillmentOrderID string) ([]FulfillmentOrderLineItem, error) {
	var items []FulfillmentOrderLineItem

	doc := InitialFulfillmentOrderLineItemsQuery
	vars := map[string]any{"id": fulfillmentOrderID}
	for {
		var out struct {
			FulfillmentOrder *struct {
				LineItems fulfillmentOrderLineItemsConnection `json:"lineItems"`
			} `json:"fulfillmentOrder"`
		}
		if err := c.Query(ctx, store, doc, vars, &out); err != nil {
			return nil, err
		}
		if out.FulfillmentOrder == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment order not found").
				WithDetails(map[string]any{"fulfillment_order_id": fulfillmentOrderID})
		}

		conn := out.FulfillmentOrder.LineItems
		for _, edge := range conn.Edges {
			item := FulfillmentOrderLineItem{
				ID:         edge.Node.ID,
				Quantity:   edge.Node.Quantity,
				LineItemID: edge.Node.LineItem.ID,
			}
			if edge.Node.LineItem.Variant != nil {
				item.VariantID = edge.Node.LineItem.Variant.ID
			}
			items = append(items, item)
		}

		if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == nil {
			return items, nil
		}
		doc = SubsequentFulfillmentOrderLineItemsQuery
		vars = map[string]any{"id": fulfillmentOrderID, "after": *conn.PageInfo.EndCursor}
	}
}

// SplitFulfillmentOrder splits the given line items off a fulfillment order
// and returns the id of the newly created fulfillment order.
func (c *Client) SplitFulfillmentOrder(ctx context.Context, store Store, fulfillmentOrderID string, lineItems []SplitLineItem) (string, error) {
	vars := map[string]any{
		"fulfillmentOrderSplits": []map[string]any{{
			"fulfillmentOrderId":        fulfillmentOrderID,
			"fulfillmentOrderLineItems": lineItems,
		}},
	}
	var out struct {
		FulfillmentOrderSplits []struct {
			RemainingFulfillmentOrder idEnvelope `json:"remainingFulfillmentOrder"`
		} `json:"fulfillmentOrderSplits"`
	}
	if err := c.Mutate(ctx, store, FulfillmentOrderSplitMutation, vars, "split fulfillment order", &out); err != nil {
		return "", err
	}
	if len(out.FulfillmentOrderSplits) == 0 || out.FulfillmentOrderSplits[0].RemainingFulfillmentOrder.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "fulfillment order split returned no fulfillment order").
			WithDetails(map[string]any{"fulfillment_order_id": fulfillmentOrderID})
	}
	return out.FulfillmentOrderSplits[0].RemainingFulfillmentOrder.ID, nil
}

// CreateDraftOrder creates a draft order and returns its id.
func (c *Client) CreateDraftOrder(ctx context.Context, store Store, input DraftOrderInput) (string, error) {
	var out struct {
		DraftOrder *idEnvelope `json:"draftOrder"`
	}
	if err := c.Mutate(ctx, store, DraftOrderCreateMutation, map[string]any{"input": input}, "create draft order", &out); err != nil {
		return "", err
	}
	if out.DraftOrder == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "draft order create returned no draft order")
	}
	return out.DraftOrder.ID, nil
}

// CompleteDraftOrder completes a draft order and returns the created order id.
func (c *Client) CompleteDraftOrder(ctx context.Context, store Store, draftOrderID string) (string, error) {
	var out struct {
		DraftOrder *struct {
			Order *idEnvelope `json:"order"`
		} `json:"draftOrder"`
	}
	if err := c.Mutate(ctx, store, DraftOrderCompleteMutation, map[string]any{"id": draftOrderID}, "complete draft order", &out); err != nil {
		return "", err
	}
	if out.DraftOrder == nil || out.DraftOrder.Order == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "draft order complete returned no order").
			WithDetails(map[string]any{"draft_order_id": draftOrderID})
	}
	return out.DraftOrder.Order.ID, nil
}

type orderLineItemsConnection struct {
	Edges []struct {
		Node struct {
			ID       string      `json:"id"`
			Quantity int         `json:"quantity"`
			Variant  *idEnvelope `json:"variant"`
		} `json:"node"`
	} `json:"edges"`
	PageInfo PageInfo `json:"pageInfo"`
}

func (conn orderLineItemsConnection) lines() []OrderLine {
	lines := make([]OrderLine, 0, len(conn.Edges))
	for _, edge := range conn.Edges {
		line := OrderLine{ID: edge.Node.ID, Quantity: edge.Node.Quantity}
		if edge.Node.Variant != nil {
			line.VariantID = edge.Node.Variant.ID
		}
		lines = append(lines, line)
	}
	return lines
}

// OrderDetails fetches the currency, shipping cost and every line item of an
// order.
func (c *Client) OrderDetails(ctx context.Context, store Store, orderID string) (*OrderDetails, error) {
	var out struct {
		Order *struct {
			ID                       string `json:"id"`
			PresentmentCurrencyCode string `json:"presentmentCurrencyCode"`
			ShippingLine            *struct {
				OriginalPriceSet MoneyBag `json:"originalPriceSet"`
			} `json:"shippingLine"`
			LineItems orderLineItemsConnection `json:"lineItems"`
		} `json:"order"`
	}
	if err := c.Query(ctx, store, InitialOrderDetailsQuery, map[string]any{"id": orderID}, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": orderID})
	}

	details := &OrderDetails{
		ID:           orderID,
		CurrencyCode: out.Order.PresentmentCurrencyCode,
		LineItems:    out.Order.LineItems.lines(),
	}
	if out.Order.ShippingLine != nil {
		details.ShippingCost = out.Order.ShippingLine.OriginalPriceSet.PresentmentMoney.Amount
	}

	rest, err := c.remainingOrderLines(ctx, store, orderID, out.Order.LineItems.PageInfo)
	if err != nil {
		return nil, err
	}
	details.LineItems = append(details.LineItems, rest...)
	return details, nil
}

// OrderLineItems fetches every line item of an order.
func (c *Client) OrderLineItems(ctx context.Context, store Store, orderID string) ([]OrderLine, error) {
	var out struct {
		Order *struct {
			LineItems orderLineItemsConnection `json:"lineItems"`
		} `json:"order"`
	}
	if err := c.Query(ctx, store, InitialOrderLineItemsQuery, map[string]any{"id": orderID}, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": orderID})
	}

	lines := out.Order.LineItems.lines()
	rest, err := c.remainingOrderLines(ctx, store, orderID, out.Order.LineItems.PageInfo)
	if err != nil {
		return nil, err
	}
	return append(lines, rest...), nil
}

func (c *Client) remainingOrderLines(ctx context.Context, store Store, orderID string, page PageInfo) ([]OrderLine, error) {
	var lines []OrderLine
	for page.HasNextPage && page.EndCursor != nil {
		var out struct {
			Order *struct {
				LineItems orderLineItemsConnection `json:"lineItems"`
			} `json:"order"`
		}
		vars := map[string]any{"id": orderID, "after": *page.EndCursor}
		if err := c.Query(ctx, store, SubsequentOrderLineItemsQuery, vars, &out); err != nil {
			return nil, err
		}
		if out.Order == nil {
			break
		}
		lines = append(lines, out.Order.LineItems.lines()...)
		page = out.Order.LineItems.PageInfo
	}
	return lines, nil
}

// FulfillmentOrderOrderID resolves the order a fulfillment order belongs to.
func (c *Client) FulfillmentOrderOrderID(ctx context.Context, store Store, fulfillmentOrderID string) (string, error) {
	var out struct {
		FulfillmentOrder *struct {
			OrderID string `json:"orderId"`
		} `json:"fulfillmentOrder"`
	}
	if err := c.Query(ctx, store, FulfillmentOrderOrderIDQuery, map[string]any{"id": fulfillmentOrderID}, &out); err != nil {
		return "", err
	}
	if out.FulfillmentOrder == nil || out.FulfillmentOrder.OrderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment order not found").
			WithDetails(map[string]any{"fulfillment_order_id": fulfillmentOrderID})
	}
	return out.FulfillmentOrder.OrderID, nil
}

type fulfillmentLineItemsConnection struct {
	Edges []struct {
		Node struct {
			Quantity int `json:"quantity"`
			LineItem struct {
				ID      string      `json:"id"`
				Variant *idEnvelope `json:"variant"`
			} `json:"lineItem"`
		} `json:"node"`
	} `json:"edges"`
	PageInfo PageInfo `json:"pageInfo"`
}

func (conn fulfillmentLineItemsConnection) lines() []FulfillmentLineItem {
	lines := make([]FulfillmentLineItem, 0, len(conn.Edges))
	for _, edge := range conn.Edges {
		line := FulfillmentLineItem{
			Quantity:   edge.Node.Quantity,
			LineItemID: edge.Node.LineItem.ID,
		}
		if edge.Node.LineItem.Variant != nil {
			line.VariantID = edge.Node.LineItem.Variant.ID
		}
		lines = append(lines, line)
	}
	return lines
}

// FulfillmentDetails fetches the tracking entries and every line item of a
// fulfillment.
func (c *Client) FulfillmentDetails(ctx context.Context, store Store, fulfillmentID string) (*FulfillmentDetails, error) {
	var out struct {
		Fulfillment *struct {
			TrackingInfo         []TrackingInfo                 `json:"trackingInfo"`
			FulfillmentLineItems fulfillmentLineItemsConnection `json:"fulfillmentLineItems"`
		} `json:"fulfillment"`
	}
	if err := c.Query(ctx, store, InitialFulfillmentDetailsQuery, map[string]any{"id": fulfillmentID}, &out); err != nil {
		return nil, err
	}
	if out.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment not found").
			WithDetails(map[string]any{"fulfillment_id": fulfillmentID})
	}

	details := &FulfillmentDetails{
		Tracking:  out.Fulfillment.TrackingInfo,
		LineItems: out.Fulfillment.FulfillmentLineItems.lines(),
	}

	page := out.Fulfillment.FulfillmentLineItems.PageInfo
	for page.HasNextPage && page.EndCursor != nil {
		var next struct {
			Fulfillment *struct {
				FulfillmentLineItems fulfillmentLineItemsConnection `json:"fulfillmentLineItems"`
			} `json:"fulfillment"`
		}
		vars := map[string]any{"id": fulfillmentID, "after": *page.EndCursor}
		if err := c.Query(ctx, store, SubsequentFulfillmentLineItemsQuery, vars, &next); err != nil {
			return nil, err
		}
		if next.Fulfillment == nil {
			break
		}
		details.LineItems = append(details.LineItems, next.Fulfillment.FulfillmentLineItems.lines()...)
		page = next.Fulfillment.FulfillmentLineItems.PageInfo
	}
	return details, nil
}

// CreateFulfillment fulfills the given fulfillment order lines and returns the
// new fulfillment id. Tracking collapses into a single trackingInfo input with
// the first entry's company and every entry's number and url.
func (c *Client) CreateFulfillment(ctx context.Context, store Store, input CreateFulfillmentInput) (string, error) {
	fulfillment := map[string]any{
		"notifyCustomer": input.NotifyCustomer,
		"lineItemsByFulfillmentOrder": []map[string]any{{
			"fulfillmentOrderId":        input.FulfillmentOrderID,
			"fulfillmentOrderLineItems": input.LineItems,
		}},
	}
	if len(input.Tracking) > 0 {
		info := map[string]any{}
		if company := input.Tracking[0].Company; company != nil {
			info["company"] = *company
		}
		var numbers, urls []string
		for _, tracking := range input.Tracking {
			if tracking.Number != nil {
				numbers = append(numbers, *tracking.Number)
			}
			if tracking.URL != nil {
				urls = append(urls, *tracking.URL)
			}
		}
		if len(numbers) > 0 {
			info["numbers"] = numbers
		}
		if len(urls) > 0 {
			info["urls"] = urls
		}
		fulfillment["trackingInfo"] = info
	}

	var out struct {
		Fulfillment *idEnvelope `json:"fulfillment"`
	}
	if err := c.Mutate(ctx, store, FulfillmentCreateMutation, map[string]any{"fulfillment": fulfillment}, "create fulfillment", &out); err != nil {
		return "", err
	}
	if out.Fulfillment == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "fulfillment create returned no fulfillment").
			WithDetails(map[string]any{"fulfillment_order_id": input.FulfillmentOrderID})
	}
	return out.Fulfillment.ID, nil
}

// CancelFulfillment cancels a fulfillment.
func (c *Client) CancelFulfillment(ctx context.Context, store Store, fulfillmentID string) error {
	return c.Mutate(ctx, store, FulfillmentCancelMutation, map[string]any{"id": fulfillmentID}, "cancel fulfillment", nil)
}

// CancelOrder cancels an order.
func (c *Client) CancelOrder(ctx context.Context, store Store, input OrderCancelInput) error {
	vars := map[string]any{
		"orderId":        input.OrderID,
		"notifyCustomer": input.NotifyCustomer,
		"reason":         input.Reason,
		"refund":         input.Refund,
		"restock":        input.Restock,
		"staffNote":      input.StaffNote,
	}
	return c.Mutate(ctx, store, OrderCancelMutation, vars, "cancel order", nil)
}

// CreateRefund refunds the given order lines and notifies the customer.
func (c *Client) CreateRefund(ctx context.Context, store Store, orderID string, lineItems []RefundLineItem) error {
	input := map[string]any{
		"orderId":         orderID,
		"refundLineItems": lineItems,
		"notify":          true,
	}
	return c.Mutate(ctx, store, RefundCreateMutation, map[string]any{"input": input}, "create refund", nil)
}

// VariantInfo fetches the live price and inventory of a variant.
func (c *Client) VariantInfo(ctx context.Context, store Store, variantID string) (*VariantInfo, error) {
	var out struct {
		ProductVariant *VariantInfo `json:"productVariant"`
	}
	if err := c.Query(ctx, store, ProductVariantInfoQuery, map[string]any{"id": variantID}, &out); err != nil {
		return nil, err
	}
	if out.ProductVariant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
			WithDetails(map[string]any{"variant_id": variantID})
	}
	return out.ProductVariant, nil
}

// UpdateProductVariants bulk-updates variants of one product.
func (c *Client) UpdateProductVariants(ctx context.Context, store Store, productID string, variants []VariantBulkUpdate) error {
	vars := map[string]any{"productId": productID, "variants": variants}
	return c.Mutate(ctx, store, ProductVariantsBulkUpdateMutation, vars, "update product variants", nil)
}
