package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/synqsell/synqsell-backend/api/responses"
	"github.com/synqsell/synqsell-backend/api/validators"
	"github.com/synqsell/synqsell-backend/internal/catalog"
	"github.com/synqsell/synqsell-backend/internal/fulfillmentsync"
	"github.com/synqsell/synqsell-backend/internal/lifecycle"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/metrics"
)

const (
	topicHeader   = "X-Shopify-Topic"
	shopHeader    = "X-Shopify-Shop-Domain"
	eventIDHeader = "X-Shopify-Event-Id"

	TopicOrdersCancelled           = "orders/cancelled"
	TopicFulfillmentsCreate        = "fulfillments/create"
	TopicFulfillmentsUpdate        = "fulfillments/update"
	TopicFulfillmentOrderCancelled = "fulfillment_orders/cancelled"
	TopicOrderRoutingComplete      = "fulfillment_orders/order_routing_complete"
	TopicProductsUpdate            = "products/update"
)

type routingService interface {
	HandleOrderRoutingComplete(ctx context.Context, shop, fulfillmentOrderID string) (bool, error)
}

type fulfillmentSyncService interface {
	HandleFulfillmentCreate(ctx context.Context, input fulfillmentsync.CreateInput) (bool, error)
	HandleFulfillmentUpdate(ctx context.Context, input fulfillmentsync.UpdateInput) (bool, error)
}

type lifecycleService interface {
	HandleFulfillmentOrderCancelled(ctx context.Context, shop, fulfillmentOrderID string) (bool, error)
	HandleOrderCancelled(ctx context.Context, shop, shopifySupplierOrderID string, lines []lifecycle.CancelledLine) (bool, error)
}

type catalogService interface {
	HandleProductUpdate(ctx context.Context, input catalog.UpdateInput) (bool, error)
}

type shopifyWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Services bundles the handlers the webhook controller dispatches to.
type Services struct {
	Routing     routingService
	Fulfillment fulfillmentSyncService
	Lifecycle   lifecycleService
	Catalog     catalogService
}

type fulfillmentOrderPayload struct {
	FulfillmentOrder struct {
		ID string `json:"id" validate:"required"`
	} `json:"fulfillment_order" validate:"required"`
}

type fulfillmentLinePayload struct {
	AdminGraphqlAPIID string `json:"admin_graphql_api_id" validate:"required"`
	Quantity          int    `json:"quantity" validate:"gte=0"`
}

type fulfillmentPayload struct {
	AdminGraphqlAPIID string                   `json:"admin_graphql_api_id" validate:"required"`
	OrderID           int64                    `json:"order_id" validate:"required"`
	Status            string                   `json:"status"`
	ShipmentStatus    string                   `json:"shipment_status"`
	TrackingCompany   string                   `json:"tracking_company"`
	TrackingNumbers   []string                 `json:"tracking_numbers"`
	TrackingURLs      []string                 `json:"tracking_urls"`
	LineItems         []fulfillmentLinePayload `json:"line_items"`
}

type orderCancelledPayload struct {
	AdminGraphqlAPIID string                   `json:"admin_graphql_api_id" validate:"required"`
	LineItems         []fulfillmentLinePayload `json:"line_items"`
}

type productVariantPayload struct {
	AdminGraphqlAPIID    string `json:"admin_graphql_api_id" validate:"required"`
	Price                string `json:"price" validate:"required"`
	InventoryQuantity    int    `json:"inventory_quantity"`
	OldInventoryQuantity *int   `json:"old_inventory_quantity"`
}

type productUpdatePayload struct {
	AdminGraphqlAPIID string                  `json:"admin_graphql_api_id" validate:"required"`
	Variants          []productVariantPayload `json:"variants"`
}

// ShopifyWebhook handles every subscribed Shopify topic on one endpoint.
// Shopify retries non-2xx deliveries, so events that do not concern a tracked
// order or listing must answer 200.
func ShopifyWebhook(svcs Services, guard shopifyWebhookGuard, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		topic := r.Header.Get(topicHeader)
		shop := r.Header.Get(shopHeader)
		eventID := r.Header.Get(eventIDHeader)
		if topic == "" || shop == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook topic and shop headers are required"))
			return
		}

		if logg != nil {
			ctx = logg.WithTopic(ctx, topic)
			ctx = logg.WithShop(ctx, shop)
			if eventID != "" {
				ctx = logg.WithEventID(ctx, eventID)
			}
		}
		m.IncReceived(topic)

		if guard != nil && eventID != "" {
			alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if alreadyProcessed {
				m.IncSkipped(topic)
				responses.WriteSuccess(w, map[string]string{"message": "duplicate event"})
				return
			}
		}

		start := time.Now()
		handled, err := dispatch(ctx, svcs, topic, shop, r)
		m.ObserveDuration(topic, time.Since(start))

		if err != nil {
			if guard != nil && eventID != "" {
				_ = guard.Delete(ctx, eventID)
			}
			m.IncFailed(topic)
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !handled {
			m.IncSkipped(topic)
			responses.WriteSuccess(w, map[string]string{"message": "event not applicable"})
			return
		}

		if logg != nil {
			logg.Info(ctx, "webhook processed")
		}
		responses.WriteSuccess(w, nil)
	}
}

func dispatch(ctx context.Context, svcs Services, topic, shop string, r *http.Request) (bool, error) {
	switch topic {
	case TopicOrderRoutingComplete:
		var payload fulfillmentOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return false, err
		}
		return svcs.Routing.HandleOrderRoutingComplete(ctx, shop, payload.FulfillmentOrder.ID)

	case TopicFulfillmentsCreate:
		var payload fulfillmentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return false, err
		}
		return svcs.Fulfillment.HandleFulfillmentCreate(ctx, fulfillmentsync.CreateInput{
			Shop:          shop,
			FulfillmentID: payload.AdminGraphqlAPIID,
			OrderID:       orderGID(payload.OrderID),
		})

	case TopicFulfillmentsUpdate:
		var payload fulfillmentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return false, err
		}
		return svcs.Fulfillment.HandleFulfillmentUpdate(ctx, fulfillmentsync.UpdateInput{
			Shop:           shop,
			FulfillmentID:  payload.AdminGraphqlAPIID,
			OrderID:        orderGID(payload.OrderID),
			Status:         payload.Status,
			ShipmentStatus: payload.ShipmentStatus,
			LineItems:      fulfillmentLines(payload.LineItems),
			Tracking:       trackingInput(payload),
		})

	case TopicFulfillmentOrderCancelled:
		var payload fulfillmentOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return false, err
		}
		return svcs.Lifecycle.HandleFulfillmentOrderCancelled(ctx, shop, payload.FulfillmentOrder.ID)

	case TopicOrdersCancelled:
		var payload orderCancelledPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return false, err
		}
		lines := make([]lifecycle.CancelledLine, 0, len(payload.LineItems))
		for _, line := range payload.LineItems {
			lines = append(lines, lifecycle.CancelledLine{
				SupplierOrderLineItemID: line.AdminGraphqlAPIID,
				Quantity:                line.Quantity,
			})
		}
		return svcs.Lifecycle.HandleOrderCancelled(ctx, shop, payload.AdminGraphqlAPIID, lines)

	case TopicProductsUpdate:
		var payload productUpdatePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return false, err
		}
		variants := make([]catalog.EditedVariant, 0, len(payload.Variants))
		for _, v := range payload.Variants {
			variants = append(variants, catalog.EditedVariant{
				ShopifyVariantID:  v.AdminGraphqlAPIID,
				Price:             v.Price,
				InventoryQuantity: v.InventoryQuantity,
				InventoryChanged:  v.OldInventoryQuantity != nil && *v.OldInventoryQuantity != v.InventoryQuantity,
			})
		}
		return svcs.Catalog.HandleProductUpdate(ctx, catalog.UpdateInput{
			Shop:             shop,
			ShopifyProductID: payload.AdminGraphqlAPIID,
			Variants:         variants,
		})
	}

	// Unsubscribed topics are acknowledged so Shopify does not retry them.
	return false, nil
}

func orderGID(orderID int64) string {
	return fmt.Sprintf("gid://shopify/Order/%d", orderID)
}

func fulfillmentLines(payload []fulfillmentLinePayload) []fulfillmentsync.FulfillmentLine {
	lines := make([]fulfillmentsync.FulfillmentLine, 0, len(payload))
	for _, line := range payload {
		lines = append(lines, fulfillmentsync.FulfillmentLine{
			LineItemID: line.AdminGraphqlAPIID,
			Quantity:   line.Quantity,
		})
	}
	return lines
}

func trackingInput(payload fulfillmentPayload) fulfillmentsync.TrackingInput {
	tracking := fulfillmentsync.TrackingInput{
		Numbers: payload.TrackingNumbers,
		URLs:    payload.TrackingURLs,
	}
	if payload.TrackingCompany != "" {
		company := payload.TrackingCompany
		tracking.Company = &company
	}
	return tracking
}
