package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/synqsell/synqsell-backend/pkg/config"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
)

// Client executes GraphQL documents against the Shopify admin API of any
// store. The client itself is stateless; the target store is passed per call.
type Client struct {
	apiVersion string
	httpClient *http.Client
	logg       *logger.Logger

	// baseURL overrides the per-shop admin URL in tests.
	baseURL string
}

// NewClient builds a Shopify admin GraphQL client.
func NewClient(cfg config.ShopifyConfig, logg *logger.Logger) *Client {
	return &Client{
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logg:       logg,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Query runs a read document and decodes the data payload into out.
func (c *Client) Query(ctx context.Context, store Store, doc string, vars map[string]any, out any) error {
	data, err := c.execute(ctx, store, doc, vars)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode graphql data")
	}
	return nil
}

// Mutate runs a mutation document, surfaces userErrors from the single
// top-level payload and decodes that payload into out. action names the
// operation for error messages.
func (c *Client) Mutate(ctx context.Context, store Store, doc string, vars map[string]any, action string, out any) error {
	data, err := c.execute(ctx, store, doc, vars)
	if err != nil {
		return err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mutation envelope")
	}

	for _, payload := range envelope {
		var check struct {
			UserErrors            []UserError `json:"userErrors"`
			OrderCancelUserErrors []UserError `json:"orderCancelUserErrors"`
		}
		if err := json.Unmarshal(payload, &check); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mutation payload")
		}
		userErrors := append(check.UserErrors, check.OrderCancelUserErrors...)
		if len(userErrors) > 0 {
			messages := make([]string, len(userErrors))
			for i, ue := range userErrors {
				messages[i] = ue.Message
			}
			return pkgerrors.New(pkgerrors.CodeRemoteMutation, fmt.Sprintf("%s: %s", action, strings.Join(messages, "; "))).
				WithDetails(map[string]any{"user_errors": userErrors, "shop": store.Shop})
		}
		if out != nil {
			if err := json.Unmarshal(payload, out); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mutation payload")
			}
		}
	}
	return nil
}

func (c *Client) execute(ctx context.Context, store Store, doc string, vars map[string]any) (json.RawMessage, error) {
	if store.Shop == "" || store.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store shop and access token are required")
	}

	body, err := json.Marshal(graphQLRequest{Query: doc, Variables: vars})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal graphql request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.adminURL(store.Shop), bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build graphql request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", store.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute graphql request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read graphql response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shopify api status %d", resp.StatusCode)).
			WithDetails(map[string]any{"shop": store.Shop, "body": string(raw)})
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode graphql response")
	}

	if len(decoded.Errors) > 0 {
		messages := make([]string, len(decoded.Errors))
		for i, gqlErr := range decoded.Errors {
			messages[i] = gqlErr.Message
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "graphql errors: "+strings.Join(messages, "; ")).
			WithDetails(map[string]any{"shop": store.Shop})
	}

	return decoded.Data, nil
}

func (c *Client) adminURL(shop string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(shop, "https://"), "http://"), "/")
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, c.apiVersion)
}
