package shopify

// Store identifies one Shopify shop and the token used to act on it.
type Store struct {
	Shop        string
	AccessToken string
}

// PageInfo is the cursor envelope on paginated connections.
type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

// UserError is Shopify's mutation-level validation error.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// Destination is the shipping destination on a fulfillment order, carried
// onto supplier draft orders.
type Destination struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Address1    *string `json:"address1"`
	Address2    *string `json:"address2"`
	City        *string `json:"city"`
	Company     *string `json:"company"`
	CountryCode *string `json:"countryCode"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Province    *string `json:"province"`
	Zip         *string `json:"zip"`
}

// TrackingInfo is one tracking entry on a fulfillment.
type TrackingInfo struct {
	Company *string `json:"company"`
	Number  *string `json:"number"`
	URL     *string `json:"url"`
}

// Money unwraps Shopify's nested money sets down to the presentment amount.
type Money struct {
	Amount string `json:"amount"`
}

type MoneyBag struct {
	PresentmentMoney Money `json:"presentmentMoney"`
}
