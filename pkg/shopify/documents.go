package shopify

// GraphQL documents used by the sync services. Paginated reads come in an
// initial/subsequent pair so the first page never sends a null cursor.

const FulfillmentOrderRoutingDetailsQuery = `
query fulfillmentOrderRoutingDetails($id: ID!) {
  fulfillmentOrder(id: $id) {
    orderId
    assignedLocation {
      location {
        id
      }
    }
    destination {
      firstName
      lastName
      address1
      address2
      city
      company
      countryCode
      email
      phone
      province
      zip
    }
  }
}
`

const InitialFulfillmentOrderLineItemsQuery = `
query fulfillmentOrderLineItems($id: ID!) {
  fulfillmentOrder(id: $id) {
    lineItems(first: 250) {
      edges {
        node {
          id
          totalQuantity
          lineItem {
            id
            variant {
              id
            }
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

const SubsequentFulfillmentOrderLineItemsQuery = `
query fulfillmentOrderLineItems($id: ID!, $after: String!) {
  fulfillmentOrder(id: $id) {
    lineItems(first: 250, after: $after) {
      edges {
        node {
          id
          totalQuantity
          lineItem {
            id
            variant {
              id
            }
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

const FulfillmentOrderSplitMutation = `
mutation fulfillmentOrderSplit($fulfillmentOrderSplits: [FulfillmentOrderSplitInput!]!) {
  fulfillmentOrderSplit(fulfillmentOrderSplits: $fulfillmentOrderSplits) {
    fulfillmentOrderSplits {
      remainingFulfillmentOrder {
        id
      }
    }
    userErrors {
      field
      message
    }
  }
}
`

const DraftOrderCreateMutation = `
mutation draftOrderCreate($input: DraftOrderInput!) {
  draftOrderCreate(input: $input) {
    draftOrder {
      id
    }
    userErrors {
      field
      message
    }
  }
}
`

const DraftOrderCompleteMutation = `
mutation draftOrderComplete($id: ID!) {
  draftOrderComplete(id: $id) {
    draftOrder {
      order {
        id
      }
    }
    userErrors {
      field
      message
    }
  }
}
`

const InitialOrderDetailsQuery = `
query orderDetails($id: ID!) {
  order(id: $id) {
    id
    presentmentCurrencyCode
    shippingLine {
      originalPriceSet {
        presentmentMoney {
          amount
        }
      }
    }
    lineItems(first: 250) {
      edges {
        node {
          id
          quantity
          variant {
            id
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

const SubsequentOrderLineItemsQuery = `
query orderLineItems($id: ID!, $after: String!) {
  order(id: $id) {
    lineItems(first: 250, after: $after) {
      edges {
        node {
          id
          quantity
          variant {
            id
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

const InitialOrderLineItemsQuery = `
query orderLineItems($id: ID!) {
  order(id: $id) {
    lineItems(first: 250) {
      edges {
        node {
          id
          quantity
          variant {
            id
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

const FulfillmentOrderOrderIDQuery = `
query fulfillmentOrderOrderId($id: ID!) {
  fulfillmentOrder(id: $id) {
    orderId
  }
}
`

const InitialFulfillmentDetailsQuery = `
query fulfillmentDetails($id: ID!) {
  fulfillment(id: $id) {
    trackingInfo {
      company
      number
      url
    }
    fulfillmentLineItems(first: 250) {
      edges {
        node {
          quantity
          lineItem {
            id
            variant {
              id
            }
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

const SubsequentFulfillmentLineItemsQuery = `
query fulfillmentLineItems($id: ID!, $after: String!) {
  fulfillment(id: $id) {
    fulfillmentLineItems(first: 250, after: $after) {
      edges {
        node {
          quantity
          lineItem {
            id
            variant {
              id
            }
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

const FulfillmentCreateMutation = `
mutation fulfillmentCreateV2($fulfillment: FulfillmentV2Input!) {
  fulfillmentCreateV2(fulfillment: $fulfillment) {
    fulfillment {
      id
    }
    userErrors {
      field
      message
    }
  }
}
`

const FulfillmentCancelMutation = `
mutation fulfillmentCancel($id: ID!) {
  fulfillmentCancel(id: $id) {
    fulfillment {
      id
    }
    userErrors {
      field
      message
    }
  }
}
`

const OrderCancelMutation = `
mutation orderCancel($orderId: ID!, $notifyCustomer: Boolean, $reason: OrderCancelReason!, $refund: Boolean!, $restock: Boolean!, $staffNote: String) {
  orderCancel(orderId: $orderId, notifyCustomer: $notifyCustomer, reason: $reason, refund: $refund, restock: $restock, staffNote: $staffNote) {
    job {
      id
    }
    orderCancelUserErrors {
      field
      message
    }
  }
}
`

const RefundCreateMutation = `
mutation refundCreate($input: RefundInput!) {
  refundCreate(input: $input) {
    refund {
      id
    }
    userErrors {
      field
      message
    }
  }
}
`

const ProductVariantInfoQuery = `
query productVariantInfo($id: ID!) {
  productVariant(id: $id) {
    id
    price
    inventoryQuantity
  }
}
`

const ProductVariantsBulkUpdateMutation = `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    product {
      id
    }
    userErrors {
      field
      message
    }
  }
}
`
