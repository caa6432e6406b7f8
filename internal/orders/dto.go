package orders

import "time"

type CreateOrderRequest struct {
	CustomerID   int64                `json:"customer_id" validate:"required,gt=0"`
	Currency     string               `json:"currency" validate:"required,len=3"`
	TaxRate      float64              `json:"tax_rate" validate:"gte=0,lte=1"`
	ShippingCost float64              `json:"shipping_cost" validate:"gte=0"`
	Notes        *string              `json:"notes,omitempty"`
	Items        []CreateOrderItemReq `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderItemReq struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
}

type UpdateItemRequest struct {
	Quantity  *int     `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Discount  *float64 `json:"discount,omitempty" validate:"omitempty,gte=0"`
}

// TransitionContext carries the optional inputs of a status change.
type TransitionContext struct {
	TrackingReference  *string `json:"tracking_reference,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

type ListOrdersRequest struct {
	CustomerID *int64     `json:"customer_id,omitempty"`
	Status     *Status    `json:"status,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Page       int        `json:"page" validate:"gte=0"`
	PerPage    int        `json:"per_page" validate:"gte=0,lte=200"`
}
