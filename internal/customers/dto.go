package customers

type CreateCustomerRequest struct {
	Code        string  `json:"code" validate:"required,min=3,max=10"`
	Name        string  `json:"name" validate:"required,max=200"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	CreditLimit float64 `json:"credit_limit" validate:"required,gt=0"`
	Country     string  `json:"country" validate:"required,len=2"`
	State       *string `json:"state,omitempty" validate:"omitempty,max=40"`
	Notes       *string `json:"notes,omitempty"`
}

type UpdateCreditLimitRequest struct {
	CreditLimit float64 `json:"credit_limit" validate:"required"`
}

type ListCustomersRequest struct {
	Status  *Status `json:"status,omitempty"`
	Page    int     `json:"page" validate:"gte=0"`
	PerPage int     `json:"per_page" validate:"gte=0,lte=200"`
}
