package dto

type CreateBookingRequest struct {
	PropertyID int64  `json:"propertyId"`
	VisitDate  string `json:"visitDate"`
	Message    string `json:"message"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status"`
}

type UpdateDepositRequest struct {
	DepositStatus string `json:"depositStatus"`
	DepositAmount *int64 `json:"depositAmount,omitempty"`
}

type PayDepositRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type HireBrokerRequest struct {
	BrokerID int64 `json:"brokerId"`
}

type CreatePropertyRequest struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Deposit  int64  `json:"deposit"`
}
