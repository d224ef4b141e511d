package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOrderPlaced           = "order.placed"
	EventTypePaymentProofSubmitted = "payment.proof_submitted"
	EventTypePaymentVerified       = "payment.verified"
	EventTypePaymentFailed         = "payment.failed"
)

type OrderPlacedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity"`
	TotalAmount   int64  `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
}

func NewOrderPlacedEvent(orderID int64, customerID string, productID int64, productName string, quantity int, total int64, method string) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderPlaced,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":       orderID,
				"customer_id":    customerID,
				"product_id":     productID,
				"product_name":   productName,
				"quantity":       quantity,
				"total_amount":   total,
				"payment_method": method,
			},
		},
		OrderID:       orderID,
		CustomerID:    customerID,
		ProductID:     productID,
		ProductName:   productName,
		Quantity:      quantity,
		TotalAmount:   total,
		PaymentMethod: method,
	}
}

type PaymentProofSubmittedEvent struct {
	BaseEvent
	PaymentID      int64  `json:"payment_id"`
	OrderID        int64  `json:"order_id"`
	CustomerID     string `json:"customer_id"`
	Amount         int64  `json:"amount"`
	ProofReference string `json:"proof_reference"`
}

func NewPaymentProofSubmittedEvent(paymentID, orderID int64, customerID string, amount int64, proofRef string) *PaymentProofSubmittedEvent {
	return &PaymentProofSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentProofSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":      paymentID,
				"order_id":        orderID,
				"customer_id":     customerID,
				"amount":          amount,
				"proof_reference": proofRef,
			},
		},
		PaymentID:      paymentID,
		OrderID:        orderID,
		CustomerID:     customerID,
		Amount:         amount,
		ProofReference: proofRef,
	}
}

// PaymentVerifiedEvent is published after the verification transaction commits.
type PaymentVerifiedEvent struct {
	BaseEvent
	PaymentID          int64  `json:"payment_id"`
	OrderID            int64  `json:"order_id"`
	CustomerID         string `json:"customer_id"`
	Amount             int64  `json:"amount"`
	VerificationMethod string `json:"verification_method"`
	TransactionID      string `json:"transaction_id,omitempty"`
	VerifiedBy         int64  `json:"verified_by,omitempty"`
}

func NewPaymentVerifiedEvent(paymentID, orderID int64, customerID string, amount int64, method, transactionID string, verifiedBy int64) *PaymentVerifiedEvent {
	return &PaymentVerifiedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentVerified,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":          paymentID,
				"order_id":            orderID,
				"customer_id":         customerID,
				"amount":              amount,
				"verification_method": method,
				"transaction_id":      transactionID,
				"verified_by":         verifiedBy,
			},
		},
		PaymentID:          paymentID,
		OrderID:            orderID,
		CustomerID:         customerID,
		Amount:             amount,
		VerificationMethod: method,
		TransactionID:      transactionID,
		VerifiedBy:         verifiedBy,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	OrderID       int64  `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	Amount        int64  `json:"amount"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentFailedEvent(paymentID, orderID int64, customerID string, amount int64, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"order_id":       orderID,
				"customer_id":    customerID,
				"amount":         amount,
				"failure_reason": reason,
			},
		},
		PaymentID:     paymentID,
		OrderID:       orderID,
		CustomerID:    customerID,
		Amount:        amount,
		FailureReason: reason,
	}
}
