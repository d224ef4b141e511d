package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
)

var ErrUnknownEventType = errors.New("unknown notification type")

// Format renders an admin message for eventType from the event payload.
func Format(eventType string, data map[string]interface{}) (chattransport.Message, error) {
	f := fields(data)

	switch eventType {
	case TypeNewOrder:
		return chattransport.Message{
			Text: fmt.Sprintf(
				"<b>New order #%d</b>\nProduct: %s x%d\nTotal: %s\nPayment: %s\nCustomer: %s",
				f.num("order_id"), f.str("product_name"), f.num("quantity"),
				FormatIDR(f.num("total_amount")), methodLabel(f.str("payment_method")), f.str("customer_id")),
			Markup: chattransport.Keyboard(chattransport.Row(
				chattransport.Button{Text: "View order", CallbackData: fmt.Sprintf("order:view:%d", f.num("order_id"))},
			)),
		}, nil

	case TypePaymentProof:
		paymentID := f.num("payment_id")
		return chattransport.Message{
			Text: fmt.Sprintf(
				"<b>Payment proof submitted</b>\nOrder #%d, payment #%d\nAmount: %s\nProof: %s\nCustomer: %s",
				f.num("order_id"), paymentID, FormatIDR(f.num("amount")), f.str("proof_reference"), f.str("customer_id")),
			Markup: chattransport.Keyboard(chattransport.Row(
				chattransport.Button{Text: "Verify", CallbackData: fmt.Sprintf("payment:verify:%d", paymentID)},
				chattransport.Button{Text: "Reject", CallbackData: fmt.Sprintf("payment:reject:%d", paymentID)},
			)),
		}, nil

	case TypeQRISVerified:
		return chattransport.Message{
			Text: fmt.Sprintf(
				"<b>QRIS payment verified</b>\nOrder #%d\nAmount: %s\nTransaction: %s",
				f.num("order_id"), FormatIDR(f.num("amount")), f.str("transaction_id")),
			Markup: viewOrder(f.num("order_id")),
		}, nil

	case TypeManualVerified:
		return chattransport.Message{
			Text: fmt.Sprintf(
				"<b>Manual transfer verified</b>\nOrder #%d\nAmount: %s\nVerified by admin #%d",
				f.num("order_id"), FormatIDR(f.num("amount")), f.num("verified_by")),
			Markup: viewOrder(f.num("order_id")),
		}, nil

	case TypePaymentFailed:
		return chattransport.Message{
			Text: fmt.Sprintf(
				"<b>Payment failed</b>\nOrder #%d, payment #%d\nAmount: %s\nReason: %s",
				f.num("order_id"), f.num("payment_id"), FormatIDR(f.num("amount")), orDash(f.str("failure_reason"))),
			Markup: viewOrder(f.num("order_id")),
		}, nil
	}

	return chattransport.Message{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
}

// FormatCustomerVerified and FormatCustomerFailed render the messages sent to
// the paying customer.
func FormatCustomerVerified(data map[string]interface{}) chattransport.Message {
	f := fields(data)
	return chattransport.Message{
		Text: fmt.Sprintf(
			"Your payment of %s for order #%d has been confirmed. We are preparing your order.",
			FormatIDR(f.num("amount")), f.num("order_id")),
	}
}

func FormatCustomerFailed(data map[string]interface{}) chattransport.Message {
	f := fields(data)
	text := fmt.Sprintf("Your payment for order #%d could not be completed.", f.num("order_id"))
	if reason := f.str("failure_reason"); reason != "" {
		text += "\nReason: " + reason
	}
	return chattransport.Message{Text: text}
}

// FormatIDR renders whole rupiah with dot thousands separators: Rp 1.250.000
func FormatIDR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "Rp " + b.String()
}

func methodLabel(method string) string {
	switch method {
	case "qris":
		return "QRIS"
	case "manual_bank_transfer":
		return "Bank transfer"
	default:
		return orDash(method)
	}
}

func viewOrder(orderID int64) *chattransport.Markup {
	return chattransport.Keyboard(chattransport.Row(
		chattransport.Button{Text: "View order", CallbackData: fmt.Sprintf("order:view:%d", orderID)},
	))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type fields map[string]interface{}

// str returns the value HTML-escaped for the transport's HTML parse mode.
func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return html.EscapeString(v)
	default:
		return html.EscapeString(fmt.Sprint(v))
	}
}

// num accepts the numeric shapes a payload can carry after a JSON round trip.
func (f fields) num(key string) int64 {
	switch v := f[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
