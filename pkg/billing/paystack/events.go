package paystack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mihaimyh/gopremium/pkg/billing"
)

const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// Event is a parsed Paystack webhook event. The concrete type is one of
// *ChargeSuccess, *ChargeFailed or *UnknownEvent.
type Event interface {
	Type() string
}

// Customer is the paying customer as reported by Paystack
type Customer struct {
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code"`
}

// ChargeMetadata holds the fields the checkout attaches to a transaction.
// Values sent as JSON numbers are kept in their textual form.
type ChargeMetadata struct {
	UserID       string
	DurationDays string
	PlanName     string
}

// ChargeSuccess is the data of a charge.success event.
// Amount, Currency, Channel and PaidAt are informational and kept in the
// textual form Paystack sent; a value of an unexpected type reads as empty.
type ChargeSuccess struct {
	Reference       string
	Amount          string
	Currency        string
	Channel         string
	PaidAt          string
	GatewayResponse string
	Customer        Customer
	Metadata        ChargeMetadata
}

// ChargeFailed is the data of a charge.failed event
type ChargeFailed struct {
	Reference       string
	GatewayResponse string
	Customer        Customer
}

// UnknownEvent is any event this package does not act on
type UnknownEvent struct {
	Name string
	Data json.RawMessage
}

func (*ChargeSuccess) Type() string  { return EventChargeSuccess }
func (*ChargeFailed) Type() string   { return EventChargeFailed }
func (e *UnknownEvent) Type() string { return e.Name }

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// chargeData decodes every field loosely so that an unexpected type in a
// field the reconciler does not need can never reject a paid charge
type chargeData struct {
	Reference       json.RawMessage `json:"reference"`
	Amount          json.RawMessage `json:"amount"`
	Currency        json.RawMessage `json:"currency"`
	Channel         json.RawMessage `json:"channel"`
	PaidAt          json.RawMessage `json:"paid_at"`
	GatewayResponse json.RawMessage `json:"gateway_response"`
	Customer        json.RawMessage `json:"customer"`
	Metadata        json.RawMessage `json:"metadata"`
}

// ParseEvent decodes an authenticated webhook body into an Event.
// Only a body that is not a JSON object, or has no event type, fails.
// Missing or malformed metadata yields empty metadata fields for the
// reconciler to judge.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", billing.ErrInvalidWebhookPayload, err)
	}
	name := strings.TrimSpace(env.Event)
	if name == "" {
		return nil, fmt.Errorf("%w: missing event type", billing.ErrInvalidWebhookPayload)
	}

	switch name {
	case EventChargeSuccess, EventChargeFailed:
	default:
		return &UnknownEvent{Name: name, Data: env.Data}, nil
	}

	// Data that is not an object reads as an empty charge
	var data chargeData
	_ = json.Unmarshal(env.Data, &data)
	customer := parseCustomer(data.Customer)

	if name == EventChargeFailed {
		return &ChargeFailed{
			Reference:       scalar(data.Reference),
			GatewayResponse: scalar(data.GatewayResponse),
			Customer:        customer,
		}, nil
	}
	return &ChargeSuccess{
		Reference:       scalar(data.Reference),
		Amount:          scalar(data.Amount),
		Currency:        scalar(data.Currency),
		Channel:         scalar(data.Channel),
		PaidAt:          scalar(data.PaidAt),
		GatewayResponse: scalar(data.GatewayResponse),
		Customer:        customer,
		Metadata:        parseMetadata(data.Metadata),
	}, nil
}

func parseCustomer(raw json.RawMessage) Customer {
	fields := decodeObject(raw)
	return Customer{
		Email:        scalar(fields["email"]),
		CustomerCode: scalar(fields["customer_code"]),
	}
}

// parseMetadata accepts an object, a JSON string holding an object (Paystack
// passes through whatever the checkout sent), or anything else as empty.
func parseMetadata(raw json.RawMessage) ChargeMetadata {
	fields := decodeObject(raw)
	if fields == nil {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			fields = decodeObject(json.RawMessage(s))
		}
	}
	duration := scalar(fields["durationDays"])
	if isZeroNumber(fields["durationDays"]) {
		// A numeric 0 counts as absent; the string "0" is a real value
		duration = ""
	}
	return ChargeMetadata{
		UserID:       scalar(fields["userId"]),
		DurationDays: duration,
		PlanName:     scalar(fields["planName"]),
	}
}

func isZeroNumber(raw json.RawMessage) bool {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return false
	}
	return f == 0
}

func decodeObject(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

// scalar returns strings as-is and numbers in their literal form
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return ""
}

// parseDurationDays parses a whole, non-negative number of days.
// Integral float literals such as "30.0" are accepted.
func parseDurationDays(value string) (int, error) {
	value = strings.TrimSpace(value)
	days, err := strconv.Atoi(value)
	if err != nil {
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("durationDays %q is not a whole number", value)
		}
		days = int(f)
	}
	if days < 0 {
		return 0, fmt.Errorf("durationDays %d is negative", days)
	}
	if days > maxDurationDays {
		return 0, fmt.Errorf("durationDays %d exceeds %d", days, maxDurationDays)
	}
	return days, nil
}
