package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRequest is the inbound JSON shape of an order submission.
// Price and Qty accept both JSON numbers and strings.
type OrderRequest struct {
	Symbol string           `json:"symbol" validate:"required"`
	Price  *decimal.Decimal `json:"price" validate:"required"`
	Qty    *decimal.Decimal `json:"qty" validate:"required"`
	Owner  string           `json:"owner" validate:"required"`
	Type   string           `json:"type" validate:"required"`
	Side   string           `json:"side"`

	// ConnectionID optionally names the websocket connection that
	// should receive status events for this order.
	ConnectionID string `json:"connectionId"`
}

// ValidationError reports every missing or invalid field of an order
// request, not just the first one found.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order request: missing or invalid fields: %s",
		strings.Join(e.Fields, ", "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report errors by JSON field name, not Go struct field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseOrderRequest decodes and validates a raw order payload, returning
// an Order draft with a fresh ID and status pending. An unset or
// unrecognized side falls back to buy; that is deliberate and not a
// validation failure. When decoding succeeded the request is returned
// even alongside a validation error, so callers can still route the
// rejection to the submitter's connection.
func ParseOrderRequest(raw []byte) (*Order, *OrderRequest, error) {
	var req OrderRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, nil, &ValidationError{Fields: []string{"body (malformed JSON)"}}
	}

	var fields []string
	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		} else {
			return nil, &req, &ValidationError{Fields: []string{"body"}}
		}
	}

	if req.Price != nil && !req.Price.IsPositive() {
		fields = append(fields, "price")
	}
	if req.Qty != nil && !req.Qty.IsPositive() {
		fields = append(fields, "qty")
	}

	kind, kindOK := parseOrderKind(req.Type)
	if req.Type != "" && !kindOK {
		fields = append(fields, "type")
	}

	if len(fields) > 0 {
		return nil, &req, &ValidationError{Fields: dedupe(fields)}
	}

	side := Buy
	if strings.EqualFold(req.Side, "sell") {
		side = Sell
	}

	now := time.Now().UTC()
	order := &Order{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Owner:     req.Owner,
		Price:     *req.Price,
		Qty:       *req.Qty,
		Side:      side,
		Kind:      kind,
		Status:    OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return order, &req, nil
}

func parseOrderKind(s string) (OrderKind, bool) {
	switch strings.ToLower(s) {
	case "limit":
		return Limit, true
	case "market":
		return Market, true
	default:
		return 0, false
	}
}

func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
