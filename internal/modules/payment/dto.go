package payment

import (
	"encoding/json"
	"strconv"
	"strings"
)

// WebhookEvent is the subset of a YooKassa notification the reconciler reads.
// The full body is kept verbatim on the payment row.
type WebhookEvent struct {
	Type   string        `json:"type" example:"notification"`
	Event  string        `json:"event" example:"payment.succeeded"`
	Object WebhookObject `json:"object"`
}

type WebhookObject struct {
	ID       string                     `json:"id" example:"2d6b6b3c-000f-5000-9000-1b68e7b15f3f"`
	Status   string                     `json:"status" example:"succeeded"`
	Amount   *WebhookAmount             `json:"amount,omitempty"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

type WebhookAmount struct {
	Value    string `json:"value" example:"2499.00"`
	Currency string `json:"currency" example:"RUB"`
}

type WebhookResponse struct {
	Status  string `json:"status" example:"ok"`
	Changed bool   `json:"changed" example:"true"`
}

// OrderID reads metadata.order_id, which the gateway echoes back either as a
// string or as a number.
func (o WebhookObject) OrderID() (int64, bool) {
	raw, ok := o.Metadata["order_id"]
	if !ok {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
