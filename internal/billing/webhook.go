package billing

import (
	"encoding/json"
	"time"

	"erpsaas/internal/apperr"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Event types that change a stored subscription.
const (
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaymentFail  = "invoice.payment_failed"
)

// SubscriptionEvent is a provider event reduced to the subscription change it implies.
// Relevant is false for event types the backend ignores.
type SubscriptionEvent struct {
	ID             string
	Type           string
	Relevant       bool
	SubscriptionID string
	Status         string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// ParseWebhook verifies the signature header and decodes the event payload.
func ParseWebhook(payload []byte, signature, secret string) (*SubscriptionEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperr.Validation("webhook signature verification failed: %v", err)
	}

	out := &SubscriptionEvent{ID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return nil, apperr.Validation("invalid subscription payload: %v", err)
		}
		out.Relevant = true
		out.SubscriptionID = ss.ID
		out.Status = string(ss.Status)
		if out.Type == EventSubscriptionDeleted {
			out.Status = string(stripe.SubscriptionStatusCanceled)
		}
		if ss.Items != nil && len(ss.Items.Data) > 0 {
			item := ss.Items.Data[0]
			out.PeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
			out.PeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
	case EventInvoicePaymentFail:
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, apperr.Validation("invalid invoice payload: %v", err)
		}
		// One-off invoices have no subscription to mark.
		out.SubscriptionID = inv.subscriptionID()
		out.Relevant = out.SubscriptionID != ""
		if out.Relevant {
			out.Status = string(stripe.SubscriptionStatusPastDue)
		}
	}
	if out.Relevant && out.SubscriptionID == "" {
		return nil, apperr.Validation("%s event %s carries no subscription id", out.Type, out.ID)
	}
	return out, nil
}

// invoicePayload covers both the legacy top-level subscription field and
// the newer parent.subscription_details shape.
type invoicePayload struct {
	Subscription json.RawMessage `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription json.RawMessage `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p invoicePayload) subscriptionID() string {
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		if id := expandableID(p.Parent.SubscriptionDetails.Subscription); id != "" {
			return id
		}
	}
	return expandableID(p.Subscription)
}

// expandableID reads an id that may be a bare string or an expanded object.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
