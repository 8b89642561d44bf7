package billing

import (
	"testing"
	"time"

	"erpsaas/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test"

func signed(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestParseWebhookSubscriptionUpdated(t *testing.T) {
	body, sig := signed(t, `{
		"id": "evt_1", "object": "event", "type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_123", "object": "subscription", "status": "past_due",
			"items": {"object": "list", "data": [
				{"id": "si_1", "object": "subscription_item", "current_period_start": 1700000000, "current_period_end": 1702592000}
			]}
		}}
	}`)

	ev, err := ParseWebhook(body, sig, testWebhookSecret)
	require.NoError(t, err)
	assert.True(t, ev.Relevant)
	assert.Equal(t, "sub_123", ev.SubscriptionID)
	assert.Equal(t, "past_due", ev.Status)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ev.PeriodStart)
}

func TestParseWebhookSubscriptionDeletedIsCanceled(t *testing.T) {
	body, sig := signed(t, `{
		"id": "evt_2", "object": "event", "type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_9", "object": "subscription", "status": "active"}}
	}`)

	ev, err := ParseWebhook(body, sig, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "canceled", ev.Status)
	assert.Equal(t, "sub_9", ev.SubscriptionID)
}

func TestParseWebhookInvoicePaymentFailed(t *testing.T) {
	body, sig := signed(t, `{
		"id": "evt_3", "object": "event", "type": "invoice.payment_failed",
		"data": {"object": {"id": "in_1", "object": "invoice",
			"parent": {"subscription_details": {"subscription": "sub_77"}}}}
	}`)

	ev, err := ParseWebhook(body, sig, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "past_due", ev.Status)
	assert.Equal(t, "sub_77", ev.SubscriptionID)
}

func TestParseWebhookIgnoresOtherEvents(t *testing.T) {
	body, sig := signed(t, `{"id": "evt_4", "object": "event", "type": "customer.created", "data": {"object": {"id": "cus_1"}}}`)

	ev, err := ParseWebhook(body, sig, testWebhookSecret)
	require.NoError(t, err)
	assert.False(t, ev.Relevant)
}

func TestParseWebhookBadSignature(t *testing.T) {
	body, _ := signed(t, `{"id": "evt_5", "object": "event", "type": "customer.created", "data": {"object": {}}}`)

	_, err := ParseWebhook(body, "t=1,v1=deadbeef", testWebhookSecret)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestExpandableID(t *testing.T) {
	assert.Equal(t, "sub_1", expandableID([]byte(`"sub_1"`)))
	assert.Equal(t, "sub_2", expandableID([]byte(`{"id":"sub_2","object":"subscription"}`)))
	assert.Equal(t, "", expandableID([]byte(`null`)))
	assert.Equal(t, "", expandableID(nil))
}

func TestParseWebhookOneOffInvoiceFailureIsIgnored(t *testing.T) {
	body, sig := signed(t, `{
		"id": "evt_5", "object": "event", "type": "invoice.payment_failed",
		"data": {"object": {"id": "in_2", "object": "invoice", "subscription": null}}
	}`)

	ev, err := ParseWebhook(body, sig, testWebhookSecret)
	require.NoError(t, err)
	assert.False(t, ev.Relevant)
	assert.Empty(t, ev.Status)
}

func TestParseWebhookSubscriptionWithoutIDIsRejected(t *testing.T) {
	body, sig := signed(t, `{
		"id": "evt_6", "object": "event", "type": "customer.subscription.updated",
		"data": {"object": {"object": "subscription", "status": "active"}}
	}`)

	_, err := ParseWebhook(body, sig, testWebhookSecret)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
