package stripe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/google/uuid"
	stripeSDK "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/tidwall/gjson"
)

// Ключи metadata, которые мы кладём в объекты Stripe
const (
	metaUserID = "user_id"
	metaPlanID = "plan_id"
	metaPackID = "pack_id"
)

// Provider реализует IBillingProvider поверх Stripe
type Provider struct {
	api           *client.API
	webhookSecret string
	log           *slog.Logger
}

var _ service.IBillingProvider = (*Provider)(nil)

func NewProvider(cfg *Config, log *slog.Logger) *Provider {
	var backends *stripeSDK.Backends
	if cfg.BackendURL != "" {
		backend := stripeSDK.GetBackendWithConfig(stripeSDK.APIBackend, &stripeSDK.BackendConfig{
			URL:               stripeSDK.String(cfg.BackendURL),
			MaxNetworkRetries: stripeSDK.Int64(0),
		})
		backends = &stripeSDK.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	return &Provider{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

func (p *Provider) CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	params := &stripeSDK.CustomerParams{Email: stripeSDK.String(email)}
	params.Context = ctx
	params.AddMetadata(metaUserID, userID.String())

	customer, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create customer: %v", domain.ErrProviderFailure, err)
	}
	return customer.ID, nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	metadata := map[string]string{metaUserID: req.UserID.String()}
	if req.PlanID != "" {
		metadata[metaPlanID] = string(req.PlanID)
	}
	if req.PackID != "" {
		metadata[metaPackID] = req.PackID
	}

	params := &stripeSDK.CheckoutSessionParams{
		Customer:          stripeSDK.String(req.CustomerID),
		ClientReferenceID: stripeSDK.String(req.UserID.String()),
		Mode:              stripeSDK.String(string(req.Mode)),
		SuccessURL:        stripeSDK.String(req.SuccessURL),
		CancelURL:         stripeSDK.String(req.CancelURL),
		LineItems: []*stripeSDK.CheckoutSessionLineItemParams{{
			Price:    stripeSDK.String(req.PriceID),
			Quantity: stripeSDK.Int64(1),
		}},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	// metadata подписки нужна, чтобы связать последующие инвойсы с пользователем
	if req.Mode == domain.CheckoutModeSubscription {
		params.SubscriptionData = &stripeSDK.CheckoutSessionSubscriptionDataParams{Metadata: metadata}
	}

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create checkout session: %v", domain.ErrProviderFailure, err)
	}
	return session.URL, nil
}

func (p *Provider) CreatePortalSession(ctx context.Context, customerID string, returnURL string) (string, error) {
	params := &stripeSDK.BillingPortalSessionParams{
		Customer:  stripeSDK.String(customerID),
		ReturnURL: stripeSDK.String(returnURL),
	}
	params.Context = ctx

	session, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create portal session: %v", domain.ErrProviderFailure, err)
	}
	return session.URL, nil
}

// ParseWebhook проверяет подпись Stripe-Signature и приводит событие к BillingEvent
func (p *Provider) ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		p.log.Debug("stripe webhook signature check failed", "error", err)
		return nil, fmt.Errorf("%w: invalid webhook signature: %v", domain.ErrUnauthorized, err)
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: webhook event has no data", domain.ErrInvalidInput)
	}
	return normalizeEvent(event.ID, string(event.Type), event.Data.Raw), nil
}

// expandableID поле Stripe может быть строкой-id или развёрнутым объектом
func expandableID(v gjson.Result) string {
	if v.IsObject() {
		return v.Get("id").String()
	}
	return v.String()
}

func unixTime(v gjson.Result) *time.Time {
	if !v.Exists() || v.Int() == 0 {
		return nil
	}
	t := time.Unix(v.Int(), 0).UTC()
	return &t
}

func parseUserID(values ...string) *uuid.UUID {
	for _, v := range values {
		if v == "" {
			continue
		}
		if id, err := uuid.Parse(v); err == nil {
			return &id
		}
	}
	return nil
}

func normalizeEvent(id, rawType string, raw []byte) *domain.BillingEvent {
	obj := gjson.ParseBytes(raw)
	ev := &domain.BillingEvent{
		ID:         id,
		Type:       domain.BillingUnknown,
		RawType:    rawType,
		ObjectID:   obj.Get("id").String(),
		CustomerID: expandableID(obj.Get("customer")),
	}

	switch rawType {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		ev.Type = domain.BillingCheckoutCompleted
		ev.Mode = domain.CheckoutMode(obj.Get("mode").String())
		ev.SubscriptionID = expandableID(obj.Get("subscription"))
		ev.UserID = parseUserID(obj.Get("client_reference_id").String(), obj.Get("metadata."+metaUserID).String())
		ev.PlanID = domain.PlanID(obj.Get("metadata." + metaPlanID).String())
		ev.PackID = obj.Get("metadata." + metaPackID).String()
		ev.Status = obj.Get("payment_status").String()

	case "invoice.paid":
		ev.Type = domain.BillingInvoicePaid
		ev.SubscriptionID = expandableID(obj.Get("subscription"))
		ev.BillingReason = obj.Get("billing_reason").String()
		line := obj.Get("lines.data.0")
		ev.PriceID = line.Get("price.id").String()
		ev.PeriodEnd = unixTime(line.Get("period.end"))
		ev.UserID = parseUserID(obj.Get("subscription_details.metadata." + metaUserID).String())
		ev.PlanID = domain.PlanID(obj.Get("subscription_details.metadata." + metaPlanID).String())
		ev.Status = obj.Get("status").String()

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		switch rawType {
		case "customer.subscription.created":
			ev.Type = domain.BillingSubscriptionCreated
		case "customer.subscription.deleted":
			ev.Type = domain.BillingSubscriptionDeleted
		default:
			ev.Type = domain.BillingSubscriptionUpdated
		}
		ev.SubscriptionID = ev.ObjectID
		ev.Status = obj.Get("status").String()
		ev.PriceID = obj.Get("items.data.0.price.id").String()
		ev.PeriodEnd = unixTime(obj.Get("current_period_end"))
		if ev.PeriodEnd == nil {
			ev.PeriodEnd = unixTime(obj.Get("items.data.0.current_period_end"))
		}
		ev.UserID = parseUserID(obj.Get("metadata." + metaUserID).String())
		ev.PlanID = domain.PlanID(obj.Get("metadata." + metaPlanID).String())
	}

	return ev
}
