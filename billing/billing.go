// Package billing integrates Stripe subscriptions. A completed checkout
// grants pro status; a deleted subscription revokes it immediately via a
// reverse customer-to-user index written at checkout time.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/lectern-app/lectern"
)

// KV is the small key-value surface billing state lives behind:
// user:{id}:status, user:{id}:customer, and customer:{id}:user keys.
type KV interface {
	// Get returns the value for key, or "" when absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ErrNoSubscription is returned by CreatePortalSession when the user has
// never completed a checkout.
var ErrNoSubscription = fmt.Errorf("no subscription found for this user")

// Option configures a billing Service.
type Option func(*Service)

// WithLogger sets a structured logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAPIBackend replaces the Stripe API client, for tests.
func WithAPIBackend(api *client.API) Option {
	return func(s *Service) { s.api = api }
}

// Service creates checkout and portal sessions and applies webhook
// events to the entitlement store. It implements lectern.Entitlements.
type Service struct {
	api           *client.API
	kv            KV
	webhookSecret string
	priceID       string
	appURL        string
	logger        *slog.Logger
}

var _ lectern.Entitlements = (*Service)(nil)

// New creates a billing Service.
func New(secretKey, webhookSecret, priceID, appURL string, kv KV, opts ...Option) *Service {
	api := &client.API{}
	api.Init(secretKey, nil)
	s := &Service{
		api:           api,
		kv:            kv,
		webhookSecret: webhookSecret,
		priceID:       priceID,
		appURL:        appURL,
		logger:        nopLogger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// nopLogger discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// CreateCheckoutSession starts a subscription checkout for userID and
// returns the hosted payment page URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("missing user id")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:          stripe.String(s.appURL + "/?billing_status=success"),
		CancelURL:           stripe.String(s.appURL + "/?billing_status=cancel"),
		AllowPromotionCodes: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("userId", userID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		s.logger.Error("billing: create checkout session failed", "user_id", userID, "error", err)
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	s.logger.Debug("billing: checkout session created", "user_id", userID, "session_id", sess.ID)
	return sess.URL, nil
}

// CreatePortalSession opens the Stripe billing portal for an existing
// subscriber. Returns ErrNoSubscription when the user never checked out.
func (s *Service) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("missing user id")
	}

	customerID, err := s.kv.Get(ctx, customerKey(userID))
	if err != nil {
		return "", fmt.Errorf("lookup customer: %w", err)
	}
	if customerID == "" {
		return "", ErrNoSubscription
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.appURL + "/settings"),
	}
	params.Context = ctx

	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		s.logger.Error("billing: create portal session failed", "user_id", userID, "error", err)
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// HandleWebhook verifies the Stripe signature and applies the event.
// The payload must be the raw request body, unparsed.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
	if err != nil {
		s.logger.Warn("billing: webhook signature verification failed", "error", err)
		return fmt.Errorf("verify webhook: %w", err)
	}
	return s.applyEvent(ctx, event)
}

// applyEvent updates entitlement state for a verified event. Unhandled
// event types are acknowledged without action.
func (s *Service) applyEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("parse checkout session: %w", err)
		}
		userID := sess.Metadata["userId"]
		if userID == "" {
			s.logger.Warn("billing: checkout completed without userId metadata", "session_id", sess.ID)
			return nil
		}
		var custID string
		if sess.Customer != nil {
			custID = sess.Customer.ID
		}
		if err := s.kv.Set(ctx, statusKey(userID), "pro"); err != nil {
			return fmt.Errorf("grant pro: %w", err)
		}
		if custID != "" {
			if err := s.kv.Set(ctx, customerKey(userID), custID); err != nil {
				return fmt.Errorf("map customer: %w", err)
			}
			// Reverse index so subscription.deleted can find the user.
			if err := s.kv.Set(ctx, userKey(custID), userID); err != nil {
				return fmt.Errorf("map user: %w", err)
			}
		}
		s.logger.Info("billing: granted pro", "user_id", userID, "customer_id", custID)
		return nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription: %w", err)
		}
		if sub.Customer == nil {
			return nil
		}
		userID, err := s.kv.Get(ctx, userKey(sub.Customer.ID))
		if err != nil {
			return fmt.Errorf("reverse lookup: %w", err)
		}
		if userID == "" {
			s.logger.Warn("billing: subscription deleted for unknown customer", "customer_id", sub.Customer.ID)
			return nil
		}
		if err := s.kv.Set(ctx, statusKey(userID), "free"); err != nil {
			return fmt.Errorf("revoke pro: %w", err)
		}
		s.logger.Info("billing: revoked pro", "user_id", userID, "subscription_id", sub.ID)
		return nil
	}

	s.logger.Debug("billing: ignoring event", "type", event.Type)
	return nil
}

// IsPro reports whether userID has an active pro entitlement.
func (s *Service) IsPro(ctx context.Context, userID string) (bool, error) {
	status, err := s.kv.Get(ctx, statusKey(userID))
	if err != nil {
		return false, fmt.Errorf("lookup status: %w", err)
	}
	return status == "pro", nil
}

func statusKey(userID string) string   { return "user:" + userID + ":status" }
func customerKey(userID string) string { return "user:" + userID + ":customer" }
func userKey(custID string) string     { return "customer:" + custID + ":user" }
