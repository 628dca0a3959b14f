// Package webhook processes checkout gateway callback deliveries.
package webhook

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/zeltonlabs/zelton/internal/config"
	gatewaydomain "github.com/zeltonlabs/zelton/internal/gateway/domain"
	lifecycledomain "github.com/zeltonlabs/zelton/internal/lifecycle/domain"
	"github.com/zeltonlabs/zelton/internal/metrics"
)

type ServiceParams struct {
	fx.In

	Checkout  gatewaydomain.CheckoutGateway
	Lifecycle lifecycledomain.Service
	Config    config.Config
	Logger    *zap.Logger
}

type Service struct {
	checkout  gatewaydomain.CheckoutGateway
	lifecycle lifecycledomain.Service
	cfg       config.Config
	logger    *zap.Logger
}

func NewService(p ServiceParams) *Service {
	return &Service{
		checkout:  p.Checkout,
		lifecycle: p.Lifecycle,
		cfg:       p.Config,
		logger:    p.Logger.Named("webhook"),
	}
}

// Process authenticates one webhook delivery and routes it to the
// payment lifecycle. Webhooks are a fast path only; anything missed
// here is picked up by reconciliation.
func (s *Service) Process(ctx context.Context, authHeader string, body []byte) error {
	cb, err := s.checkout.ValidateCallback(
		s.cfg.PhonePeWebhookUsername, s.cfg.PhonePeWebhookPassword, authHeader, body)
	if err != nil {
		metrics.WebhookCallbacksTotal.WithLabelValues("unknown", "invalid").Inc()
		s.logger.Warn("webhook rejected", zap.Error(err))
		return err
	}

	log := s.logger.With(
		zap.String("callback_type", cb.Type),
		zap.String("merchant_order_id", cb.MerchantOrderID),
		zap.String("state", cb.State))

	switch cb.Type {
	case gatewaydomain.CallbackCheckoutCompleted:
		if err := s.lifecycle.HandleOrderCompleted(ctx, cb.MerchantOrderID, statusFromCallback(cb)); err != nil {
			metrics.WebhookCallbacksTotal.WithLabelValues(cb.Type, "error").Inc()
			log.Error("completion handling failed", zap.Error(err))
			return err
		}
		metrics.WebhookCallbacksTotal.WithLabelValues(cb.Type, "processed").Inc()
		log.Info("order completion processed")
	case gatewaydomain.CallbackCheckoutFailed:
		if err := s.lifecycle.HandleOrderFailed(ctx, cb.MerchantOrderID, statusFromCallback(cb)); err != nil {
			metrics.WebhookCallbacksTotal.WithLabelValues(cb.Type, "error").Inc()
			log.Error("failure handling failed", zap.Error(err))
			return err
		}
		metrics.WebhookCallbacksTotal.WithLabelValues(cb.Type, "processed").Inc()
		log.Info("order failure processed")
	case gatewaydomain.CallbackRefundCompleted, gatewaydomain.CallbackRefundFailed:
		// Refunds are recorded for the audit trail only.
		metrics.WebhookCallbacksTotal.WithLabelValues(cb.Type, "logged").Inc()
		log.Info("refund callback received")
	default:
		metrics.WebhookCallbacksTotal.WithLabelValues(cb.Type, "ignored").Inc()
		log.Info("unhandled callback type ignored")
	}
	return nil
}

func statusFromCallback(cb *gatewaydomain.Callback) *gatewaydomain.OrderStatus {
	return &gatewaydomain.OrderStatus{
		State:          cb.State,
		PaymentDetails: cb.RawData,
	}
}
