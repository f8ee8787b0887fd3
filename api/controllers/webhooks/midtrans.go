package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/tokoflow-backend/api/responses"
	midtranswebhook "github.com/angelmondragon/tokoflow-backend/internal/webhooks/midtrans"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/midtrans"
)

const maxNotificationBytes = 1 << 20

type MidtransWebhookService interface {
	ApplyNotification(ctx context.Context, n midtranswebhook.Notification) (*midtranswebhook.Result, error)
}

type midtransWebhookGuard interface {
	CheckAndMark(ctx context.Context, fingerprint string) (bool, error)
	Delete(ctx context.Context, fingerprint string) error
}

type SignatureVerifier interface {
	VerifySignature(n midtrans.Notification) bool
}

// MidtransWebhook applies Snap payment notifications. A nil verifier skips
// the signature check.
func MidtransWebhook(svc MidtransWebhookService, verifier SignatureVerifier, guard midtransWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		notification, err := midtrans.ParseNotification(payload)
		if err != nil {
			responses.WriteDetail(w, http.StatusBadRequest, "invalid notification payload")
			return
		}
		if notification.OrderID == "" {
			responses.WriteDetail(w, http.StatusBadRequest, "order_id is required")
			return
		}
		if logg != nil {
			ctx = logg.WithTransactionID(ctx, notification.OrderID)
		}

		if verifier != nil && !verifier.VerifySignature(notification) {
			if logg != nil {
				logg.Warn(ctx, "webhook.signature_rejected")
			}
			responses.WriteDetail(w, http.StatusBadRequest, "invalid signature")
			return
		}

		fingerprint := midtranswebhook.Fingerprint(payload)
		alreadyProcessed, err := guard.CheckAndMark(ctx, fingerprint)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(ctx, "webhook.replay_skipped")
			}
			responses.WriteAck(w)
			return
		}

		if _, err := svc.ApplyNotification(ctx, midtranswebhook.FromGateway(notification, payload)); err != nil {
			if delErr := guard.Delete(ctx, fingerprint); delErr != nil && logg != nil {
				logg.Error(ctx, "webhook.guard_release_failed", delErr)
			}
			switch {
			case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
				responses.WriteDetail(w, http.StatusNotFound, "transaction not found")
			case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
				responses.WriteDetail(w, http.StatusBadRequest, pkgerrors.As(err).Message())
			default:
				responses.WriteError(ctx, logg, w, err)
			}
			return
		}

		responses.WriteAck(w)
	}
}
