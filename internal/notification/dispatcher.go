package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
)

// Dispatcher routes a verification code to the channel matching the identity
// kind. It satisfies the verify.CodeIssuer interface. A nil channel service
// means that channel is not configured for this deployment.
type Dispatcher struct {
	logger *slog.Logger
	email  *EmailService
	sms    *SMSService
}

// NewDispatcher creates a code dispatcher. Either service may be nil.
func NewDispatcher(logger *slog.Logger, email *EmailService, sms *SMSService) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		email:  email,
		sms:    sms,
	}
}

// Dispatch sends the code over email or SMS. The caller bounds the call with
// a context deadline.
func (d *Dispatcher) Dispatch(ctx context.Context, identity domain.Identity, code string) error {
	switch identity.Kind {
	case domain.IdentityEmail:
		if d.email == nil {
			return fmt.Errorf("email channel not configured")
		}
		if err := d.sendEmailWithContext(ctx, identity.Value, code); err != nil {
			d.logger.Error("failed to send verification email", "identity", identity.Value, "error", err)
			return err
		}
	case domain.IdentityPhone:
		if d.sms == nil {
			return fmt.Errorf("sms channel not configured")
		}
		if err := d.sms.SendVerificationCode(ctx, identity.Value, code); err != nil {
			d.logger.Error("failed to send verification sms", "identity", identity.Value, "error", err)
			return err
		}
	default:
		return fmt.Errorf("unknown identity kind %q", identity.Kind)
	}

	d.logger.Info("verification code dispatched", "identity", identity.Value, "channel", identity.Kind)
	return nil
}

// sendEmailWithContext adapts the blocking SMTP send to context
// cancellation. The send itself cannot be interrupted mid-flight, but the
// caller stops waiting once the deadline passes.
func (d *Dispatcher) sendEmailWithContext(ctx context.Context, to, code string) error {
	done := make(chan error, 1)
	go func() {
		done <- d.email.SendVerificationCode(to, code)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
