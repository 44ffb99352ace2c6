package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

// InviteValidator checks a presented token without mutating anything.
type InviteValidator struct {
	Store  store.Store
	Codec  *cryptox.TokenCodec
	Guard  *AbuseGuard
	Retry  RetryPolicy
	Events EventSink
	Now    func() time.Time

	// dummy is compared against on a lookup miss so both paths do the same work.
	dummy string
}

func NewInviteValidator(s store.Store, codec *cryptox.TokenCodec, guard *AbuseGuard, retry RetryPolicy, events EventSink) *InviteValidator {
	return &InviteValidator{
		Store:  s,
		Codec:  codec,
		Guard:  guard,
		Retry:  retry,
		Events: events,
		Now:    time.Now,
		dummy:  codec.Fingerprint("\x00invalid-token-placeholder"),
	}
}

// Validate is the public preview check. It emits invite_view and the
// validate outcome, and never reports WrongAccount to an anonymous caller.
// Attempts refused by the abuse guard are not views.
func (v *InviteValidator) Validate(ctx context.Context, raw string, caller domain.Caller) (domain.PropertyPreview, error) {
	log := slogx.FromContext(ctx)
	start := v.now()

	fail := func(err error) (domain.PropertyPreview, error) {
		if errors.Is(err, ErrWrongAccount) && !caller.Authenticated {
			err = ErrInviteInvalid
		}
		kind := KindOf(err)
		emit(ctx, v.Events, domain.EventInviteValidateFail, kind, raw, start, v.now())
		logOutcome(log, "invite validate failed", kind, raw, err)
		return domain.PropertyPreview{}, err
	}

	if v.Guard != nil {
		if err := v.Guard.Check(caller, ActionValidate); err != nil {
			return fail(err)
		}
	}

	emit(ctx, v.Events, domain.EventInviteView, domain.KindNone, raw, start, start)

	preview, err := v.validate(ctx, raw, caller)
	if err != nil {
		return fail(err)
	}

	emit(ctx, v.Events, domain.EventInviteValidateSuccess, domain.KindNone, raw, start, v.now())
	log.Debug("invite validated",
		slog.String("token", cryptox.Redact(raw)),
		slog.String("property_id", preview.PropertyID),
	)
	return preview, nil
}

func (v *InviteValidator) validate(ctx context.Context, raw string, caller domain.Caller) (domain.PropertyPreview, error) {
	inv, err := v.lookup(ctx, raw)
	if err != nil {
		return domain.PropertyPreview{}, err
	}
	if err := v.evaluate(inv, caller, v.now()); err != nil {
		return domain.PropertyPreview{}, err
	}
	return v.preview(ctx, inv)
}

// lookup finds the token by fingerprint. Every call performs one indexed
// lookup and one constant-time comparison whether or not a row exists.
func (v *InviteValidator) lookup(ctx context.Context, raw string) (domain.InviteToken, error) {
	fp := v.Codec.Fingerprint(raw)
	wellFormed := v.Codec.WellFormed(raw)

	var inv domain.InviteToken
	err := v.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		inv, err = v.Store.Invites().GetInviteByFingerprint(ctx, fp)
		return err
	})

	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = cryptox.EqualFingerprints(fp, v.dummy)
		return domain.InviteToken{}, ErrInviteInvalid
	case err != nil:
		return domain.InviteToken{}, err
	}

	if !cryptox.EqualFingerprints(fp, inv.Fingerprint) || !wellFormed {
		return domain.InviteToken{}, ErrInviteInvalid
	}
	return inv, nil
}

// evaluate applies the token state machine. Expiry takes precedence over
// revocation, which takes precedence over capacity; the recipient check
// runs last so it never hides a terminal state.
func (v *InviteValidator) evaluate(inv domain.InviteToken, caller domain.Caller, now time.Time) error {
	switch inv.EffectiveStatus(now) {
	case domain.InviteExpired:
		return ErrInviteExpired
	case domain.InviteRevoked:
		return ErrInviteRevoked
	case domain.InviteExhausted:
		return ErrCapacityReached
	}

	if inv.IntendedEmail != "" && !caller.MatchesEmail(inv.IntendedEmail) {
		return ErrWrongAccount
	}
	return nil
}

func (v *InviteValidator) preview(ctx context.Context, inv domain.InviteToken) (domain.PropertyPreview, error) {
	var (
		prop    domain.Property
		profile domain.Profile
	)
	err := v.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		if prop, err = v.Store.Properties().GetProperty(ctx, inv.PropertyID); err != nil {
			return err
		}
		profile, err = v.Store.Properties().GetProfile(ctx, inv.IssuerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Error("invite references missing property",
			slog.String("invite_id", inv.ID),
			slog.String("property_id", inv.PropertyID),
		)
		return domain.PropertyPreview{}, ErrInviteInvalid
	}
	if err != nil {
		return domain.PropertyPreview{}, err
	}

	return domain.PropertyPreview{
		PropertyID:     prop.ID,
		Name:           prop.Name,
		AddressSummary: prop.AddressSummary(),
		IssuerName:     profile.DisplayName,
	}, nil
}

func (v *InviteValidator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// logOutcome keeps expected outcomes out of the error log.
func logOutcome(log *slog.Logger, msg string, kind domain.ErrorKind, raw string, err error) {
	attrs := []any{
		slog.String("token", cryptox.Redact(raw)),
		slog.String("error_kind", string(kind)),
	}
	switch {
	case kind.Expected():
		log.Debug(msg, attrs...)
	case kind == domain.KindRateLimited:
		log.Warn(msg, attrs...)
	default:
		log.Error(msg, append(attrs, slog.Any("error", err))...)
	}
}
