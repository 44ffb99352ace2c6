package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
	"github.com/aussiebroadwan/propinvite/pkg/idx"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

// defaultAcceptAttempts bounds re-validation after losing a compare-and-set.
// Each lost race means another acceptor consumed a use, so a token with
// maxUses k can cost a caller at most k extra rounds.
const defaultAcceptAttempts = 16

type AcceptResult struct {
	PropertyID    string
	LinkID        string
	AlreadyLinked bool
}

// InviteAcceptor redeems tokens. The validator's read is advisory; the
// conditional consume in the store is authoritative.
type InviteAcceptor struct {
	Store       store.Store
	Validator   *InviteValidator
	Guard       *AbuseGuard
	Retry       RetryPolicy
	Events      EventSink
	Now         func() time.Time
	MaxAttempts int
}

// Accept links the caller to the token's property, consuming one use. A
// caller already linked to the property gets AlreadyLinked without
// consuming anything, which also makes a retried accept safe after a
// cancelled request.
func (a *InviteAcceptor) Accept(ctx context.Context, raw string, caller domain.Caller) (AcceptResult, error) {
	log := slogx.FromContext(ctx)
	start := a.now()

	res, err := a.accept(ctx, raw, caller)
	if err != nil {
		kind := KindOf(err)
		emit(ctx, a.Events, domain.EventInviteAcceptFail, kind, raw, start, a.now())
		logOutcome(log, "invite accept failed", kind, raw, err)
		return AcceptResult{}, err
	}

	now := a.now()
	ev := newEvent(ctx, domain.EventInviteAcceptSuccess, domain.KindNone, raw, now.Sub(start), now)
	ev.AlreadyLinked = res.AlreadyLinked
	emitEvent(a.Events, ev)
	log.Info("invite accepted",
		slog.String("token", cryptox.Redact(raw)),
		slog.String("property_id", res.PropertyID),
		slog.Bool("already_linked", res.AlreadyLinked),
	)
	return res, nil
}

func (a *InviteAcceptor) accept(ctx context.Context, raw string, caller domain.Caller) (AcceptResult, error) {
	if !caller.Authenticated || caller.ID == "" {
		return AcceptResult{}, ErrUnauthenticated
	}

	// 1. Abuse guard before any store access.
	if a.Guard != nil {
		if err := a.Guard.Check(caller, ActionAccept); err != nil {
			return AcceptResult{}, err
		}
	}

	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAcceptAttempts
	}

	for range attempts {
		now := a.now()

		// 2. Fresh read every round; never trust an earlier preview.
		inv, err := a.Validator.lookup(ctx, raw)
		if err != nil {
			return AcceptResult{}, err
		}

		// 3. Existing link wins over every token state.
		link, err := a.activeLink(ctx, caller.ID, inv.PropertyID)
		if err != nil {
			return AcceptResult{}, err
		}
		if link != nil {
			return AcceptResult{PropertyID: inv.PropertyID, LinkID: link.ID, AlreadyLinked: true}, nil
		}

		// 4. Full validation.
		if err := a.Validator.evaluate(inv, caller, now); err != nil {
			return AcceptResult{}, err
		}

		// 5. Consume and link in one transaction.
		newLink := domain.TenantPropertyLink{
			ID:            idx.NewAt(now).String(),
			TenantID:      caller.ID,
			PropertyID:    inv.PropertyID,
			SourceTokenID: inv.ID,
			Active:        true,
			CreatedAt:     now,
		}
		err = a.Retry.Do(ctx, func(ctx context.Context) error {
			return a.Store.WithTx(ctx, func(tx store.Tx) error {
				if _, err := tx.Invites().TryConsume(ctx, inv.ID, inv.UseCount, now); err != nil {
					return err
				}
				return tx.Links().CreateLink(ctx, newLink)
			})
		})

		switch {
		case err == nil:
			return AcceptResult{PropertyID: inv.PropertyID, LinkID: newLink.ID}, nil
		case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrInactive):
			// Lost a race or the state changed underneath us; decide again.
			continue
		case errors.Is(err, store.ErrCapacityExceeded):
			return AcceptResult{}, ErrCapacityReached
		case errors.Is(err, store.ErrAlreadyExists):
			// A concurrent accept by the same caller linked first; our
			// consume rolled back with the failed insert.
			return AcceptResult{PropertyID: inv.PropertyID, AlreadyLinked: true}, nil
		case errors.Is(err, store.ErrNotFound):
			return AcceptResult{}, ErrInviteInvalid
		default:
			return AcceptResult{}, err
		}
	}

	return AcceptResult{}, ErrUnavailable
}

func (a *InviteAcceptor) activeLink(ctx context.Context, tenantID, propertyID string) (*domain.TenantPropertyLink, error) {
	var link domain.TenantPropertyLink
	err := a.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		link, err = a.Store.Links().GetActiveLink(ctx, tenantID, propertyID)
		return err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &link, nil
}

func (a *InviteAcceptor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
