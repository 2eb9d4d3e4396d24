// Package service holds the festival's consistency core: the vote ledger,
// the proposal merge engine, the rating registry, event administration,
// catalog reads and accounts. Every mutation runs inside one store
// transaction and every error leaving the package is an *Error.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/film-festival/internal/logging"
	"github.com/iliyamo/film-festival/internal/metrics"
	"github.com/iliyamo/film-festival/internal/queue"
	"github.com/iliyamo/film-festival/internal/repository"
)

// ActivityPublisher receives activity events after their transaction
// commits. Publish failures never fail the operation.
type ActivityPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, queue.ActivityEvent) error { return nil }

// Options carries the optional collaborators shared by every component.
// Zero values select the real clock, a discarding logger and no
// activity publishing.
type Options struct {
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Activity ActivityPublisher
}

type deps struct {
	store    repository.Store
	clock    clockwork.Clock
	log      *slog.Logger
	activity ActivityPublisher
}

func newDeps(store repository.Store, opts Options, component string) deps {
	d := deps{store: store, clock: opts.Clock, log: opts.Logger, activity: opts.Activity}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.log == nil {
		d.log = logging.Discard()
	}
	if d.activity == nil {
		d.activity = discardPublisher{}
	}
	d.log = d.log.With("component", component)
	return d
}

func (d deps) now() time.Time {
	return d.clock.Now().UTC()
}

// fail classifies err, counts it and logs storage failures at error
// level. Domain errors are expected outcomes and logged at debug.
func (d deps) fail(ctx context.Context, op string, err error) error {
	err = fromStore(err)
	kind := KindOf(err)
	metrics.ServiceErrorsTotal.WithLabelValues(kind.String()).Inc()
	if kind == KindStorageFailure {
		d.log.ErrorContext(ctx, "storage failure", "op", op, "error", errors.Unwrap(err))
	} else {
		d.log.DebugContext(ctx, "operation rejected", "op", op, "kind", kind.String(), "error", err)
	}
	return err
}

// publish hands ev to the activity publisher. The request may already be
// finishing, so the publish gets its own short deadline.
func (d deps) publish(ctx context.Context, ev queue.ActivityEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := d.activity.Publish(pctx, ev); err != nil {
		d.log.WarnContext(ctx, "activity publish failed", "type", ev.Type, "error", err)
	}
}

// notFound turns repository.ErrNotFound into a NotFound naming what.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindNotFound, Detail: what + " not found", Cause: err}
	}
	return err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(fromStore(err)).String()
}
