// Package executor applies a structured command to the catalog.
//
// [Executor.Execute] is a three-way transition over usage, update and query.
// Each call performs at most one stock write and at most one usage-log
// append. Business failures (unknown item, insufficient stock, nothing
// understood) come back as a [Response] with Success=false; only store
// failures are returned as errors.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/vocalstock/internal/catalog"
	"github.com/MrWong99/vocalstock/internal/structure"
)

// DefaultActor is recorded on usage logs created from voice commands.
const DefaultActor = "voice_user"

// ErrInsufficientStock is returned by [Executor.RecordUsage] when the
// requested quantity exceeds the current stock.
var ErrInsufficientStock = errors.New("executor: insufficient stock")

// Resolver finds the catalog item a name refers to; nil means no match.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*catalog.Item, error)
}

// Suggester proposes a similar catalog name for an unresolved item.
type Suggester interface {
	Suggest(name string, items []catalog.Item) (string, bool)
}

// Response is the outcome of one command.
type Response struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Option is a functional option for configuring an [Executor].
type Option func(*Executor)

// WithActor sets the actor recorded on usage logs. Default: "voice_user".
func WithActor(actor string) Option {
	return func(e *Executor) {
		e.actor = actor
	}
}

// WithSuggester enables "Did you mean X?" hints on not-found responses.
func WithSuggester(s Suggester) Option {
	return func(e *Executor) {
		e.suggester = s
	}
}

// Executor runs commands against a [catalog.Store].
type Executor struct {
	store     catalog.Store
	resolver  Resolver
	suggester Suggester
	actor     string
}

// New returns an Executor.
func New(store catalog.Store, resolver Resolver, opts ...Option) *Executor {
	e := &Executor{
		store:    store,
		resolver: resolver,
		actor:    DefaultActor,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute applies cmd. Commands without the fields their kind needs, or with
// a negative quantity, are not executable and get the coaching response.
func (e *Executor) Execute(ctx context.Context, cmd structure.Command) (Response, error) {
	name := cmd.ItemName()

	switch {
	case cmd.Kind == structure.KindUsage && name != "" && cmd.Quantity != nil && *cmd.Quantity > 0:
		return e.usage(ctx, name, *cmd.Quantity, cmd.Note)
	case cmd.Kind == structure.KindUpdate && name != "" && cmd.Quantity != nil && *cmd.Quantity >= 0:
		return e.update(ctx, name, *cmd.Quantity)
	case cmd.Kind == structure.KindQuery && name != "":
		return e.query(ctx, name)
	default:
		return fail(structure.CoachingNote), nil
	}
}

func (e *Executor) usage(ctx context.Context, name string, qty int, note string) (Response, error) {
	item, err := e.resolver.Resolve(ctx, name)
	if err != nil {
		return Response{}, fmt.Errorf("executor: usage: %w", err)
	}
	if item == nil {
		return e.notFound(ctx, name)
	}

	remaining, err := e.consume(ctx, item, qty, e.actor, note)
	if errors.Is(err, ErrInsufficientStock) {
		return fail(fmt.Sprintf("Insufficient stock of %s", item.Name)), nil
	}
	if err != nil {
		return Response{}, fmt.Errorf("executor: usage: %w", err)
	}

	slog.Info("usage recorded", "item", item.Name, "quantity", qty, "remaining", remaining)
	return ok(fmt.Sprintf("Logged usage of %d %s of %s. Remaining: %d", qty, item.Unit, item.Name, remaining)), nil
}

func (e *Executor) update(ctx context.Context, name string, qty int) (Response, error) {
	item, err := e.resolver.Resolve(ctx, name)
	if err != nil {
		return Response{}, fmt.Errorf("executor: update: %w", err)
	}

	if item == nil {
		created, err := e.store.CreateItem(ctx, catalog.Item{
			Name:         name,
			CurrentStock: qty,
			Unit:         catalog.DefaultUnit,
			MinStock:     0,
			MaxStock:     catalog.DefaultMaxStock,
		})
		if err != nil {
			return Response{}, fmt.Errorf("executor: create %q: %w", name, err)
		}
		slog.Info("item created", "item", created.Name, "id", created.ID, "stock", qty)
		return ok(fmt.Sprintf("Added %s with %d %s", created.Name, qty, catalog.DefaultUnit)), nil
	}

	if err := e.store.SetStock(ctx, item.ID, qty); err != nil {
		return Response{}, fmt.Errorf("executor: update %q: %w", item.Name, err)
	}
	slog.Info("stock updated", "item", item.Name, "from", item.CurrentStock, "to", qty)
	return ok(fmt.Sprintf("Updated %s stock to %d %s", item.Name, qty, item.Unit)), nil
}

func (e *Executor) query(ctx context.Context, name string) (Response, error) {
	item, err := e.resolver.Resolve(ctx, name)
	if err != nil {
		return Response{}, fmt.Errorf("executor: query: %w", err)
	}
	if item == nil {
		return e.notFound(ctx, name)
	}
	return ok(fmt.Sprintf("%s: %d %s available", item.Name, item.CurrentStock, item.Unit)), nil
}

// notFound builds the failure response, appending a suggestion when one is
// available. A failing snapshot read only loses the hint.
func (e *Executor) notFound(ctx context.Context, name string) (Response, error) {
	msg := fmt.Sprintf("Item %s not found", name)
	if e.suggester == nil {
		return fail(msg), nil
	}
	items, err := e.store.ListItems(ctx)
	if err != nil {
		slog.Warn("suggestion lookup failed", "item", name, "err", err)
		return fail(msg), nil
	}
	if s, found := e.suggester.Suggest(name, items); found {
		msg += fmt.Sprintf(". Did you mean %s?", s)
	}
	return fail(msg), nil
}

// RecordUsage deducts qty from the item with itemID and appends a usage log.
// It returns the remaining stock, [catalog.ErrNotFound] for unknown items and
// [ErrInsufficientStock] when qty exceeds the stock.
func (e *Executor) RecordUsage(ctx context.Context, itemID string, qty int, actor, note string) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("executor: record usage: quantity must be positive, got %d", qty)
	}
	item, err := e.store.Get(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("executor: record usage: %w", err)
	}
	if actor == "" {
		actor = e.actor
	}
	return e.consume(ctx, item, qty, actor, note)
}

// consume is the shared read-check-write step. Concurrent calls on the same
// item race: both may pass the check before either writes.
//
// Stock is written before the usage log. When the log append fails the
// previous stock is restored; if that fails too, the decrement stays without
// an audit entry and is logged at error level.
func (e *Executor) consume(ctx context.Context, item *catalog.Item, qty int, actor, note string) (int, error) {
	if item.CurrentStock < qty {
		return item.CurrentStock, ErrInsufficientStock
	}
	remaining := item.CurrentStock - qty
	if err := e.store.SetStock(ctx, item.ID, remaining); err != nil {
		return 0, err
	}
	if _, err := e.store.AppendUsageLog(ctx, catalog.UsageLog{
		ItemID:   item.ID,
		Quantity: qty,
		Actor:    actor,
		Note:     note,
	}); err != nil {
		slog.Warn("usage log append failed, restoring stock",
			"item", item.Name, "quantity", qty, "stock", item.CurrentStock, "err", err)
		if rerr := e.store.SetStock(context.WithoutCancel(ctx), item.ID, item.CurrentStock); rerr != nil {
			slog.Error("stock restore failed, usage is unlogged",
				"item", item.Name, "quantity", qty, "remaining", remaining, "err", rerr)
		}
		return 0, err
	}
	return remaining, nil
}

func ok(msg string) Response   { return Response{Message: msg, Success: true} }
func fail(msg string) Response { return Response{Message: msg, Success: false} }
