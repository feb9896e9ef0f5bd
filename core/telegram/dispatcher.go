package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/juliabot/core/logger"
	"github.com/m3rciful/juliabot/core/telegram/middleware"
	"github.com/m3rciful/juliabot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Update kinds double as Bot API allowed_updates values.
const (
	UpdateMessage       = "message"
	UpdateCallbackQuery = "callback_query"
)

var errAlreadyBound = errors.New("telegram: dispatcher already bound")

type route struct {
	endpoint string
	name     string
	handler  tele.HandlerFunc
}

// Observer holds the ordered middleware chain and the routes of one update kind.
type Observer struct {
	kind        string
	middlewares []Middleware
	routes      []route
	states      []route
	fallback    []route
}

func newObserver(kind string) *Observer {
	return &Observer{kind: kind}
}

// Use appends mw to the chain. Middlewares run in registration order.
func (o *Observer) Use(name string, mw tele.MiddlewareFunc) {
	o.middlewares = append(o.middlewares, Middleware{Name: name, Use: mw})
}

// Handle routes endpoint to h. For callback queries the endpoint is the button
// unique; tele.OnText and tele.OnCallback register the fallback handler.
func (o *Observer) Handle(endpoint string, h tele.HandlerFunc) {
	if endpoint == o.catchAll() {
		o.fallback = append(o.fallback, route{endpoint: endpoint, name: "fallback", handler: h})
		return
	}
	o.routes = append(o.routes, route{endpoint: endpoint, name: o.routeName(endpoint), handler: h})
}

// HandleState routes updates that reach the catch-all endpoint while the
// conversation is in st.
func (o *Observer) HandleState(st state.State, h tele.HandlerFunc) {
	o.states = append(o.states, route{endpoint: string(st), name: "state." + string(st), handler: h})
}

// Middlewares returns the names of the registered middlewares in order.
func (o *Observer) Middlewares() []string {
	names := make([]string, 0, len(o.middlewares))
	for _, mw := range o.middlewares {
		names = append(names, mw.Name)
	}
	return names
}

func (o *Observer) empty() bool {
	return len(o.routes) == 0 && len(o.states) == 0 && len(o.fallback) == 0
}

func (o *Observer) catchAll() string {
	if o.kind == UpdateCallbackQuery {
		return tele.OnCallback
	}
	return tele.OnText
}

func (o *Observer) routeName(endpoint string) string {
	if o.kind == UpdateCallbackQuery {
		return "callback." + normalizeHandlerName(endpoint)
	}
	if strings.HasPrefix(endpoint, "/") {
		return "command." + normalizeHandlerName(endpoint)
	}
	return "message." + normalizeHandlerName(endpoint)
}

func (o *Observer) telegramEndpoint(endpoint string) string {
	if o.kind == UpdateCallbackQuery && !strings.HasPrefix(endpoint, "\a") {
		return "\f" + endpoint
	}
	return endpoint
}

// DispatcherOptions configures NewDispatcher.
type DispatcherOptions struct {
	Registry *Registry
	// Middlewares run before every observer chain.
	Middlewares []Middleware
	// AdminID guards commands marked AdminOnly.
	AdminID int64
}

// Dispatcher routes messages and callback queries through ordered middleware
// chains, with FSM state and shared workflow data available to every handler.
type Dispatcher struct {
	Message       *Observer
	CallbackQuery *Observer

	storage  state.Storage
	registry *Registry
	outer    []Middleware
	adminID  int64

	dataMu sync.RWMutex
	data   map[string]any

	botID atomic.Int64
	bound atomic.Bool
}

// NewDispatcher creates a dispatcher keeping FSM records in storage.
func NewDispatcher(storage state.Storage, opts DispatcherOptions) *Dispatcher {
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return &Dispatcher{
		Message:       newObserver(UpdateMessage),
		CallbackQuery: newObserver(UpdateCallbackQuery),
		storage:       storage,
		registry:      reg,
		outer:         opts.Middlewares,
		adminID:       opts.AdminID,
		data:          make(map[string]any),
	}
}

// Storage returns the FSM storage backend.
func (d *Dispatcher) Storage() state.Storage {
	return d.storage
}

// Registry returns the command registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Command registers cmd in the registry and routes name and its aliases to it.
func (d *Dispatcher) Command(name string, cmd Command) error {
	if err := d.registry.RegisterCommand(name, cmd); err != nil {
		return err
	}
	h := cmd.Handler
	if cmd.AdminOnly {
		h = middleware.AdminOnlyMiddleware(middleware.AdminOptions{AdminID: d.adminID})(h)
	}
	d.Message.Handle(name, h)
	for _, alias := range cmd.Aliases {
		if !strings.HasPrefix(alias, "/") {
			alias = "/" + alias
		}
		d.Message.Handle(alias, h)
	}
	return nil
}

// SetData publishes v to every handler under key.
func (d *Dispatcher) SetData(key string, v any) {
	d.dataMu.Lock()
	defer d.dataMu.Unlock()
	d.data[key] = v
}

func (d *Dispatcher) snapshot() map[string]any {
	d.dataMu.RLock()
	defer d.dataMu.RUnlock()
	return maps.Clone(d.data)
}

// UsedUpdateTypes lists the update kinds that have at least one handler.
func (d *Dispatcher) UsedUpdateTypes() []string {
	var kinds []string
	for _, o := range []*Observer{d.Message, d.CallbackQuery} {
		if !o.empty() {
			kinds = append(kinds, o.kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Bind installs every route on b. It fails on duplicate endpoints and may run once.
func (d *Dispatcher) Bind(b Binder, botID int64) error {
	if !d.bound.CompareAndSwap(false, true) {
		return errAlreadyBound
	}
	d.botID.Store(botID)

	outer := make([]tele.MiddlewareFunc, 0, len(d.outer)+2)
	for _, mw := range d.outer {
		if mw.Use != nil {
			outer = append(outer, mw.Use)
		}
	}
	outer = append(outer, d.dataMiddleware, state.Middleware(d.storage, d.botID.Load))

	total := 0
	for _, o := range []*Observer{d.Message, d.CallbackQuery} {
		n, err := d.bindObserver(b, o, outer)
		if err != nil {
			return err
		}
		total += n
	}

	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "tg.wire",
		slog.String("event", "complete"),
		slog.Int("routes", total),
		slog.Int("commands", d.registry.Len()),
		slog.String("allowed_updates", strings.Join(d.UsedUpdateTypes(), ",")),
	)
	return nil
}

func (d *Dispatcher) bindObserver(b Binder, o *Observer, outer []tele.MiddlewareFunc) (int, error) {
	if o.empty() {
		return 0, nil
	}
	chain := make([]tele.MiddlewareFunc, 0, len(outer)+len(o.middlewares))
	chain = append(chain, outer...)
	for _, mw := range o.middlewares {
		if mw.Use != nil {
			chain = append(chain, mw.Use)
		}
	}

	seen := make(map[string]struct{}, len(o.routes)+1)
	for _, r := range o.routes {
		if _, dup := seen[r.endpoint]; dup {
			return 0, fmt.Errorf("telegram: duplicate %s handler for %q", o.kind, r.endpoint)
		}
		seen[r.endpoint] = struct{}{}
	}
	if len(o.fallback) > 1 {
		return 0, fmt.Errorf("telegram: duplicate %s fallback handler", o.kind)
	}
	states := make(map[state.State]route, len(o.states))
	for _, r := range o.states {
		st := state.State(r.endpoint)
		if _, dup := states[st]; dup {
			return 0, fmt.Errorf("telegram: duplicate %s handler for state %q", o.kind, r.endpoint)
		}
		states[st] = r
	}

	for _, r := range o.routes {
		b.Handle(o.telegramEndpoint(r.endpoint), withSummary(r.name, r.handler), chain...)
	}
	n := len(o.routes)
	if len(states) > 0 || len(o.fallback) > 0 {
		var fallback *route
		if len(o.fallback) == 1 {
			fallback = &o.fallback[0]
		}
		b.Handle(o.catchAll(), catchAllHandler(states, fallback), chain...)
		n++
	}
	return n, nil
}

// catchAllHandler picks the handler for the current FSM state, then the fallback.
func catchAllHandler(states map[state.State]route, fallback *route) tele.HandlerFunc {
	return func(c tele.Context) error {
		if len(states) > 0 {
			if fsm, ok := state.FromContext(c); ok {
				st, err := fsm.State(context.Background())
				if err != nil {
					return fmt.Errorf("telegram: read state: %w", err)
				}
				if r, ok := states[st]; ok {
					return withSummary(r.name, r.handler)(c)
				}
			}
		}
		if fallback != nil {
			return withSummary(fallback.name, fallback.handler)(c)
		}
		return nil
	}
}

func (d *Dispatcher) dataMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		for k, v := range d.snapshot() {
			c.Set(k, v)
		}
		return next(c)
	}
}

// Data returns the workflow value stored under key when it has type T.
func Data[T any](c tele.Context, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.Get(key).(T)
	if !ok {
		return zero, false
	}
	return v, true
}
