package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "juliabot.counters"

// Counters records what the handlers of one update sent back.
type Counters struct {
	Messages int
	Keyboard bool
	Answered bool
}

// CountersFrom returns the counters of the current update, zero when
// MessageMetricsMiddleware is not installed.
func CountersFrom(c tele.Context) Counters {
	if n, ok := c.Get(countersKey).(*Counters); ok {
		return *n
	}
	return Counters{}
}

// MessageMetricsMiddleware counts outgoing messages, keyboards and callback answers.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &Counters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

type countingContext struct {
	tele.Context
	n *Counters
}

func (c countingContext) count(opts []any, err error) error {
	if err != nil {
		return err
	}
	c.n.Messages++
	if !c.n.Keyboard {
		c.n.Keyboard = hasKeyboard(opts)
	}
	return nil
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v != nil
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(opts, c.Context.Send(what, opts...))
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(opts, c.Context.Reply(what, opts...))
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.count(opts, c.Context.Edit(what, opts...))
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.count(opts, c.Context.EditOrSend(what, opts...))
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.count(opts, c.Context.EditOrReply(what, opts...))
}

func (c countingContext) Respond(resp ...*tele.CallbackResponse) error {
	err := c.Context.Respond(resp...)
	if err == nil {
		c.n.Answered = true
	}
	return err
}
