package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/juliabot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// Binder accepts handler registrations for an endpoint.
type Binder interface {
	Handle(endpoint any, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
}

// Client is the bot session used by the bootstrap.
type Client interface {
	Binder
	SetCommands(opts ...any) error
	RemoveWebhook(dropPending ...bool) error
	SetWebhook(w *tele.Webhook) error
	ID() int64
	Poll(ctx context.Context, allowedUpdates []string) error
	Close() error
}

// BotOptions configures NewBot.
type BotOptions struct {
	// URL overrides the Bot API endpoint.
	URL             string
	Token           string
	ParseMode       string
	LongPollTimeout time.Duration
	HTTPClient      *http.Client
	// Offline skips the getMe call; used in tests.
	Offline bool
}

// Bot wraps tele.Bot with an owned HTTP session and a cancellable polling loop.
type Bot struct {
	api    *tele.Bot
	poller *armedPoller
	http   *http.Client

	closeOnce sync.Once
}

var _ Client = (*Bot)(nil)

// NewBot constructs the bot client bound to opts.Token.
func NewBot(opts BotOptions) (*Bot, error) {
	if strings.TrimSpace(opts.Token) == "" && !opts.Offline {
		return nil, fmt.Errorf("telegram: empty token")
	}
	timeout := opts.LongPollTimeout
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = BuildHTTPClient()
	}
	poller := &armedPoller{LongPoller: &tele.LongPoller{Timeout: timeout}}

	start := time.Now()
	api, err := tele.NewBot(tele.Settings{
		URL:       opts.URL,
		Token:     opts.Token,
		Poller:    poller,
		Client:    client,
		ParseMode: tele.ParseMode(opts.ParseMode),
		Offline:   opts.Offline,
		OnError:   onError,
	})
	if err != nil {
		client.CloseIdleConnections()
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	attrs := []slog.Attr{
		slog.String("event", "bot.init"),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if api.Me != nil && api.Me.Username != "" {
		attrs = append(attrs, slog.String("username", api.Me.Username))
	}
	logger.TG.LogAttrs(context.Background(), slog.LevelInfo, "bot client ready", attrs...)

	return &Bot{api: api, poller: poller, http: client}, nil
}

// ID returns the bot user id, 0 when offline.
func (b *Bot) ID() int64 {
	if b.api == nil || b.api.Me == nil {
		return 0
	}
	return b.api.Me.ID
}

func (b *Bot) Handle(endpoint any, h tele.HandlerFunc, m ...tele.MiddlewareFunc) {
	b.api.Handle(endpoint, h, m...)
}

func (b *Bot) SetCommands(opts ...any) error {
	return b.api.SetCommands(opts...)
}

func (b *Bot) RemoveWebhook(dropPending ...bool) error {
	return b.api.RemoveWebhook(dropPending...)
}

func (b *Bot) SetWebhook(w *tele.Webhook) error {
	return b.api.SetWebhook(w)
}

// armedPoller signals once tele.Bot.Start has set up its stop channel.
// Stop only cancels an in-flight getUpdates after that point.
type armedPoller struct {
	*tele.LongPoller
	armed chan struct{}
}

func (p *armedPoller) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	close(p.armed)
	p.LongPoller.Poll(b, dest, stop)
}

// Poll long-polls for allowedUpdates until ctx is done. It returns at once
// when ctx is already done.
func (b *Bot) Poll(ctx context.Context, allowedUpdates []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil
	}
	b.poller.AllowedUpdates = allowedUpdates
	b.poller.armed = make(chan struct{})

	runDone := make(chan struct{})
	go func() {
		b.api.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		select {
		case <-b.poller.armed:
		case <-runDone:
			return nil
		}
		b.api.Stop()
		<-runDone
	case <-runDone:
	}
	return nil
}

// Close releases the HTTP session. Only the first call has an effect.
func (b *Bot) Close() error {
	b.closeOnce.Do(func() {
		b.http.CloseIdleConnections()
		logger.TG.Info("bot session closed", slog.String("event", "bot.close"))
	})
	return nil
}

func onError(err error, c tele.Context) {
	attrs := []slog.Attr{
		slog.String("event", "tg.error"),
		slog.String("err", redactToken(err.Error())),
	}
	if c != nil {
		attrs = append(attrs, slog.Int("update_id", c.Update().ID))
	}
	logger.TG.LogAttrs(context.Background(), slog.LevelError, "update handling failed", attrs...)
}
