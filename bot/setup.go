// Package bot composes the julia bot handlers for the bootstrap pipeline.
package bot

import (
	"fmt"

	"github.com/m3rciful/juliabot/bot/apps/library"
	"github.com/m3rciful/juliabot/bot/apps/trigger"
	"github.com/m3rciful/juliabot/bot/handlers"
	"github.com/m3rciful/juliabot/bot/keyboards"
	"github.com/m3rciful/juliabot/bot/middlewares"
	"github.com/m3rciful/juliabot/core/bootstrap"
	coreconfig "github.com/m3rciful/juliabot/core/config"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	"github.com/m3rciful/juliabot/core/telegram/keyboard"
)

// Feature module names.
const (
	LibraryApp = "library_app"
	TriggerApp = "trigger_app"
)

// Setup returns the bootstrap options of the bot for cfg.
func Setup(cfg *coreconfig.Config) (bootstrap.Options, error) {
	if cfg == nil {
		return bootstrap.Options{}, fmt.Errorf("bot: nil config")
	}
	return bootstrap.Options{
		Config:   cfg,
		Handlers: Handlers(cfg),
		SetMenu:  keyboards.SetMainMenu,
	}, nil
}

// Handlers builds the middleware chains, base handlers and feature modules.
func Handlers(cfg *coreconfig.Config) bootstrap.Handlers {
	lib := library.New()
	trg := trigger.New()
	users := middlewares.NewUserRegisterCheck()

	var menuRows [][]keyboard.InlineBtn
	if cfg.Apps.Library {
		menuRows = append(menuRows, library.MenuRow())
	}
	base := handlers.New(handlers.Options{MenuRows: menuRows})

	return bootstrap.Handlers{
		CallbackMiddlewares: []coretelegram.Middleware{
			{Name: "library_menu", Use: lib.Menu(cfg.Apps.Library).Middleware},
			{Name: "user_register_check", Use: users.Middleware},
		},
		MessageMiddlewares: []coretelegram.Middleware{
			{Name: "user_register_check", Use: users.Middleware},
			{Name: "trigger", Use: trg.Middleware(cfg.Apps.Trigger).Middleware},
		},
		Base: []bootstrap.RegisterFunc{
			base.RegisterCallbacks,
			base.RegisterMessages,
			base.RegisterCommands,
		},
		Modules: []bootstrap.Module{
			{
				Name:    LibraryApp,
				Enabled: func(c *coreconfig.Config) bool { return c.Apps.Library },
				Register: func(d *coretelegram.Dispatcher) error {
					if err := lib.RegisterCallbacks(d); err != nil {
						return err
					}
					return lib.RegisterCommands(d)
				},
			},
			{
				Name:     TriggerApp,
				Enabled:  func(c *coreconfig.Config) bool { return c.Apps.Trigger },
				Register: trg.RegisterCommands,
			},
		},
	}
}
