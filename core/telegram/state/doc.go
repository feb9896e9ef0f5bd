// Package state provides FSM storage for Telegram conversations.
// Storage backends are keyed by bot, chat and user; a Context binds one key
// to a backend for the lifetime of a single update.
package state
