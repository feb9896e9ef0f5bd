// Package deps resolves per-update dependencies from the dispatcher workflow data.
package deps

import (
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/core/bootstrap"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
)

// DB returns the session factory, available in polling mode.
func DB(c tele.Context) (*sqlx.DB, bool) {
	db, ok := coretelegram.Data[*sqlx.DB](c, bootstrap.DataSessionMaker)
	return db, ok && db != nil
}

// Redis returns the shared Redis client, available in polling mode when configured.
func Redis(c tele.Context) (*redis.Client, bool) {
	rdb, ok := coretelegram.Data[*redis.Client](c, bootstrap.DataRedis)
	return rdb, ok && rdb != nil
}
