// Package callbacks reads inline button data from callback updates.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData returns the unique and payload of cb. When a route
// matched, telebot has already split them into Unique and Data; otherwise
// the raw "\f<unique>|<payload>" form is decoded.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw, ok := strings.CutPrefix(cb.Data, "\f")
	if !ok {
		return "", cb.Data
	}
	unique, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique of the current callback.
func CallbackKey(c tele.Context) string {
	unique, _ := ParseCallbackData(c.Callback())
	return unique
}

// CallbackPayload returns the payload of the current callback.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

// PayloadInt64 parses the callback payload as an id.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(CallbackPayload(c)), 10, 64)
}
