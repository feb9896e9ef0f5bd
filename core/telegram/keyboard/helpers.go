// Package keyboard builds inline keyboards from plain button descriptions.
package keyboard

import tele "gopkg.in/telebot.v4"

const cancelText = "❌ Cancel"

// InlineBtn describes one inline button. A button with URL opens the link,
// any other one sends Unique and Data back as callback data.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

func (b InlineBtn) inline() tele.InlineButton {
	if b.URL != "" {
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	}
	return tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data}
}

// Rows builds an inline keyboard with one slice per row. Empty rows are skipped.
func Rows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{InlineKeyboard: make([][]tele.InlineButton, 0, len(rows))}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, len(row))
		for i, b := range row {
			line[i] = b.inline()
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, line)
	}
	return markup
}

// Column puts every button on its own row.
func Column(buttons ...InlineBtn) *tele.ReplyMarkup {
	return Rows(Chunk(buttons, 1)...)
}

// Chunk splits items into rows of at most n. n below 1 means one per row.
func Chunk[T any](items []T, n int) [][]T {
	n = max(n, 1)
	rows := make([][]T, 0, (len(items)+n-1)/n)
	for len(items) > 0 {
		k := min(n, len(items))
		rows = append(rows, items[:k:k])
		items = items[k:]
	}
	return rows
}

// Cancel is a keyboard with a single button sending unique. An empty text
// uses the default label.
func Cancel(unique, text string) *tele.ReplyMarkup {
	if text == "" {
		text = cancelText
	}
	return Column(InlineBtn{Text: text, Unique: unique})
}
