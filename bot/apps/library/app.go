package library

import (
	"context"
	"fmt"
	"html"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/deps"
	"github.com/m3rciful/juliabot/bot/keyboards"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
	"github.com/m3rciful/juliabot/core/telegram/keyboard"
)

// Callback uniques. The payload of both is a section id, 0 meaning the root.
const (
	CbSection = "library_section"
	CbBack    = "library_back"

	callbackPrefix = "library_"
)

const (
	rootTitle       = "📚 <b>Library</b>"
	emptyText       = "Nothing here yet."
	notFoundText    = "Section not found"
	unavailableText = "Library is unavailable right now"
	sectionsPerRow  = 2
)

// App holds the library handlers.
type App struct {
	resolve func(c tele.Context) (Store, bool)
}

// New creates the app backed by the session factory of each update.
func New() *App {
	return NewWith(func(c tele.Context) (Store, bool) {
		db, ok := deps.DB(c)
		if !ok {
			return nil, false
		}
		return NewRepository(db), true
	})
}

// NewWith uses resolve to find the Store for an update.
func NewWith(resolve func(c tele.Context) (Store, bool)) *App {
	return &App{resolve: resolve}
}

// Menu returns the LibraryMenu middleware of the app.
func (a *App) Menu(enabled bool) *LibraryMenu {
	return &LibraryMenu{enabled: enabled, resolve: a.resolve}
}

// MenuRow is the main menu entry opening the library.
func MenuRow() []keyboard.InlineBtn {
	return []keyboard.InlineBtn{{Text: "📚 Library", Unique: CbBack, Data: "0"}}
}

// RegisterCommands installs /library.
func (a *App) RegisterCommands(d *coretelegram.Dispatcher) error {
	return d.Command("/library", coretelegram.Command{
		Handler:     a.onLibrary,
		Description: "Browse the link library",
	})
}

// RegisterCallbacks installs the section navigation buttons.
func (a *App) RegisterCallbacks(d *coretelegram.Dispatcher) error {
	d.CallbackQuery.Handle(CbSection, a.onSection)
	d.CallbackQuery.Handle(CbBack, a.onBack)
	return nil
}

func (a *App) onLibrary(c tele.Context) error {
	store, ok := a.resolve(c)
	if !ok {
		return c.Send(unavailableText)
	}
	text, markup, err := render(tghelpers.BuildContext(c), store, nil)
	if err != nil {
		return err
	}
	return c.Send(text, markup)
}

func (a *App) onSection(c tele.Context) error {
	section, ok := SectionFrom(c)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: notFoundText})
	}
	return a.show(c, &section)
}

func (a *App) onBack(c tele.Context) error {
	if section, ok := SectionFrom(c); ok {
		return a.show(c, &section)
	}
	return a.show(c, nil)
}

func (a *App) show(c tele.Context, section *Section) error {
	store, ok := a.resolve(c)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: unavailableText})
	}
	text, markup, err := render(tghelpers.BuildContext(c), store, section)
	if err != nil {
		return err
	}
	if err := c.Edit(text, markup); err != nil {
		return err
	}
	return c.Respond()
}

// render builds the view of section, or of the root when section is nil.
func render(ctx context.Context, store Store, section *Section) (string, *tele.ReplyMarkup, error) {
	var (
		parentID int64
		title    = rootTitle
		items    []Item
	)
	if section != nil {
		parentID = section.ID
		title = fmt.Sprintf("📚 <b>%s</b>", html.EscapeString(section.Title))
	}

	sections, err := store.Sections(ctx, parentID)
	if err != nil {
		return "", nil, err
	}
	if section != nil {
		if items, err = store.Items(ctx, section.ID); err != nil {
			return "", nil, err
		}
	}

	buttons := make([]keyboard.InlineBtn, 0, len(sections))
	for _, s := range sections {
		buttons = append(buttons, keyboard.InlineBtn{Text: "📁 " + s.Title, Unique: CbSection, Data: strconv.FormatInt(s.ID, 10)})
	}
	rows := keyboard.Chunk(buttons, sectionsPerRow)
	for _, it := range items {
		rows = append(rows, []keyboard.InlineBtn{{Text: "🔗 " + it.Title, URL: it.URL}})
	}
	if section == nil {
		rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ Menu", Unique: keyboards.CbMenu}})
	} else {
		rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ Back", Unique: CbBack, Data: strconv.FormatInt(section.Parent(), 10)}})
	}
	markup := keyboard.Rows(rows...)

	if len(sections) == 0 && len(items) == 0 {
		title += "\n\n" + emptyText
	}
	return title, markup, nil
}
