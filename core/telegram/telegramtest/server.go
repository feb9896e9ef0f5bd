// Package telegramtest runs a fake Bot API for handler tests.
//
//	srv := telegramtest.NewServer(t)
//	b := srv.Bot(t)
//	b.ProcessUpdate(telegramtest.Text(1, "/start"))
//	srv.Last(t).AssertParam(t, "text", "hello")
package telegramtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// TestToken is a well-formed bot token accepted by the fake server.
const TestToken = "123456:TEST_token"

// Call is one captured Bot API request.
type Call struct {
	Method string
	Params map[string]any
}

// AssertParam verifies a request parameter.
func (c Call) AssertParam(t *testing.T, key string, expected any) {
	t.Helper()
	assert.Equal(t, expected, c.Params[key], "unexpected value for param: "+key)
}

// Text returns a string parameter or "".
func (c Call) Text(key string) string {
	s, _ := c.Params[key].(string)
	return s
}

// Server captures Bot API calls and answers them with canned results.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	calls []Call
}

// NewServer starts a fake Bot API closed with the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	params := map[string]any{}
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		_ = json.Unmarshal(body, &params)
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Params: params})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getUpdates":
		// Hold the long poll open like the real API does.
		wait := time.Second
		if secs, err := strconv.Atoi(fmt.Sprint(params["timeout"])); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(wait):
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
	case "sendMessage", "editMessageText", "editMessageReplyMarkup":
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	default:
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

// Bot returns an offline synchronous bot that talks to s.
func (s *Server) Bot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{
		URL:         s.URL,
		Token:       TestToken,
		Offline:     true,
		Synchronous: true,
		OnError:     func(err error, _ tele.Context) { t.Logf("handler error: %v", err) },
	})
	require.NoError(t, err)
	return b
}

// Count returns how many calls were made to method.
func (s *Server) Count(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Calls returns every captured call.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Methods returns the captured method names in order.
func (s *Server) Methods() []string {
	calls := s.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Method)
	}
	return out
}

// Last returns the most recent call.
func (s *Server) Last(t *testing.T) Call {
	t.Helper()
	calls := s.Calls()
	require.NotEmpty(t, calls, "no Bot API calls captured")
	return calls[len(calls)-1]
}

// Reset forgets captured calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Text builds a private-chat text message update from userID.
func Text(userID int64, text string) tele.Update {
	return tele.Update{Message: &tele.Message{
		ID:     1,
		Sender: &tele.User{ID: userID, FirstName: "Test"},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

// Callback builds a button press update carrying data from userID.
func Callback(userID int64, data string) tele.Update {
	return tele.Update{Callback: &tele.Callback{
		ID:     "cb1",
		Sender: &tele.User{ID: userID, FirstName: "Test"},
		Data:   data,
		Message: &tele.Message{
			ID:   1,
			Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	}}
}
