package state

import (
	"context"
	"fmt"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = ""
)

// Key addresses the FSM record of one user in one chat of one bot.
type Key struct {
	BotID  int64
	ChatID int64
	UserID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%d", k.BotID, k.ChatID, k.UserID)
}

// Storage persists conversation state and data.
// Setting StateIdle removes the state; setting empty data removes the data.
type Storage interface {
	SetState(ctx context.Context, key Key, st State) error
	GetState(ctx context.Context, key Key) (State, error)
	SetData(ctx context.Context, key Key, data map[string]any) error
	GetData(ctx context.Context, key Key) (map[string]any, error)
	Close() error
}
