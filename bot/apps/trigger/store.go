// Package trigger is the optional keyword auto-reply app. Rules live in one
// Redis hash per chat.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
)

// Limits of a rule.
const (
	MaxKeywordLength = 64
	MaxReplyLength   = 1024
)

// Rule maps a keyword to a canned reply.
type Rule struct {
	Keyword string
	Reply   string
}

// Store keeps the rules of every chat in Redis.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func hashKey(chatID int64) string {
	return "triggers:" + strconv.FormatInt(chatID, 10)
}

// NormalizeKeyword lowercases and trims a keyword.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Set creates or replaces the rule for keyword.
func (s *Store) Set(ctx context.Context, chatID int64, keyword, reply string) error {
	keyword = NormalizeKeyword(keyword)
	reply = strings.TrimSpace(reply)
	switch {
	case keyword == "" || reply == "":
		return errors.New("trigger: keyword and reply are required")
	case utf8.RuneCountInString(keyword) > MaxKeywordLength:
		return fmt.Errorf("trigger: keyword longer than %d characters", MaxKeywordLength)
	case utf8.RuneCountInString(reply) > MaxReplyLength:
		return fmt.Errorf("trigger: reply longer than %d characters", MaxReplyLength)
	}
	if err := s.rdb.HSet(ctx, hashKey(chatID), keyword, reply).Err(); err != nil {
		return fmt.Errorf("trigger: set: %w", err)
	}
	return nil
}

// Delete removes the rule for keyword and reports whether it existed.
func (s *Store) Delete(ctx context.Context, chatID int64, keyword string) (bool, error) {
	n, err := s.rdb.HDel(ctx, hashKey(chatID), NormalizeKeyword(keyword)).Result()
	if err != nil {
		return false, fmt.Errorf("trigger: delete: %w", err)
	}
	return n > 0, nil
}

// List returns the rules of chatID sorted by keyword.
func (s *Store) List(ctx context.Context, chatID int64) ([]Rule, error) {
	all, err := s.rdb.HGetAll(ctx, hashKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("trigger: list: %w", err)
	}
	rules := make([]Rule, 0, len(all))
	for k, v := range all {
		rules = append(rules, Rule{Keyword: k, Reply: v})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Keyword < rules[j].Keyword })
	return rules, nil
}

// Match finds the rule whose keyword occurs in text, ignoring case.
// The longest keyword wins; ties go to the alphabetically first.
func (s *Store) Match(ctx context.Context, chatID int64, text string) (Rule, bool, error) {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return Rule{}, false, nil
	}
	rules, err := s.List(ctx, chatID)
	if err != nil {
		return Rule{}, false, err
	}
	var (
		best  Rule
		found bool
	)
	for _, r := range rules {
		if !strings.Contains(text, r.Keyword) {
			continue
		}
		if !found || len(r.Keyword) > len(best.Keyword) {
			best, found = r, true
		}
	}
	return best, found, nil
}
