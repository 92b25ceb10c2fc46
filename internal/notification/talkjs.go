package notification

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TalkJSChannel posts messages into one-on-one TalkJS conversations through the REST API.
type TalkJSChannel struct {
	baseURL   string
	appID     string
	secretKey string
	client    *http.Client
	logger    *zap.Logger
}

// NewTalkJSChannel creates a channel. A nil client gets a 10s timeout default.
func NewTalkJSChannel(baseURL, appID, secretKey string, client *http.Client, logger *zap.Logger) *TalkJSChannel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TalkJSChannel{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		secretKey: secretKey,
		client:    client,
		logger:    logger.Named("talkjs"),
	}
}

func (t *TalkJSChannel) Name() string { return "talkjs" }

// OneOnOneID matches the conversation id the TalkJS browser SDK derives for two users:
// the first 20 hex chars of sha1 over the JSON array of the sorted ids.
func OneOnOneID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	raw, _ := json.Marshal(ids)
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])[:20]
}

type talkUser struct {
	Name     string   `json:"name"`
	Email    []string `json:"email,omitempty"`
	PhotoURL string   `json:"photoUrl,omitempty"`
	Role     string   `json:"role"`
}

type talkConversation struct {
	Participants []string `json:"participants"`
}

type talkMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
	Type   string `json:"type"`
}

// SendMessage upserts both users and the conversation, then posts text as from.
func (t *TalkJSChannel) SendMessage(ctx context.Context, from, to ChannelUser, text string) error {
	for _, u := range []ChannelUser{from, to} {
		if err := t.upsertUser(ctx, u); err != nil {
			return err
		}
	}

	convID := OneOnOneID(from.ID.String(), to.ID.String())
	conv := talkConversation{Participants: []string{from.ID.String(), to.ID.String()}}
	if err := t.do(ctx, http.MethodPut, "conversations/"+url.PathEscape(convID), conv); err != nil {
		return fmt.Errorf("talkjs conversation %s: %w", convID, err)
	}

	msg := []talkMessage{{Text: text, Sender: from.ID.String(), Type: "UserMessage"}}
	if err := t.do(ctx, http.MethodPost, "conversations/"+url.PathEscape(convID)+"/messages", msg); err != nil {
		return fmt.Errorf("talkjs message to %s: %w", convID, err)
	}
	t.logger.Debug("Message sent", zap.String("conversationID", convID))
	return nil
}

func (t *TalkJSChannel) upsertUser(ctx context.Context, u ChannelUser) error {
	body := talkUser{Name: u.Username, PhotoURL: u.PhotoURL, Role: "default"}
	if body.Name == "" {
		body.Name = u.Email
	}
	if u.Email != "" {
		body.Email = []string{u.Email}
	}
	if err := t.do(ctx, http.MethodPut, "users/"+url.PathEscape(u.ID.String()), body); err != nil {
		return fmt.Errorf("talkjs user %s: %w", u.ID, err)
	}
	return nil
}

func (t *TalkJSChannel) do(ctx context.Context, method, path string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/v1/%s/%s", t.baseURL, url.PathEscape(t.appID), path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.secretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
