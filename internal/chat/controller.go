// Package chat drives the AI assistant conversation: lifecycle, transcript,
// and the persisted pointer that lets a conversation survive restarts.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/events"
	"taskflow/internal/session"
	"taskflow/internal/store"
)

type State int

const (
	StateUninitialized State = iota
	StateRestoring
	StateCreating
	StateActive
	StateClosed
)

const (
	defaultTitle    = "New Conversation"
	maxTitleRunes   = 30
	tempIDPrefix    = "temp-"
	errorReply      = "Sorry, I encountered an error. Please try again."
	defaultResyncIn = 100 * time.Millisecond
)

type ChatMessage struct {
	ID        string
	Role      string // user|assistant
	Content   string
	Timestamp time.Time
}

// activePointer is the persisted record that survives restarts.
type activePointer struct {
	ConversationID string `json:"conversationId"`
	IsActive       bool   `json:"isActive"`
	Timestamp      int64  `json:"timestamp"`
}

type Controller struct {
	client  *api.Client
	session *session.Store
	kv      *store.Store
	logger  *app.Logger
	bus     *events.Bus

	now func() time.Time
	// ResyncDelay spaces the reconciliation fetch after a delete.
	ResyncDelay time.Duration

	mu            sync.Mutex
	initialized   bool
	state         State
	convID        string
	messages      []ChatMessage
	conversations []api.Conversation
}

func NewController(client *api.Client, sess *session.Store, kv *store.Store, bus *events.Bus, logger *app.Logger) *Controller {
	return &Controller{
		client:      client,
		session:     sess,
		kv:          kv,
		logger:      logger,
		bus:         bus,
		now:         time.Now,
		ResyncDelay: defaultResyncIn,
	}
}

// Init restores the persisted active conversation or creates a new one.
// It runs at most once; re-invocation is a no-op, so two racing mounts
// produce a single backend create.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.initialized = true
	c.mu.Unlock()

	var pointer activePointer
	found, err := c.kv.GetJSON(store.KeyActiveConversation, &pointer)
	if err != nil {
		c.logger.Error("discarding unreadable conversation pointer", map[string]interface{}{"error": err.Error()})
		_ = c.kv.Delete(store.KeyActiveConversation)
		found = false
	}

	if found && pointer.IsActive && pointer.ConversationID != "" {
		return c.restore(ctx, pointer.ConversationID)
	}
	return c.create(ctx)
}

func (c *Controller) restore(ctx context.Context, id string) error {
	c.setState(StateRestoring)
	c.mu.Lock()
	c.convID = id
	c.mu.Unlock()

	if !c.requireToken() {
		return nil
	}
	msgs, err := c.client.ConversationMessages(ctx, id)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
		// Transcript stays empty; the conversation itself is still usable.
		c.logger.Error("failed to restore conversation", map[string]interface{}{"error": err.Error(), "conversation_id": id})
		c.setState(StateActive)
		return err
	}

	c.mu.Lock()
	c.messages = transform(msgs)
	c.state = StateActive
	c.mu.Unlock()

	return c.LoadConversations(ctx)
}

func (c *Controller) create(ctx context.Context) error {
	if !c.requireToken() {
		return nil
	}
	c.setState(StateCreating)

	resp, err := c.client.CreateConversation(ctx, defaultTitle)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
	}
	if err != nil || !resp.Success || resp.ConversationID == "" {
		// Keep the UI usable under a synthetic local id; messages sent
		// there cannot be persisted or resumed.
		if err == nil {
			err = fmt.Errorf("create conversation refused: %s", resp.Message)
		}
		c.logger.Error("failed to create conversation, using local id", map[string]interface{}{"error": err.Error()})
		c.mu.Lock()
		c.convID = fmt.Sprintf("%s%d", tempIDPrefix, c.now().UnixMilli())
		c.state = StateActive
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.convID = resp.ConversationID
	c.state = StateActive
	c.mu.Unlock()
	c.persistPointer(true)

	return c.LoadConversations(ctx)
}

// Send appends the user message immediately, then the assistant's reply
// once the backend answers. The first user message of a conversation also
// titles it, locally only: the backend has no rename endpoint.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	c.mu.Lock()
	if text == "" || c.convID == "" {
		c.mu.Unlock()
		return nil
	}
	convID := c.convID
	first := len(c.messages) == 0
	c.messages = append(c.messages, ChatMessage{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   text,
		Timestamp: c.now(),
	})
	c.mu.Unlock()

	if !c.requireToken() {
		return nil
	}

	resp, err := c.client.SendMessage(ctx, convID, text)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
	}
	if err != nil || !resp.Success {
		if err == nil {
			err = fmt.Errorf("message refused: %s", resp.Message)
		}
		c.logger.Error("failed to send message", map[string]interface{}{"error": err.Error(), "conversation_id": convID})
		c.appendAssistant(errorReply)
		return nil
	}

	c.appendAssistant(resp.Response)

	if first {
		c.retitleLocally(convID, DeriveTitle(text))
	}

	// Best-effort detection of a task mutation in the reply; a structured
	// backend signal would replace this match.
	reply := strings.ToLower(resp.Response)
	if strings.Contains(reply, "added") && strings.Contains(reply, "task") {
		c.bus.Publish(events.TopicTaskAdded)
	}

	c.persistPointer(true)
	_ = c.kv.SetJSON(store.KeyChatOpen, true)
	return nil
}

// LoadConversations refreshes the local conversation list.
func (c *Controller) LoadConversations(ctx context.Context) error {
	if !c.requireToken() {
		return nil
	}
	list, err := c.client.Conversations(ctx)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
		c.logger.Error("failed to load conversations", map[string]interface{}{"error": err.Error()})
		return err
	}
	c.mu.Lock()
	c.conversations = list
	c.mu.Unlock()
	return nil
}

// Load switches the transcript to another conversation from the history.
func (c *Controller) Load(ctx context.Context, id string) error {
	if !c.requireToken() {
		return nil
	}
	msgs, err := c.client.ConversationMessages(ctx, id)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
		c.logger.Error("failed to load conversation", map[string]interface{}{"error": err.Error(), "conversation_id": id})
		return err
	}
	c.mu.Lock()
	c.convID = id
	c.messages = transform(msgs)
	c.state = StateActive
	c.mu.Unlock()
	c.persistPointer(true)
	return nil
}

// DeleteConversation removes the conversation locally right away and
// reconciles with the backend after a short delay, delete outcome aside.
func (c *Controller) DeleteConversation(ctx context.Context, id string) error {
	if !c.requireToken() {
		return nil
	}

	err := c.client.DeleteConversation(ctx, id)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
		c.logger.Error("failed to delete conversation", map[string]interface{}{"error": err.Error(), "conversation_id": id})
	}

	c.mu.Lock()
	kept := c.conversations[:0]
	for _, conv := range c.conversations {
		if conv.ID != id {
			kept = append(kept, conv)
		}
	}
	c.conversations = kept
	wasActive := c.convID == id
	if wasActive {
		c.convID = ""
		c.messages = nil
	}
	c.mu.Unlock()

	if wasActive {
		_ = c.kv.Delete(store.KeyActiveConversation)
	}

	time.AfterFunc(c.ResyncDelay, func() {
		_ = c.LoadConversations(context.Background())
	})
	return err
}

// Close keeps the conversation but marks it inactive so reopening the
// widget restores it.
func (c *Controller) Close() {
	c.persistPointer(false)
	_ = c.kv.SetJSON(store.KeyChatOpen, false)
	c.setState(StateClosed)
}

func (c *Controller) Open() {
	c.mu.Lock()
	hasConv := c.convID != ""
	c.mu.Unlock()
	if hasConv {
		c.persistPointer(true)
		c.setState(StateActive)
	}
	_ = c.kv.SetJSON(store.KeyChatOpen, true)
}

func (c *Controller) requireToken() bool {
	if c.session.Token() == "" {
		if c.session.Redirect != nil {
			c.session.Redirect("/login")
		}
		return false
	}
	return true
}

func (c *Controller) persistPointer(active bool) {
	c.mu.Lock()
	id := c.convID
	c.mu.Unlock()
	if id == "" || strings.HasPrefix(id, tempIDPrefix) {
		return
	}
	_ = c.kv.SetJSON(store.KeyActiveConversation, activePointer{
		ConversationID: id,
		IsActive:       active,
		Timestamp:      c.now().UnixMilli(),
	})
}

func (c *Controller) appendAssistant(content string) {
	c.mu.Lock()
	c.messages = append(c.messages, ChatMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Content:   content,
		Timestamp: c.now(),
	})
	c.mu.Unlock()
}

func (c *Controller) retitleLocally(id, title string) {
	c.mu.Lock()
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			c.conversations[i].Title = title
			break
		}
	}
	c.mu.Unlock()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convID
}

// IsTemporary reports whether the active conversation is local-only.
func (c *Controller) IsTemporary() bool {
	return strings.HasPrefix(c.ConversationID(), tempIDPrefix)
}

func (c *Controller) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) Conversations() []api.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// DeriveTitle shortens the first user message into a conversation title:
// at most 30 characters plus an ellipsis, first letter upper-cased.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > maxTitleRunes {
		text = string(runes[:maxTitleRunes]) + "..."
	}
	if text == "" {
		return defaultTitle
	}
	runes = []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func transform(msgs []api.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		ts := m.CreatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		out = append(out, ChatMessage{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: ts,
		})
	}
	return out
}
