package api

import "context"

type createConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	MessageContent string `json:"message_content"`
}

func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.do(ctx, "GET", "/api/chat/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*CreateConversationResponse, error) {
	var out CreateConversationResponse
	if err := c.do(ctx, "POST", "/api/conversations", createConversationRequest{Title: title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConversationMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	if err := c.do(ctx, "GET", "/api/chat/conversations/"+conversationID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*SendMessageResponse, error) {
	var out SendMessageResponse
	if err := c.do(ctx, "POST", "/api/chat/conversations/"+conversationID+"/messages", sendMessageRequest{MessageContent: content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, "DELETE", "/api/chat/conversations/"+conversationID, nil, nil)
}
