package api

import "time"

type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// AuthResponse is the shape returned by the login and register endpoints.
// A response without a user is treated as a failure regardless of status.
type AuthResponse struct {
	User    *User  `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

type Recurrence struct {
	Type     string     `json:"type"`
	Interval int        `json:"interval"`
	EndDate  *time.Time `json:"end_date,omitempty"`
}

type Task struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Priority       string      `json:"priority"`
	Tags           []string    `json:"tags"`
	DueDate        *time.Time  `json:"due_date"`
	Recurrence     *Recurrence `json:"recurrence_pattern,omitempty"`
	Completed      bool        `json:"completed"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	UserID         string      `json:"user_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	NextOccurrence *time.Time  `json:"next_occurrence,omitempty"`
}

// CreateTaskRequest always serializes the tags and due_date keys; the
// backend schema requires both even when empty.
type CreateTaskRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Priority    string      `json:"priority"`
	Tags        []string    `json:"tags"`
	DueDate     *time.Time  `json:"due_date"`
	Recurrence  *Recurrence `json:"recurrence_pattern,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateConversationResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message"`
}
