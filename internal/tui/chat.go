package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type chatModel struct {
	width      int
	height     int
	input      textarea.Model
	sidebar    bool
	convCursor int
	sending    bool
	spin       spinner.Model
}

func newChatModel(width, height int) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.CharLimit = 4000
	ta.SetWidth(width - 8)
	ta.SetHeight(2)
	ta.Focus()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return chatModel{width: width, height: height, input: ta, spin: spin}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick)
}

func (m *chatModel) setSize(w, h int) {
	m.width = w
	m.height = h
	if w > 8 {
		m.input.SetWidth(w - 8)
	}
}

type chatSentMsg struct{ err error }

type conversationsLoadedMsg struct{ err error }

type conversationSwitchedMsg struct{ err error }

func (a *App) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	m := &a.chatUI

	switch msg := msg.(type) {
	case chatReadyMsg, conversationsLoadedMsg, conversationSwitchedMsg:
		return a, nil

	case chatSentMsg:
		m.sending = false
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.sending {
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.sidebar {
				m.sidebar = false
				return a, nil
			}
			a.deps.Chat.Close()
			return a, a.navigate("/home")

		case "ctrl+h":
			m.sidebar = !m.sidebar
			if m.sidebar {
				ctx := a.screenCtx
				return a, func() tea.Msg {
					return conversationsLoadedMsg{err: a.deps.Chat.LoadConversations(ctx)}
				}
			}
			return a, nil
		}

		if m.sidebar {
			return a.chatSidebarKeys(msg)
		}

		if msg.String() == "enter" && !m.sending {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return a, nil
			}
			m.input.Reset()
			m.sending = true
			ctx := a.screenCtx
			return a, tea.Batch(m.spin.Tick, func() tea.Msg {
				return chatSentMsg{err: a.deps.Chat.Send(ctx, text)}
			})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return a, cmd
}

func (a *App) chatSidebarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := &a.chatUI
	convs := a.deps.Chat.Conversations()

	switch msg.String() {
	case "up", "k":
		if m.convCursor > 0 {
			m.convCursor--
		}
	case "down", "j":
		if m.convCursor < len(convs)-1 {
			m.convCursor++
		}
	case "enter":
		if m.convCursor < len(convs) {
			id := convs[m.convCursor].ID
			m.sidebar = false
			ctx := a.screenCtx
			return a, func() tea.Msg {
				return conversationSwitchedMsg{err: a.deps.Chat.Load(ctx, id)}
			}
		}
	case "d":
		if m.convCursor < len(convs) {
			id := convs[m.convCursor].ID
			ctx := a.screenCtx
			return a, func() tea.Msg {
				return conversationSwitchedMsg{err: a.deps.Chat.DeleteConversation(ctx, id)}
			}
		}
	}
	return a, nil
}

func (a *App) viewChat() string {
	m := &a.chatUI
	var b strings.Builder

	header := titleStyle.Render("TaskFlow AI Assistant")
	if a.deps.Chat.IsTemporary() {
		header += "  " + errStyle.Render("offline conversation, messages will not be saved")
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if m.sidebar {
		b.WriteString(titleStyle.Render("Previous conversations"))
		b.WriteString("\n")
		convs := a.deps.Chat.Conversations()
		if len(convs) == 0 {
			b.WriteString(mutedStyle.Render("No previous conversations"))
			b.WriteString("\n")
		}
		for i, conv := range convs {
			line := fmt.Sprintf("%s %s", conv.Title, mutedStyle.Render(conv.CreatedAt.Local().Format("Jan 2, 2006")))
			if i == m.convCursor {
				line = selectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("enter: open  d: delete  esc: back"))
		return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
	}

	messages := a.deps.Chat.Messages()
	if len(messages) == 0 {
		b.WriteString(mutedStyle.Render("Hello! I'm your TaskFlow AI assistant."))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("How can I help with your tasks today?"))
		b.WriteString("\n")
	}
	wrap := m.width - 12
	for _, msg := range messages {
		stamp := mutedStyle.Render(msg.Timestamp.Local().Format("15:04"))
		if msg.Role == "user" {
			b.WriteString(userBubbleStyle.Render("you "+stamp+"\n"+msg.Content))
		} else {
			b.WriteString(assistantBubbleStyle.Render("assistant " + stamp + "\n" + renderMarkdown(msg.Content, wrap)))
		}
		b.WriteString("\n")
	}
	if m.sending {
		b.WriteString(m.spin.View() + mutedStyle.Render(" thinking..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: send  ctrl+h: history  esc: close chat"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
