package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskflow/internal/session"
)

type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

type loginModel struct {
	mode     authMode
	inputs   []textinput.Model
	focused  int
	busy     bool
	errLine  string
	returnTo string
}

const (
	fieldEmail = iota
	fieldPassword
	fieldName // signup only
)

func newLoginModel(mode authMode, returnTo string) loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 120
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 120

	inputs := []textinput.Model{email, password}
	if mode == modeSignup {
		name := textinput.New()
		name.Placeholder = "name"
		name.CharLimit = 120
		inputs = append(inputs, name)
	}

	return loginModel{mode: mode, inputs: inputs, returnTo: returnTo}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

type authDoneMsg struct {
	result   session.Result
	returnTo string
}

func (a *App) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	m := &a.login

	switch msg := msg.(type) {
	case authDoneMsg:
		m.busy = false
		if msg.result.OK {
			// session.Set already issued the /home redirect; honor the
			// saved path when one was captured by the guard.
			if msg.returnTo != "" {
				return a, a.navigate(msg.returnTo)
			}
			return a, nil
		}
		m.errLine = msg.result.Message
		return a, nil

	case tea.KeyMsg:
		if m.busy {
			return a, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.setFocus((m.focused + 1) % len(m.inputs))
			return a, nil
		case "shift+tab", "up":
			m.setFocus((m.focused - 1 + len(m.inputs)) % len(m.inputs))
			return a, nil
		case "ctrl+s":
			if m.mode == modeLogin {
				return a, a.navigate("/signup")
			}
			return a, a.navigate("/login")
		case "enter":
			if m.focused < len(m.inputs)-1 {
				m.setFocus(m.focused + 1)
				return a, nil
			}
			return a, a.submitAuth()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return a, cmd
}

func (m *loginModel) setFocus(i int) {
	m.inputs[m.focused].Blur()
	m.focused = i
	m.inputs[i].Focus()
}

func (a *App) submitAuth() tea.Cmd {
	m := &a.login
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()
	if email == "" || password == "" {
		m.errLine = "Email and password are required."
		return nil
	}

	m.busy = true
	m.errLine = ""
	ctx := a.screenCtx
	returnTo := m.returnTo

	if m.mode == modeSignup {
		name := strings.TrimSpace(m.inputs[fieldName].Value())
		return func() tea.Msg {
			return authDoneMsg{result: a.deps.Flow.Signup(ctx, email, password, name), returnTo: returnTo}
		}
	}
	return func() tea.Msg {
		return authDoneMsg{result: a.deps.Flow.Login(ctx, email, password), returnTo: returnTo}
	}
}

func (m loginModel) View() string {
	var b strings.Builder

	heading := "Sign in to TaskFlow"
	hint := "enter: submit  tab: next field  ctrl+s: create an account  ctrl+c: quit"
	if m.mode == modeSignup {
		heading = "Create your TaskFlow account"
		hint = "enter: submit  tab: next field  ctrl+s: back to sign in  ctrl+c: quit"
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")

	labels := []string{"Email", "Password", "Name"}
	for i, input := range m.inputs {
		b.WriteString(mutedStyle.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	if m.busy {
		b.WriteString(mutedStyle.Render("Working..."))
		b.WriteString("\n")
	}
	if m.errLine != "" {
		b.WriteString(errStyle.Render(m.errLine))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(hint))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
