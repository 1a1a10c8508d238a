// Package tui is the terminal surface: login and signup forms, the task
// dashboard, and the chat assistant, switched through the route guard.
package tui

import (
	"context"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/chat"
	"taskflow/internal/guard"
	"taskflow/internal/session"
	"taskflow/internal/tasks"
)

// Deps wires the controllers into the TUI.
type Deps struct {
	Config   app.Config
	Logger   *app.Logger
	Session  *session.Store
	Flow     *session.Flow
	Tasks    *tasks.Controller
	Notifier *tasks.Notifier
	Chat     *chat.Controller
}

// NavigateMsg asks the app to route to a path. The session store's
// Redirect callback feeds these in from outside the update loop.
type NavigateMsg struct {
	Path string
}

type App struct {
	deps  Deps
	route string

	width  int
	height int

	// screenCtx is cancelled on navigation so in-flight requests cannot
	// update a screen that is no longer rendered.
	screenCtx    context.Context
	screenCancel context.CancelFunc

	login  loginModel
	dash   dashModel
	chatUI chatModel
}

func New(deps Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		deps:         deps,
		width:        80,
		height:       24,
		screenCtx:    ctx,
		screenCancel: cancel,
	}
}

func (a *App) Init() tea.Cmd {
	return a.navigate("/home")
}

// navigate runs the route guard and swaps the active screen.
func (a *App) navigate(path string) tea.Cmd {
	decision := guard.Resolve(path, a.deps.Session.HasCookie())
	returnTo := ""
	if decision.Action == guard.ActionRedirect {
		u, err := url.Parse(decision.Location)
		if err == nil {
			path = u.Path
			returnTo = u.Query().Get("from")
		} else {
			path = decision.Location
		}
	}

	a.screenCancel()
	a.screenCtx, a.screenCancel = context.WithCancel(context.Background())
	a.route = path

	switch path {
	case "/login":
		a.deps.Tasks.Reset()
		a.login = newLoginModel(modeLogin, returnTo)
		return a.login.Init()
	case "/signup":
		a.login = newLoginModel(modeSignup, returnTo)
		return a.login.Init()
	case "/chat":
		a.chatUI = newChatModel(a.width, a.height)
		return tea.Batch(a.chatUI.Init(), a.initChatCmd())
	default:
		// /home, /dashboard and friends all render the dashboard.
		a.dash = newDashModel(a.width)
		return tea.Batch(
			a.dash.Init(),
			a.refreshTasksCmd(),
			a.initChatCmd(),
			a.pollNotificationsCmd(),
		)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.dash.setWidth(msg.Width)
		a.chatUI.setSize(msg.Width, msg.Height)
		return a, nil

	case NavigateMsg:
		return a, a.navigate(msg.Path)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	}

	switch a.route {
	case "/login", "/signup":
		return a.updateLogin(msg)
	case "/chat":
		return a.updateChat(msg)
	default:
		return a.updateDash(msg)
	}
}

func (a *App) View() string {
	switch a.route {
	case "/login", "/signup":
		return a.login.View()
	case "/chat":
		return a.viewChat()
	default:
		return a.viewDash()
	}
}

// Commands shared by screens.

type tasksRefreshedMsg struct{ err error }

func (a *App) refreshTasksCmd() tea.Cmd {
	ctx := a.screenCtx
	return func() tea.Msg {
		return tasksRefreshedMsg{err: a.deps.Tasks.Refresh(ctx)}
	}
}

type chatReadyMsg struct{ err error }

func (a *App) initChatCmd() tea.Cmd {
	ctx := a.screenCtx
	return func() tea.Msg {
		return chatReadyMsg{err: a.deps.Chat.Init(ctx)}
	}
}

type notificationsMsg struct {
	fresh []api.Task
	err   error
}

func (a *App) pollNotificationsCmd() tea.Cmd {
	ctx := a.screenCtx
	return func() tea.Msg {
		fresh, err := a.deps.Notifier.Poll(ctx)
		return notificationsMsg{fresh: fresh, err: err}
	}
}
