package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskflow/internal/api"
	"taskflow/internal/tasks"
)

type dashFocus int

const (
	focusList dashFocus = iota
	focusSearch
	focusForm
)

const (
	formTitle = iota
	formPriority
	formTags
	formDue
	formFields
)

type dashModel struct {
	width   int
	focus   dashFocus
	cursor  int
	sort    tasks.SortOption
	search  textinput.Model
	form    [formFields]textinput.Model
	formAt  int
	spin    spinner.Model
	loading bool
	status  string
	showDue bool
	due     []api.Task
}

func newDashModel(width int) dashModel {
	search := textinput.New()
	search.Placeholder = "search tasks..."
	search.CharLimit = 120

	var form [formFields]textinput.Model
	placeholders := [formFields]string{
		"task title",
		"priority (low/medium/high)",
		"tags (comma separated)",
		"due (2006-01-02 15:04, optional)",
	}
	for i := range form {
		form[i] = textinput.New()
		form[i].Placeholder = placeholders[i]
		form[i].CharLimit = 200
	}
	form[formPriority].SetValue("medium")

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return dashModel{
		width:   width,
		sort:    tasks.SortDefault,
		search:  search,
		form:    form,
		spin:    spin,
		loading: true,
	}
}

func (m dashModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *dashModel) setWidth(w int) {
	m.width = w
}

type taskActedMsg struct{ err error }

type duePollTickMsg struct{}

func (a *App) updateDash(msg tea.Msg) (tea.Model, tea.Cmd) {
	m := &a.dash

	switch msg := msg.(type) {
	case tasksRefreshedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Could not load tasks. Check the backend and try r to retry."
		} else {
			m.status = ""
			m.clampCursor()
		}
		return a, nil

	case chatReadyMsg:
		if msg.err != nil {
			a.deps.Logger.Debug("chat init failed", map[string]interface{}{"error": msg.err.Error()})
		}
		return a, nil

	case notificationsMsg:
		m.due = a.deps.Notifier.Current()
		return a, tea.Tick(a.deps.Notifier.Interval, func(time.Time) tea.Msg {
			return duePollTickMsg{}
		})

	case duePollTickMsg:
		return a, a.pollNotificationsCmd()

	case taskActedMsg:
		if msg.err != nil {
			m.status = "Last action failed; the list may be out of date."
		} else {
			m.status = ""
			if m.focus == focusForm {
				for i := range m.form {
					m.form[i].SetValue("")
					m.form[i].Blur()
				}
				m.form[formPriority].SetValue("medium")
				m.focus = focusList
			}
			m.clampCursor()
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.loading {
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		return a.dashKeys(msg)
	}

	return a, nil
}

func (a *App) dashKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := &a.dash

	switch m.focus {
	case focusSearch:
		switch msg.String() {
		case "esc", "enter":
			m.focus = focusList
			m.search.Blur()
			m.clampCursor()
			return a, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.clampCursor()
		return a, cmd

	case focusForm:
		switch msg.String() {
		case "esc":
			m.focus = focusList
			m.form[m.formAt].Blur()
			return a, nil
		case "tab", "down":
			m.formFocus((m.formAt + 1) % formFields)
			return a, nil
		case "shift+tab", "up":
			m.formFocus((m.formAt - 1 + formFields) % formFields)
			return a, nil
		case "enter":
			if m.formAt < formFields-1 {
				m.formFocus(m.formAt + 1)
				return a, nil
			}
			return a, a.submitTaskForm()
		}
		var cmd tea.Cmd
		m.form[m.formAt], cmd = m.form[m.formAt].Update(msg)
		return a, cmd
	}

	view := a.deps.Tasks.View(m.search.Value(), m.sort)

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return a, nil
	case "down", "j":
		if m.cursor < len(view)-1 {
			m.cursor++
		}
		return a, nil
	case "/":
		m.focus = focusSearch
		m.search.Focus()
		return a, textinput.Blink
	case "n":
		m.focus = focusForm
		m.formFocus(formTitle)
		return a, textinput.Blink
	case "s":
		switch m.sort {
		case tasks.SortDefault:
			m.sort = tasks.SortTitle
		case tasks.SortTitle:
			m.sort = tasks.SortDueDate
		default:
			m.sort = tasks.SortDefault
		}
		m.clampCursor()
		return a, nil
	case "r":
		m.loading = true
		return a, tea.Batch(a.refreshTasksCmd(), m.spin.Tick)
	case "b":
		m.showDue = !m.showDue
		return a, nil
	case "c":
		return a, a.navigate("/chat")
	case "ctrl+l":
		a.deps.Flow.Logout()
		return a, nil
	case " ":
		if task, ok := at(view, m.cursor); ok {
			ctx := a.screenCtx
			return a, func() tea.Msg {
				_, err := a.deps.Tasks.ToggleComplete(ctx, task.ID)
				return taskActedMsg{err: err}
			}
		}
	case "d":
		if task, ok := at(view, m.cursor); ok {
			ctx := a.screenCtx
			return a, func() tea.Msg {
				return taskActedMsg{err: a.deps.Tasks.Delete(ctx, task.ID)}
			}
		}
	}
	return a, nil
}

func (m *dashModel) formFocus(i int) {
	m.form[m.formAt].Blur()
	m.formAt = i
	m.form[i].Focus()
}

func (m *dashModel) clampCursor() {
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (a *App) submitTaskForm() tea.Cmd {
	m := &a.dash
	draft := tasks.Draft{
		Title:    m.form[formTitle].Value(),
		Priority: m.form[formPriority].Value(),
		Tags:     m.form[formTags].Value(),
	}
	if strings.TrimSpace(draft.Title) == "" {
		m.status = "A task needs a title."
		return nil
	}
	if raw := strings.TrimSpace(m.form[formDue].Value()); raw != "" {
		due, err := parseDue(raw)
		if err != nil {
			m.status = "Due date not understood; use 2006-01-02 15:04."
			return nil
		}
		draft.DueDate = &due
	}

	ctx := a.screenCtx
	return func() tea.Msg {
		_, err := a.deps.Tasks.Create(ctx, draft)
		return taskActedMsg{err: err}
	}
}

func parseDue(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized due date %q", raw)
}

func at(list []api.Task, i int) (api.Task, bool) {
	if i < 0 || i >= len(list) {
		return api.Task{}, false
	}
	return list[i], true
}

func (a *App) viewDash() string {
	m := &a.dash
	var b strings.Builder

	who := ""
	if u := a.deps.Session.User(); u != nil {
		who = "  " + mutedStyle.Render(u.Email)
	}
	b.WriteString(titleStyle.Render("My Tasks") + who)
	b.WriteString("\n\n")

	b.WriteString(m.search.View())
	b.WriteString("  " + mutedStyle.Render("sort: "+string(m.sort)))
	b.WriteString("\n\n")

	if m.focus == focusForm {
		b.WriteString(titleStyle.Render("New task"))
		b.WriteString("\n")
		for i := range m.form {
			b.WriteString(m.form[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	all := a.deps.Tasks.Tasks()
	view := a.deps.Tasks.View(m.search.Value(), m.sort)

	if m.loading {
		b.WriteString(m.spin.View() + mutedStyle.Render(" loading tasks..."))
		b.WriteString("\n")
	} else if len(all) == 0 {
		b.WriteString(mutedStyle.Render("No tasks yet. Press n to add your first task."))
		b.WriteString("\n")
	} else if len(view) == 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("No tasks match %q.", m.search.Value())))
		b.WriteString("\n")
	} else {
		for i, t := range view {
			b.WriteString(renderTaskRow(t, i == m.cursor && m.focus == focusList))
			b.WriteString("\n")
		}
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d of %d tasks", len(view), len(all))))
		b.WriteString("\n")
	}

	if m.showDue {
		b.WriteString("\n" + titleStyle.Render("Due soon"))
		b.WriteString("\n")
		if len(m.due) == 0 {
			b.WriteString(mutedStyle.Render("Nothing due soon."))
			b.WriteString("\n")
		}
		for _, t := range m.due {
			when := ""
			if t.DueDate != nil {
				when = t.DueDate.Local().Format("Jan 2 15:04")
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", t.Title, mutedStyle.Render(when)))
		}
	}

	if m.status != "" {
		b.WriteString("\n" + errStyle.Render(m.status) + "\n")
	}

	b.WriteString(helpStyle.Render("space: toggle  n: new  d: delete  /: search  s: sort  b: due soon  c: chat  r: refresh  ctrl+l: logout  q: quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func renderTaskRow(t api.Task, selected bool) string {
	check := "[ ]"
	title := t.Title
	if t.Completed {
		check = "[x]"
		title = doneStyle.Render(title)
	}
	row := fmt.Sprintf("%s %s %s", check, title, priorityStyle(t.Priority).Render(t.Priority))
	if t.DueDate != nil {
		row += mutedStyle.Render("  due " + t.DueDate.Local().Format("Jan 2 15:04"))
	}
	if len(t.Tags) > 0 {
		row += mutedStyle.Render("  #" + strings.Join(t.Tags, " #"))
	}
	if selected {
		return selectedStyle.Render("> " + row)
	}
	return "  " + row
}
