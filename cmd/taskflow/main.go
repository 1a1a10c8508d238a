package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/chat"
	"taskflow/internal/events"
	"taskflow/internal/session"
	"taskflow/internal/store"
	"taskflow/internal/tasks"
	"taskflow/internal/tui"
)

const version = "1.0.0"

// deps is everything a command needs, wired once per invocation.
type deps struct {
	cfg      app.Config
	logger   *app.Logger
	kv       *store.Store
	session  *session.Store
	flow     *session.Flow
	client   *api.Client
	tasks    *tasks.Controller
	notifier *tasks.Notifier
	chat     *chat.Controller
}

func build() (*deps, error) {
	cfg, err := app.LoadConfig("")
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(os.Stderr, cfg.Debug)

	kv := store.New(cfg.StateDir)
	cookies := store.NewCookieFile(cfg.StateDir)
	client := api.NewClient(cfg.APIBaseURL, session.TokenReader(kv), logger)
	sess := session.NewStore(kv, cookies, logger)
	flow := session.NewFlow(client, sess, logger)

	bus := events.NewBus()
	taskCtl := tasks.NewController(client, sess, logger)
	taskCtl.WatchBus(context.Background(), bus)
	notifier := tasks.NewNotifier(client, sess, logger)
	chatCtl := chat.NewController(client, sess, kv, bus, logger)

	return &deps{
		cfg:      cfg,
		logger:   logger,
		kv:       kv,
		session:  sess,
		flow:     flow,
		client:   client,
		tasks:    taskCtl,
		notifier: notifier,
		chat:     chatCtl,
	}, nil
}

func main() {
	root := &cobra.Command{
		Use:     "taskflow",
		Short:   "TaskFlow - tasks and an AI assistant in your terminal",
		Long:    "TaskFlow is a terminal client for the TaskFlow backend.\n\nRun without arguments for the interactive dashboard, or use the subcommands for one-shot operations.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			// Best effort: a transport failure leaves the session
			// unknown and the TUI starts at the login screen anyway.
			_ = d.session.Hydrate(cmd.Context(), d.client)

			model := tui.New(tui.Deps{
				Config:   d.cfg,
				Logger:   d.logger,
				Session:  d.session,
				Flow:     d.flow,
				Tasks:    d.tasks,
				Notifier: d.notifier,
				Chat:     d.chat,
			})
			p := tea.NewProgram(model, tea.WithAltScreen())
			d.session.Redirect = func(path string) {
				p.Send(tui.NavigateMsg{Path: path})
			}
			_, err = p.Run()
			return err
		},
	}

	root.AddCommand(loginCmd(), signupCmd(), logoutCmd(), whoamiCmd(), tasksCmd(), chatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// requireSession hydrates and fails the command when no valid session
// exists. CLI commands have no screen to redirect to.
func requireSession(ctx context.Context, d *deps) error {
	d.session.Redirect = func(string) {}
	if err := d.session.Hydrate(ctx, d.client); err != nil {
		return fmt.Errorf("could not verify session: %w", err)
	}
	if d.session.Token() == "" {
		return fmt.Errorf("not logged in; run 'taskflow login' first")
	}
	return nil
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the TaskFlow backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			d.session.Redirect = func(string) {}
			if password == "" {
				password = os.Getenv("TASKFLOW_PASSWORD")
			}
			res := d.flow.Login(cmd.Context(), email, password)
			if !res.OK {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Printf("Logged in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or TASKFLOW_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func signupCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a TaskFlow account",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			d.session.Redirect = func(string) {}
			if password == "" {
				password = os.Getenv("TASKFLOW_PASSWORD")
			}
			res := d.flow.Signup(cmd.Context(), email, password, name)
			if !res.OK {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Printf("Account created; logged in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or TASKFLOW_PASSWORD)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			d.session.Redirect = func(string) {}
			d.flow.Logout()
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			user := d.session.User()
			if user == nil {
				return fmt.Errorf("not logged in")
			}
			if user.Name != "" {
				fmt.Printf("%s <%s>\n", user.Name, user.Email)
			} else {
				fmt.Println(user.Email)
			}
			return nil
		},
	}
}

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with tasks",
	}

	var search, sortBy string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			if err := d.tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			view := d.tasks.View(search, tasks.SortOption(sortBy))
			for i, t := range view {
				printTask(i+1, t)
			}
			if len(view) == 0 {
				fmt.Println("No tasks.")
			}
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "filter by title or tag")
	list.Flags().StringVar(&sortBy, "sort", "default", "default|title|due_date")
	cmd.AddCommand(list)

	var priority, tags, due, description string
	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			draft := tasks.Draft{
				Title:       args[0],
				Description: description,
				Priority:    priority,
				Tags:        tags,
			}
			if due != "" {
				t, err := time.ParseInLocation("2006-01-02 15:04", due, time.Local)
				if err != nil {
					return fmt.Errorf("due date must look like 2006-01-02 15:04")
				}
				draft.DueDate = &t
			}
			created, err := d.tasks.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Printf("Created %q (%s)\n", created.Title, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&priority, "priority", "medium", "low|medium|high")
	add.Flags().StringVar(&tags, "tags", "", "comma separated tags")
	add.Flags().StringVar(&due, "due", "", "due date, 2006-01-02 15:04")
	add.Flags().StringVar(&description, "description", "", "longer description")
	cmd.AddCommand(add)

	done := &cobra.Command{
		Use:   "done [id|index]",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			id, err := d.tasks.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("no task matches %q", args[0])
			}
			updated, err := d.tasks.ToggleComplete(cmd.Context(), id)
			if err != nil {
				return err
			}
			state := "open"
			if updated.Completed {
				state = "done"
			}
			fmt.Printf("%q is now %s\n", updated.Title, state)
			return nil
		},
	}
	cmd.AddCommand(done)

	var editTitle, editPriority, editTags, editDue string
	var markDone, markOpen bool
	edit := &cobra.Command{
		Use:   "edit [id|index]",
		Short: "Update fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			id, err := d.tasks.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("no task matches %q", args[0])
			}

			var req api.UpdateTaskRequest
			if cmd.Flags().Changed("title") {
				req.Title = &editTitle
			}
			if cmd.Flags().Changed("priority") {
				p := strings.ToLower(strings.TrimSpace(editPriority))
				req.Priority = &p
			}
			if cmd.Flags().Changed("tags") {
				req.Tags = splitTags(editTags)
			}
			if cmd.Flags().Changed("due") {
				t, err := time.ParseInLocation("2006-01-02 15:04", editDue, time.Local)
				if err != nil {
					return fmt.Errorf("due date must look like 2006-01-02 15:04")
				}
				req.DueDate = &t
			}
			if markDone {
				v := true
				req.Completed = &v
			}
			if markOpen {
				v := false
				req.Completed = &v
			}

			updated, err := d.tasks.Update(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			fmt.Printf("Updated %q\n", updated.Title)
			return nil
		},
	}
	edit.Flags().StringVar(&editTitle, "title", "", "new title")
	edit.Flags().StringVar(&editPriority, "priority", "", "low|medium|high")
	edit.Flags().StringVar(&editTags, "tags", "", "comma separated tags")
	edit.Flags().StringVar(&editDue, "due", "", "due date, 2006-01-02 15:04")
	edit.Flags().BoolVar(&markDone, "done", false, "mark completed")
	edit.Flags().BoolVar(&markOpen, "open", false, "mark not completed")
	cmd.AddCommand(edit)

	show := &cobra.Command{
		Use:   "show [id|index]",
		Short: "Show one task in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			id, err := d.tasks.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("no task matches %q", args[0])
			}
			task, err := d.client.TaskByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n  id: %s\n  priority: %s\n  completed: %v\n", task.Title, task.ID, task.Priority, task.Completed)
			if task.Description != "" {
				fmt.Printf("  description: %s\n", task.Description)
			}
			if task.DueDate != nil {
				fmt.Printf("  due: %s\n", task.DueDate.Local().Format("2006-01-02 15:04"))
			}
			if len(task.Tags) > 0 {
				fmt.Printf("  tags: %s\n", strings.Join(task.Tags, ", "))
			}
			return nil
		},
	}
	cmd.AddCommand(show)

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search tasks server-side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			found, err := d.client.SearchTasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for i, t := range found {
				printTask(i+1, t)
			}
			if len(found) == 0 {
				fmt.Println("No matches.")
			}
			return nil
		},
	}
	cmd.AddCommand(searchCmd)

	rm := &cobra.Command{
		Use:   "rm [id|index]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			id, err := d.tasks.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("no task matches %q", args[0])
			}
			if err := d.tasks.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		},
	}
	cmd.AddCommand(rm)

	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message to the AI assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			if err := d.chat.Init(cmd.Context()); err != nil {
				return err
			}
			if err := d.chat.Send(cmd.Context(), args[0]); err != nil {
				return err
			}
			messages := d.chat.Messages()
			if len(messages) > 0 {
				last := messages[len(messages)-1]
				if last.Role == "assistant" {
					fmt.Println(last.Content)
				}
			}
			return nil
		},
	}
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func printTask(index int, t api.Task) {
	check := " "
	if t.Completed {
		check = "x"
	}
	line := fmt.Sprintf("%3d. [%s] %s (%s)", index, check, t.Title, t.Priority)
	if t.DueDate != nil {
		line += " due " + t.DueDate.Local().Format("2006-01-02 15:04")
	}
	if len(t.Tags) > 0 {
		line += " #" + strings.Join(t.Tags, " #")
	}
	fmt.Println(line)
}
