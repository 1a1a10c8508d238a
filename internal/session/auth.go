package session

import (
	"context"
	"strings"

	"taskflow/internal/api"
	"taskflow/internal/app"
)

// Result is what the presenting form sees: no error ever escapes Login or
// Signup, only a displayable outcome.
type Result struct {
	OK      bool
	Message string
}

// Flow orchestrates login, signup and logout against the backend and the
// session store.
type Flow struct {
	client *api.Client
	store  *Store
	logger *app.Logger
}

func NewFlow(client *api.Client, store *Store, logger *app.Logger) *Flow {
	return &Flow{client: client, store: store, logger: logger}
}

const genericAuthFailure = "Something went wrong. Please try again."

func (f *Flow) Login(ctx context.Context, email, password string) Result {
	resp, err := f.client.Login(ctx, email, password)
	if err != nil {
		f.logger.Error("login failed", map[string]interface{}{"error": err.Error()})
		return Result{Message: genericAuthFailure}
	}
	if resp.User == nil {
		return Result{Message: "Invalid email or password."}
	}
	if err := f.store.Set(*resp.User, resp.Token); err != nil {
		f.logger.Error("failed to persist session", map[string]interface{}{"error": err.Error()})
		return Result{Message: genericAuthFailure}
	}
	return Result{OK: true}
}

func (f *Flow) Signup(ctx context.Context, email, password, name string) Result {
	resp, err := f.client.Register(ctx, email, password, name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return Result{Message: "This email already exists"}
		}
		f.logger.Error("signup failed", map[string]interface{}{"error": err.Error()})
		return Result{Message: genericAuthFailure}
	}
	if resp.User == nil {
		return Result{Message: genericAuthFailure}
	}
	// Signing up logs the user straight in.
	if err := f.store.Set(*resp.User, resp.Token); err != nil {
		f.logger.Error("failed to persist session", map[string]interface{}{"error": err.Error()})
		return Result{Message: genericAuthFailure}
	}
	return Result{OK: true}
}

// Logout clears local state immediately; the server-side call is
// fire-and-forget since the client no longer needs the credential.
func (f *Flow) Logout() {
	go func() {
		if err := f.client.Logout(context.Background()); err != nil {
			f.logger.Debug("server logout failed", map[string]interface{}{"error": err.Error()})
		}
	}()
	f.store.Clear()
}
