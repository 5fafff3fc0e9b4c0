package views

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/models"
	"librarydesk/pkg/validate"
)

const (
	msgLoginFailed         = "Invalid email or password"
	msgRegisterInvalid     = "Validation failed. Please check your input."
	msgRegisterFailed      = "Registration failed. Email might be in use."
	msgSessionNotPersisted = "Signed in, but the session could not be saved."
)

// Auth runs sign-in, registration and sign-out against the shared session.
type Auth struct {
	deps Deps
}

func NewAuth(deps Deps) *Auth {
	return &Auth{deps: deps.withDefaults()}
}

// Login validates the form before any network call. A failed sign-in is
// always reported with the same message.
func (a *Auth) Login(ctx context.Context, email, password string) (models.User, error) {
	form := validate.LoginForm{Email: strings.TrimSpace(email), Password: password}
	if err := validate.Login(form); err != nil {
		return models.User{}, err
	}

	user, err := a.deps.API.Login(ctx, models.LoginRequest{Email: form.Email, Password: password})
	if err != nil {
		return models.User{}, &ActionError{Message: msgLoginFailed, Err: err}
	}
	if err := a.deps.API.Session().Set(user); err != nil {
		return models.User{}, &ActionError{Message: msgSessionNotPersisted, Err: err}
	}
	a.deps.Logger.Printf("signed in as %s (%s)", user.Email, user.Role)
	return user, nil
}

func (a *Auth) Register(ctx context.Context, form validate.RegisterForm) (models.User, error) {
	if err := validate.Register(form); err != nil {
		return models.User{}, err
	}

	user, err := a.deps.API.Register(ctx, form.Request())
	if err != nil {
		fallback := msgRegisterFailed
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			fallback = msgRegisterInvalid
		}
		return models.User{}, actionError(err, fallback)
	}
	if user.Token != "" {
		if err := a.deps.API.Session().Set(user); err != nil {
			return models.User{}, &ActionError{Message: msgSessionNotPersisted, Err: err}
		}
	}
	return user, nil
}

func (a *Auth) Logout() error {
	return a.deps.API.Logout()
}
