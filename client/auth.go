package client

import "context"

// Authenticator logs in and out, keeping SessionState in step.
type Authenticator struct {
	api     *APIClient
	session *SessionState
}

func NewAuthenticator(api *APIClient, session *SessionState) *Authenticator {
	return &Authenticator{api: api, session: session}
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (Session, error) {
	s, err := a.api.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s, a.session.Establish(ctx, s)
}

func (a *Authenticator) Register(ctx context.Context, email, password string) (Session, error) {
	s, err := a.api.Register(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s, a.session.Establish(ctx, s)
}

func (a *Authenticator) Logout(ctx context.Context) error {
	return a.session.Teardown(ctx)
}
