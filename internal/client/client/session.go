package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/client/models"
)

// Login posts the credentials and installs the returned session in the
// coordinator. Both the success envelope and a bare session body are
// accepted.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	var raw json.RawMessage
	if err := c.Post(ctx, c.loginPath, creds, &raw, Public()); err != nil {
		return nil, err
	}

	session, err := decodeSession(raw)
	if err != nil {
		c.report(ctx, err, http.MethodPost, c.loginPath, "")
		return nil, err
	}

	if err := c.auth.SetTokens(ctx, session.Tokens); err != nil {
		c.log.Warn(ctx, "session not persisted", "error", err)
	}
	c.log.Info(ctx, "signed in", "email", creds.Email)
	return session, nil
}

func decodeSession(raw json.RawMessage) (*models.Session, error) {
	var env Envelope[models.Session]
	if err := json.Unmarshal(raw, &env); err == nil && env.Data.AccessToken != "" {
		return &env.Data, nil
	}

	var bare models.Session
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, apperr.New(apperr.CodeAPI, "Malformed response from server", err)
	}
	if bare.AccessToken == "" {
		msg := env.Message
		if msg == "" {
			msg = "Login response carried no access token"
		}
		return nil, apperr.NewAuthenticationError(msg, nil)
	}
	return &bare, nil
}

// Logout tells the backend to revoke the session, best effort, and clears
// the local credentials. Authenticated calls fail fast afterwards.
func (c *Client) Logout(ctx context.Context) error {
	if c.auth.AccessToken() != "" {
		if err := c.Post(ctx, c.logoutPath, nil, nil); err != nil {
			c.log.Debug(ctx, "logout call failed, clearing locally", "error", err)
		}
	}
	return c.auth.Clear(ctx)
}
