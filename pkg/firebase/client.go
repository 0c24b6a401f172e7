// Package firebase adapts the Firebase Admin SDK to the identity interfaces.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

const defaultCallTimeout = 5 * time.Second

// authAPI is the subset of *firebaseauth.Client used here.
type authAPI interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
	CreateUser(ctx context.Context, user *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
	DeleteUser(ctx context.Context, uid string) error
}

// Client verifies ID tokens and provisions accounts.
type Client struct {
	auth    authAPI
	timeout time.Duration
}

// NewClient initialises the Admin SDK for the configured project.
func NewClient(ctx context.Context, cfg config.FirebaseConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("firebase project id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return newClient(authClient, cfg.CallTimeout), nil
}

func newClient(api authAPI, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{auth: api, timeout: timeout}
}

// Verify implements identity.Verifier.
func (c *Client) Verify(ctx context.Context, idToken string) (identity.Claims, error) {
	if c == nil || c.auth == nil {
		return identity.Claims{}, errors.New("firebase client not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return identity.Claims{}, fmt.Errorf("%w: %v", identity.ErrInvalidCredential, err)
	}
	return identity.Claims{
		UserID: token.UID,
		Email:  stringClaim(token.Claims, "email"),
		Name:   stringClaim(token.Claims, "name"),
		Plan:   stringClaim(token.Claims, "plan"),
	}, nil
}

// CreateAccount implements identity.AccountProvider.
func (c *Client) CreateAccount(ctx context.Context, email, displayName string) (string, error) {
	if c == nil || c.auth == nil {
		return "", errors.New("firebase client not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := (&firebaseauth.UserToCreate{}).Email(email).EmailVerified(false)
	if strings.TrimSpace(displayName) != "" {
		params = params.DisplayName(displayName)
	}
	record, err := c.auth.CreateUser(ctx, params)
	if err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return "", identity.ErrEmailAlreadyExists
		}
		return "", fmt.Errorf("create firebase user: %w", err)
	}
	return record.UID, nil
}

// PasswordSetupLink implements identity.AccountProvider.
func (c *Client) PasswordSetupLink(ctx context.Context, email string) (string, error) {
	if c == nil || c.auth == nil {
		return "", errors.New("firebase client not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	link, err := c.auth.PasswordResetLink(ctx, email)
	if err != nil {
		return "", fmt.Errorf("generate password link: %w", err)
	}
	return link, nil
}

// DeleteAccount implements identity.AccountProvider. A missing user is not an error.
func (c *Client) DeleteAccount(ctx context.Context, uid string) error {
	if c == nil || c.auth == nil {
		return errors.New("firebase client not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.auth.DeleteUser(ctx, uid); err != nil && !firebaseauth.IsUserNotFound(err) {
		return fmt.Errorf("delete firebase user %s: %w", uid, err)
	}
	return nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if claims == nil {
		return ""
	}
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
