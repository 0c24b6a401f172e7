// Package identity models who is placing or managing an order.
package identity

import (
	"context"
	"errors"
	"strings"
)

// MemberPlan is the plan claim value that grants member pricing and free shipping.
const MemberPlan = "plus"

var (
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Claims is the verified subject of a bearer credential.
type Claims struct {
	UserID string
	Email  string
	Name   string
	Plan   string
}

func (c Claims) IsMember() bool {
	return strings.EqualFold(strings.TrimSpace(c.Plan), MemberPlan)
}

// Registered converts verified claims into a checkout identity.
func (c Claims) Registered() Registered {
	return Registered{UserID: c.UserID, Email: c.Email, Name: c.Name, Member: c.IsMember()}
}

// Verifier checks a bearer credential with the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// AccountProvider creates durable accounts in the identity provider.
type AccountProvider interface {
	// CreateAccount returns the new subject id, or ErrEmailAlreadyExists.
	CreateAccount(ctx context.Context, email, displayName string) (string, error)
	PasswordSetupLink(ctx context.Context, email string) (string, error)
	// DeleteAccount removes an account whose local record was never written.
	DeleteAccount(ctx context.Context, uid string) error
}

// Kind discriminates the Identity variants.
type Kind string

const (
	KindGuest      Kind = "guest"
	KindRegistered Kind = "registered"
)

// Identity is either a Guest or a Registered buyer.
type Identity interface {
	Kind() Kind
	IsMember() bool
	ContactEmail() string
	DisplayName() string
}

// Guest is an unauthenticated buyer identified by contact details.
type Guest struct {
	Name  string
	Email string
	Phone string
}

func (Guest) Kind() Kind             { return KindGuest }
func (Guest) IsMember() bool         { return false }
func (g Guest) ContactEmail() string { return g.Email }
func (g Guest) DisplayName() string  { return g.Name }

// Registered is a buyer verified by the identity provider.
type Registered struct {
	UserID string
	Email  string
	Name   string
	Member bool
}

func (Registered) Kind() Kind             { return KindRegistered }
func (r Registered) IsMember() bool       { return r.Member }
func (r Registered) ContactEmail() string { return r.Email }
func (r Registered) DisplayName() string  { return r.Name }
