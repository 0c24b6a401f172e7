// Package guests converts guest checkouts into registered accounts.
package guests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/internal/users"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AccountExistsDetails is attached to errors where the buyer should sign in instead.
type AccountExistsDetails struct {
	AccountExists bool `json:"accountExists"`
}

type ConvertResult struct {
	UserID  string
	Email   string
	Message string
}

type VerifyResult struct {
	Valid bool
	Name  string
	Email string
}

type Service interface {
	Convert(ctx context.Context, token string) (*ConvertResult, error)
	Verify(ctx context.Context, token string) (*VerifyResult, error)
}

type ServiceParams struct {
	Repo          *Repository
	Users         *users.Repository
	Accounts      identity.AccountProvider
	Tx            txRunner
	Outbox        outboxPublisher
	Notifier      notifications.Notifier
	CallTimeout   time.Duration
	NotifyTimeout time.Duration
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo          *Repository
	users         *users.Repository
	accounts      identity.AccountProvider
	tx            txRunner
	outbox        outboxPublisher
	notifier      notifications.Notifier
	callTimeout   time.Duration
	notifyTimeout time.Duration
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("guest repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account provider required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	callTimeout := params.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &service{
		repo:          params.Repo,
		users:         params.Users,
		accounts:      params.Accounts,
		tx:            params.Tx,
		outbox:        params.Outbox,
		notifier:      params.Notifier,
		callTimeout:   callTimeout,
		notifyTimeout: params.NotifyTimeout,
		logg:          params.Logger,
		now:           now,
	}, nil
}

func (s *service) Convert(ctx context.Context, token string) (*ConvertResult, error) {
	guest, err := s.lookup(ctx, token, "Invalid or expired token")
	if err != nil {
		return nil, err
	}
	if guest.AccountCreated {
		return nil, accountExists(ErrAccountAlreadyCreated, "Account already created. Please sign in.")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	uid, err := s.accounts.CreateAccount(callCtx, guest.Email, guest.Name)
	cancel()
	if err != nil {
		if errors.Is(err, identity.ErrEmailAlreadyExists) {
			if _, markErr := s.repo.MarkConverted(ctx, guest.ID); markErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, markErr, "mark guest converted")
			}
			return nil, accountExists(identity.ErrEmailAlreadyExists, "An account with this email already exists. Please sign in.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user := &models.User{ID: uid, Name: guest.Name, Email: guest.Email, Cart: map[string]int{}}
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		converted, err := s.repo.WithTx(tx).MarkConverted(ctx, guest.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark guest converted")
		}
		if !converted {
			return accountExists(ErrAccountAlreadyCreated, "Account already created. Please sign in.")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestConverted,
			AggregateType: enums.AggregateGuestUser,
			AggregateID:   guest.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: uid},
			Data: payloads.GuestConvertedEvent{
				GuestUserID: guest.ID,
				UserID:      uid,
				Email:       guest.Email,
			},
		})
	})
	if err != nil {
		s.releaseAccount(ctx, guest, uid)
		return nil, err
	}

	s.sendPasswordSetup(ctx, guest)
	return &ConvertResult{
		UserID:  uid,
		Email:   guest.Email,
		Message: "Account created successfully! Check your email to set your password.",
	}, nil
}

func (s *service) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	guest, err := s.lookup(ctx, token, "Invalid token")
	if err != nil {
		return nil, err
	}
	if guest.AccountCreated {
		return nil, accountExists(ErrAccountAlreadyCreated, "Account already created")
	}
	return &VerifyResult{Valid: true, Name: guest.Name, Email: guest.Email}, nil
}

func (s *service) lookup(ctx context.Context, token, notFoundMessage string) (*models.GuestUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Token is required")
	}
	guest, err := s.repo.FindByTokenDigest(ctx, Digest(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrTokenNotFound, notFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest")
	}
	if guest.TokenExpiry != nil && s.now().After(*guest.TokenExpiry) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrTokenExpired, "Token has expired")
	}
	return guest, nil
}

// releaseAccount deletes the provider account created for a conversion whose
// local write rolled back, so a retry can create it again.
func (s *service) releaseAccount(ctx context.Context, guest *models.GuestUser, uid string) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
	err := s.accounts.DeleteAccount(callCtx, uid)
	cancel()
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"guest_id": guest.ID.String(),
			"uid":      uid,
		})
		s.logg.Error(logCtx, "guests.account_release_failed", err)
	}
}

func (s *service) sendPasswordSetup(ctx context.Context, guest *models.GuestUser) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
	link, err := s.accounts.PasswordSetupLink(callCtx, guest.Email)
	cancel()
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "guest_id", guest.ID.String()), "guests.password_link_failed", err)
		}
		return
	}
	notifications.SendBestEffort(ctx, s.notifier, s.notifyTimeout, s.logg, payloads.NotificationRequestedEvent{
		Kind:      enums.NotificationKindPasswordSetup,
		Recipient: guest.Email,
		Name:      guest.Name,
		Link:      link,
	})
}

func accountExists(cause error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodePolicy, cause, message).WithDetails(AccountExistsDetails{AccountExists: true})
}
