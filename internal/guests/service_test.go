package guests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/internal/users"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

var fixedNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type stubAccounts struct {
	created   []string
	err       error
	linkErr   error
	uid       string
	linksFor  []string
	deleted   []string
	deleteErr error
}

func (s *stubAccounts) CreateAccount(_ context.Context, email, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, email)
	return s.uid, nil
}

func (s *stubAccounts) PasswordSetupLink(_ context.Context, email string) (string, error) {
	s.linksFor = append(s.linksFor, email)
	if s.linkErr != nil {
		return "", s.linkErr
	}
	return "https://id.example.com/reset?for=" + email, nil
}

func (s *stubAccounts) DeleteAccount(_ context.Context, uid string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, uid)
	return nil
}

type recordingNotifier struct {
	events []payloads.NotificationRequestedEvent
}

func (r *recordingNotifier) Notify(_ context.Context, event payloads.NotificationRequestedEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	accounts *stubAccounts
	notifier *recordingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	accounts := &stubAccounts{uid: "firebase-uid-1"}
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Users:    users.NewRepository(conn),
		Accounts: accounts,
		Tx:       client,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Notifier: notifier,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, accounts: accounts, notifier: notifier}
}

func seedGuest(t *testing.T, conn *gorm.DB, expiry time.Time) string {
	t.Helper()
	token, digest, err := NewToken()
	require.NoError(t, err)
	require.NoError(t, NewRepository(conn).Upsert(context.Background(), &models.GuestUser{
		Name:               "Ana",
		Email:              "ana@example.com",
		Phone:              "+971500000000",
		ConvertTokenDigest: &digest,
		TokenExpiry:        &expiry,
	}))
	return token
}

func TestConvertCreatesAccountOnce(t *testing.T) {
	f := newFixture(t)
	token := seedGuest(t, f.conn, fixedNow.Add(24*time.Hour))

	result, err := f.svc.Convert(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", result.UserID)
	assert.Equal(t, "Account created successfully! Check your email to set your password.", result.Message)

	var user models.User
	require.NoError(t, f.conn.First(&user, "id = ?", "firebase-uid-1").Error)
	assert.Equal(t, "ana@example.com", user.Email)

	var guest models.GuestUser
	require.NoError(t, f.conn.First(&guest, "email = ?", "ana@example.com").Error)
	assert.True(t, guest.AccountCreated)
	assert.Nil(t, guest.ConvertTokenDigest)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, enums.NotificationKindPasswordSetup, f.notifier.events[0].Kind)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventGuestConverted).Count(&events).Error)
	assert.Equal(t, int64(1), events)

	_, err = f.svc.Convert(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenNotFound)
	assert.Equal(t, "Invalid or expired token", pkgerrors.As(err).Message())
	assert.Len(t, f.accounts.created, 1)
}

func TestConvertRequiresToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Convert(context.Background(), "  ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "Token is required", pkgerrors.As(err).Message())
}

func TestConvertExpiredToken(t *testing.T) {
	f := newFixture(t)
	token := seedGuest(t, f.conn, fixedNow.Add(-time.Minute))

	_, err := f.svc.Convert(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "Token has expired", pkgerrors.As(err).Message())
	assert.Empty(t, f.accounts.created)
}

func TestConvertEmailAlreadyExistsMarksGuest(t *testing.T) {
	f := newFixture(t)
	f.accounts.err = identity.ErrEmailAlreadyExists
	token := seedGuest(t, f.conn, fixedNow.Add(time.Hour))

	_, err := f.svc.Convert(context.Background(), token)
	require.ErrorIs(t, err, identity.ErrEmailAlreadyExists)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, AccountExistsDetails{AccountExists: true}, typed.Details())

	var guest models.GuestUser
	require.NoError(t, f.conn.First(&guest, "email = ?", "ana@example.com").Error)
	assert.True(t, guest.AccountCreated)
	assert.Nil(t, guest.ConvertTokenDigest)
}

func TestConvertProviderFailureIsDependencyError(t *testing.T) {
	f := newFixture(t)
	f.accounts.err = errors.New("deadline exceeded")
	token := seedGuest(t, f.conn, fixedNow.Add(time.Hour))

	_, err := f.svc.Convert(context.Background(), token)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestConvertReleasesAccountWhenLocalWriteFails(t *testing.T) {
	f := newFixture(t)
	token := seedGuest(t, f.conn, fixedNow.Add(time.Hour))
	require.NoError(t, f.conn.Create(&models.User{ID: "firebase-uid-1", Name: "Ana", Email: "ana@example.com", Cart: map[string]int{}}).Error)

	_, err := f.svc.Convert(context.Background(), token)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, []string{"firebase-uid-1"}, f.accounts.deleted)

	var guest models.GuestUser
	require.NoError(t, f.conn.First(&guest, "email = ?", "ana@example.com").Error)
	assert.False(t, guest.AccountCreated)
	assert.NotNil(t, guest.ConvertTokenDigest)
	assert.Empty(t, f.notifier.events)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventGuestConverted).Count(&events).Error)
	assert.Zero(t, events)
}

func TestConvertKeepsCommittedAccount(t *testing.T) {
	f := newFixture(t)
	token := seedGuest(t, f.conn, fixedNow.Add(time.Hour))

	_, err := f.svc.Convert(context.Background(), token)
	require.NoError(t, err)
	assert.Empty(t, f.accounts.deleted)
}

func TestVerifyReportsGuest(t *testing.T) {
	f := newFixture(t)
	token := seedGuest(t, f.conn, fixedNow.Add(time.Hour))

	result, err := f.svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "Ana", result.Name)

	_, err = f.svc.Verify(context.Background(), "unknown")
	require.ErrorIs(t, err, ErrTokenNotFound)
	assert.Equal(t, "Invalid token", pkgerrors.As(err).Message())
}

func TestVerifyAccountAlreadyCreated(t *testing.T) {
	f := newFixture(t)
	token := seedGuest(t, f.conn, fixedNow.Add(time.Hour))
	require.NoError(t, f.conn.Model(&models.GuestUser{}).Where("email = ?", "ana@example.com").Update("account_created", true).Error)

	_, err := f.svc.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrAccountAlreadyCreated)
	assert.Equal(t, "Account already created", pkgerrors.As(err).Message())
}

func TestUpsertRegeneratesToken(t *testing.T) {
	f := newFixture(t)
	first := seedGuest(t, f.conn, fixedNow.Add(time.Hour))
	second := seedGuest(t, f.conn, fixedNow.Add(time.Hour))

	_, err := f.svc.Verify(context.Background(), first)
	require.ErrorIs(t, err, ErrTokenNotFound)
	_, err = f.svc.Verify(context.Background(), second)
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.conn.Model(&models.GuestUser{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
