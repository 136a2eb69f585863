package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/akovalyov/currex/internal/auth"
	"github.com/akovalyov/currex/internal/models"
	"github.com/akovalyov/currex/internal/repository"
	"github.com/akovalyov/currex/pkg/crypto"
	"github.com/akovalyov/currex/pkg/mail"
)

type captureMailer struct {
	messages []mail.Message
	err      error
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.messages = append(m.messages, msg)
	return m.err
}

type accountFixture struct {
	db      *gorm.DB
	svc     *AccountService
	verif   *auth.VerificationService
	jwt     *auth.JWTService
	mailer  *captureMailer
	current *time.Time
}

var confirmKeyPattern = regexp.MustCompile(`key=([A-Za-z0-9_.-]+)`)

func (f *accountFixture) lastConfirmationKey(t *testing.T) string {
	t.Helper()

	require.NotEmpty(t, f.mailer.messages)
	body := f.mailer.messages[len(f.mailer.messages)-1].Body
	match := confirmKeyPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "confirmation mail must carry a key: %s", body)
	return match[1]
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	db := openServiceTestDB(t)

	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	verif, err := auth.NewVerificationService(auth.VerificationConfig{
		Secret: "confirm-secret",
		TTL:    time.Hour,
		Clock:  clock,
	})
	require.NoError(t, err)

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         "jwt-secret",
		Issuer:         "currex",
		AccessTokenTTL: 15 * time.Minute,
		Clock:          clock,
	})
	require.NoError(t, err)

	uow, err := repository.NewUnitOfWork(db)
	require.NoError(t, err)

	mailer := &captureMailer{}

	svc, err := NewAccountService(uow, verif, jwtSvc, mailer,
		WithConfirmationBaseURL("http://localhost:8000"),
		WithDispatch(func(task func()) { task() }),
	)
	require.NoError(t, err)

	return &accountFixture{
		db:      db,
		svc:     svc,
		verif:   verif,
		jwt:     jwtSvc,
		mailer:  mailer,
		current: &current,
	}
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	f := newAccountFixture(t)

	ack, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Passw0rd",
	})
	require.NoError(t, err)
	require.Equal(t, "We sent an email to alice@example.com. Click the link inside to get started.", ack)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "email = ?", "alice@example.com").Error)
	require.Equal(t, "alice", stored.Username)
	require.False(t, stored.Verified)
	require.NotNil(t, stored.VerificationToken)
	require.Len(t, *stored.VerificationToken, 64)
	require.True(t, crypto.VerifyPassword(stored.Password, "Passw0rd"))
	require.False(t, stored.RegisteredAt.IsZero())

	require.Len(t, f.mailer.messages, 1)
	require.Equal(t, []string{"alice@example.com"}, f.mailer.messages[0].To)
	require.Contains(t, f.mailer.messages[0].Body, "http://localhost:8000/api/auth/register-confirm?key=")

	// The mailed key must match the stored digest.
	key := f.lastConfirmationKey(t)
	require.Equal(t, auth.TokenDigest(key), *stored.VerificationToken)
}

func TestRegisterVerifiedEmailIsConflict(t *testing.T) {
	f := newAccountFixture(t)

	hashed, err := crypto.HashPassword("Origin4l")
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.User{
		Email:    "taken@example.com",
		Username: "original",
		Password: hashed,
		Verified: true,
	}).Error)

	_, err = f.svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Username: "intruder",
		Password: "Intrud3r",
	})
	require.ErrorIs(t, err, ErrEmailTaken)

	// The existing account must be untouched.
	var stored models.User
	require.NoError(t, f.db.First(&stored, "email = ?", "taken@example.com").Error)
	require.Equal(t, "original", stored.Username)
	require.True(t, crypto.VerifyPassword(stored.Password, "Origin4l"))

	require.Empty(t, f.mailer.messages)
}

func TestReRegisterRefreshesCredentialsAndToken(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Username: "bob",
		Password: "FirstPw1",
	})
	require.NoError(t, err)
	firstKey := f.lastConfirmationKey(t)

	// A later issue time makes the second token distinct from the first.
	*f.current = f.current.Add(time.Minute)

	_, err = f.svc.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Username: "bobby",
		Password: "SecondPw2",
	})
	require.NoError(t, err)
	secondKey := f.lastConfirmationKey(t)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "email = ?", "bob@example.com").Error)
	require.Equal(t, "bobby", stored.Username)
	require.True(t, crypto.VerifyPassword(stored.Password, "SecondPw2"))
	require.False(t, crypto.VerifyPassword(stored.Password, "FirstPw1"))

	// Both registrations target one row.
	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	// The superseded key no longer confirms; the fresh one does.
	_, err = f.svc.Confirm(context.Background(), firstKey)
	require.ErrorIs(t, err, ErrBadConfirmationKey)

	_, err = f.svc.Confirm(context.Background(), secondKey)
	require.NoError(t, err)
}

func TestConfirmMarksVerifiedAndIssuesToken(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "carol@example.com",
		Username: "carol",
		Password: "Passw0rd",
	})
	require.NoError(t, err)

	token, err := f.svc.Confirm(context.Background(), f.lastConfirmationKey(t))
	require.NoError(t, err)

	claims, err := f.jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "carol@example.com", claims.Email)
	require.NotZero(t, claims.UserID)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "email = ?", "carol@example.com").Error)
	require.True(t, stored.Verified)
	require.Nil(t, stored.VerificationToken)
}

func TestConfirmReplayIsRejected(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "dave@example.com",
		Username: "dave",
		Password: "Passw0rd",
	})
	require.NoError(t, err)
	key := f.lastConfirmationKey(t)

	_, err = f.svc.Confirm(context.Background(), key)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), key)
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirmExpiredKey(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "erin@example.com",
		Username: "erin",
		Password: "Passw0rd",
	})
	require.NoError(t, err)
	key := f.lastConfirmationKey(t)

	*f.current = f.current.Add(2 * time.Hour)

	_, err = f.svc.Confirm(context.Background(), key)
	require.ErrorIs(t, err, ErrBadConfirmationKey)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "email = ?", "erin@example.com").Error)
	require.False(t, stored.Verified)
}

func TestConfirmGarbageKey(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Confirm(context.Background(), "definitely-not-a-token")
	require.ErrorIs(t, err, ErrBadConfirmationKey)
}

func TestConfirmKeyForUnknownAccount(t *testing.T) {
	f := newAccountFixture(t)

	// Structurally valid token bound to an id with no row behind it.
	orphan, err := f.verif.Issue(9999)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), orphan)
	require.ErrorIs(t, err, ErrBadConfirmationKey)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Login(context.Background(), "ghost@example.com", "Passw0rd")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "frank@example.com",
		Username: "frank",
		Password: "RightPw1",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "frank@example.com", "WrongPw1")
	require.ErrorIs(t, err, ErrWrongPassword)
}

func TestLoginSucceedsForUnverifiedAccount(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "grace@example.com",
		Username: "grace",
		Password: "Passw0rd",
	})
	require.NoError(t, err)

	token, err := f.svc.Login(context.Background(), "grace@example.com", "Passw0rd")
	require.NoError(t, err)

	claims, err := f.jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "grace@example.com", claims.Email)
}

func TestRegisterRejectsBlankFields(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "x", Password: "Passw0rd"})
	require.Error(t, err)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "Passw0rd"})
	require.Error(t, err)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "x@example.com", Username: "x", Password: "   "})
	require.Error(t, err)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newAccountFixture(t)
	f.mailer.err = context.DeadlineExceeded

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "heidi@example.com",
		Username: "heidi",
		Password: "Passw0rd",
	})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "email = ?", "heidi@example.com").Error)
	require.False(t, stored.Verified)
}
