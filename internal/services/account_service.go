package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akovalyov/currex/internal/auth"
	"github.com/akovalyov/currex/internal/models"
	"github.com/akovalyov/currex/internal/repository"
	"github.com/akovalyov/currex/pkg/crypto"
	apperrors "github.com/akovalyov/currex/pkg/errors"
	"github.com/akovalyov/currex/pkg/logger"
	"github.com/akovalyov/currex/pkg/mail"
)

const mailDispatchTimeout = 30 * time.Second

var (
	// ErrEmailTaken indicates a verified account already owns the email.
	ErrEmailTaken = apperrors.New("ACCOUNT_EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)
	// ErrBadConfirmationKey covers invalid, expired, and superseded confirmation tokens alike.
	ErrBadConfirmationKey = apperrors.New("ACCOUNT_BAD_CONFIRMATION_KEY", "Invalid confirmation key", http.StatusConflict)
	// ErrAlreadyConfirmed rejects repeated confirmation of a verified account.
	ErrAlreadyConfirmed = apperrors.New("ACCOUNT_ALREADY_CONFIRMED", "This account has already been confirmed", http.StatusMethodNotAllowed)
	// ErrAccountNotFound indicates a login attempt against an unknown email.
	ErrAccountNotFound = apperrors.New("ACCOUNT_NOT_FOUND", "No account with this email was found", http.StatusNotFound)
	// ErrWrongPassword indicates a password mismatch at login.
	ErrWrongPassword = apperrors.New("ACCOUNT_WRONG_PASSWORD", "Invalid password", http.StatusUnauthorized)
)

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithConfirmationBaseURL sets the base URL embedded in confirmation links.
func WithConfirmationBaseURL(url string) AccountOption {
	return func(s *AccountService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithDispatch overrides how post-commit work is scheduled, primarily for tests.
func WithDispatch(dispatch func(task func())) AccountOption {
	return func(s *AccountService) {
		if dispatch != nil {
			s.dispatch = dispatch
		}
	}
}

// AccountService orchestrates the account lifecycle: registration and
// re-registration, email confirmation, and login. Each operation runs inside
// exactly one unit-of-work scope; the confirmation email is dispatched after
// the scope commits so a mail outage can never roll back a registration.
type AccountService struct {
	uow      *repository.UnitOfWork
	verifier *auth.VerificationService
	jwt      *auth.JWTService
	mailer   mail.Mailer
	baseURL  string
	dispatch func(task func())
	log      *zap.Logger
}

// NewAccountService constructs an AccountService with the provided dependencies.
func NewAccountService(uow *repository.UnitOfWork, verifier *auth.VerificationService, jwt *auth.JWTService, mailer mail.Mailer, opts ...AccountOption) (*AccountService, error) {
	if uow == nil {
		return nil, errors.New("account service: unit of work is required")
	}
	if verifier == nil {
		return nil, errors.New("account service: verification service is required")
	}
	if jwt == nil {
		return nil, errors.New("account service: jwt service is required")
	}

	service := &AccountService{
		uow:      uow,
		verifier: verifier,
		jwt:      jwt,
		mailer:   mailer,
		dispatch: func(task func()) { go task() },
		log:      logger.WithModule("accounts"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RegisterInput describes the fields accepted when registering an account.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Register creates an unverified account for a new email, or refreshes the
// credentials and confirmation token of an existing unverified one. A
// verified account for the same email is a conflict and mutates nothing.
// The returned acknowledgment never reveals more than "check your email".
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (string, error) {
	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" {
		return "", apperrors.NewBadRequest("email is required")
	}
	if username == "" {
		return "", apperrors.NewBadRequest("username is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return "", apperrors.NewBadRequest("password is required")
	}

	var token string

	err := s.uow.WithinScope(ctx, func(scope *repository.Scope) error {
		existing, err := scope.Accounts().FindByEmail(email)
		if err != nil {
			return err
		}
		if existing != nil && existing.Verified {
			return ErrEmailTaken
		}

		hashed, err := crypto.HashPassword(input.Password)
		if err != nil {
			return fmt.Errorf("account service: hash password: %w", err)
		}

		var accountID uint64
		if existing != nil {
			accountID = existing.ID
		} else {
			user := &models.User{
				Email:    email,
				Username: username,
				Password: hashed,
			}
			if err := scope.Accounts().Insert(user); err != nil {
				return err
			}
			accountID = user.ID
		}

		token, err = s.verifier.Issue(accountID)
		if err != nil {
			return fmt.Errorf("account service: issue verification token: %w", err)
		}

		// Overwrites the previous token digest on re-registration, so only
		// the most recently issued token can confirm the account.
		if err := scope.Accounts().UpdateFields(accountID, map[string]any{
			"username":           username,
			"password":           hashed,
			"verification_token": auth.TokenDigest(token),
		}); err != nil {
			return err
		}

		return scope.Commit()
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			// A concurrent registration won the insert race.
			return "", ErrEmailTaken
		}
		return "", err
	}

	s.dispatch(func() { s.sendConfirmation(email, token) })

	return fmt.Sprintf("We sent an email to %s. Click the link inside to get started.", email), nil
}

// Confirm validates a confirmation token and marks the bound account as
// verified, returning a fresh access token. Confirmation is deliberately not
// idempotent: replaying a link against a verified account is rejected so it
// cannot be mistaken for a fresh success.
func (s *AccountService) Confirm(ctx context.Context, key string) (string, error) {
	accountID, err := s.verifier.Verify(key)
	if err != nil {
		return "", ErrBadConfirmationKey
	}

	var accessToken string

	err = s.uow.WithinScope(ctx, func(scope *repository.Scope) error {
		user, err := scope.Accounts().FindByID(accountID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrBadConfirmationKey
		}
		if user.Verified {
			return ErrAlreadyConfirmed
		}
		if user.VerificationToken == nil || *user.VerificationToken != auth.TokenDigest(key) {
			// A later registration superseded this token.
			return ErrBadConfirmationKey
		}

		accessToken, err = s.jwt.GenerateAccessToken(user.ID, user.Email)
		if err != nil {
			return fmt.Errorf("account service: issue access token: %w", err)
		}

		if err := scope.Accounts().UpdateFields(user.ID, map[string]any{
			"verified":           true,
			"verification_token": nil,
		}); err != nil {
			return err
		}

		return scope.Commit()
	})
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

// Login checks the credentials for an email and returns an access token.
// Unverified accounts may log in; gating them is a pending product decision.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperrors.NewBadRequest("email is required")
	}

	var accessToken string

	err := s.uow.WithinScope(ctx, func(scope *repository.Scope) error {
		user, err := scope.Accounts().FindByEmail(email)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrAccountNotFound
		}
		if !crypto.VerifyPassword(user.Password, password) {
			return ErrWrongPassword
		}

		accessToken, err = s.jwt.GenerateAccessToken(user.ID, user.Email)
		if err != nil {
			return fmt.Errorf("account service: issue access token: %w", err)
		}

		return scope.Commit()
	})
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

// sendConfirmation delivers the confirmation email. It runs detached from
// the registration transaction; failures are logged and go no further.
func (s *AccountService) sendConfirmation(email, token string) {
	if s.mailer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mailDispatchTimeout)
	defer cancel()

	msg := mail.Message{
		To:      []string{email},
		Subject: "Confirm your registration on Currency Exchange",
		Body:    s.confirmationBody(token),
		HTML:    true,
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Debug("confirmation mail skipped, smtp disabled", zap.String("email", email))
			return
		}
		s.log.Error("confirmation mail delivery failed", zap.String("email", email), zap.Error(err))
	}
}

func (s *AccountService) confirmationBody(token string) string {
	link := token
	if s.baseURL != "" {
		link = fmt.Sprintf("%s/api/auth/register-confirm?key=%s", s.baseURL, token)
	}
	return fmt.Sprintf("<p>Welcome to Currency Exchange!</p>"+
		"<p>Please confirm your registration by following the link below:</p>"+
		"<p><a href=%q>%s</a></p>"+
		"<p>If you did not create an account, you can ignore this message.</p>", link, link)
}
