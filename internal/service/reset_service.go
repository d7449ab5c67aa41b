package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/mailer"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// Messages returned by the reset endpoints.
const (
	ResetRequestedMessage = "If an account with that email exists, a code has been sent."
	CodeVerifiedMessage   = "Code verified. You can now reset your password."
	PasswordResetMessage  = "Password reset successful"
)

// PasswordResetService issues, verifies and consumes 6-digit reset codes.
//
// Issuing a code marks every earlier unused code of the user as used, then
// stores the new one; the two writes are not wrapped in a transaction.
// Verify never consumes a code, Change re-checks everything and consumes it.
type PasswordResetService struct {
	users    *repository.UserRepository
	codes    *repository.ResetCodeRepository
	mail     mailer.Sender
	activity *ActivityService
	ttl      time.Duration
	now      Clock
}

func NewPasswordResetService(
	users *repository.UserRepository,
	codes *repository.ResetCodeRepository,
	mail mailer.Sender,
	activity *ActivityService,
	ttl time.Duration,
	now Clock,
) *PasswordResetService {
	return &PasswordResetService{users: users, codes: codes, mail: mail, activity: activity, ttl: ttl, now: now}
}

// Request issues a new code when email belongs to a user. The caller always
// answers with ResetRequestedMessage.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case repository.IsNotFound(err):
		return nil
	case err != nil:
		return err
	}

	if err := s.codes.InvalidateForUser(ctx, user.ID); err != nil {
		return err
	}
	code, err := generateCode()
	if err != nil {
		return err
	}
	rc := model.PasswordResetCode{UserID: user.ID, Code: code, CreatedAt: s.now()}
	if err := s.codes.Create(ctx, &rc); err != nil {
		return err
	}

	subject, body := mailer.ResetCodeEmail(code, int(s.ttl/time.Minute))
	if err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
		log.Printf("[error] send reset code to user %d: %v", user.ID, err)
		s.activity.Record(ctx, user, model.ActionMailError, "Password reset email could not be sent", nil, nil)
	}
	return nil
}

// Verify checks a code without consuming it.
func (s *PasswordResetService) Verify(ctx context.Context, email, code string) error {
	_, _, err := s.check(ctx, email, code)
	return err
}

// Change sets a new password if the code is still valid and consumes the code.
func (s *PasswordResetService) Change(ctx context.Context, email, code, password string) error {
	user, rc, err := s.check(ctx, email, code)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	return s.codes.MarkUsed(ctx, rc)
}

// Purge deletes codes that are used or past their validity window.
func (s *PasswordResetService) Purge(ctx context.Context) (int64, error) {
	return s.codes.Purge(ctx, s.now().Add(-s.ttl))
}

func (s *PasswordResetService) check(ctx context.Context, email, code string) (*model.User, *model.PasswordResetCode, error) {
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case repository.IsNotFound(err):
		return nil, nil, ErrInvalidEmail
	case err != nil:
		return nil, nil, err
	}

	rc, err := s.codes.LatestUnused(ctx, user.ID)
	switch {
	case repository.IsNotFound(err):
		return nil, nil, ErrNoValidCode
	case err != nil:
		return nil, nil, err
	}

	if rc.Expired(s.now(), s.ttl) {
		return nil, nil, ErrCodeExpired
	}
	if rc.Code != code {
		// A superseded code is reported as gone, not as mistyped.
		superseded, err := s.codes.UsedCodeExists(ctx, user.ID, code)
		if err != nil {
			return nil, nil, err
		}
		if superseded {
			return nil, nil, ErrNoValidCode
		}
		return nil, nil, ErrInvalidCode
	}
	return user, rc, nil
}

var codeSpace = big.NewInt(1000000)

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
