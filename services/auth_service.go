package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/metrics"
	"shopcart-service/models"
	"shopcart-service/repository"
)

// Principal is the caller resolved from a session credential.
type Principal struct {
	IdentityID string
	IsGuest    bool
	Claims     *SessionClaims
}

// AuthResult is what a successful identity transition hands back to the
// transport layer: the public identity, a fresh credential and, for guests,
// the correlation token.
type AuthResult struct {
	Identity   models.IdentitySummary
	Token      string
	ExpiresAt  time.Time
	GuestToken string
	// Merged is the number of guest lines folded into the account.
	Merged int
}

// AuthService drives the Anonymous -> Guest -> Authenticated transitions.
type AuthService interface {
	ContinueAsGuest(ctx context.Context) (*AuthResult, error)
	Signup(ctx context.Context, req models.SignupRequest, guestToken string) (*AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest, guestToken string) (*AuthResult, error)
	Logout(ctx context.Context, claims *SessionClaims) error
	Me(ctx context.Context, identityID string) (*models.IdentitySummary, error)
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

type authServiceImpl struct {
	identities repository.IdentityRepository
	carts      CartService
	tokens     TokenService
	metrics    *metrics.Registry
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuthService(
	identities repository.IdentityRepository,
	carts CartService,
	tokens TokenService,
	m *metrics.Registry,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		identities: identities,
		carts:      carts,
		tokens:     tokens,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *authServiceImpl) ContinueAsGuest(ctx context.Context) (*AuthResult, error) {
	guest := models.NewGuest(s.now())
	if err := s.identities.Create(ctx, guest); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create guest: %w", err))
	}

	result, err := s.issue(guest)
	if err != nil {
		return nil, err
	}
	result.GuestToken = *guest.GuestToken
	s.logger.Info("Guest session started", zap.String("identity_id", guest.ID.String()))
	return result, nil
}

func (s *authServiceImpl) Signup(ctx context.Context, req models.SignupRequest, guestToken string) (*AuthResult, error) {
	if _, err := s.identities.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperror.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Internal(fmt.Errorf("lookup email: %w", err))
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("hash password: %w", err))
	}
	account := models.NewAccount(req.Email, hash, req.Name)
	if err := s.identities.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.ErrEmailTaken
		}
		return nil, apperror.Internal(fmt.Errorf("create account: %w", err))
	}

	return s.authenticated(ctx, account, guestToken)
}

func (s *authServiceImpl) Login(ctx context.Context, req models.LoginRequest, guestToken string) (*AuthResult, error) {
	account, err := s.identities.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("lookup email: %w", err))
	}
	if account.IsGuest || !checkPassword(account.PasswordHash, req.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.authenticated(ctx, account, guestToken)
}

// authenticated folds the correlated guest cart (if any) into account and
// only then mints the durable credential.
func (s *authServiceImpl) authenticated(ctx context.Context, account *models.Identity, guestToken string) (*AuthResult, error) {
	merged := s.foldGuest(ctx, account, guestToken)

	result, err := s.issue(account)
	if err != nil {
		return nil, err
	}
	result.Merged = merged
	return result, nil
}

// foldGuest never fails the transition; a bad correlation token or a
// storage error just means nothing (or less) is merged. Guest expiry only
// gates the guest's own credential, so an expired guest cart still folds.
func (s *authServiceImpl) foldGuest(ctx context.Context, account *models.Identity, guestToken string) int {
	if guestToken == "" {
		return 0
	}
	guest, err := s.identities.FindByGuestToken(ctx, guestToken)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Failed to resolve guest token", zap.Error(err))
		}
		return 0
	}
	if !guest.IsGuest || guest.ID == account.ID {
		return 0
	}

	merged, err := s.carts.FoldGuest(ctx, guest.ID.String(), account.ID.String())
	if err != nil {
		s.logger.Error("Error merging guest cart",
			zap.String("guest_id", guest.ID.String()),
			zap.String("identity_id", account.ID.String()),
			zap.Error(err))
	}
	return merged
}

func (s *authServiceImpl) issue(identity *models.Identity) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(identity.ID.String(), identity.IsGuest)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if s.metrics != nil {
		kind := "account"
		if identity.IsGuest {
			kind = "guest"
		}
		s.metrics.SessionsIssued.WithLabelValues(kind).Inc()
	}
	return &AuthResult{
		Identity:  identity.Summary(),
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the presented credential. It has no cart side effects.
func (s *authServiceImpl) Logout(ctx context.Context, claims *SessionClaims) error {
	if claims == nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return apperror.Internal(fmt.Errorf("revoke session: %w", err))
	}
	return nil
}

func (s *authServiceImpl) Me(ctx context.Context, identityID string) (*models.IdentitySummary, error) {
	identity, err := s.find(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Internal(err)
	}
	summary := identity.Summary()
	return &summary, nil
}

// Authenticate resolves a credential to a principal. Expired guests are
// rejected here, lazily, rather than by a sweep.
func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidSession) {
			return nil, apperror.ErrNotAuthorized
		}
		return nil, apperror.Internal(err)
	}

	identity, err := s.find(ctx, claims.IdentityID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrNotAuthorized
		}
		return nil, apperror.Internal(err)
	}
	if identity.CartExpired(s.now()) {
		return nil, apperror.ErrSessionExpired
	}

	return &Principal{
		IdentityID: identity.ID.String(),
		IsGuest:    identity.IsGuest,
		Claims:     claims,
	}, nil
}

func (s *authServiceImpl) find(ctx context.Context, identityID string) (*models.Identity, error) {
	id, err := uuid.Parse(identityID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return s.identities.FindByID(ctx, id)
}
