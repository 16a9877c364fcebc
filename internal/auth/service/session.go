package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/trackcrate/trackcrate/internal/auth/domain"
	"github.com/trackcrate/trackcrate/internal/auth/store"
	"github.com/trackcrate/trackcrate/pkg/cryptox"
	"github.com/trackcrate/trackcrate/pkg/jwtx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrTokenNotFound      = errors.New("token_not_found")
)

// SessionService mints, rotates, and revokes the two credential kinds: the
// JWT access token (stateless, verified by signature) and the opaque refresh
// token (stateful, stored by fingerprint in the credential store). Handlers
// own input validation; everything past "the fields are present" lives here.
type SessionService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier

	Users       store.Users
	Credentials store.CredentialStore

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies a username/password pair and mints a fresh token pair.
// Unknown username and wrong password are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same work as a real verification so response timing
			// doesn't reveal whether the username exists.
			_ = cryptox.VerifyPassword(password, timingDecoyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login password mismatch", slog.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	return s.mintPair(ctx, user)
}

// Refresh rotates a refresh token: the presented value is atomically
// destroyed and a new pair minted for its owner. A value that is unknown,
// expired, or already rotated fails with ErrInvalidRefresh.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	next := domain.RefreshRecord{
		Fingerprint: cryptox.FingerprintToken(raw),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.RefreshTTL),
	}

	oldFingerprint := cryptox.FingerprintToken(refreshToken)
	subjectID, err := s.Credentials.RefreshTokens().Rotate(ctx, oldFingerprint, next)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	user, err := s.Users.GetUserByID(ctx, subjectID)
	if err != nil {
		// The owner no longer exists; the freshly rotated record must not
		// survive them.
		_ = s.Credentials.RefreshTokens().Revoke(ctx, next.Fingerprint)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	accessToken, expiresIn, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

// Logout revokes one refresh token and, when the paired access token is
// supplied, denylists it for the rest of its natural lifetime.
func (s *SessionService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	l := slogx.FromContext(ctx)

	err := s.Credentials.RefreshTokens().Revoke(ctx, cryptox.FingerprintToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}

	if accessToken == "" {
		return nil
	}

	// An access token that fails verification cannot be used anyway, so a
	// bad one doesn't fail the logout.
	claims, err := s.Verifier.Verify(accessToken)
	if err != nil {
		l.Debug("logout access token not denylisted", "err", err)
		return nil
	}

	expiresAt := time.Now().UTC().Add(s.AccessTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.Credentials.Revocations().Denylist(ctx, claims.ID, expiresAt)
}

// RevokeAll destroys every refresh record the subject owns and sweeps all
// access tokens issued up to now. Returns the refresh record count.
func (s *SessionService) RevokeAll(ctx context.Context, subjectID string) (int, error) {
	count, err := s.Credentials.RefreshTokens().RevokeAllForSubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}

	// The subject marker only needs to outlive the longest access token
	// issued before this moment.
	if err := s.Credentials.Revocations().DenylistSubject(ctx, subjectID, s.AccessTTL); err != nil {
		return count, err
	}
	return count, nil
}

// ValidateToken answers whether a raw access token is currently acceptable:
// cryptographically valid, unexpired, and absent from the revocation ledger.
// Invalid tokens report ErrUnauthorizedToken; store failures pass through so
// callers can fail closed.
func (s *SessionService) ValidateToken(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return jwtx.Claims{}, ErrUnauthorizedToken
	}

	issuedAt := time.Time{}
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	revoked, err := s.Credentials.Revocations().IsRevoked(ctx, claims.ID, claims.Subject, issuedAt)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if revoked {
		return jwtx.Claims{}, ErrUnauthorizedToken
	}
	return claims, nil
}

// ErrUnauthorizedToken covers every way an access token can be unacceptable.
// Expiry and revocation deliberately read the same.
var ErrUnauthorizedToken = errors.New("unauthorized_token")

func (s *SessionService) mintPair(ctx context.Context, user domain.User) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	accessToken, expiresIn, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	err = s.Credentials.RefreshTokens().Create(ctx, domain.RefreshRecord{
		Fingerprint: cryptox.FingerprintToken(raw),
		SubjectID:   user.ID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.RefreshTTL),
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

func (s *SessionService) signAccess(user domain.User, now time.Time) (string, int, error) {
	claims := jwtx.NewAccessClaims(user.ID, user.Username, user.Roles, s.AccessTTL, s.Issuer, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", 0, err
	}
	return token, int(s.AccessTTL.Seconds()), nil
}

// timingDecoyHash is a syntactically valid argon2id hash of a random value,
// verified against on unknown-user logins purely to equalize timing.
const timingDecoyHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$cPToc0M0sFnP1avIzCdQYuBgVyDmhkooAkt1WXtNCyM"
