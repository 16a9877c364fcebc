// Package memory is an in-process CredentialStore for development and
// tests. It mirrors the redis driver's semantics, including atomic
// single-winner rotation, but keeps everything behind one mutex. State dies
// with the process, which for a dev loop is the point.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/trackcrate/trackcrate/internal/auth/domain"
	"github.com/trackcrate/trackcrate/internal/auth/store"
)

type Store struct {
	mu sync.Mutex

	refresh   map[string]domain.RefreshRecord     // fingerprint -> record
	bySubject map[string]map[string]struct{}      // subject -> fingerprints
	denyJTI   map[string]time.Time                // jti -> marker expiry
	denySub   map[string]subjectMarker            // subject -> sweep marker

	// now is swappable so tests can drive expiry without sleeping.
	now func() time.Time
}

type subjectMarker struct {
	revokedAt time.Time
	expiresAt time.Time
}

func NewStore() *Store {
	return &Store{
		refresh:   make(map[string]domain.RefreshRecord),
		bySubject: make(map[string]map[string]struct{}),
		denyJTI:   make(map[string]time.Time),
		denySub:   make(map[string]subjectMarker),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) RefreshTokens() store.RefreshTokens { return (*refreshTokens)(s) }
func (s *Store) Revocations() store.Revocations     { return (*revocations)(s) }

func (s *Store) Close() error                 { return nil }
func (s *Store) Ping(_ context.Context) error { return nil }

// SetClock overrides the store's time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// expire drops lapsed records. Called under the lock by every operation, so
// reads never observe a record past its TTL.
func (s *Store) expire() {
	now := s.now()

	for fp, rec := range s.refresh {
		if now.After(rec.ExpiresAt) {
			s.drop(fp, rec.SubjectID)
		}
	}
	for jti, exp := range s.denyJTI {
		if now.After(exp) {
			delete(s.denyJTI, jti)
		}
	}
	for sub, marker := range s.denySub {
		if now.After(marker.expiresAt) {
			delete(s.denySub, sub)
		}
	}
}

func (s *Store) drop(fingerprint, subjectID string) {
	delete(s.refresh, fingerprint)
	if fps := s.bySubject[subjectID]; fps != nil {
		delete(fps, fingerprint)
		if len(fps) == 0 {
			delete(s.bySubject, subjectID)
		}
	}
}

func (s *Store) put(rec domain.RefreshRecord) {
	s.refresh[rec.Fingerprint] = rec
	fps := s.bySubject[rec.SubjectID]
	if fps == nil {
		fps = make(map[string]struct{})
		s.bySubject[rec.SubjectID] = fps
	}
	fps[rec.Fingerprint] = struct{}{}
}

// ============================================================================
// RefreshTokens
// ============================================================================

type refreshTokens Store

func (r *refreshTokens) Create(_ context.Context, rec domain.RefreshRecord) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	s.put(rec)
	return nil
}

func (r *refreshTokens) Lookup(_ context.Context, fingerprint string) (string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	rec, ok := s.refresh[fingerprint]
	if !ok {
		return "", store.ErrNotFound
	}
	return rec.SubjectID, nil
}

func (r *refreshTokens) Rotate(_ context.Context, oldFingerprint string, next domain.RefreshRecord) (string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	old, ok := s.refresh[oldFingerprint]
	if !ok {
		return "", store.ErrNotFound
	}

	// Single winner: the old record is gone before the new one exists.
	s.drop(oldFingerprint, old.SubjectID)
	next.SubjectID = old.SubjectID
	s.put(next)

	return old.SubjectID, nil
}

func (r *refreshTokens) Revoke(_ context.Context, fingerprint string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	rec, ok := s.refresh[fingerprint]
	if !ok {
		return store.ErrNotFound
	}
	s.drop(fingerprint, rec.SubjectID)
	return nil
}

func (r *refreshTokens) RevokeAllForSubject(_ context.Context, subjectID string) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	fps := s.bySubject[subjectID]
	count := len(fps)
	for fp := range fps {
		delete(s.refresh, fp)
	}
	delete(s.bySubject, subjectID)
	return count, nil
}

// ============================================================================
// Revocations
// ============================================================================

type revocations Store

func (r *revocations) Denylist(_ context.Context, jti string, expiresAt time.Time) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	if s.now().After(expiresAt) {
		return nil // already dead, nothing to mark
	}
	s.denyJTI[jti] = expiresAt
	return nil
}

func (r *revocations) DenylistSubject(_ context.Context, subjectID string, ttl time.Duration) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	now := s.now()
	s.denySub[subjectID] = subjectMarker{
		revokedAt: now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (r *revocations) IsRevoked(_ context.Context, jti, subjectID string, issuedAt time.Time) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	if _, ok := s.denyJTI[jti]; ok {
		return true, nil
	}
	if marker, ok := s.denySub[subjectID]; ok {
		// The sweep catches tokens issued at or before the revocation
		// moment; tokens minted afterwards are fine.
		if !issuedAt.After(marker.revokedAt) {
			return true, nil
		}
	}
	return false, nil
}
