// Package auth orchestrates login, session materialization, and logout
// over the hasher, rate limiter, and record store.
package auth

import (
	"context"
	"errors"
	"sync"

	"authvault/internal/common"
	"authvault/internal/cryptox"
	"authvault/internal/logging"
	"authvault/internal/ratelimit"
	"authvault/internal/store"
)

const (
	// LoginIdentifier is the rate-limiter key shared by all login attempts.
	LoginIdentifier = "login"

	// authTokenKey holds the last successfully authenticated raw token in
	// the bare namespace (no record-store prefix), used to re-establish a
	// session on reload.
	authTokenKey = "auth_token"
)

// Session is the view handed to the UI layer on successful login.
// Permissions are carried but not enforced by any current caller.
type Session struct {
	ID          string
	Role        store.Role
	Permissions []string
}

// Config carries the injected auth settings. The bootstrap-admin secret
// arrives here from the environment via the config package; an empty
// value makes the bootstrap path fail closed.
type Config struct {
	BootstrapAdminSecret string
}

// Service implements the authentication boundary. Cryptographic and
// storage failures are converted to the generic common.ErrAuthFailed
// here so they cannot leak internal state to an end user; the underlying
// error is audit-logged instead.
type Service struct {
	records *store.RecordStore
	hasher  *cryptox.Hasher
	limiter *ratelimit.Limiter
	kv      store.KV
	logger  logging.Logger
	cfg     Config

	mu      sync.Mutex
	current *Session
}

func NewService(records *store.RecordStore, hasher *cryptox.Hasher, limiter *ratelimit.Limiter, kv store.KV, logger logging.Logger, cfg Config) *Service {
	return &Service{
		records: records,
		hasher:  hasher,
		limiter: limiter,
		kv:      kv,
		logger:  logger,
		cfg:     cfg,
	}
}

// Login authenticates a raw bearer token.
//
// The attempt is first gated by the rate limiter (*common.
// RateLimitedError carries the retry hint). The token is then resolved
// against stored record hashes and, on the same latency budget, against
// the configured bootstrap-admin secret; a bootstrap match finds or
// creates the admin record. Any other outcome is the generic
// common.ErrAuthFailed, so an observer cannot tell an unknown token from
// a wrong bootstrap secret.
//
// Every attempt emits exactly one audit event. The raw token never
// appears in audit context.
func (s *Service) Login(ctx context.Context, rawToken string) (*Session, error) {
	if res := s.limiter.Check(LoginIdentifier); !res.Allowed {
		s.audit(ctx, "rate_limited", "retry_after_s", res.RetryAfterSeconds)
		return nil, &common.RateLimitedError{RetryAfterSeconds: res.RetryAfterSeconds}
	}

	rec, bootstrapped, err := s.resolve(ctx, rawToken)
	if err != nil {
		s.logger.Error(ctx, "login resolve failed", "error", err)
		s.audit(ctx, "error")
		return nil, common.ErrAuthFailed
	}
	if rec == nil {
		s.audit(ctx, "failure")
		return nil, common.ErrAuthFailed
	}

	if !bootstrapped {
		// Bootstrap creation already stamped the record; a plain hit
		// records the access now.
		if err := s.records.Update(ctx, rec); err != nil {
			s.logger.Error(ctx, "login access stamp failed", "error", err)
			s.audit(ctx, "error", "user_id", rec.ID)
			return nil, common.ErrAuthFailed
		}
	}

	if err := s.kv.Set(ctx, authTokenKey, []byte(rawToken)); err != nil {
		s.logger.Error(ctx, "session token persist failed", "error", err)
		s.audit(ctx, "error", "user_id", rec.ID)
		return nil, common.ErrAuthFailed
	}

	s.limiter.Reset(LoginIdentifier)

	session := sessionView(rec)
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	if bootstrapped {
		s.audit(ctx, "bootstrap_admin", "user_id", rec.ID, "role", rec.Role)
	} else {
		s.audit(ctx, "success", "user_id", rec.ID, "role", rec.Role)
	}
	return session, nil
}

// resolve runs both credential paths. The record scan verifies the raw
// token against every stored salted hash (first match wins); the
// bootstrap comparison always executes too, so timing does not reveal
// which path matched. Returns the matched-or-created record and whether
// it came from the bootstrap path.
func (s *Service) resolve(ctx context.Context, rawToken string) (*store.UserRecord, bool, error) {
	records, err := s.records.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}

	var matched *store.UserRecord
	for _, rec := range records {
		// No early exit: every record costs one verification so the scan
		// length, not the match position, dominates timing.
		if s.hasher.Verify(rawToken, rec.TokenHash) && matched == nil {
			matched = rec
		}
	}

	bootstrapOK := s.hasher.VerifyBootstrap(rawToken, s.cfg.BootstrapAdminSecret)

	if matched != nil {
		return matched, false, nil
	}
	if s.cfg.BootstrapAdminSecret == "" {
		// Fail closed, with a distinct audit trail for operators.
		s.audit(ctx, "bootstrap_unconfigured")
		return nil, false, nil
	}
	if !bootstrapOK {
		return nil, false, nil
	}

	hash, err := s.hasher.Hash(rawToken)
	if err != nil {
		return nil, false, err
	}
	rec, err := s.records.Create(ctx, hash, store.RoleAdmin, store.AdminPermissions...)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Logout clears the materialized session and the persisted auth token.
// The user record itself is not mutated beyond what login already did.
func (s *Service) Logout(ctx context.Context) {
	s.mu.Lock()
	had := s.current
	s.current = nil
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, authTokenKey); err != nil {
		s.logger.Warn(ctx, "session token delete failed", "error", err)
	}

	if had != nil {
		s.audit(ctx, "logout", "user_id", had.ID)
	}
}

// Resume re-establishes a session from the persisted auth token, e.g.
// after a page reload. It does not charge the rate limiter. A stale
// token (its record was deleted) is discarded; (nil, nil) means no
// session.
func (s *Service) Resume(ctx context.Context) (*Session, error) {
	data, err := s.kv.Get(ctx, authTokenKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error(ctx, "resume token load failed", "error", err)
		return nil, common.ErrAuthFailed
	}
	rawToken := string(data)

	records, err := s.records.ListAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "resume scan failed", "error", err)
		return nil, common.ErrAuthFailed
	}

	for _, rec := range records {
		if s.hasher.Verify(rawToken, rec.TokenHash) {
			if err := s.records.Update(ctx, rec); err != nil {
				return nil, common.ErrAuthFailed
			}
			session := sessionView(rec)
			s.mu.Lock()
			s.current = session
			s.mu.Unlock()
			s.audit(ctx, "resumed", "user_id", rec.ID)
			return session, nil
		}
	}

	_ = s.kv.Delete(ctx, authTokenKey)
	s.audit(ctx, "resume_stale")
	return nil, nil
}

// Current returns the materialized session, or nil.
func (s *Service) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsAuthenticated reports whether a session is materialized.
func (s *Service) IsAuthenticated() bool {
	return s.Current() != nil
}

// IsAdmin reports whether the current session carries the admin role.
func (s *Service) IsAdmin() bool {
	cur := s.Current()
	return cur != nil && cur.Role == store.RoleAdmin
}

// audit emits one structured audit event with an outcome tag and minimal
// non-sensitive context.
func (s *Service) audit(ctx context.Context, outcome string, args ...any) {
	s.logger.Info(ctx, "auth event", append([]any{"outcome", outcome}, args...)...)
}

func sessionView(rec *store.UserRecord) *Session {
	return &Session{
		ID:          rec.ID,
		Role:        rec.Role,
		Permissions: append([]string(nil), rec.Permissions...),
	}
}
