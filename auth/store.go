// Package auth implements the account and session store: registration,
// login/logout, and the role snapshot that gates catalog mutations.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"library-catalog/blob"
)

// Blob keys for the two persisted values this store owns.
const (
	usersKey   = "lc_users_v1"
	sessionKey = "lc_session_v1"
)

// Default bootstrap credential, created on first run when no accounts exist.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// AuthorizationError reports a gated operation attempted without the
// required role.
type AuthorizationError struct {
	Need Role
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("requires %s role", e.Need)
}

// Store owns the account set and the single active session. Like the catalog
// store, in-memory state is authoritative and persistence failures are
// logged, not surfaced.
type Store struct {
	kv     blob.Store
	log    *zap.Logger
	hasher Hasher

	accounts []Account
	session  *Session
	now      func() time.Time
}

// NewStore loads the users and session blobs through kv. Missing or corrupt
// blobs degrade to an empty account set and no session.
func NewStore(ctx context.Context, kv blob.Store, hasher Hasher, log *zap.Logger) *Store {
	s := &Store{
		kv:     kv,
		log:    log,
		hasher: hasher,
		now:    time.Now,
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	if raw, err := s.kv.Get(ctx, usersKey); err == nil {
		if err := json.Unmarshal(raw, &s.accounts); err != nil {
			s.log.Error("users blob corrupt, starting empty", zap.Error(err))
			s.accounts = nil
		}
	}
	if raw, err := s.kv.Get(ctx, sessionKey); err == nil {
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			s.log.Error("session blob corrupt, discarding", zap.Error(err))
		} else {
			s.session = &sess
		}
	}
}

func (s *Store) persistAccounts(ctx context.Context) {
	raw, err := json.Marshal(s.accounts)
	if err != nil {
		s.log.Error("marshal accounts", zap.Error(err))
		return
	}
	if err := s.kv.Put(ctx, usersKey, raw); err != nil {
		s.log.Error("persist accounts", zap.Error(err))
	}
}

// BootstrapDefaultAdmin creates the admin/admin123 account when the account
// set is empty. Idempotent; must run before any login is attempted.
func (s *Store) BootstrapDefaultAdmin(ctx context.Context) error {
	if len(s.accounts) > 0 {
		return nil
	}
	hash, err := s.hasher.Hash(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}
	s.accounts = append(s.accounts, Account{
		Username:     DefaultAdminUsername,
		PasswordHash: hash,
		Role:         RoleAdmin,
		CreatedAt:    s.now().UTC(),
	})
	s.persistAccounts(ctx)
	s.log.Info("default admin created",
		zap.String("username", DefaultAdminUsername))
	return nil
}

// Register creates an account. It returns false, without error, when the
// username or password is empty or the username already exists
// case-insensitively.
func (s *Store) Register(ctx context.Context, username, password string, role Role) bool {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false
	}
	if !role.Valid() {
		role = RoleMember
	}
	if s.findAccount(username) != nil {
		return false
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		return false
	}
	s.accounts = append(s.accounts, Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	})
	s.persistAccounts(ctx)
	return true
}

// AdminRegister delegates to Register after checking that the active session
// has the admin role.
func (s *Store) AdminRegister(ctx context.Context, username, password string, role Role) (bool, error) {
	if s.session == nil || s.session.Role != RoleAdmin {
		return false, &AuthorizationError{Need: RoleAdmin}
	}
	return s.Register(ctx, username, password, role), nil
}

// Login verifies the credential and, on success, creates and persists a new
// session snapshot, replacing any existing one. It returns nil on unknown
// username or digest mismatch.
func (s *Store) Login(ctx context.Context, username, password string) *Session {
	account := s.findAccount(username)
	if account == nil {
		return nil
	}
	if !s.hasher.Verify(account.PasswordHash, password) {
		return nil
	}

	sess := &Session{
		Username: account.Username,
		Role:     account.Role,
		LoggedAt: s.now().UTC(),
	}
	s.session = sess

	raw, err := json.Marshal(sess)
	if err != nil {
		s.log.Error("marshal session", zap.Error(err))
	} else if err := s.kv.Put(ctx, sessionKey, raw); err != nil {
		s.log.Error("persist session", zap.Error(err))
	}

	out := *sess
	return &out
}

// Logout clears the session unconditionally. Safe with no active session.
func (s *Store) Logout(ctx context.Context) {
	s.session = nil
	if err := s.kv.Delete(ctx, sessionKey); err != nil {
		s.log.Error("clear session", zap.Error(err))
	}
}

// Session returns the active session, or nil when anonymous.
func (s *Store) Session() *Session {
	if s.session == nil {
		return nil
	}
	out := *s.session
	return &out
}

// Accounts returns a copy of the account set, newest last.
func (s *Store) Accounts() []Account {
	out := make([]Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

func (s *Store) findAccount(username string) *Account {
	for i := range s.accounts {
		if strings.EqualFold(s.accounts[i].Username, username) {
			return &s.accounts[i]
		}
	}
	return nil
}
