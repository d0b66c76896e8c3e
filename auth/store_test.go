package auth

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"library-catalog/blob"
	"library-catalog/catalog"
)

// testHasher keeps bcrypt cheap in tests.
var testHasher = BcryptHasher{Cost: 4}

func newTestStore(t *testing.T) (*Store, *blob.MemoryStore) {
	t.Helper()
	kv := blob.NewMemoryStore()
	return NewStore(context.Background(), kv, testHasher, zap.NewNop()), kv
}

func TestBootstrapDefaultAdmin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BootstrapDefaultAdmin(ctx))

	accounts := s.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, DefaultAdminUsername, accounts[0].Username)
	assert.Equal(t, RoleAdmin, accounts[0].Role)
	assert.NotEqual(t, DefaultAdminPassword, accounts[0].PasswordHash)

	// Idempotent: a second call adds nothing.
	require.NoError(t, s.BootstrapDefaultAdmin(ctx))
	assert.Len(t, s.Accounts(), 1)

	// Not re-run once any account exists, even a non-admin one.
	require.True(t, s.Register(ctx, "eve", "pw", RoleMember))
	require.NoError(t, s.BootstrapDefaultAdmin(ctx))
	assert.Len(t, s.Accounts(), 2)
}

func TestRegister(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.True(t, s.Register(ctx, "Alice", "pw", RoleMember))

	// Usernames are unique case-insensitively.
	assert.False(t, s.Register(ctx, "alice", "pw2", RoleMember))
	assert.False(t, s.Register(ctx, "ALICE", "pw2", RoleLibrarian))

	// Empty credentials are rejected without error.
	assert.False(t, s.Register(ctx, "", "pw", RoleMember))
	assert.False(t, s.Register(ctx, "   ", "pw", RoleMember))
	assert.False(t, s.Register(ctx, "bob", "", RoleMember))

	// Unknown roles default to member.
	assert.True(t, s.Register(ctx, "carol", "pw", Role("superuser")))
	accounts := s.Accounts()
	idx := slices.IndexFunc(accounts, func(a Account) bool { return a.Username == "carol" })
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, RoleMember, accounts[idx].Role)
}

func TestLogin(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	require.True(t, s.Register(ctx, "Alice", "secret", RoleLibrarian))

	// Wrong password: no session is created.
	assert.Nil(t, s.Login(ctx, "Alice", "wrong"))
	assert.Nil(t, s.Session())

	// Unknown user.
	assert.Nil(t, s.Login(ctx, "nobody", "secret"))

	// Lookup is case-insensitive; the session snapshots the account.
	sess := s.Login(ctx, "alice", "secret")
	require.NotNil(t, sess)
	assert.Equal(t, "Alice", sess.Username)
	assert.Equal(t, RoleLibrarian, sess.Role)
	assert.False(t, sess.LoggedAt.IsZero())

	// The session is persisted: a fresh store over the same blob sees it.
	reloaded := NewStore(ctx, kv, testHasher, zap.NewNop())
	require.NotNil(t, reloaded.Session())
	assert.Equal(t, *sess, *reloaded.Session())
}

func TestLoginReplacesSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.True(t, s.Register(ctx, "alice", "pw", RoleMember))
	require.True(t, s.Register(ctx, "bob", "pw", RoleAdmin))

	require.NotNil(t, s.Login(ctx, "alice", "pw"))
	require.NotNil(t, s.Login(ctx, "bob", "pw"))

	sess := s.Session()
	require.NotNil(t, sess)
	assert.Equal(t, "bob", sess.Username)
}

func TestLogout(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	// Safe with no active session.
	s.Logout(ctx)
	assert.Nil(t, s.Session())

	require.True(t, s.Register(ctx, "alice", "pw", RoleMember))
	require.NotNil(t, s.Login(ctx, "alice", "pw"))
	s.Logout(ctx)
	assert.Nil(t, s.Session())

	// Cleared from persistence too.
	reloaded := NewStore(ctx, kv, testHasher, zap.NewNop())
	assert.Nil(t, reloaded.Session())
}

func TestAdminRegisterRequiresAdmin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BootstrapDefaultAdmin(ctx))
	require.True(t, s.Register(ctx, "lib", "pw", RoleLibrarian))

	var authErr *AuthorizationError

	// Anonymous caller.
	_, err := s.AdminRegister(ctx, "x", "pw", RoleMember)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, RoleAdmin, authErr.Need)

	// Non-admin session.
	require.NotNil(t, s.Login(ctx, "lib", "pw"))
	_, err = s.AdminRegister(ctx, "x", "pw", RoleMember)
	require.ErrorAs(t, err, &authErr)

	// Admin session delegates to Register.
	require.NotNil(t, s.Login(ctx, DefaultAdminUsername, DefaultAdminPassword))
	created, err := s.AdminRegister(ctx, "x", "pw", RoleMember)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AdminRegister(ctx, "X", "pw", RoleMember)
	require.NoError(t, err)
	assert.False(t, created, "duplicate should report false, not error")
}

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleMember))
	assert.True(t, RoleAdmin.AtLeast(RoleLibrarian))
	assert.True(t, RoleLibrarian.AtLeast(RoleMember))
	assert.False(t, RoleLibrarian.AtLeast(RoleAdmin))
	assert.False(t, RoleMember.AtLeast(RoleLibrarian))
	assert.False(t, Role("bogus").Valid())
}

// TestBootstrapLoginBorrowScenario runs the whole flow: first run on an empty
// store through an admin-registered librarian borrowing a book.
func TestBootstrapLoginBorrowScenario(t *testing.T) {
	ctx := context.Background()
	kv := blob.NewMemoryStore()
	log := zap.NewNop()

	accounts := NewStore(ctx, kv, testHasher, log)
	require.NoError(t, accounts.BootstrapDefaultAdmin(ctx))
	require.Len(t, accounts.Accounts(), 1)
	require.Equal(t, RoleAdmin, accounts.Accounts()[0].Role)

	require.NotNil(t, accounts.Login(ctx, "admin", "admin123"))

	created, err := accounts.AdminRegister(ctx, "lib1", "pw", RoleLibrarian)
	require.NoError(t, err)
	require.True(t, created)

	sess := accounts.Login(ctx, "lib1", "pw")
	require.NotNil(t, sess)
	require.True(t, sess.Role.AtLeast(RoleLibrarian))

	books := catalog.NewStore(ctx, kv, log)
	book, err := books.Add(ctx, catalog.AddParams{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	borrowed, err := books.Borrow(ctx, book.ID, sess.Username, "")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusBorrowed, borrowed.Status)
}
