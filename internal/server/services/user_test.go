package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/cryptox"
	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/products"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/sqlitetest"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

var testKey = []byte("services-test-key-services-test-key-01")

func newTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testKey, 3*time.Hour)
	require.NoError(t, err)
	return tm
}

func newSQLiteUserService(t *testing.T) (*UserService, *sql.DB) {
	t.Helper()
	db := sqlitetest.Open(t)
	return NewUserService(db, repomanager.New(dbx.SQLite), newTokens(t), nil), db
}

type fakeUsersRepo struct {
	mu      sync.Mutex
	byName  map[string]*models.User
	getErr  error
	createE error
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createE != nil {
		return nil, f.createE
	}
	if f.byName == nil {
		f.byName = map[string]*models.User{}
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = int64(len(f.byName) + 1)
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(_ context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byName[name]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeRepoMgr struct {
	users    users.Repository
	products products.Repository
}

func (m *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoMgr) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *fakeRepoMgr) Products(dbx.DBTX) products.Repository       { return m.products }

// --- tests ---

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newSQLiteUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "Secret123!", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))

	res, err := svc.Login(ctx, "alice", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, models.RoleUser, res.Role)
	assert.WithinDuration(t, time.Now().Add(3*time.Hour), res.ExpiresAt, 5*time.Second)

	claims, err := newTokens(t).Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newSQLiteUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123!", "a@example.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "different", "other@example.com")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	res, err := svc.Login(ctx, "alice", "Secret123!")
	require.NoError(t, err, "original credentials untouched")
	assert.Equal(t, "alice", res.Username)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewUserService(nil, &fakeRepoMgr{users: &fakeUsersRepo{}}, newTokens(t), nil)

	for _, tc := range [][3]string{
		{"", "pw", "e@x"},
		{"bob", "", "e@x"},
		{"bob", "pw", ""},
		{"   ", "pw", "e@x"},
		{"bob", "pw", "\t"},
	} {
		_, err := svc.Register(context.Background(), tc[0], tc[1], tc[2])
		assert.ErrorIs(t, err, common.ErrorValidation, "%q", tc)
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	svc := NewUserService(nil, &fakeRepoMgr{users: &fakeUsersRepo{createE: errors.New("disk full")}}, newTokens(t), nil)

	_, err := svc.Register(context.Background(), "bob", "pw", "b@x")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogin_FailuresAreOpaque(t *testing.T) {
	svc, _ := newSQLiteUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123!", "a@example.com")
	require.NoError(t, err)

	_, errWrongPw := svc.Login(ctx, "alice", "nope")
	_, errUnknown := svc.Login(ctx, "mallory", "Secret123!")
	_, errCase := svc.Login(ctx, "Alice", "Secret123!")

	for _, err := range []error{errWrongPw, errUnknown, errCase} {
		require.Error(t, err)
		assert.Same(t, common.ErrorUnauthorized, err)
	}
}

func TestLogin_StoreFailureIsInternal(t *testing.T) {
	svc := NewUserService(nil, &fakeRepoMgr{users: &fakeUsersRepo{getErr: errors.New("conn reset")}}, newTokens(t), nil)

	_, err := svc.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogin_CorruptHashIsInternal(t *testing.T) {
	repo := &fakeUsersRepo{byName: map[string]*models.User{
		"alice": {ID: 1, UserName: "alice", PasswordHash: "sha256:deadbeef", Role: models.RoleUser},
	}}
	svc := NewUserService(nil, &fakeRepoMgr{users: repo}, newTokens(t), nil)

	_, err := svc.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestEnsureAdmin(t *testing.T) {
	svc, _ := newSQLiteUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "Admin123!", "admin@example.com"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "changed", "admin@example.com"), "second run is a no-op")

	res, err := svc.Login(ctx, "admin", "Admin123!")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.Role)

	_, err = svc.Login(ctx, "admin", "changed")
	assert.ErrorIs(t, err, common.ErrorUnauthorized, "existing admin keeps its password")
}

func TestEnsureAdmin_DisabledAndErrors(t *testing.T) {
	repo := &fakeUsersRepo{}
	svc := NewUserService(nil, &fakeRepoMgr{users: repo}, newTokens(t), nil)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "", "", ""))
	assert.Empty(t, repo.byName)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "root", "pw", ""))
	assert.Equal(t, "root@localhost", repo.byName["root"].Email)

	broken := NewUserService(nil, &fakeRepoMgr{users: &fakeUsersRepo{getErr: errors.New("down")}}, newTokens(t), nil)
	assert.Error(t, broken.EnsureAdmin(context.Background(), "admin", "pw", ""))
}

func TestRegister_CannotSelfAssignAdmin(t *testing.T) {
	svc, _ := newSQLiteUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Admin", "pw", "x@y")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "Admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.Role)
}

func TestDummyHashIsUsedForUnknownUsers(t *testing.T) {
	ok, err := cryptox.VerifyPassword("whatever", cryptox.DummyHash())
	require.NoError(t, err)
	assert.False(t, ok)
}
