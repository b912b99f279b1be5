package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fletoads/internal/types"
)

func newTestAuthenticator(sessions *mockSessionRepo, users *mockUserRepo) *sessionAuthenticator {
	tokenGen := &mockTokenGenerator{sessionID: "sess_fixed", csrf: "csrf_fixed"}
	sessionSvc := NewSessionService(sessions, tokenGen, DefaultSessionConfig(), fixedClock{testNow}, discardLogger())
	return NewSessionAuthenticator(sessionSvc, users, discardLogger())
}

func validSession() *types.Sessao {
	return &types.Sessao{
		ID:        "sess_abc",
		UsuarioID: "user_1",
		LojaID:    "loja_1",
		CSRFToken: "csrf_abc",
		ExpiresAt: testNow.Add(time.Hour),
	}
}

func TestResolveToken_Success(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)
	authn := newTestAuthenticator(sessions, users)

	user := activeUser()
	user.Role = types.RoleAdmin
	sessions.On("GetByID", mock.Anything, "sess_abc").Return(validSession(), nil)
	users.On("GetByID", mock.Anything, "user_1").Return(user, nil)
	sessions.On("TouchActivity", mock.Anything, "sess_abc").Return(nil)

	actor, csrf, err := authn.ResolveToken(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, "user_1", actor.ID)
	assert.Equal(t, types.ActorTypeUser, actor.Type)
	assert.Equal(t, types.RoleAdmin, actor.Role)
	assert.Equal(t, "loja_1", actor.LojaID)
	assert.Equal(t, "csrf_abc", csrf)
}

func TestResolveToken_BadPrefix(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)
	authn := newTestAuthenticator(sessions, users)

	_, _, err := authn.ResolveToken(context.Background(), "tok_abc")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
	sessions.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolveToken_ExpiredSession(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)
	authn := newTestAuthenticator(sessions, users)

	expired := validSession()
	expired.ExpiresAt = testNow.Add(-time.Minute)
	sessions.On("GetByID", mock.Anything, "sess_abc").Return(expired, nil)

	_, _, err := authn.ResolveToken(context.Background(), "sess_abc")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthSessionExpired, appErr.Code)
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolveToken_UserGone(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)
	authn := newTestAuthenticator(sessions, users)

	sessions.On("GetByID", mock.Anything, "sess_abc").Return(validSession(), nil)
	users.On("GetByID", mock.Anything, "user_1").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil))

	_, _, err := authn.ResolveToken(context.Background(), "sess_abc")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, appErr.Code)
	assert.Equal(t, 401, appErr.HTTPStatus())
}

func TestResolveToken_InactiveUser(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)
	authn := newTestAuthenticator(sessions, users)

	user := activeUser()
	user.Status = types.UserStatusInactive
	sessions.On("GetByID", mock.Anything, "sess_abc").Return(validSession(), nil)
	users.On("GetByID", mock.Anything, "user_1").Return(user, nil)

	_, _, err := authn.ResolveToken(context.Background(), "sess_abc")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthAccountNotActive, appErr.Code)
	sessions.AssertNotCalled(t, "TouchActivity", mock.Anything, mock.Anything)
}

func TestResolveToken_TouchFailureIsNonFatal(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)
	authn := newTestAuthenticator(sessions, users)

	sessions.On("GetByID", mock.Anything, "sess_abc").Return(validSession(), nil)
	users.On("GetByID", mock.Anything, "user_1").Return(activeUser(), nil)
	sessions.On("TouchActivity", mock.Anything, "sess_abc").Return(assert.AnError)

	actor, _, err := authn.ResolveToken(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, "user_1", actor.ID)
}
