package hooks

import (
	"context"

	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/service"
)

// Accounts 注册/登录/登出
type Accounts interface {
	SignUp(ctx context.Context, handle *service.AuthHandle, email, password, fullName string) (*model.SignedInUser, error)
	SignIn(ctx context.Context, handle *service.AuthHandle, email, password string) (*model.SignedInUser, error)
	SignOut(ctx context.Context, handle *service.AuthHandle) error
}

// AuthHooks 认证操作，作用于所属客户端的身份句柄
type AuthHooks struct {
	accounts Accounts
	handle   *service.AuthHandle
	state    *State
	life     *lifetime
}

func NewAuthHooks(accounts Accounts, handle *service.AuthHandle) *AuthHooks {
	state := &State{}
	return &AuthHooks{
		accounts: accounts,
		handle:   handle,
		state:    state,
		life:     newLifetime(state),
	}
}

func (h *AuthHooks) State() Snapshot { return h.state.Snapshot() }

func (h *AuthHooks) ClearError() { h.state.ClearError() }

func (h *AuthHooks) SignIn(ctx context.Context, email, password string) (*model.SignedInUser, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.SignedInUser, error) {
		return h.accounts.SignIn(ctx, h.handle, email, password)
	})
}

func (h *AuthHooks) SignUp(ctx context.Context, email, password, fullName string) (*model.SignedInUser, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.SignedInUser, error) {
		return h.accounts.SignUp(ctx, h.handle, email, password, fullName)
	})
}

func (h *AuthHooks) SignOut(ctx context.Context) error {
	_, err := run(ctx, h.life, h.state, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.accounts.SignOut(ctx, h.handle)
	})
	return err
}

func (h *AuthHooks) Teardown() { h.life.teardown() }
