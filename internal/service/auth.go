package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredential 邮箱不存在或密码错误
var ErrInvalidCredential = errors.New("auth/invalid-credential")

// Claims JWT 声明
type Claims struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

type createUserInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// AuthService 身份服务：账号、令牌签发与吊销
type AuthService struct {
	credentials repository.CredentialStore
	revocations repository.RevocationStore
	secret      []byte
	expiry      time.Duration
	validate    *validator.Validate
	now         func() time.Time
	log         *logrus.Entry
}

// NewAuthService 创建身份服务
func NewAuthService(credentials repository.CredentialStore, revocations repository.RevocationStore, secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		credentials: credentials,
		revocations: revocations,
		secret:      []byte(secret),
		expiry:      expiry,
		validate:    validator.New(),
		now:         time.Now,
		log:         logger.For("auth"),
	}
}

// CreateUser 注册账号
func (s *AuthService) CreateUser(ctx context.Context, email, password, displayName string) (*model.Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.validate.Struct(createUserInput{Email: email, Password: password}); err != nil {
		return nil, validationMessage(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("Failed to create account", err)
	}

	cred := &model.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    s.now(),
	}
	if err := s.credentials.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperr.Duplicate("Email already in use")
		}
		return nil, apperr.Internal("Failed to create account", err)
	}

	s.log.WithField("uid", cred.UID).Info("account created")
	return cred, nil
}

// SignInWithPassword 邮箱密码校验
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*model.Credential, error) {
	cred, err := s.credentials.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, apperr.Internal("Failed to sign in", err)
	}
	if cred == nil {
		return nil, ErrInvalidCredential
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredential
	}
	return cred, nil
}

// IssueToken 签发 JWT，每个令牌带唯一 jti 以便吊销
func (s *AuthService) IssueToken(user *model.AuthUser) (string, error) {
	now := s.now()
	claims := &Claims{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken 解析令牌并检查是否已吊销
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, apperr.Auth("Invalid or expired session")
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Internal("Failed to verify session", err)
	}
	if revoked {
		return nil, apperr.Auth("Session has been signed out")
	}
	return claims, nil
}

// Revoke 吊销令牌，保留到令牌自然过期
func (s *AuthService) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		// 已过期或无效的令牌无需吊销
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, ttl)
}

// Inspect 只解析令牌，不检查吊销
func (s *AuthService) Inspect(tokenString string) (*Claims, error) {
	return s.parse(tokenString)
}

// ShouldRefresh 已消耗超过一半有效期时建议续期
func (s *AuthService) ShouldRefresh(claims *Claims) bool {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false
	}
	total := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	elapsed := s.now().Sub(claims.IssuedAt.Time)
	return elapsed > total/2
}

// Expiry 令牌有效期
func (s *AuthService) Expiry() time.Duration {
	return s.expiry
}

func (s *AuthService) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation(err.Error())
	}
	switch fe := verrs[0]; {
	case fe.Field() == "Email" && fe.Tag() == "required":
		return apperr.Validation("Email is required")
	case fe.Field() == "Email":
		return apperr.Validation("Invalid email address")
	case fe.Field() == "Password" && fe.Tag() == "min":
		return apperr.Validation("Password should be at least 6 characters")
	default:
		return apperr.Validation("Password is required")
	}
}

// ==================== 客户端身份句柄 ====================

type authEvent struct {
	seq  uint64
	user *model.AuthUser
	// 非 0 时只通知这一个订阅者（订阅时的首次回调）
	listener uint64
}

// AuthHandle 单个客户端的身份状态
// 状态变化按发生顺序在独立的 goroutine 中通知订阅者
type AuthHandle struct {
	svc *AuthService

	mu        sync.Mutex
	user      *model.AuthUser
	token     string
	listeners map[uint64]func(*model.AuthUser)
	nextID    uint64
	queue     []authEvent
	published uint64
	delivered uint64
	progress  chan struct{}
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHandle 创建未登录的身份句柄
func (s *AuthService) NewHandle() *AuthHandle {
	h := &AuthHandle{
		svc:       s,
		listeners: make(map[uint64]func(*model.AuthUser)),
		progress:  make(chan struct{}),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go h.dispatch()
	return h
}

// CurrentUser 当前身份，未登录返回 nil
func (h *AuthHandle) CurrentUser() *model.AuthUser {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyUser(h.user)
}

// Token 当前令牌
func (h *AuthHandle) Token() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

// OnAuthStateChanged 订阅身份变化，订阅后立即以当前状态回调一次
// 返回取消订阅函数
func (h *AuthHandle) OnAuthStateChanged(fn func(*model.AuthUser)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	h.enqueueLocked(h.user, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// SignUp 注册并登录
func (h *AuthHandle) SignUp(ctx context.Context, email, password, displayName string) (*model.AuthUser, error) {
	cred, err := h.svc.CreateUser(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	return h.establish(cred)
}

// SignIn 邮箱密码登录
func (h *AuthHandle) SignIn(ctx context.Context, email, password string) (*model.AuthUser, error) {
	cred, err := h.svc.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return h.establish(cred)
}

// SignOut 吊销当前令牌并切换为未登录
func (h *AuthHandle) SignOut(ctx context.Context) error {
	h.mu.Lock()
	token := h.token
	h.mu.Unlock()

	if token != "" {
		if err := h.svc.Revoke(ctx, token); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.user == nil && h.token == "" {
		return nil
	}
	h.user = nil
	h.token = ""
	h.enqueueLocked(nil, 0)
	return nil
}

// Restore 用已有令牌恢复登录状态
func (h *AuthHandle) Restore(ctx context.Context, token string) (*model.AuthUser, error) {
	claims, err := h.svc.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	user := &model.AuthUser{UID: claims.UID, Email: claims.Email, DisplayName: claims.DisplayName}

	h.mu.Lock()
	defer h.mu.Unlock()
	changed := h.user == nil || h.user.UID != user.UID
	h.user = user
	h.token = token
	if changed {
		h.enqueueLocked(user, 0)
	}
	return copyUser(user), nil
}

// RefreshToken 为当前身份换发新令牌，不触发状态通知
func (h *AuthHandle) RefreshToken() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.user == nil {
		return "", apperr.Auth("Not signed in")
	}
	token, err := h.svc.IssueToken(h.user)
	if err != nil {
		return "", err
	}
	h.token = token
	return token, nil
}

// Settle 等待当前已产生的状态通知全部送达
func (h *AuthHandle) Settle(ctx context.Context) error {
	h.mu.Lock()
	target := h.published
	h.mu.Unlock()

	for {
		h.mu.Lock()
		if h.delivered >= target {
			h.mu.Unlock()
			return nil
		}
		progress := h.progress
		h.mu.Unlock()

		select {
		case <-progress:
		case <-h.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close 停止通知并清空订阅者
func (h *AuthHandle) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.listeners = make(map[uint64]func(*model.AuthUser))
		h.queue = nil
		h.mu.Unlock()
		close(h.done)
	})
}

func (h *AuthHandle) establish(cred *model.Credential) (*model.AuthUser, error) {
	user := &model.AuthUser{UID: cred.UID, Email: cred.Email, DisplayName: cred.DisplayName}
	token, err := h.svc.IssueToken(user)
	if err != nil {
		return nil, apperr.Internal("Failed to issue session token", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = user
	h.token = token
	h.enqueueLocked(user, 0)
	return copyUser(user), nil
}

func (h *AuthHandle) enqueueLocked(user *model.AuthUser, listener uint64) {
	h.published++
	h.queue = append(h.queue, authEvent{seq: h.published, user: copyUser(user), listener: listener})
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *AuthHandle) dispatch() {
	for {
		select {
		case <-h.done:
			return
		case <-h.wake:
		}

		for {
			h.mu.Lock()
			if len(h.queue) == 0 {
				h.mu.Unlock()
				break
			}
			ev := h.queue[0]
			h.queue = h.queue[1:]

			var targets []func(*model.AuthUser)
			if ev.listener != 0 {
				if fn, ok := h.listeners[ev.listener]; ok {
					targets = append(targets, fn)
				}
			} else {
				for _, fn := range h.listeners {
					targets = append(targets, fn)
				}
			}
			h.mu.Unlock()

			for _, fn := range targets {
				fn(copyUser(ev.user))
			}

			h.mu.Lock()
			h.delivered = ev.seq
			close(h.progress)
			h.progress = make(chan struct{})
			h.mu.Unlock()
		}
	}
}

func copyUser(u *model.AuthUser) *model.AuthUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
