// Package session 维护每个客户端的身份状态与路由守卫
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/repository"
)

// State 身份状态
type State string

const (
	Initializing  State = "initializing"
	Authenticated State = "authenticated"
	Anonymous     State = "anonymous"
)

const (
	PublicEntry        = "/"
	AuthenticatedEntry = "/dashboard"

	profileLoadTimeout = 10 * time.Second
)

// 仅未登录可访问的入口
var unauthenticatedOnly = []string{"/", "/sign-in", "/sign-up"}

// 需要登录的路由前缀
var protectedPrefixes = []string{"/dashboard", "/watchlist", "/settings"}

// Navigator 执行跳转
type Navigator interface {
	Navigate(path string)
}

// AuthSource 身份变化来源
type AuthSource interface {
	OnAuthStateChanged(fn func(*model.AuthUser)) func()
	CurrentUser() *model.AuthUser
}

// Provider 客户端身份状态机：Initializing → Authenticated / Anonymous
type Provider struct {
	auth     AuthSource
	profiles repository.ProfileStore
	nav      Navigator
	log      *logrus.Entry

	mu          sync.RWMutex
	state       State
	user        *model.AuthUser
	profile     *model.UserProfile
	location    string
	unsubscribe func()

	ready     chan struct{}
	readyOnce sync.Once
}

// NewProvider 创建 Provider，调用 Init 后开始监听
func NewProvider(auth AuthSource, profiles repository.ProfileStore, nav Navigator) *Provider {
	return &Provider{
		auth:     auth,
		profiles: profiles,
		nav:      nav,
		log:      logger.For("session"),
		state:    Initializing,
		location: PublicEntry,
		ready:    make(chan struct{}),
	}
}

// Init 订阅身份变化，重复调用无效
func (p *Provider) Init() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsubscribe != nil {
		return
	}
	p.unsubscribe = p.auth.OnAuthStateChanged(p.onAuthStateChanged)
}

// Teardown 取消订阅，可重复调用
func (p *Provider) Teardown() {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (p *Provider) onAuthStateChanged(user *model.AuthUser) {
	var profile *model.UserProfile
	if user != nil {
		profile = p.loadProfile(user.UID)
	}

	p.mu.Lock()
	var target string
	if user != nil {
		p.state = Authenticated
		p.user = user
		p.profile = profile
		if isUnauthenticatedOnly(p.location) {
			target = AuthenticatedEntry
		}
	} else {
		p.state = Anonymous
		p.user = nil
		p.profile = nil
		if isProtected(p.location) {
			target = PublicEntry
		}
	}
	if target != "" {
		p.location = target
	}
	p.mu.Unlock()

	p.readyOnce.Do(func() { close(p.ready) })

	if target != "" && p.nav != nil {
		p.nav.Navigate(target)
	}
}

// loadProfile 读取失败或不存在都视为没有资料
func (p *Provider) loadProfile(uid string) *model.UserProfile {
	ctx, cancel := context.WithTimeout(context.Background(), profileLoadTimeout)
	defer cancel()

	profile, err := p.profiles.GetProfile(ctx, uid)
	if err != nil {
		p.log.WithError(err).WithField("uid", uid).Warn("failed to load user profile")
		return nil
	}
	return profile
}

// WaitReady 阻塞直到首次身份回调完成
func (p *Provider) WaitReady(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loading 首次回调之前为 true
func (p *Provider) Loading() bool {
	select {
	case <-p.ready:
		return false
	default:
		return true
	}
}

func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Provider) User() *model.AuthUser {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

func (p *Provider) Profile() *model.UserProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return nil
	}
	profile := *p.profile
	return &profile
}

func (p *Provider) Location() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.location
}

// RefreshProfile 重新读取当前身份的资料，未登录时返回 nil, nil
func (p *Provider) RefreshProfile(ctx context.Context) (*model.UserProfile, error) {
	p.mu.RLock()
	user := p.user
	p.mu.RUnlock()
	if user == nil {
		return nil, nil
	}

	profile, err := p.profiles.GetProfile(ctx, user.UID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.user != nil && p.user.UID == user.UID {
		p.profile = profile
	}
	p.mu.Unlock()

	if profile == nil {
		return nil, nil
	}
	out := *profile
	return &out, nil
}

// SetLocation 记录当前所在路由
func (p *Provider) SetLocation(path string) {
	p.mu.Lock()
	p.location = path
	p.mu.Unlock()
}

// Guard 按当前状态判断访问 path 是否需要跳转，返回跳转目标
func (p *Provider) Guard(path string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.state {
	case Authenticated:
		if isUnauthenticatedOnly(path) {
			return AuthenticatedEntry, true
		}
	case Anonymous:
		if isProtected(path) {
			return PublicEntry, true
		}
	}
	return "", false
}

func isUnauthenticatedOnly(path string) bool {
	for _, p := range unauthenticatedOnly {
		if path == p {
			return true
		}
	}
	return false
}

func isProtected(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
