package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/user/watchwise/internal/hooks"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/repository"
	"github.com/user/watchwise/internal/service"
)

// Navigation 记录状态机产生的跳转，由下一次响应带给客户端
type Navigation struct {
	mu      sync.Mutex
	pending string
}

func (n *Navigation) Navigate(path string) {
	n.mu.Lock()
	n.pending = path
	n.mu.Unlock()
}

// Take 取出并清空待处理的跳转
func (n *Navigation) Take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	path := n.pending
	n.pending = ""
	return path
}

// Client 一个浏览器会话对应的身份句柄、状态机和钩子
type Client struct {
	ID         string
	Auth       *service.AuthHandle
	Provider   *Provider
	Navigation *Navigation
	Movies     *hooks.MovieHooks
	Watchlists *hooks.WatchlistHooks
	Account    *hooks.AuthHooks

	closeOnce sync.Once
}

// Close 先销毁钩子，再销毁状态机和身份句柄
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.Movies.Teardown()
		c.Watchlists.Teardown()
		c.Account.Teardown()
		c.Provider.Teardown()
		c.Auth.Close()
	})
}

// Dependencies 创建 Client 所需的共享服务
type Dependencies struct {
	Auth       *service.AuthService
	Accounts   hooks.Accounts
	Catalog    hooks.Catalog
	Watchlists hooks.Watchlists
	Profiles   repository.ProfileStore
}

// Registry 按会话 id 保存 Client，空闲超时后淘汰并关闭
type Registry struct {
	deps  Dependencies
	items *cache.Cache
	mu    sync.Mutex
	log   *logrus.Entry
}

// NewRegistry idle 为空闲淘汰时间
func NewRegistry(deps Dependencies, idle time.Duration) *Registry {
	r := &Registry{
		deps:  deps,
		items: cache.New(idle, idle/4+time.Minute),
		log:   logger.For("session"),
	}
	r.items.OnEvicted(func(id string, v interface{}) {
		if c, ok := v.(*Client); ok {
			c.Close()
			r.log.WithField("session_id", id).Debug("client closed")
		}
	})
	return r
}

// Acquire 获取会话对应的 Client，不存在时创建，返回值 created 表示是否新建
func (r *Registry) Acquire(id string) (client *Client, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.items.Get(id); ok {
		client = v.(*Client)
		// 重新写入以刷新空闲计时
		r.items.SetDefault(id, client)
		return client, false
	}

	client = r.newClient(id)
	r.items.SetDefault(id, client)
	return client, true
}

// Remove 移除并关闭
func (r *Registry) Remove(id string) {
	r.items.Delete(id)
}

// Len 当前会话数
func (r *Registry) Len() int {
	return r.items.ItemCount()
}

// Close 关闭所有 Client
func (r *Registry) Close() {
	for id := range r.items.Items() {
		r.items.Delete(id)
	}
}

func (r *Registry) newClient(id string) *Client {
	handle := r.deps.Auth.NewHandle()
	nav := &Navigation{}
	provider := NewProvider(handle, r.deps.Profiles, nav)
	provider.Init()

	return &Client{
		ID:         id,
		Auth:       handle,
		Provider:   provider,
		Navigation: nav,
		Movies:     hooks.NewMovieHooks(r.deps.Catalog),
		Watchlists: hooks.NewWatchlistHooks(r.deps.Watchlists, handle),
		Account:    hooks.NewAuthHooks(r.deps.Accounts, handle),
	}
}
