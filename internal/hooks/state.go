// Package hooks 为每类外部依赖提供统一的异步调用约定：
// 调用开始时置 loading 并清空 error，失败时记录消息并返回错误，结束时总是清除 loading。
package hooks

import (
	"context"
	"errors"
	"sync"
)

// ErrTornDown 钩子已销毁
var ErrTornDown = errors.New("hooks: torn down")

// Snapshot 某一时刻的 loading/error
type Snapshot struct {
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

// State 一组操作共享的 loading/error 状态
// 只有最近一次调用的结果会写回状态
type State struct {
	mu        sync.Mutex
	isLoading bool
	err       string
	gen       uint64
	closed    bool
}

// Snapshot 当前状态
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{IsLoading: s.isLoading, Error: s.err}
}

// ClearError 清空错误
func (s *State) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

func (s *State) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if !s.closed {
		s.isLoading = true
		s.err = ""
	}
	return s.gen
}

func (s *State) finish(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	s.isLoading = false
	if err != nil {
		s.err = err.Error()
	}
}

func (s *State) close() {
	s.mu.Lock()
	s.closed = true
	s.isLoading = false
	s.mu.Unlock()
}

// lifetime 钩子集合的生命周期，销毁时取消所有进行中的调用
type lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
	states []*State
	once   sync.Once
}

func newLifetime(states ...*State) *lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	return &lifetime{ctx: ctx, cancel: cancel, states: states}
}

// bind 合并调用方 ctx 与生命周期
func (l *lifetime) bind(parent context.Context) (context.Context, context.CancelFunc, error) {
	if l.ctx.Err() != nil {
		return nil, nil, ErrTornDown
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(l.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

func (l *lifetime) teardown() {
	l.once.Do(func() {
		for _, s := range l.states {
			s.close()
		}
		l.cancel()
	})
}

// run 按统一约定执行一次操作
func run[T any](parent context.Context, l *lifetime, s *State, op func(ctx context.Context) (T, error)) (result T, err error) {
	ctx, cancel, err := l.bind(parent)
	if err != nil {
		return result, err
	}
	defer cancel()

	gen := s.begin()
	defer func() { s.finish(gen, err) }()

	return op(ctx)
}
