package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Session は1つのバンクファイルに対する編集を管理します。
// 差し替えは1件ずつ直列に実行され、読み取りは常に整合したスナップショットを返します。
type Session struct {
	mu       sync.Mutex
	orch     *Orchestrator
	store    interfaces.BankStore
	path     string
	bank     atomic.Pointer[fsb.Bank]
	modified atomic.Bool
}

// NewSession は読み込み済みのバンクからSessionを作成します
func NewSession(orch *Orchestrator, store interfaces.BankStore, path string, bank *fsb.Bank) *Session {
	s := &Session{orch: orch, store: store, path: path}
	s.bank.Store(bank)
	return s
}

// OpenSession はバンクファイルを読み込んでSessionを作成します
func OpenSession(orch *Orchestrator, store interfaces.BankStore, path string, profile fsb.Profile) (*Session, error) {
	bank, err := store.Load(path, profile)
	if err != nil {
		return nil, err
	}
	return NewSession(orch, store, path, bank), nil
}

// Path はバンクファイルのパスを返します
func (s *Session) Path() string {
	return s.path
}

// Bank は現在のバンクを返します
func (s *Session) Bank() *fsb.Bank {
	return s.bank.Load()
}

// Modified は保存されていない変更があるかを返します
func (s *Session) Modified() bool {
	return s.modified.Load()
}

// Stage は index 番目のサンプルを audio で差し替えます。
// 失敗した場合、現在のバンクは変更されません。
func (s *Session) Stage(ctx context.Context, index int, audio []byte) (*fsb.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.orch.StageReplacement(ctx, s.bank.Load(), index, audio)
	if err != nil {
		return nil, err
	}
	s.bank.Store(next)
	s.modified.Store(true)
	return next, nil
}

// Save は現在のバンクを path に保存します。path が空の場合は読み込み元に上書きします
func (s *Session) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		path = s.path
	}
	if err := s.store.Save(path, s.bank.Load()); err != nil {
		return err
	}
	s.modified.Store(false)
	return nil
}
