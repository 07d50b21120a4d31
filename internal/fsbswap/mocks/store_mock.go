package mocks

import (
	"errors"
	"sync"

	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// MockBankStore はBankStoreのモック実装です
type MockBankStore struct {
	mu        sync.Mutex
	Banks     map[string]*fsb.Bank
	Saved     map[string]*fsb.Bank
	LoadError error
	SaveError error
}

// NewMockBankStore は新しいMockBankStoreを作成します
func NewMockBankStore() *MockBankStore {
	return &MockBankStore{
		Banks: make(map[string]*fsb.Bank),
		Saved: make(map[string]*fsb.Bank),
	}
}

// Load はモック実装です
func (m *MockBankStore) Load(path string, profile fsb.Profile) (*fsb.Bank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	b, ok := m.Banks[path]
	if !ok {
		return nil, errors.New("bank not found")
	}
	return b, nil
}

// Save はモック実装です
func (m *MockBankStore) Save(path string, bank *fsb.Bank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Saved[path] = bank
	return nil
}
