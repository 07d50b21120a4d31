// Package mocks はテスト用のモック実装を提供します
package mocks

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
)

// MockFileSystem はテスト用のファイルシステムモック
type MockFileSystem struct {
	mu         sync.Mutex
	Files      map[string][]byte
	Dirs       map[string]bool
	Error      error
	WriteError error
	Writes     int
}

// NewMockFileSystem は新しいMockFileSystemを作成します
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files: make(map[string][]byte),
		Dirs:  make(map[string]bool),
	}
}

// FileExists はファイルが存在するか確認します
func (m *MockFileSystem) FileExists(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.Files[filename]
	return exists
}

// ReadFile はファイルを読み込みます
func (m *MockFileSystem) ReadFile(filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	data, exists := m.Files[filename]
	if !exists {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

// WriteFile はファイルを書き込みます
func (m *MockFileSystem) WriteFile(filename string, data []byte, perm uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	if m.WriteError != nil {
		return m.WriteError
	}
	m.Files[filename] = append([]byte(nil), data...)
	m.Writes++
	return nil
}

// MkdirAll はディレクトリを作成します
func (m *MockFileSystem) MkdirAll(path string, perm uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	m.Dirs[path] = true
	return nil
}

// Stat はファイル情報を取得します
func (m *MockFileSystem) Stat(name string) (interfaces.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	if data, exists := m.Files[name]; exists {
		return &MockFileInfo{name: filepath.Base(name), size: int64(len(data))}, nil
	}
	if _, exists := m.Dirs[name]; exists {
		return &MockFileInfo{name: filepath.Base(name), isDir: true}, nil
	}
	return nil, fs.ErrNotExist
}

// ReadDir はディレクトリを読み込みます
func (m *MockFileSystem) ReadDir(dirname string) ([]interfaces.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}

	var entries []interfaces.DirEntry
	for path := range m.Files {
		if filepath.Dir(path) == dirname {
			entries = append(entries, &MockDirEntry{name: filepath.Base(path)})
		}
	}
	for path := range m.Dirs {
		if filepath.Dir(path) == dirname && path != dirname {
			entries = append(entries, &MockDirEntry{name: filepath.Base(path), isDir: true})
		}
	}
	if len(entries) == 0 && !m.Dirs[dirname] {
		return nil, errors.New("directory not found")
	}
	return entries, nil
}

// File は書き込まれたファイルを返します
func (m *MockFileSystem) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Files[name]
	return data, ok
}

// MockFileInfo はテスト用のFileInfo実装
type MockFileInfo struct {
	name  string
	isDir bool
	size  int64
}

// Name はファイル名を返します
func (fi *MockFileInfo) Name() string {
	return fi.name
}

// IsDir はディレクトリかどうかを返します
func (fi *MockFileInfo) IsDir() bool {
	return fi.isDir
}

// Size はファイルサイズを返します
func (fi *MockFileInfo) Size() int64 {
	return fi.size
}

// MockDirEntry はテスト用のDirEntry実装
type MockDirEntry struct {
	name  string
	isDir bool
}

// Name はエントリ名を返します
func (de *MockDirEntry) Name() string {
	return de.name
}

// IsDir はディレクトリかどうかを返します
func (de *MockDirEntry) IsDir() bool {
	return de.isDir
}
