package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
)

// OSFileSystem は実際のOSファイルシステムを使用する実装
type OSFileSystem struct{}

// NewOSFileSystem は新しいOSFileSystemを作成します
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// FileExists はファイルが存在するか確認します
func (fs *OSFileSystem) FileExists(filename string) bool {
	return FileExists(filename)
}

// ReadFile はファイルを読み込みます
func (fs *OSFileSystem) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// WriteFile はファイルをアトミックに書き込みます
func (fs *OSFileSystem) WriteFile(filename string, data []byte, perm uint32) error {
	return WriteFileAtomic(filename, data, os.FileMode(perm))
}

// MkdirAll はディレクトリを作成します
func (fs *OSFileSystem) MkdirAll(path string, perm uint32) error {
	return os.MkdirAll(path, os.FileMode(perm))
}

// Stat はファイル情報を取得します
func (fs *OSFileSystem) Stat(name string) (interfaces.FileInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ReadDir はディレクトリを読み込みます
func (fs *OSFileSystem) ReadDir(dirname string) ([]interfaces.DirEntry, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}

	result := make([]interfaces.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = entry
	}
	return result, nil
}

// BankFileFinder はディレクトリ内のバンクファイルを検索します
type BankFileFinder struct {
	fs interfaces.FileSystem
}

// NewBankFileFinder は新しいBankFileFinderを作成します
func NewBankFileFinder(fs interfaces.FileSystem) *BankFileFinder {
	return &BankFileFinder{fs: fs}
}

// Find は dir 直下の .fsb と .fsb.dcx を名前順で返します
func (f *BankFileFinder) Find(dir string) ([]string, error) {
	files, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadDirectory, dir, err)
	}

	var banks []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if BankFilePattern.MatchString(file.Name()) {
			banks = append(banks, filepath.Join(dir, file.Name()))
		}
	}
	slices.Sort(banks)
	return banks, nil
}
