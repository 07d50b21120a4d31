// Package interfaces はfsbswapコマンドで使用するインターフェースを定義します
package interfaces

import (
	"context"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// FileSystem はファイルシステム操作のインターフェース
type FileSystem interface {
	FileExists(filename string) bool
	ReadFile(filename string) ([]byte, error)
	WriteFile(filename string, data []byte, perm uint32) error
	MkdirAll(path string, perm uint32) error
	Stat(name string) (FileInfo, error)
	ReadDir(dirname string) ([]DirEntry, error)
}

// FileInfo はファイル情報のインターフェース
type FileInfo interface {
	Name() string
	IsDir() bool
	Size() int64
}

// DirEntry はディレクトリエントリのインターフェース
type DirEntry interface {
	Name() string
	IsDir() bool
}

// FormatConverter は任意の音声データを指定形式の16ビットPCMに変換します
type FormatConverter interface {
	Convert(ctx context.Context, data []byte, target models.Target) (pcm.Buffer, error)
}

// SampleEncoder はPCMをバンクのコーデックで圧縮します
type SampleEncoder interface {
	Encode(ctx context.Context, buf pcm.Buffer, opts models.EncodeOptions) (models.Encoded, error)
}

// BankStore はバンクファイルの読み書きを行います
type BankStore interface {
	Load(path string, profile fsb.Profile) (*fsb.Bank, error)
	Save(path string, bank *fsb.Bank) error
}
