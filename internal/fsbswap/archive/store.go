// Package archive はバンクファイルの読み込みと保存を行います
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	fsberrors "github.com/shiroemons/go-fsbswap/internal/fsbswap/errors"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/pkg/dcx"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Store はファイルシステム上のバンクを読み書きします。
// DCXで包まれたバンクは読み込み時に展開し、保存時に同じ形式で包み直します。
type Store struct {
	fs     interfaces.FileSystem
	logger *slog.Logger

	mu         sync.Mutex
	containers map[string]*dcx.Container
}

// StoreOption はStoreの設定です
type StoreOption func(*Store)

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore は新しいStoreを作成します
func NewStore(fsys interfaces.FileSystem, opts ...StoreOption) *Store {
	s := &Store{
		fs:         fsys,
		logger:     logging.Discard(),
		containers: make(map[string]*dcx.Container),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load は path のバンクを profile で解析します
func (s *Store) Load(path string, profile fsb.Profile) (*fsb.Bank, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fsberrors.NewBankError("読み込み", path, fsberrors.ErrFileNotFound)
		}
		return nil, fsberrors.NewBankError("読み込み", path, err)
	}
	if len(data) == 0 {
		return nil, fsberrors.NewBankError("読み込み", path, ErrEmptyFile)
	}

	if dcx.IsDCX(data) {
		inner, container, err := dcx.Decompress(data)
		if err != nil {
			return nil, fsberrors.NewBankError("読み込み", path, fmt.Errorf("%w: %w", ErrUnwrapFailed, err))
		}
		s.remember(path, container)
		s.logger.Debug("DCXを展開しました", slog.String("path", path), slog.Int("compressed", len(data)), slog.Int("size", len(inner)))
		data = inner
	}

	bank, err := fsb.Parse(data, profile)
	if err != nil {
		return nil, fsberrors.NewBankError("解析", path, fmt.Errorf("%w: %w", fsberrors.ErrInvalidBank, err)).WithProfile(profile)
	}
	s.logger.Debug("バンクを読み込みました",
		slog.String("path", path),
		slog.String("profile", profile.String()),
		slog.Int("samples", bank.Len()),
	)
	return bank, nil
}

// Save は bank を path に書き込みます。
// 読み込み時にDCXだったパス、または拡張子が .dcx のパスには DCX で包んで保存します。
func (s *Store) Save(path string, bank *fsb.Bank) error {
	data, err := bank.Serialize()
	if err != nil {
		return fsberrors.NewBankError("書き出し", path, err)
	}

	if container := s.containerFor(path); container != nil {
		data, err = container.Compress(data)
		if err != nil {
			return fsberrors.NewBankError("書き出し", path, fmt.Errorf("%w: %w", ErrWrapFailed, err))
		}
	}

	if err := s.fs.WriteFile(path, data, 0o644); err != nil {
		return fsberrors.NewBankError("書き出し", path, err)
	}
	s.logger.Debug("バンクを保存しました", slog.String("path", path), slog.Int("size", len(data)))
	return nil
}

// Wrapped は path がDCXとして読み込まれたかを返します
func (s *Store) Wrapped(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.containers[filepath.Clean(path)]
	return ok
}

func (s *Store) remember(path string, c *dcx.Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[filepath.Clean(path)] = c
}

func (s *Store) containerFor(path string) *dcx.Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.containers[filepath.Clean(path)]; ok {
		return c
	}
	if !strings.EqualFold(filepath.Ext(path), ".dcx") {
		return nil
	}
	// 別のパスから読み込んだヘッダーは使わず既定の形式で包む
	return dcx.NewContainer()
}
