package app

import (
	"context"
	"log/slog"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/archive"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// List はバンク内のサンプル一覧を返します
func (a *App) List(ctx context.Context, path string) ([]models.EntryInfo, error) {
	bank, err := a.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return archive.Describe(bank), nil
}

// Info はバンク全体の情報を返します
func (a *App) Info(ctx context.Context, path string) (models.BankInfo, error) {
	bank, err := a.load(ctx, path)
	if err != nil {
		return models.BankInfo{}, err
	}

	var size int64
	if fi, err := a.fs.Stat(path); err == nil {
		size = fi.Size()
	}
	wrapped := false
	if w, ok := a.store.(interface{ Wrapped(string) bool }); ok {
		wrapped = w.Wrapped(path)
	}
	return archive.Summarize(path, bank, size, wrapped), nil
}

// Scan はディレクトリ内のバンクファイルの情報を返します。
// 読み込めないファイルは警告を出して読み飛ばします。
func (a *App) Scan(ctx context.Context, dir string) ([]models.BankInfo, error) {
	paths, err := a.finder.Find(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoBanks
	}

	var infos []models.BankInfo
	for _, path := range paths {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		info, err := a.Info(ctx, path)
		if err != nil {
			a.logger.Warn("バンクを読み込めませんでした", slog.String("path", path), logging.Error(err))
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (a *App) load(ctx context.Context, path string) (*fsb.Bank, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	profile, err := a.profile()
	if err != nil {
		return nil, err
	}
	return a.store.Load(path, profile)
}
