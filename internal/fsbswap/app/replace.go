package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	fsberrors "github.com/shiroemons/go-fsbswap/internal/fsbswap/errors"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/fileutil"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/orchestrator"
)

// ReplaceOptions は差し替えの保存方法です
type ReplaceOptions struct {
	Output   string // 空の場合は元のファイルに上書きします
	NoBackup bool   // 上書き時に .bak を作成しない
}

// ReplaceFile は target のサンプルを audioPath の音声で差し替えます
func (a *App) ReplaceFile(ctx context.Context, bankPath, target, audioPath string, opts ReplaceOptions) ([]models.ReplaceResult, error) {
	return a.Replace(ctx, bankPath, []models.ReplaceRequest{{Target: target, AudioPath: audioPath}}, opts)
}

// ReplaceManifest は差し替え指示ファイルに従ってサンプルを差し替えます
func (a *App) ReplaceManifest(ctx context.Context, bankPath, manifestPath string, opts ReplaceOptions) ([]models.ReplaceResult, error) {
	data, err := a.fs.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fsberrors.NewBankError("指示ファイル読み込み", manifestPath, fsberrors.ErrFileNotFound)
		}
		return nil, fsberrors.NewBankError("指示ファイル読み込み", manifestPath, err)
	}
	reqs, err := a.manifest.Parse(manifestPath, data)
	if err != nil {
		return nil, err
	}
	return a.Replace(ctx, bankPath, reqs, opts)
}

// Replace は差し替え指示をすべて適用してから保存します。
// 1件でも失敗した場合は何も保存しません。
func (a *App) Replace(ctx context.Context, bankPath string, reqs []models.ReplaceRequest, opts ReplaceOptions) ([]models.ReplaceResult, error) {
	if len(reqs) == 0 {
		return nil, ErrNoRequests
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	profile, err := a.profile()
	if err != nil {
		return nil, err
	}

	session, err := orchestrator.OpenSession(a.orch, a.store, bankPath, profile)
	if err != nil {
		return nil, err
	}

	results := make([]models.ReplaceResult, 0, len(reqs))
	for _, req := range reqs {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		result, err := a.replaceOne(ctx, session, req)
		if err != nil {
			if req.Line > 0 {
				return nil, fmt.Errorf("%d行目: %w", req.Line, err)
			}
			return nil, err
		}
		results = append(results, result)
	}

	output := opts.Output
	if output == "" {
		output = bankPath
		if !opts.NoBackup {
			if err := a.backup(bankPath); err != nil {
				return nil, err
			}
		}
	}
	if err := session.Save(output); err != nil {
		return nil, err
	}

	a.logger.Info("バンクを保存しました", slog.String("path", output), slog.Int("replaced", len(results)))
	return results, nil
}

func (a *App) replaceOne(ctx context.Context, session *orchestrator.Session, req models.ReplaceRequest) (models.ReplaceResult, error) {
	bank := session.Bank()
	index, err := resolveTarget(bank, req.Target)
	if err != nil {
		return models.ReplaceResult{}, err
	}
	old, _ := bank.EntryAt(index)

	audio, err := a.fs.ReadFile(req.AudioPath)
	if err != nil {
		return models.ReplaceResult{}, fsberrors.NewBankError("音声読み込み", req.AudioPath, fmt.Errorf("%w: %w", ErrReadAudio, err))
	}

	next, err := session.Stage(ctx, index, audio)
	if err != nil {
		return models.ReplaceResult{}, err
	}
	entry, _ := next.EntryAt(index)
	return models.ReplaceResult{
		Index:   index,
		Name:    fileutil.DecodeName(old.DisplayName()),
		OldSize: old.CompressedSize,
		NewSize: entry.CompressedSize,
	}, nil
}

// backup は最初の上書き前の内容を .bak に残します。既にある場合は何もしません
func (a *App) backup(path string) error {
	dst := fileutil.BackupPath(path)
	if a.fs.FileExists(dst) {
		return nil
	}
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackup, err)
	}
	if err := a.fs.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrBackup, err)
	}
	a.logger.Debug("バックアップを作成しました", slog.String("path", dst))
	return nil
}
