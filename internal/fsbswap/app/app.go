// Package app はアプリケーションのメインロジックを実装します
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/archive"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/config"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/convert"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/encode"
	fsberrors "github.com/shiroemons/go-fsbswap/internal/fsbswap/errors"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/fileutil"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/orchestrator"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/parser"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// App はアプリケーションのメインロジックを管理します
type App struct {
	config   *config.Config
	logger   *slog.Logger
	fs       interfaces.FileSystem
	store    interfaces.BankStore
	orch     *orchestrator.Orchestrator
	manifest *parser.ManifestParser
	finder   *fileutil.BankFileFinder
}

// Options はAppの設定オプション
type Options struct {
	FileSystem interfaces.FileSystem
	Store      interfaces.BankStore
	Converter  interfaces.FormatConverter
	Encoder    interfaces.SampleEncoder
	Logger     *slog.Logger
	Observer   orchestrator.Observer
}

// New は新しいAppを作成します
func New(cfg *config.Config) *App {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions は新しいAppをオプション付きで作成します
func NewWithOptions(cfg *config.Config, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	// デフォルトのファイルシステムを設定
	fs := opts.FileSystem
	if fs == nil {
		fs = fileutil.NewOSFileSystem()
	}

	store := opts.Store
	if store == nil {
		store = archive.NewStore(fs, archive.WithLogger(logger))
	}

	converter := opts.Converter
	if converter == nil {
		converter = newConverter(cfg, logger)
	}

	encoder := opts.Encoder
	if encoder == nil {
		encoder = newEncoder(cfg, logger)
	}

	orch := orchestrator.New(converter, encoder,
		orchestrator.WithTimeouts(cfg.Timeouts.Convert.Duration, cfg.Timeouts.Encode.Duration),
		orchestrator.WithQuality(cfg.Encode.Quality),
		orchestrator.WithBitrate(cfg.Encode.MP3Bitrate),
		orchestrator.WithLogger(logger),
		orchestrator.WithObserver(opts.Observer),
	)

	return &App{
		config:   cfg,
		logger:   logger,
		fs:       fs,
		store:    store,
		orch:     orch,
		manifest: parser.NewManifestParser(),
		finder:   fileutil.NewBankFileFinder(fs),
	}
}

// newConverter は設定に応じた形式変換器を作成します
func newConverter(cfg *config.Config, logger *slog.Logger) interfaces.FormatConverter {
	decoder := convert.NewDecoder(convert.WithDecoderLogger(logger))
	ffmpeg := convert.NewFFmpeg(
		convert.WithBinary(lookupTool(cfg.Tools.FFmpeg, "ffmpeg", logger)),
		convert.WithSettings(convert.AudioSettings{
			VolumeDB:       cfg.Convert.VolumeDB,
			PitchSemitones: cfg.Convert.PitchSemitones,
			Speed:          cfg.Convert.Speed,
		}),
		convert.WithLogger(logger),
	)

	switch {
	case cfg.Convert.Mode == config.ConvertBuiltin:
		return decoder
	case cfg.NeedsFFmpeg():
		return ffmpeg
	default:
		return &convert.Fallback{Primary: decoder, Secondary: ffmpeg}
	}
}

// newEncoder はコーデックごとのエンコーダーを作成します
func newEncoder(cfg *config.Config, logger *slog.Logger) interfaces.SampleEncoder {
	return encode.Router{
		fsb.CodecVorbis: encode.NewFsbank(
			encode.WithFsbankBinary(lookupTool(cfg.Tools.Fsbankcl, "fsbankcl", logger)),
			encode.WithFsbankLogger(logger),
		),
		fsb.CodecMPEG: encode.NewLame(
			encode.WithLameBinary(lookupTool(cfg.Tools.FFmpeg, "ffmpeg", logger)),
			encode.WithLameLogger(logger),
		),
	}
}

// lookupTool は外部ツールを探します。見つからない場合は指定値のまま返し、実行時のエラーに任せます
func lookupTool(configured, name string, logger *slog.Logger) string {
	path, err := fileutil.FindExecutable(configured, name)
	if err != nil {
		logger.Debug("外部ツールが見つかりません", slog.String("tool", name), logging.Error(err))
		if configured != "" {
			return configured
		}
		return name
	}
	return path
}

// profile は設定されたプロファイルを返します
func (a *App) profile() (fsb.Profile, error) {
	if a.config.Profile == "" {
		return 0, ErrProfileRequired
	}
	return a.config.ProfileValue()
}

// checkContext はコンテキストのキャンセルをチェックします
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// resolveTarget はインデックスまたはサンプル名からインデックスを求めます
func resolveTarget(bank *fsb.Bank, target string) (int, error) {
	if n, err := strconv.Atoi(target); err == nil {
		if _, err := bank.EntryAt(n); err != nil {
			return 0, fsberrors.NewSampleError("サンプル検索", "", n, fmt.Errorf("%w: %w", fsberrors.ErrEntryNotFound, err))
		}
		return n, nil
	}
	if e, ok := bank.Lookup(target); ok {
		return e.Index, nil
	}
	for _, info := range archive.Describe(bank) {
		if info.Name == target {
			return info.Index, nil
		}
	}
	return 0, fsberrors.NewBankError("サンプル検索", target, fsberrors.ErrEntryNotFound)
}
