package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/archive"
	fsberrors "github.com/shiroemons/go-fsbswap/internal/fsbswap/errors"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/fileutil"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// vorbisSidecar はVorbisペイロードを再生するために必要な情報です
type vorbisSidecar struct {
	Index      int      `toml:"index"`
	Name       string   `toml:"name"`
	SampleRate int      `toml:"sample_rate"`
	Channels   int      `toml:"channels"`
	Frames     uint32   `toml:"frames"`
	CRC32      uint32   `toml:"crc32"`
	Loop       bool     `toml:"loop"`
	LoopStart  uint32   `toml:"loop_start,omitempty"`
	LoopEnd    uint32   `toml:"loop_end,omitempty"`
	SeekTable  []uint32 `toml:"seek_table,omitempty"`
}

// Extract はバンク内のサンプルを outDir に書き出します。
// indices が空の場合はすべてのサンプルを書き出します。
func (a *App) Extract(ctx context.Context, path, outDir string, indices []int) ([]models.ExtractedFile, error) {
	bank, err := a.load(ctx, path)
	if err != nil {
		return nil, err
	}

	if len(indices) == 0 {
		indices = make([]int, bank.Len())
		for i := range indices {
			indices[i] = i
		}
	}
	for _, i := range indices {
		if _, err := bank.EntryAt(i); err != nil {
			return nil, fsberrors.NewSampleError("抽出", path, i, fmt.Errorf("%w: %w", fsberrors.ErrEntryNotFound, err))
		}
	}

	if err := a.fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", fileutil.ErrCreateDirectory, err)
	}

	names := archive.Describe(bank)
	results := make([]models.ExtractedFile, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)
	for n, index := range indices {
		g.Go(func() error {
			if err := checkContext(gctx); err != nil {
				return err
			}
			file, err := a.extractOne(bank, names[index].Name, index, outDir)
			if err != nil {
				return err
			}
			results[n] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Info("サンプルを抽出しました", slog.String("path", path), slog.Int("count", len(results)), slog.String("out", outDir))
	return results, nil
}

func (a *App) extractOne(bank *fsb.Bank, name string, index int, outDir string) (models.ExtractedFile, error) {
	entry, err := bank.EntryAt(index)
	if err != nil {
		return models.ExtractedFile{}, err
	}
	payload, err := bank.PayloadAt(index)
	if err != nil {
		return models.ExtractedFile{}, err
	}

	codec := bank.Codec()
	if codec == fsb.CodecMPEG {
		payload = fsb.ExtractMPEGFrames(payload)
	}
	// 名前のないサンプルは連番のみのファイル名にする
	if entry.Name == "" {
		name = ""
	}
	out := filepath.Join(outDir, fileutil.OutputFilename(index, name, codec.Extension()))
	if err := a.fs.WriteFile(out, payload, 0o644); err != nil {
		return models.ExtractedFile{}, fmt.Errorf("%w: %s: %w", fileutil.ErrWriteContent, out, err)
	}

	if codec == fsb.CodecVorbis {
		sidecar, err := toml.Marshal(vorbisSidecar{
			Index:      index,
			Name:       name,
			SampleRate: entry.SampleRate,
			Channels:   entry.Channels,
			Frames:     entry.Frames,
			CRC32:      entry.VorbisCRC,
			Loop:       entry.HasLoop,
			LoopStart:  entry.LoopStart,
			LoopEnd:    entry.LoopEnd,
			SeekTable:  entry.SeekTable,
		})
		if err != nil {
			return models.ExtractedFile{}, err
		}
		if err := a.fs.WriteFile(out+".toml", sidecar, 0o644); err != nil {
			return models.ExtractedFile{}, fmt.Errorf("%w: %s: %w", fileutil.ErrWriteContent, out+".toml", err)
		}
	}

	a.logger.Debug("抽出しました", slog.Int("index", index), slog.String("file", out), slog.Int("size", len(payload)))
	return models.ExtractedFile{Index: index, Path: out, Size: len(payload)}, nil
}
