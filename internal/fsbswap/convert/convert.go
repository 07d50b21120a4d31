// Package convert は入力音声を16ビットPCMに変換する実装を提供します
package convert

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
)

var (
	// ErrUnsupportedInput は入力の形式を判別できない場合のエラー
	ErrUnsupportedInput = errors.New("対応していない入力形式です")

	// ErrDecode は入力のデコードに失敗した場合のエラー
	ErrDecode = errors.New("入力のデコードに失敗しました")

	// ErrInvalidTarget は変換先の形式が不正な場合のエラー
	ErrInvalidTarget = errors.New("変換先の形式が不正です")

	// ErrFFmpegFailed はffmpegが失敗した場合のエラー
	ErrFFmpegFailed = errors.New("ffmpegの実行に失敗しました")
)

// AudioSettings は変換時に適用する音量・ピッチ・速度の調整です
type AudioSettings struct {
	VolumeDB       float64
	PitchSemitones float64
	Speed          float64
}

const settingsEpsilon = 0.01

// NeedsProcessing は何らかの調整が必要かどうかを返します
func (s AudioSettings) NeedsProcessing() bool {
	return abs(s.VolumeDB) > settingsEpsilon ||
		abs(s.PitchSemitones) > settingsEpsilon ||
		(s.Speed != 0 && abs(s.Speed-1) > settingsEpsilon)
}

// Filters はffmpegの音声フィルタ列を返します。
// ピッチは rate を基準にサンプルレートを変えてから rate に戻して実現します
func (s AudioSettings) Filters(rate int) []string {
	var filters []string
	if abs(s.VolumeDB) > settingsEpsilon {
		filters = append(filters, "volume="+formatFloat(s.VolumeDB)+"dB")
	}
	if abs(s.PitchSemitones) > settingsEpsilon {
		ratio := pitchRatio(s.PitchSemitones)
		r := strconv.Itoa(rate)
		filters = append(filters,
			"aresample="+r,
			fmt.Sprintf("asetrate=%s*%.4f", r, ratio),
			"aresample="+r,
		)
	}
	if s.Speed != 0 && abs(s.Speed-1) > settingsEpsilon {
		// atempo は1段あたり0.5〜2.0しか受け付けない
		speed := min(max(s.Speed, 0.25), 4.0)
		for speed < 0.5 || speed > 2.0 {
			if speed < 0.5 {
				filters = append(filters, "atempo=0.5")
				speed /= 0.5
			} else {
				filters = append(filters, "atempo=2.0")
				speed /= 2.0
			}
		}
		filters = append(filters, fmt.Sprintf("atempo=%.4f", speed))
	}
	return filters
}

// Fallback は Primary が入力を扱えない場合に Secondary で変換します
type Fallback struct {
	Primary   interfaces.FormatConverter
	Secondary interfaces.FormatConverter
}

// Convert は FormatConverter の実装です
func (f *Fallback) Convert(ctx context.Context, data []byte, target models.Target) (pcm.Buffer, error) {
	buf, err := f.Primary.Convert(ctx, data, target)
	if err == nil || f.Secondary == nil {
		return buf, err
	}
	if !errors.Is(err, ErrUnsupportedInput) && !errors.Is(err, ErrDecode) {
		return buf, err
	}
	return f.Secondary.Convert(ctx, data, target)
}

func validateTarget(target models.Target) error {
	if target.SampleRate <= 0 || target.Channels <= 0 {
		return fmt.Errorf("%w: %dHz %dch", ErrInvalidTarget, target.SampleRate, target.Channels)
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
