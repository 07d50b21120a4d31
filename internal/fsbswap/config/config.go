// Package config はfsbswapコマンドの設定管理を行います
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

const Version = "0.1.0"

// DefaultPath はカレントディレクトリの設定ファイル名です
const DefaultPath = "fsbswap.toml"

var (
	// ErrConfigNotFound は指定した設定ファイルが存在しない場合のエラー
	ErrConfigNotFound = errors.New("設定ファイルが見つかりません")

	// ErrInvalidConfig は設定値が範囲外の場合のエラー
	ErrInvalidConfig = errors.New("設定値が不正です")
)

// 変換モード
const (
	ConvertAuto    = "auto"
	ConvertFFmpeg  = "ffmpeg"
	ConvertBuiltin = "builtin"
)

var mp3Bitrates = []int{32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}

// Config はアプリケーションの設定を保持します
type Config struct {
	Profile  string   `toml:"profile"`
	Workers  int      `toml:"workers"`
	Tools    Tools    `toml:"tools"`
	Encode   Encode   `toml:"encode"`
	Convert  Convert  `toml:"convert"`
	Timeouts Timeouts `toml:"timeouts"`
	Logging  Logging  `toml:"logging"`
}

// Tools は外部ツールのパスです。空の場合はPATHから探します
type Tools struct {
	Fsbankcl string `toml:"fsbankcl"`
	FFmpeg   string `toml:"ffmpeg"`
}

// Encode はエンコード設定です
type Encode struct {
	Quality    int `toml:"quality"`
	MP3Bitrate int `toml:"mp3_bitrate"`
}

// Convert は入力音声の変換設定です
type Convert struct {
	Mode           string  `toml:"mode"`
	VolumeDB       float64 `toml:"volume_db"`
	PitchSemitones float64 `toml:"pitch_semitones"`
	Speed          float64 `toml:"speed"`
}

// Timeouts は外部処理ごとの制限時間です
type Timeouts struct {
	Convert Duration `toml:"convert"`
	Encode  Duration `toml:"encode"`
}

// Logging はログ出力の設定です
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration は "90s" や "5m" 形式で書ける時間です
type Duration struct {
	time.Duration
}

// UnmarshalText は文字列から時間を読み込みます
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText は時間を文字列にします
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default は既定の設定を返します
func Default() Config {
	return Config{
		Workers: 4,
		Encode: Encode{
			Quality:    50,
			MP3Bitrate: 192,
		},
		Convert: Convert{
			Mode:  ConvertAuto,
			Speed: 1.0,
		},
		Timeouts: Timeouts{
			Convert: Duration{2 * time.Minute},
			Encode:  Duration{5 * time.Minute},
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load は設定ファイルを読み込んで検証します。
// path が空で既定のファイルもない場合は既定値を返します
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return &cfg, false, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	case err != nil:
		return nil, false, fmt.Errorf("設定ファイルを開けません: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, false, fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, true, nil
}

// Validate は設定値の範囲を確認します
func (c *Config) Validate() error {
	var errs []error
	if c.Profile != "" {
		if _, err := fsb.ParseProfile(c.Profile); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Workers < 1 || c.Workers > 64 {
		errs = append(errs, fmt.Errorf("%w: workers は1〜64で指定してください (%d)", ErrInvalidConfig, c.Workers))
	}
	if c.Encode.Quality < 1 || c.Encode.Quality > 100 {
		errs = append(errs, fmt.Errorf("%w: encode.quality は1〜100で指定してください (%d)", ErrInvalidConfig, c.Encode.Quality))
	}
	if !slices.Contains(mp3Bitrates, c.Encode.MP3Bitrate) {
		errs = append(errs, fmt.Errorf("%w: encode.mp3_bitrate %d には対応していません", ErrInvalidConfig, c.Encode.MP3Bitrate))
	}
	switch c.Convert.Mode {
	case ConvertAuto, ConvertFFmpeg, ConvertBuiltin:
	default:
		errs = append(errs, fmt.Errorf("%w: convert.mode %q には対応していません", ErrInvalidConfig, c.Convert.Mode))
	}
	if c.Convert.Speed < 0.25 || c.Convert.Speed > 4 {
		errs = append(errs, fmt.Errorf("%w: convert.speed は0.25〜4で指定してください (%g)", ErrInvalidConfig, c.Convert.Speed))
	}
	if c.Convert.PitchSemitones < -24 || c.Convert.PitchSemitones > 24 {
		errs = append(errs, fmt.Errorf("%w: convert.pitch_semitones は-24〜24で指定してください (%g)", ErrInvalidConfig, c.Convert.PitchSemitones))
	}
	if c.Convert.VolumeDB < -60 || c.Convert.VolumeDB > 60 {
		errs = append(errs, fmt.Errorf("%w: convert.volume_db は-60〜60で指定してください (%g)", ErrInvalidConfig, c.Convert.VolumeDB))
	}
	if c.Timeouts.Convert.Duration <= 0 || c.Timeouts.Encode.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeouts は正の時間で指定してください", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// ProfileValue は設定されたプロファイルを返します
func (c *Config) ProfileValue() (fsb.Profile, error) {
	return fsb.ParseProfile(c.Profile)
}

// NeedsFFmpeg は入力変換にffmpegが必要かどうかを返します
func (c *Config) NeedsFFmpeg() bool {
	if c.Convert.Mode == ConvertFFmpeg {
		return true
	}
	return c.Convert.VolumeDB != 0 || c.Convert.PitchSemitones != 0 || c.Convert.Speed != 1
}
