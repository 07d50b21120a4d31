// Package orchestrator は変換、エンコード、差し替えの一連の処理を状態機械として実行します
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Orchestrator はサンプルの差し替えを実行します。
// 入力のバンクは変更されないため、複数のgoroutineから同時に使用できます。
type Orchestrator struct {
	converter      interfaces.FormatConverter
	encoder        interfaces.SampleEncoder
	convertTimeout time.Duration
	encodeTimeout  time.Duration
	quality        int
	bitrate        int
	logger         *slog.Logger
	observer       Observer
	newID          func() string
}

// Option はOrchestratorの設定です
type Option func(*Orchestrator)

// WithTimeouts は変換とエンコードのタイムアウトを指定します。0 は無制限です
func WithTimeouts(convert, encode time.Duration) Option {
	return func(o *Orchestrator) {
		o.convertTimeout = convert
		o.encodeTimeout = encode
	}
}

// WithQuality はVorbis品質を指定します
func WithQuality(quality int) Option {
	return func(o *Orchestrator) {
		o.quality = quality
	}
}

// WithBitrate はMP3ビットレート（kbps）を指定します
func WithBitrate(bitrate int) Option {
	return func(o *Orchestrator) {
		o.bitrate = bitrate
	}
}

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver は状態遷移の通知先を設定します
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// New は新しいOrchestratorを作成します
func New(converter interfaces.FormatConverter, encoder interfaces.SampleEncoder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		converter: converter,
		encoder:   encoder,
		quality:   50,
		bitrate:   192,
		logger:    logging.Discard(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// job は1回の差し替えの状態を保持します
type job struct {
	o     *Orchestrator
	id    string
	index int
	state State
}

func (j *job) transition(to State, err error) {
	if !canTransition(j.state, to) {
		panic(fmt.Sprintf("orchestrator: 不正な状態遷移 %s -> %s", j.state, to))
	}
	from := j.state
	j.state = to

	attrs := []any{
		slog.String("job_id", j.id),
		slog.Int("index", j.index),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	}
	if err != nil {
		j.o.logger.Warn("差し替えジョブが失敗しました", append(attrs, logging.Error(err))...)
	} else {
		j.o.logger.Debug("状態遷移", attrs...)
	}
	if j.o.observer != nil {
		j.o.observer(Transition{JobID: j.id, Index: j.index, From: from, To: to, Err: err})
	}
}

func (j *job) fail(kind, cause error) error {
	state := j.state
	err := fmt.Errorf("%w: %w", kind, cause)
	j.transition(StateFailed, err)
	return &Error{JobID: j.id, Index: j.index, State: state, Err: err}
}

// StageReplacement は audio を index 番目のサンプルの形式に変換、エンコードし、
// 差し替えた新しいバンクを返します。失敗した場合、bank は呼び出し前のまま残ります。
func (o *Orchestrator) StageReplacement(ctx context.Context, bank *fsb.Bank, index int, audio []byte) (*fsb.Bank, error) {
	j := &job{o: o, id: o.newID(), index: index, state: StateIdle}

	// 開始前に打ち切られた場合も最初の段階である変換の失敗として扱う
	select {
	case <-ctx.Done():
		return nil, &Error{JobID: j.id, Index: index, State: StateIdle, Err: fmt.Errorf("%w: %w", ErrConversionFailed, ctx.Err())}
	default:
	}

	j.transition(StateConverting, nil)
	if bank == nil {
		return nil, j.fail(ErrReplaceRejected, fmt.Errorf("バンクが指定されていません"))
	}
	entry, err := bank.EntryAt(index)
	if err != nil {
		return nil, j.fail(ErrReplaceRejected, err)
	}

	target := models.Target{SampleRate: entry.SampleRate, Channels: entry.Channels}
	buf, err := o.convert(ctx, j, audio, target)
	if err != nil {
		return nil, j.fail(ErrConversionFailed, err)
	}

	j.transition(StateEncoding, nil)
	opts := models.EncodeOptions{Codec: bank.Codec(), Quality: o.quality, Bitrate: o.bitrate}
	encoded, err := invoke(ctx, o.encodeTimeout, func(ctx context.Context) (models.Encoded, error) {
		return o.encoder.Encode(ctx, buf, opts)
	})
	if err != nil {
		return nil, j.fail(ErrEncodingFailed, err)
	}

	meta := carryLoop(encoded.Meta, entry)
	replaced, err := bank.Replace(index, encoded.Payload, meta)
	if err != nil {
		return nil, j.fail(ErrReplaceRejected, err)
	}

	j.transition(StateReplaced, nil)
	o.logger.Info("サンプルを差し替えました",
		slog.String("job_id", j.id),
		slog.Int("index", index),
		slog.String("name", entry.DisplayName()),
		slog.Int("old_size", entry.CompressedSize),
		slog.Int("new_size", len(encoded.Payload)),
	)
	return replaced, nil
}

// convert は入力をPCMにします。対象と同じ形式の16ビットWAVはそのまま使います
func (o *Orchestrator) convert(ctx context.Context, j *job, audio []byte, target models.Target) (pcm.Buffer, error) {
	if buf, err := pcm.DecodeWAV(audio); err == nil && buf.Matches(target.SampleRate, target.Channels) {
		o.logger.Debug("変換を省略します", slog.String("job_id", j.id), slog.Int("sample_rate", target.SampleRate), slog.Int("channels", target.Channels))
		return buf, nil
	}

	buf, err := invoke(ctx, o.convertTimeout, func(ctx context.Context) (pcm.Buffer, error) {
		return o.converter.Convert(ctx, audio, target)
	})
	if err != nil {
		return pcm.Buffer{}, err
	}
	if err := buf.Validate(); err != nil {
		return pcm.Buffer{}, err
	}
	if !buf.Matches(target.SampleRate, target.Channels) {
		return pcm.Buffer{}, fmt.Errorf("%w: %dHz %dch (期待値 %dHz %dch)",
			pcm.ErrInvalidFormat, buf.SampleRate, buf.Channels, target.SampleRate, target.Channels)
	}
	return buf, nil
}

type result[T any] struct {
	value T
	err   error
}

// invoke は fn を別のgoroutineで実行し、タイムアウトまたはキャンセルで待機を打ち切ります。
// fn の panic はエラーとして返します。
func invoke[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ch := make(chan result[T], 1)
	go func() {
		var r result[T]
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("%w: %v", ErrCollaboratorPanic, p)
			}
			ch <- r
		}()
		r.value, r.err = fn(ctx)
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// carryLoop はエンコード結果にループ情報がない場合、元のサンプルのループ位置を引き継ぎます
func carryLoop(meta fsb.SampleMetadata, old fsb.SampleEntry) fsb.SampleMetadata {
	if meta.HasLoop || !old.HasLoop || meta.Frames == 0 {
		return meta
	}
	end := min(old.LoopEnd, meta.Frames-1)
	if old.LoopStart >= end {
		return meta
	}
	meta.HasLoop = true
	meta.LoopStart = old.LoopStart
	meta.LoopEnd = end
	return meta
}
