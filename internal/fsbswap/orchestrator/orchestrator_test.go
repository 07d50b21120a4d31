package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/mocks"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
	"github.com/shiroemons/go-fsbswap/pkg/fsb/fsbtest"
)

func vorbisBank(t *testing.T) *fsb.Bank {
	t.Helper()
	return fsbtest.Bank(fsbtest.FSB5(fsb.CodecVorbis, fsbtest.VorbisSamples()), fsb.ProfileDS2SotFS)
}

func serialize(t *testing.T, b *fsb.Bank) []byte {
	t.Helper()
	data, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	return data
}

func vorbisResult(frames uint32, channels, rate int) models.Encoded {
	return models.Encoded{
		Payload: fsbtest.VorbisPayload(2, 30, 0x50),
		Meta: fsb.SampleMetadata{
			Frames:     frames,
			Channels:   channels,
			SampleRate: rate,
			VorbisCRC:  0xDEADBEEF,
		},
	}
}

func fixedID(o *Orchestrator) {
	o.newID = func() string { return "job-1" }
}

func TestStageReplacement_Success(t *testing.T) {
	bank := vorbisBank(t)
	before := serialize(t, bank)

	conv := &mocks.MockConverter{}
	enc := &mocks.MockEncoder{Result: vorbisResult(16, 1, 48000)}
	o := New(conv, enc, WithQuality(80))

	got, err := o.StageReplacement(context.Background(), bank, 1, []byte("not pcm"))
	if err != nil {
		t.Fatalf("StageReplacement() error = %v", err)
	}

	if conv.Calls() != 1 || enc.Calls() != 1 {
		t.Fatalf("呼び出し回数 = 変換 %d, エンコード %d", conv.Calls(), enc.Calls())
	}
	if conv.Targets[0] != (models.Target{SampleRate: 48000, Channels: 1}) {
		t.Errorf("Target = %+v", conv.Targets[0])
	}
	if opts := enc.Options[0]; opts.Codec != fsb.CodecVorbis || opts.Quality != 80 {
		t.Errorf("EncodeOptions = %+v", opts)
	}

	payload, err := got.PayloadAt(1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(payload, enc.Result.Payload) {
		t.Error("差し替え後のペイロードがエンコード結果と一致しません")
	}
	entry, _ := got.EntryAt(1)
	if entry.VorbisCRC != 0xDEADBEEF || entry.Frames != 16 {
		t.Errorf("エントリ = %+v", entry)
	}

	if !bytes.Equal(serialize(t, bank), before) {
		t.Error("入力のバンクが変更されました")
	}
}

func TestStageReplacement_Failures(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		conv      *mocks.MockConverter
		enc       *mocks.MockEncoder
		opts      []Option
		wantKind  error
		wantCause error
		wantState State
	}{
		{
			name:      "変換の失敗",
			index:     0,
			conv:      &mocks.MockConverter{Error: errors.New("decode error")},
			enc:       &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)},
			wantKind:  ErrConversionFailed,
			wantState: StateConverting,
		},
		{
			name:      "変換の panic",
			index:     0,
			conv:      &mocks.MockConverter{Panic: "boom"},
			enc:       &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)},
			wantKind:  ErrConversionFailed,
			wantCause: ErrCollaboratorPanic,
			wantState: StateConverting,
		},
		{
			name:      "変換のタイムアウト",
			index:     0,
			conv:      &mocks.MockConverter{Block: true},
			enc:       &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)},
			opts:      []Option{WithTimeouts(50*time.Millisecond, 0)},
			wantKind:  ErrConversionFailed,
			wantCause: context.DeadlineExceeded,
			wantState: StateConverting,
		},
		{
			name:      "変換結果の形式が異なる",
			index:     0,
			conv:      &mocks.MockConverter{Result: pcm.Buffer{SampleRate: 22050, Channels: 1, Samples: make([]int16, 8)}},
			enc:       &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)},
			wantKind:  ErrConversionFailed,
			wantCause: pcm.ErrInvalidFormat,
			wantState: StateConverting,
		},
		{
			name:      "エンコードの失敗",
			index:     0,
			conv:      &mocks.MockConverter{},
			enc:       &mocks.MockEncoder{Error: errors.New("fsbankcl exited")},
			wantKind:  ErrEncodingFailed,
			wantState: StateEncoding,
		},
		{
			name:      "エンコードの panic",
			index:     0,
			conv:      &mocks.MockConverter{},
			enc:       &mocks.MockEncoder{Panic: errors.New("nil pointer")},
			wantKind:  ErrEncodingFailed,
			wantCause: ErrCollaboratorPanic,
			wantState: StateEncoding,
		},
		{
			name:      "エンコードのタイムアウト",
			index:     0,
			conv:      &mocks.MockConverter{},
			enc:       &mocks.MockEncoder{Block: true},
			opts:      []Option{WithTimeouts(0, 50*time.Millisecond)},
			wantKind:  ErrEncodingFailed,
			wantCause: context.DeadlineExceeded,
			wantState: StateEncoding,
		},
		{
			name:      "コーデックの不一致",
			index:     0,
			conv:      &mocks.MockConverter{},
			enc:       &mocks.MockEncoder{Result: models.Encoded{Payload: fsbtest.MPEGPayload(2, false), Meta: fsb.SampleMetadata{Channels: 2, SampleRate: 44100}}},
			wantKind:  ErrReplaceRejected,
			wantCause: fsb.ErrCodecMismatch,
			wantState: StateEncoding,
		},
		{
			name:      "インデックスが範囲外",
			index:     3,
			conv:      &mocks.MockConverter{},
			enc:       &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)},
			wantKind:  ErrReplaceRejected,
			wantCause: fsb.ErrIndexOutOfRange,
			wantState: StateConverting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := vorbisBank(t)
			before := serialize(t, bank)

			o := New(tt.conv, tt.enc, tt.opts...)
			fixedID(o)
			got, err := o.StageReplacement(context.Background(), bank, tt.index, []byte("input"))
			if got != nil {
				t.Error("失敗時にバンクが返されました")
			}
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("StageReplacement() error = %v, want %v", err, tt.wantKind)
			}
			if tt.wantCause != nil && !errors.Is(err, tt.wantCause) {
				t.Errorf("StageReplacement() error = %v, want cause %v", err, tt.wantCause)
			}
			var oe *Error
			if !errors.As(err, &oe) {
				t.Fatalf("エラーの型 = %T", err)
			}
			if oe.State != tt.wantState || oe.JobID != "job-1" || oe.Index != tt.index {
				t.Errorf("Error = %+v", oe)
			}
			if !bytes.Equal(serialize(t, bank), before) {
				t.Error("失敗後にバンクが変更されています")
			}
		})
	}
}

func TestStageReplacement_ConversionFailureSkipsEncoder(t *testing.T) {
	conv := &mocks.MockConverter{Error: errors.New("unsupported")}
	enc := &mocks.MockEncoder{}

	_, err := New(conv, enc).StageReplacement(context.Background(), vorbisBank(t), 0, []byte("x"))
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("StageReplacement() error = %v", err)
	}
	if enc.Calls() != 0 {
		t.Errorf("変換失敗後にエンコーダーが呼ばれました: %d回", enc.Calls())
	}
}

func TestStageReplacement_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := &mocks.MockConverter{}
	_, err := New(conv, &mocks.MockEncoder{}).StageReplacement(ctx, vorbisBank(t), 0, []byte("x"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("StageReplacement() error = %v, want %v", err, context.Canceled)
	}
	if !errors.Is(err, ErrConversionFailed) {
		t.Errorf("StageReplacement() error = %v, want %v", err, ErrConversionFailed)
	}
	var oe *Error
	if !errors.As(err, &oe) || oe.State != StateIdle {
		t.Errorf("Error = %+v, want State Idle", oe)
	}
	if conv.Calls() != 0 {
		t.Error("キャンセル済みなのに変換が実行されました")
	}
}

func TestStageReplacement_Transitions(t *testing.T) {
	tests := []struct {
		name string
		conv *mocks.MockConverter
		enc  *mocks.MockEncoder
		want []State
	}{
		{"成功", &mocks.MockConverter{}, &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)}, []State{StateConverting, StateEncoding, StateReplaced}},
		{"変換で失敗", &mocks.MockConverter{Error: errors.New("x")}, &mocks.MockEncoder{}, []State{StateConverting, StateFailed}},
		{"エンコードで失敗", &mocks.MockConverter{}, &mocks.MockEncoder{Error: errors.New("x")}, []State{StateConverting, StateEncoding, StateFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []State
			o := New(tt.conv, tt.enc, WithObserver(func(tr Transition) {
				if tr.JobID == "" {
					t.Error("JobID が空です")
				}
				got = append(got, tr.To)
			}))
			_, _ = o.StageReplacement(context.Background(), vorbisBank(t), 0, []byte("x"))
			if !slices.Equal(got, tt.want) {
				t.Errorf("遷移 = %v, want %v", got, tt.want)
			}
			if last := got[len(got)-1]; !last.Terminal() {
				t.Errorf("最後の状態 %s が終端状態ではありません", last)
			}
		})
	}
}

func TestStageReplacement_WAVBypass(t *testing.T) {
	input := pcm.Buffer{SampleRate: 48000, Channels: 1, Samples: []int16{1, -1, 2, -2, 3, -3}}
	wav, err := input.WAV()
	if err != nil {
		t.Fatal(err)
	}

	conv := &mocks.MockConverter{}
	enc := &mocks.MockEncoder{Result: vorbisResult(6, 1, 48000)}
	if _, err := New(conv, enc).StageReplacement(context.Background(), vorbisBank(t), 1, wav); err != nil {
		t.Fatalf("StageReplacement() error = %v", err)
	}
	if conv.Calls() != 0 {
		t.Errorf("同じ形式のWAVで変換が実行されました")
	}
	if !slices.Equal(enc.Inputs[0].Samples, input.Samples) {
		t.Errorf("エンコーダーへの入力 = %v", enc.Inputs[0].Samples)
	}

	// 形式が異なるWAVは変換する
	conv = &mocks.MockConverter{}
	enc = &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)}
	if _, err := New(conv, enc).StageReplacement(context.Background(), vorbisBank(t), 0, wav); err != nil {
		t.Fatalf("StageReplacement() error = %v", err)
	}
	if conv.Calls() != 1 {
		t.Errorf("変換の呼び出し回数 = %d, want 1", conv.Calls())
	}
}

func TestStageReplacement_CarriesLoop(t *testing.T) {
	enc := &mocks.MockEncoder{Result: vorbisResult(30000, 1, 48000)}
	got, err := New(&mocks.MockConverter{}, enc).StageReplacement(context.Background(), vorbisBank(t), 1, []byte("x"))
	if err != nil {
		t.Fatalf("StageReplacement() error = %v", err)
	}
	entry, _ := got.EntryAt(1)
	if !entry.HasLoop || entry.LoopStart != 10 || entry.LoopEnd != 20000 {
		t.Errorf("ループ = %v %d-%d", entry.HasLoop, entry.LoopStart, entry.LoopEnd)
	}
}

func TestCarryLoop(t *testing.T) {
	old := fsb.SampleEntry{HasLoop: true, LoopStart: 100, LoopEnd: 5000}
	tests := []struct {
		name      string
		meta      fsb.SampleMetadata
		old       fsb.SampleEntry
		wantLoop  bool
		wantStart uint32
		wantEnd   uint32
	}{
		{"引き継ぐ", fsb.SampleMetadata{Frames: 10000}, old, true, 100, 5000},
		{"短い音声では終端を詰める", fsb.SampleMetadata{Frames: 1000}, old, true, 100, 999},
		{"開始位置より短い", fsb.SampleMetadata{Frames: 50}, old, false, 0, 0},
		{"エンコード結果のループを優先", fsb.SampleMetadata{Frames: 10000, HasLoop: true, LoopStart: 1, LoopEnd: 2}, old, true, 1, 2},
		{"元がループなし", fsb.SampleMetadata{Frames: 10000}, fsb.SampleEntry{}, false, 0, 0},
		{"フレーム数が不明", fsb.SampleMetadata{}, old, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := carryLoop(tt.meta, tt.old)
			if got.HasLoop != tt.wantLoop || got.LoopStart != tt.wantStart || got.LoopEnd != tt.wantEnd {
				t.Errorf("carryLoop() = %v %d-%d", got.HasLoop, got.LoopStart, got.LoopEnd)
			}
		})
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateConverting, true},
		{StateIdle, StateEncoding, false},
		{StateConverting, StateEncoding, true},
		{StateConverting, StateFailed, true},
		{StateConverting, StateReplaced, false},
		{StateEncoding, StateReplaced, true},
		{StateEncoding, StateFailed, true},
		{StateReplaced, StateFailed, false},
		{StateFailed, StateConverting, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("canTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession(t *testing.T) {
	store := mocks.NewMockBankStore()
	store.Banks["a.fsb"] = vorbisBank(t)

	enc := &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)}
	s, err := OpenSession(New(&mocks.MockConverter{}, enc), store, "a.fsb", fsb.ProfileDS2SotFS)
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	original := s.Bank()

	if _, err := s.Stage(context.Background(), 5, []byte("x")); err == nil {
		t.Fatal("範囲外のインデックスでエラーになりません")
	}
	if s.Bank() != original || s.Modified() {
		t.Error("失敗した差し替えでバンクが更新されました")
	}

	next, err := s.Stage(context.Background(), 0, []byte("x"))
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if s.Bank() != next || !s.Modified() {
		t.Error("差し替え後のバンクが反映されていません")
	}

	if err := s.Save(""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if store.Saved["a.fsb"] != next || s.Modified() {
		t.Error("保存されたバンクが現在のバンクと一致しません")
	}

	store.SaveError = errors.New("disk full")
	if err := s.Save("b.fsb"); err == nil {
		t.Error("保存エラーが返されません")
	}
}

func TestSession_ConcurrentStage(t *testing.T) {
	enc := &mocks.MockEncoder{Result: vorbisResult(16, 2, 44100)}
	s := NewSession(New(&mocks.MockConverter{}, enc), mocks.NewMockBankStore(), "a.fsb", vorbisBank(t))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Stage(context.Background(), 0, []byte("x")); err != nil {
				t.Errorf("Stage() error = %v", err)
			}
			_ = s.Bank().Len()
		}()
	}
	wg.Wait()

	offsets := s.Bank().Offsets()
	entries := s.Bank().Entries()
	var sum int64
	for i, e := range entries {
		if offsets[i] != sum {
			t.Errorf("オフセット[%d] = %d, want %d", i, offsets[i], sum)
		}
		sum += int64(e.CompressedSize)
	}
}
