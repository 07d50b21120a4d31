package convert

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/mocks"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
)

func TestAudioSettings_Filters(t *testing.T) {
	tests := []struct {
		name     string
		settings AudioSettings
		want     []string
	}{
		{"調整なし", AudioSettings{Speed: 1}, nil},
		{"速度0は調整なし扱い", AudioSettings{}, nil},
		{"音量", AudioSettings{VolumeDB: -3.5, Speed: 1}, []string{"volume=-3.5dB"}},
		{"ピッチ", AudioSettings{PitchSemitones: 12, Speed: 1}, []string{"aresample=48000", "asetrate=48000*2.0000", "aresample=48000"}},
		{"速度1.5", AudioSettings{Speed: 1.5}, []string{"atempo=1.5000"}},
		{"速度3", AudioSettings{Speed: 3}, []string{"atempo=2.0", "atempo=1.5000"}},
		{"速度0.3", AudioSettings{Speed: 0.3}, []string{"atempo=0.5", "atempo=0.6000"}},
		{"速度は4で頭打ち", AudioSettings{Speed: 10}, []string{"atempo=2.0", "atempo=2.0000"}},
		{"速度は0.25で下限", AudioSettings{Speed: 0.1}, []string{"atempo=0.5", "atempo=0.5000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.settings.Filters(48000)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Filters() = %v, want %v", got, tt.want)
			}
			if tt.settings.NeedsProcessing() != (len(tt.want) > 0) {
				t.Errorf("NeedsProcessing() = %v", tt.settings.NeedsProcessing())
			}
		})
	}
}

func TestMixChannels(t *testing.T) {
	tests := []struct {
		name     string
		in       []float32
		from, to int
		want     []float32
	}{
		{"ステレオからモノラル", []float32{0.2, 0.4, -1, 1}, 2, 1, []float32{0.3, 0}},
		{"モノラルからステレオ", []float32{0.1, 0.2}, 1, 2, []float32{0.1, 0.1, 0.2, 0.2}},
		{"6chからステレオ", []float32{1, 2, 3, 4, 5, 6}, 6, 2, []float32{1, 2}},
		{"同じチャンネル数", []float32{1, 2}, 2, 2, []float32{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mixChannels(tt.in, tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("mixChannels() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if d := got[i] - tt.want[i]; d > 1e-6 || d < -1e-6 {
					t.Errorf("mixChannels()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResample(t *testing.T) {
	// 直流成分はどのレートでも保たれる
	in := make([]float32, 2*441)
	for i := range in {
		in[i] = 0.5
	}
	out := resample(in, 2, 44100, 48000)
	if len(out) != 2*480 {
		t.Fatalf("len(resample()) = %d, want %d", len(out), 2*480)
	}
	for i, v := range out {
		if d := v - 0.5; d > 1e-5 || d < -1e-5 {
			t.Fatalf("resample()[%d] = %v, want 0.5", i, v)
		}
	}

	if got := resample(in, 2, 44100, 44100); len(got) != len(in) {
		t.Errorf("同じレートで長さが変わりました: %d", len(got))
	}

	// 2倍へのアップサンプルでは元のサンプル位置の値が保たれる
	ramp := []float32{0, 0.25, 0.5, 0.75}
	up := resample(ramp, 1, 1000, 2000)
	for i, v := range ramp {
		if up[2*i] != v {
			t.Errorf("up[%d] = %v, want %v", 2*i, up[2*i], v)
		}
	}
}

func TestFloatToInt16(t *testing.T) {
	tests := map[float32]int16{0: 0, 1: 32767, 2: 32767, -1: -32767, -3: -32767, 0.5: 16383}
	for in, want := range tests {
		if got := floatToInt16(in); got != want {
			t.Errorf("floatToInt16(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestDecoder_ConvertWAV(t *testing.T) {
	src := pcm.Buffer{SampleRate: 22050, Channels: 2, Samples: make([]int16, 2*2205)}
	for i := range src.Samples {
		src.Samples[i] = 8192
	}
	data, err := src.WAV()
	if err != nil {
		t.Fatalf("WAV() error = %v", err)
	}
	if got := Sniff(data); got != "wav" {
		t.Fatalf("Sniff() = %q, want wav", got)
	}

	got, err := NewDecoder().Convert(context.Background(), data, models.Target{SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if got.SampleRate != 44100 || got.Channels != 1 {
		t.Errorf("形式 = %dHz %dch", got.SampleRate, got.Channels)
	}
	if got.Frames() != 4410 {
		t.Errorf("Frames() = %d, want 4410", got.Frames())
	}
	// 8192/32768 = 0.25 → 0.25*32767
	if v := got.Samples[100]; v < 8190 || v > 8192 {
		t.Errorf("Samples[100] = %d", v)
	}
}

func TestDecoder_Errors(t *testing.T) {
	d := NewDecoder()
	ctx := context.Background()

	if _, err := d.Convert(ctx, []byte("plain text, not audio"), models.Target{SampleRate: 44100, Channels: 2}); !errors.Is(err, ErrUnsupportedInput) {
		t.Errorf("Convert(text) error = %v, want %v", err, ErrUnsupportedInput)
	}
	if _, err := d.Convert(ctx, nil, models.Target{}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Convert(target 0) error = %v, want %v", err, ErrInvalidTarget)
	}

	// マジックナンバーだけのOggは判別できてもデコードに失敗する
	broken := append([]byte("OggS"), make([]byte, 40)...)
	if _, err := d.Convert(ctx, broken, models.Target{SampleRate: 44100, Channels: 2}); !errors.Is(err, ErrDecode) {
		t.Errorf("Convert(broken ogg) error = %v, want %v", err, ErrDecode)
	}
}

func TestFallback(t *testing.T) {
	target := models.Target{SampleRate: 48000, Channels: 2}
	secondary := &mocks.MockConverter{}
	f := &Fallback{Primary: NewDecoder(), Secondary: secondary}

	got, err := f.Convert(context.Background(), []byte("unknown"), target)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if secondary.Calls() != 1 || !got.Matches(48000, 2) {
		t.Errorf("Secondaryが使われていません: calls=%d buf=%+v", secondary.Calls(), got)
	}

	// 判別以外のエラーはそのまま返す
	primary := &mocks.MockConverter{Error: errors.New("boom")}
	f = &Fallback{Primary: primary, Secondary: secondary}
	if _, err := f.Convert(context.Background(), nil, target); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Convert() error = %v", err)
	}
	if secondary.Calls() != 1 {
		t.Errorf("Secondaryが呼ばれました: %d", secondary.Calls())
	}
}
