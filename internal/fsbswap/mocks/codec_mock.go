package mocks

import (
	"context"
	"sync"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
)

// MockConverter はFormatConverterのモック実装です
type MockConverter struct {
	mu        sync.Mutex
	Result    pcm.Buffer
	Error     error
	Panic     any
	Block     bool // ctx が終了するまで待つ
	CallCount int
	Targets   []models.Target
}

// Convert はモック実装です
func (m *MockConverter) Convert(ctx context.Context, data []byte, target models.Target) (pcm.Buffer, error) {
	m.mu.Lock()
	m.CallCount++
	m.Targets = append(m.Targets, target)
	m.mu.Unlock()

	if m.Panic != nil {
		panic(m.Panic)
	}
	if m.Block {
		<-ctx.Done()
		return pcm.Buffer{}, ctx.Err()
	}
	if m.Error != nil {
		return pcm.Buffer{}, m.Error
	}
	if m.Result.Channels == 0 {
		return pcm.Buffer{SampleRate: target.SampleRate, Channels: target.Channels, Samples: make([]int16, target.Channels*16)}, nil
	}
	return m.Result, nil
}

// Calls は呼び出し回数を返します
func (m *MockConverter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockEncoder はSampleEncoderのモック実装です
type MockEncoder struct {
	mu        sync.Mutex
	Result    models.Encoded
	Error     error
	Panic     any
	Block     bool
	CallCount int
	Inputs    []pcm.Buffer
	Options   []models.EncodeOptions
}

// Encode はモック実装です
func (m *MockEncoder) Encode(ctx context.Context, buf pcm.Buffer, opts models.EncodeOptions) (models.Encoded, error) {
	m.mu.Lock()
	m.CallCount++
	m.Inputs = append(m.Inputs, buf)
	m.Options = append(m.Options, opts)
	m.mu.Unlock()

	if m.Panic != nil {
		panic(m.Panic)
	}
	if m.Block {
		<-ctx.Done()
		return models.Encoded{}, ctx.Err()
	}
	if m.Error != nil {
		return models.Encoded{}, m.Error
	}
	return m.Result, nil
}

// Calls は呼び出し回数を返します
func (m *MockEncoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}
