package encode

import (
	"context"
	"fmt"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/interfaces"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Router はコーデックごとのエンコーダーに処理を振り分けます
type Router map[fsb.Codec]interfaces.SampleEncoder

// Encode は SampleEncoder の実装です
func (r Router) Encode(ctx context.Context, buf pcm.Buffer, opts models.EncodeOptions) (models.Encoded, error) {
	enc, ok := r[opts.Codec]
	if !ok || enc == nil {
		return models.Encoded{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, opts.Codec)
	}
	return enc.Encode(ctx, buf, opts)
}
