package convert

import (
	"math"
)

func pitchRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// mixChannels はインターリーブされたサンプルのチャンネル数を変えます。
// モノラルへは平均、モノラルからは複製、それ以外は先頭から対応させます
func mixChannels(samples []float32, from, to int) []float32 {
	if from == to {
		return samples
	}
	frames := len(samples) / from
	out := make([]float32, frames*to)

	switch {
	case to == 1:
		inv := 1 / float32(from)
		for f := range frames {
			var sum float32
			for c := range from {
				sum += samples[f*from+c]
			}
			out[f] = sum * inv
		}
	case from == 1:
		for f := range frames {
			for c := range to {
				out[f*to+c] = samples[f]
			}
		}
	default:
		for f := range frames {
			for c := range to {
				out[f*to+c] = samples[f*from+c%from]
			}
		}
	}
	return out
}

// resample はCatmull-Rom補間でサンプルレートを変換します
func resample(samples []float32, channels, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	frames := len(samples) / channels
	outFrames := int(math.Round(float64(frames) * float64(to) / float64(from)))
	ratio := float64(from) / float64(to)
	out := make([]float32, outFrames*channels)

	at := func(frame, c int) float32 {
		frame = min(max(frame, 0), frames-1)
		return samples[frame*channels+c]
	}

	for j := range outFrames {
		pos := float64(j) * ratio
		i := int(pos)
		x := float32(pos - float64(i))
		for c := range channels {
			out[j*channels+c] = cubicInterpolate(at(i-1, c), at(i, c), at(i+1, c), at(i+2, c), x)
		}
	}
	return out
}

func cubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

func floatToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(x * 32767)
}

func intToFloat(v int, bitDepth int) float32 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float32(v) / float32(int64(1)<<(bitDepth-1))
}
