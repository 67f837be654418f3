package audio

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacBlockSize is the fixed number of samples per encoded FLAC frame.
const flacBlockSize = 4096

// EncodeFLAC encodes 16-bit mono PCM samples as a FLAC stream. Frames are
// written with verbatim subframes, so the configured compression level does
// not influence the output size.
func EncodeFLAC(w io.Writer, samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot encode empty audio samples")
	}

	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     1,
		BitsPerSample: 16,
		NSamples:      uint64(len(samples)),
	}

	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return fmt.Errorf("failed to create FLAC encoder: %w", err)
	}

	for offset := 0; offset < len(samples); offset += flacBlockSize {
		end := offset + flacBlockSize
		if end > len(samples) {
			end = len(samples)
		}

		block := samples[offset:end]
		pcm := make([]int32, len(block))
		for i, s := range block {
			pcm[i] = int32(s)
		}

		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: false,
				BlockSize:         uint16(len(block)),
				SampleRate:        uint32(sampleRate),
				Channels:          frame.ChannelsMono,
				BitsPerSample:     16,
			},
			Subframes: []*frame.Subframe{
				{
					SubHeader: frame.SubHeader{
						Pred: frame.PredVerbatim,
					},
					Samples:  pcm,
					NSamples: len(pcm),
				},
			},
		}

		if err := enc.WriteFrame(f); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write FLAC frame at sample %d: %w", offset, err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize FLAC stream: %w", err)
	}

	return nil
}
