package decoder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/killallgit/spectrogram-api/pkg/ffmpeg"
	"github.com/mewkiz/flac"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag; other tags go to the fallback
const wavFormatPCM = 1

// WAVBackend decodes integer PCM WAV files
type WAVBackend struct{}

// Name implements Backend
func (WAVBackend) Name() string { return "wav" }

// DecodeFile implements Backend
func (WAVBackend) DecodeFile(_ context.Context, path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported wav format tag %d", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrNoAudio
	}

	// 8-bit WAV is unsigned
	return fromIntBuffer(buf, int(d.BitDepth), int(d.SampleRate), int(d.NumChans), int(d.BitDepth) == 8), nil
}

// AIFFBackend decodes AIFF files
type AIFFBackend struct{}

// Name implements Backend
func (AIFFBackend) Name() string { return "aiff" }

// DecodeFile implements Backend
func (AIFFBackend) DecodeFile(_ context.Context, path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid aiff file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrNoAudio
	}

	return fromIntBuffer(buf, int(d.BitDepth), d.SampleRate, int(d.NumChans), false), nil
}

func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth, sampleRate, channels int, unsigned bool) *PCM {
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if channels <= 0 && buf.Format != nil {
		channels = buf.Format.NumChannels
	}
	if sampleRate <= 0 && buf.Format != nil {
		sampleRate = buf.Format.SampleRate
	}

	scale := fullScale(bitDepth)
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		if unsigned {
			v -= int(scale)
		}
		samples[i] = float64(v) / scale
	}
	return &PCM{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// fullScale returns 2^(bitDepth-1)
func fullScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(uint64(1) << uint(bitDepth-1))
}

// frameLimit converts a duration cap into frames per channel at sampleRate.
// Zero means no limit.
func frameLimit(d time.Duration, sampleRate int) uint64 {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	return uint64(math.Ceil(d.Seconds() * float64(sampleRate)))
}

func tooLong(frames, limit uint64) error {
	return fmt.Errorf("%w: %d frames, limit %d", ErrTooLong, frames, limit)
}

// MP3Backend decodes MPEG-1/2 Layer III. go-mp3 always yields 16-bit
// little-endian stereo.
type MP3Backend struct {
	MaxDuration time.Duration
}

// Name implements Backend
func (MP3Backend) Name() string { return "mp3" }

// DecodeFile implements Backend
func (b MP3Backend) DecodeFile(_ context.Context, path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("creating MP3 decoder: %w", err)
	}

	const channels = 2
	const bytesPerFrame = 2 * channels

	// Length is counted from frame headers without decoding
	if limit := frameLimit(b.MaxDuration, d.SampleRate()); limit > 0 && d.Length() > 0 {
		if frames := uint64(d.Length() / bytesPerFrame); frames > limit {
			return nil, tooLong(frames, limit)
		}
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}

	count := len(raw) / 2
	if count < channels {
		return nil, ErrNoAudio
	}

	samples := make([]float64, count)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return &PCM{Samples: samples, SampleRate: d.SampleRate(), Channels: channels}, nil
}

// VorbisBackend decodes Ogg Vorbis
type VorbisBackend struct {
	MaxDuration time.Duration
}

// Name implements Backend
func (VorbisBackend) Name() string { return "vorbis" }

// DecodeFile implements Backend
func (b VorbisBackend) DecodeFile(ctx context.Context, path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create OGG decoder: %w", err)
	}

	channels := r.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("ogg stream has no channels")
	}
	limit := frameLimit(b.MaxDuration, r.SampleRate())
	if limit > 0 && r.Length() > 0 && uint64(r.Length()) > limit {
		return nil, tooLong(uint64(r.Length()), limit)
	}

	var samples []float64
	chunk := make([]float32, 16384)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		for _, v := range chunk[:n] {
			samples = append(samples, float64(v))
		}
		if frames := uint64(len(samples) / channels); limit > 0 && frames > limit {
			return nil, tooLong(frames, limit)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read OGG data: %w", err)
		}
	}

	if len(samples) == 0 {
		return nil, ErrNoAudio
	}
	return &PCM{Samples: samples, SampleRate: r.SampleRate(), Channels: channels}, nil
}

// FLACBackend decodes FLAC
type FLACBackend struct {
	MaxDuration time.Duration
}

// Name implements Backend
func (FLACBackend) Name() string { return "flac" }

// DecodeFile implements Backend. STREAMINFO is untrusted: its sample count
// is only checked against the duration cap, and the buffer never reserves
// more samples than the file has bytes.
func (b FLACBackend) DecodeFile(ctx context.Context, path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open flac stream: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	sampleRate := int(info.SampleRate)
	limit := frameLimit(b.MaxDuration, sampleRate)
	if limit > 0 && info.NSamples > limit {
		return nil, tooLong(info.NSamples, limit)
	}

	scale := fullScale(int(info.BitsPerSample))
	capacity := min(info.NSamples*uint64(channels), uint64(fi.Size()))
	samples := make([]float64, 0, capacity)

	var frames uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse flac frame: %w", err)
		}
		if len(frame.Subframes) < channels {
			return nil, fmt.Errorf("flac frame has %d subframes, expected %d", len(frame.Subframes), channels)
		}

		blockSize := len(frame.Subframes[0].Samples)
		for c := 1; c < channels; c++ {
			if len(frame.Subframes[c].Samples) != blockSize {
				return nil, fmt.Errorf("flac frame subframe %d has %d samples, expected %d", c, len(frame.Subframes[c].Samples), blockSize)
			}
		}

		frames += uint64(blockSize)
		if limit > 0 && frames > limit {
			return nil, tooLong(frames, limit)
		}

		for i := 0; i < blockSize; i++ {
			for c := 0; c < channels; c++ {
				samples = append(samples, float64(frame.Subframes[c].Samples[i])/scale)
			}
		}
	}

	if len(samples) == 0 {
		return nil, ErrNoAudio
	}
	return &PCM{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// PCMDecoder is the subset of ffmpeg.FFmpeg used by FFmpegBackend
type PCMDecoder interface {
	DecodePCM(ctx context.Context, path string) (*ffmpeg.PCMData, error)
}

// FFmpegBackend decodes anything ffmpeg can read, used for AAC/M4A and as
// the fallback for native failures
type FFmpegBackend struct {
	ffmpeg PCMDecoder
}

// NewFFmpegBackend creates a backend over an ffmpeg wrapper
func NewFFmpegBackend(f PCMDecoder) *FFmpegBackend {
	return &FFmpegBackend{ffmpeg: f}
}

// Name implements Backend
func (b *FFmpegBackend) Name() string { return "ffmpeg" }

// DecodeFile implements Backend
func (b *FFmpegBackend) DecodeFile(ctx context.Context, path string) (*PCM, error) {
	pcm, err := b.ffmpeg.DecodePCM(ctx, path)
	if err != nil {
		if errors.Is(err, ffmpeg.ErrNoAudioStream) || errors.Is(err, ffmpeg.ErrNoSamples) {
			return nil, fmt.Errorf("%w: %v", ErrNoAudio, err)
		}
		return nil, err
	}

	samples := make([]float64, len(pcm.Samples))
	for i, v := range pcm.Samples {
		samples[i] = float64(v)
	}
	return &PCM{Samples: samples, SampleRate: pcm.SampleRate, Channels: pcm.Channels}, nil
}
