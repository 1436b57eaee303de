package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
)

// ffprobeOutput represents the JSON structure returned by ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Bitrate    string `json:"bit_rate"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType        string `json:"codec_type"`
		CodecName        string `json:"codec_name"`
		SampleRate       string `json:"sample_rate"`
		Channels         int    `json:"channels"`
		BitsPerSample    int    `json:"bits_per_sample"`
		BitsPerRawSample string `json:"bits_per_raw_sample"`
		Bitrate          string `json:"bit_rate"`
		Duration         string `json:"duration"`
	} `json:"streams"`
}

// Probe extracts container and stream properties using ffprobe
func (f *FFmpeg) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0", // Select first audio stream
		"-of", "json",
		filePath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewProcessingError("probe", filePath, err, stderr.String())
	}

	return parseProbe(stdout.Bytes(), filePath)
}

// parseProbe converts ffprobe JSON output to a ProbeResult
func parseProbe(data []byte, filePath string) (*ProbeResult, error) {
	var output ffprobeOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, NewProcessingError("probe_parsing", filePath, err, "")
	}

	result := &ProbeResult{
		FormatName: output.Format.FormatName,
		Duration:   parseFloat(output.Format.Duration),
		Bitrate:    parseInt64(output.Format.Bitrate),
	}

	found := false
	for _, stream := range output.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		found = true

		result.Codec = stream.CodecName
		result.Channels = stream.Channels
		result.SampleRate = int(parseInt64(stream.SampleRate))

		// Lossy codecs report 0 here; raw sample width is the fallback
		result.BitsPerSample = stream.BitsPerSample
		if result.BitsPerSample == 0 {
			result.BitsPerSample = int(parseInt64(stream.BitsPerRawSample))
		}

		// Container bitrate wins, stream bitrate fills in when absent
		if result.Bitrate == 0 {
			result.Bitrate = parseInt64(stream.Bitrate)
		}
		if result.Duration == 0 {
			result.Duration = parseFloat(stream.Duration)
		}
		break
	}

	if !found {
		return nil, NewProcessingError("probe_validation", filePath, ErrNoAudioStream, "")
	}

	return result, nil
}

func parseFloat(s string) float64 {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64(s string) int64 {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
