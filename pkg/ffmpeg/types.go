package ffmpeg

// ProbeResult represents the container and first audio stream as reported
// by ffprobe. Zero values mean ffprobe did not report the field.
type ProbeResult struct {
	FormatName    string  `json:"format_name"`
	Duration      float64 `json:"duration"`    // Seconds
	SampleRate    int     `json:"sample_rate"` // Hz
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bits_per_sample"`
	Bitrate       int64   `json:"bitrate"` // Bits per second
	Codec         string  `json:"codec"`
}

// PCMData is interleaved float32 audio decoded at the stream's native rate
type PCMData struct {
	Samples    []float32 // Interleaved frames
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames
func (p *PCMData) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}
