package concat

import (
	"fmt"
	"math"
	"strings"

	"explainer/internal/media/ffprobe"
)

// signature holds the stream properties that must match for a lossless
// stream-copy join.
type signature struct {
	VideoCodec  string
	Width       int
	Height      int
	PixelFormat string
	FrameRate   float64
	AudioCodec  string
	SampleRate  int
	Channels    int
}

func signatureOf(result ffprobe.Result) (signature, error) {
	video, ok := result.FirstVideo()
	if !ok {
		return signature{}, fmt.Errorf("no video stream")
	}
	audio, ok := result.FirstAudio()
	if !ok {
		return signature{}, fmt.Errorf("no audio stream")
	}
	return signature{
		VideoCodec:  strings.ToLower(video.CodecName),
		Width:       video.Width,
		Height:      video.Height,
		PixelFormat: strings.ToLower(video.PixFmt),
		FrameRate:   video.FrameRate(),
		AudioCodec:  strings.ToLower(audio.CodecName),
		SampleRate:  audio.SampleRateHz(),
		Channels:    audio.Channels,
	}, nil
}

// diff lists the fields where other departs from s.
func (s signature) diff(other signature) []string {
	var out []string
	add := func(field string, want, got any) {
		out = append(out, fmt.Sprintf("%s %v != %v", field, got, want))
	}
	if s.VideoCodec != other.VideoCodec {
		add("video codec", s.VideoCodec, other.VideoCodec)
	}
	if s.Width != other.Width || s.Height != other.Height {
		add("resolution", fmt.Sprintf("%dx%d", s.Width, s.Height), fmt.Sprintf("%dx%d", other.Width, other.Height))
	}
	if s.PixelFormat != other.PixelFormat {
		add("pixel format", s.PixelFormat, other.PixelFormat)
	}
	if math.Abs(s.FrameRate-other.FrameRate) > 0.001 {
		add("frame rate", s.FrameRate, other.FrameRate)
	}
	if s.AudioCodec != other.AudioCodec {
		add("audio codec", s.AudioCodec, other.AudioCodec)
	}
	if s.SampleRate != other.SampleRate {
		add("sample rate", s.SampleRate, other.SampleRate)
	}
	if s.Channels != other.Channels {
		add("channels", s.Channels, other.Channels)
	}
	return out
}
