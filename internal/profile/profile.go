// Package profile defines the immutable encoding profile shared by every
// segment of a batch, along with the named video and audio presets.
package profile

import (
	"fmt"
	"strings"

	"explainer/internal/config"
)

// VideoPreset describes the target video encoding.
type VideoPreset struct {
	Name        string
	Codec       string // ffmpeg encoder
	CodecName   string // codec_name reported by ffprobe
	CodecLevel  string // encoder profile
	PixelFormat string
	Bitrate     string
	Tune        string
}

// AudioPreset describes the target audio encoding.
type AudioPreset struct {
	Name       string
	Codec      string
	CodecName  string
	Bitrate    string
	SampleRate int
	Channels   int
}

// Profile is passed by value; nothing mutates it after construction.
type Profile struct {
	Resolution string
	Width      int
	Height     int
	FrameRate  int
	Video      VideoPreset
	Audio      AudioPreset
}

var resolutions = map[string][2]int{
	"720p":  {1280, 720},
	"1080p": {1920, 1080},
	"4k":    {3840, 2160},
}

var frameRates = map[int]struct{}{24: {}, 30: {}, 60: {}}

var videoPresets = map[string]VideoPreset{
	"h264-yuv420p": {
		Name:        "h264-yuv420p",
		Codec:       "libx264",
		CodecName:   "h264",
		CodecLevel:  "high",
		PixelFormat: "yuv420p",
		Bitrate:     "2M",
		Tune:        "stillimage",
	},
}

var audioPresets = map[string]AudioPreset{
	"aac-128k": {
		Name:       "aac-128k",
		Codec:      "aac",
		CodecName:  "aac",
		Bitrate:    "128k",
		SampleRate: 48000,
		Channels:   2,
	},
}

// AACFrameSamples is the number of samples per AAC-LC frame.
const AACFrameSamples = 1024

// New builds a profile from names, rejecting anything outside the fixed set.
func New(resolution string, frameRate int, video, audio string) (Profile, error) {
	resolution = strings.ToLower(strings.TrimSpace(resolution))
	dims, ok := resolutions[resolution]
	if !ok {
		return Profile{}, fmt.Errorf("unsupported resolution %q", resolution)
	}
	if _, ok := frameRates[frameRate]; !ok {
		return Profile{}, fmt.Errorf("unsupported frame rate %d", frameRate)
	}
	vp, ok := videoPresets[strings.ToLower(strings.TrimSpace(video))]
	if !ok {
		return Profile{}, fmt.Errorf("unsupported video preset %q", video)
	}
	ap, ok := audioPresets[strings.ToLower(strings.TrimSpace(audio))]
	if !ok {
		return Profile{}, fmt.Errorf("unsupported audio preset %q", audio)
	}
	return Profile{
		Resolution: resolution,
		Width:      dims[0],
		Height:     dims[1],
		FrameRate:  frameRate,
		Video:      vp,
		Audio:      ap,
	}, nil
}

// FromConfig builds the profile described by the [profile] section.
func FromConfig(cfg *config.Config) (Profile, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return New(cfg.Profile.Resolution, cfg.Profile.FrameRate, cfg.Profile.VideoPreset, cfg.Profile.AudioPreset)
}

// Default returns the 720p/30 profile.
func Default() Profile {
	p, err := New("720p", 30, "h264-yuv420p", "aac-128k")
	if err != nil {
		panic(err)
	}
	return p
}

// FrameInterval is the duration of one video frame in seconds.
func (p Profile) FrameInterval() float64 {
	if p.FrameRate <= 0 {
		return 0
	}
	return 1 / float64(p.FrameRate)
}

// DurationTolerance is the allowed gap between an encoded clip and its audio:
// one video frame plus one AAC frame of padding.
func (p Profile) DurationTolerance() float64 {
	tolerance := p.FrameInterval()
	if p.Audio.SampleRate > 0 {
		tolerance += float64(AACFrameSamples) / float64(p.Audio.SampleRate)
	}
	return tolerance
}

// FilterGraph fits the image inside Width×Height without cropping, pads with
// black, forces square pixels and the preset pixel format.
func (p Profile) FilterGraph() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1,format=%s",
		p.Width, p.Height, p.Width, p.Height, p.Video.PixelFormat,
	)
}

// VideoArgs returns the encoder arguments for the video stream.
func (p Profile) VideoArgs() []string {
	args := []string{
		"-c:v", p.Video.Codec,
		"-profile:v", p.Video.CodecLevel,
		"-pix_fmt", p.Video.PixelFormat,
	}
	if p.Video.Tune != "" {
		args = append(args, "-tune", p.Video.Tune)
	}
	return append(args, "-b:v", p.Video.Bitrate, "-r", fmt.Sprint(p.FrameRate))
}

// AudioArgs returns the encoder arguments for the audio stream.
func (p Profile) AudioArgs() []string {
	return []string{
		"-c:a", p.Audio.Codec,
		"-b:a", p.Audio.Bitrate,
		"-ar", fmt.Sprint(p.Audio.SampleRate),
		"-ac", fmt.Sprint(p.Audio.Channels),
	}
}

// String renders the profile for logs and reports.
func (p Profile) String() string {
	return fmt.Sprintf("%s (%dx%d) @ %dfps %s/%s", p.Resolution, p.Width, p.Height, p.FrameRate, p.Video.Name, p.Audio.Name)
}
