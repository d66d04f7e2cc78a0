package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/talky/callmedia"
	"github.com/talky/callmedia/pkg/container"
	"github.com/talky/callmedia/pkg/prop"
	"github.com/talky/callmedia/pkg/session"
)

// Config is the YAML configuration of the CLI. Flags override it.
type Config struct {
	Video     VideoConfig     `yaml:"video"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Storage   StorageConfig   `yaml:"storage"`
}

type VideoConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FrameRate float32 `yaml:"frame_rate"`
	DeviceID  string  `yaml:"device_id"`
}

type AudioConfig struct {
	EchoCancellation bool   `yaml:"echo_cancellation"`
	NoiseSuppression bool   `yaml:"noise_suppression"`
	AutoGainControl  bool   `yaml:"auto_gain_control"`
	DeviceID         string `yaml:"device_id"`
}

type RecordingConfig struct {
	MimeType  string `yaml:"mime_type"`
	TimeSlice string `yaml:"time_slice"`
}

type StorageConfig struct {
	Dir    string   `yaml:"dir"`
	Prefix string   `yaml:"prefix"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

func defaultConfig() *Config {
	return &Config{
		Video: VideoConfig{Width: 1280, Height: 720, FrameRate: 30},
		Audio: AudioConfig{
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
		},
		Recording: RecordingConfig{TimeSlice: "1s"},
		Storage:   StorageConfig{Dir: "recordings"},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if _, err := cfg.timeSlice(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) timeSlice() (time.Duration, error) {
	if c.Recording.TimeSlice == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Recording.TimeSlice)
	if err != nil {
		return 0, fmt.Errorf("invalid recording.time_slice %q: %w", c.Recording.TimeSlice, err)
	}
	return d, nil
}

// sessionOptions turns the config into session options.
func (c *Config) sessionOptions() ([]session.Option, error) {
	timeSlice, err := c.timeSlice()
	if err != nil {
		return nil, err
	}

	video := c.Video
	audio := c.Audio
	opts := []session.Option{
		session.WithVideoConstraints(func(tc *callmedia.MediaTrackConstraints) {
			tc.DeviceID = video.DeviceID
			if video.Width > 0 {
				tc.Width = prop.Int(video.Width)
			}
			if video.Height > 0 {
				tc.Height = prop.Int(video.Height)
			}
			if video.FrameRate > 0 {
				tc.FrameRate = prop.Float(video.FrameRate)
			}
		}),
		session.WithAudioConstraints(func(tc *callmedia.MediaTrackConstraints) {
			tc.DeviceID = audio.DeviceID
			tc.EchoCancellation = prop.Bool(audio.EchoCancellation)
			tc.NoiseSuppression = prop.Bool(audio.NoiseSuppression)
			tc.AutoGainControl = prop.Bool(audio.AutoGainControl)
		}),
		session.WithTimeSlice(timeSlice),
	}
	if c.Recording.MimeType != "" {
		opts = append(opts, session.WithMimeTypes(c.Recording.MimeType, container.DefaultMimeType))
	}
	return opts, nil
}
