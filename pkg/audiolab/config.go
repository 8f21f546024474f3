package audiolab

import "github.com/himanishpuri/AudioLab/pkg/audiolab/align"

type Config struct {
	DBPath     string
	TempDir    string
	SourceBase string // relative sources resolve against this URL or directory
	SampleRate int    // 0 decodes at each file's native rate
	Align      align.Options
	Logger     Logger
	Storage    Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSourceBase(base string) Option {
	return func(c *Config) {
		c.SourceBase = base
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithAlignOptions(opts align.Options) Option {
	return func(c *Config) {
		c.Align = opts
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:     "audiolab.sqlite3",
		TempDir:    "/tmp",
		SampleRate: 0,
		Align:      align.DefaultOptions(),
		Logger:     nil,
	}
}
