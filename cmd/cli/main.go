package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AudioLab/internal/config"
	"github.com/himanishpuri/AudioLab/pkg/audiolab"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/logger"
	"github.com/himanishpuri/AudioLab/pkg/utils"
)

// Global flags
var (
	configPath string
	dbPath     string
	tempDir    string
	sourceBase string
	sampleRate int
	method     string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "audiolab",
	Short: "AudioLab - align, compare and mix two recordings",
	Long: `AudioLab lines up two recordings of the same material by
cross-correlating their energy envelopes, then lets you compare them:
waveforms, spectrograms, an equal-power A/B mix, synchronized playback
and a spatial energy view.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("db") {
			loaded.Database.Path = dbPath
		}
		if flags.Changed("temp") {
			loaded.Audio.TempDir = tempDir
		}
		if flags.Changed("base") {
			loaded.Audio.SourceBase = sourceBase
		}
		if flags.Changed("rate") {
			loaded.Audio.SampleRate = sampleRate
		}
		if flags.Changed("method") {
			loaded.Align.Method = method
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		logger.SetLevel(logger.ParseLevel(loaded.Logging.Level))
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.GetLogger().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("AUDIOLAB_CONFIG"), "Path to a YAML config file (env: AUDIOLAB_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "audiolab.sqlite3", "Path to the SQLite database file (env: AUDIOLAB_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&tempDir, "temp", "/tmp", "Directory for temporary audio conversion files (env: AUDIOLAB_TEMP_DIR)")
	rootCmd.PersistentFlags().StringVar(&sourceBase, "base", "", "URL or directory that relative sources resolve against (env: AUDIOLAB_SOURCE_BASE)")
	rootCmd.PersistentFlags().IntVar(&sampleRate, "rate", 0, "Decode sample rate, 0 keeps each file's rate (env: AUDIOLAB_SAMPLE_RATE)")
	rootCmd.PersistentFlags().StringVar(&method, "method", "direct", "Correlation method: direct or fft (env: AUDIOLAB_ALIGN_METHOD)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(alignCmd, listCmd, showCmd, deleteCmd)
	rootCmd.AddCommand(waveformCmd, spectrogramCmd, mixCmd, infoCmd)
	rootCmd.AddCommand(playCmd, spatialCmd)
}

// createService creates a new AudioLab service from the loaded config
func createService() (audiolab.Service, error) {
	return audiolab.NewService(
		audiolab.WithDBPath(cfg.Database.Path),
		audiolab.WithTempDir(cfg.Audio.TempDir),
		audiolab.WithSourceBase(cfg.Audio.SourceBase),
		audiolab.WithSampleRate(cfg.Audio.SampleRate),
		audiolab.WithAlignOptions(cfg.AlignOptions()),
	)
}

// openSource decodes one source, resolving relative paths against the
// configured base.
func openSource(cmd *cobra.Command, src string) (*audio.Source, error) {
	src = utils.ResolveSource(cfg.Audio.SourceBase, src)
	s, err := audio.Open(cmd.Context(), src, cfg.Audio.TempDir, audio.ConvertWAVConfig{
		SampleRate: cfg.Audio.SampleRate,
	})
	if err != nil {
		logger.GetLogger().Errorf("Decoding %s failed: %v", src, err)
		return nil, fmt.Errorf("failed to decode %s: %w", src, err)
	}
	return s, nil
}

func printBanner() {
	banner := `
    _             _ _       _          _     
   / \  _   _  __| (_) ___ | |    __ _| |__  
  / _ \| | | |/ _' | |/ _ \| |   / _' | '_ \ 
 / ___ \ |_| | (_| | | (_) | |__| (_| | |_) |
/_/   \_\__,_|\__,_|_|\___/|_____\__,_|_.__/ 

          Recording Alignment Lab
`
	fmt.Println(banner)
}

func main() {
	if len(os.Args) < 2 {
		printBanner()
	}
	if err := rootCmd.Execute(); err != nil {
		logger.GetLogger().Errorf("Command failed: %v", err)
		os.Exit(1)
	}
}
