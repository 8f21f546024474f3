package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/AudioLab/pkg/audiolab"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/mix"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/waveform"
	"github.com/himanishpuri/AudioLab/pkg/logger"
	"github.com/himanishpuri/AudioLab/pkg/utils"
)

var (
	waveformOut    string
	waveformWidth  int
	waveformHeight int
	waveformMix    int
	waveformTrack  string

	spectrogramOut    string
	spectrogramWidth  int
	spectrogramHeight int

	mixOut   string
	mixValue int
)

var waveformCmd = &cobra.Command{
	Use:   "waveform <track_a> <track_b>",
	Short: "Draw the aligned waveforms as a PNG",
	Args:  cobra.ExactArgs(2),
	RunE:  runWaveform,
}

var spectrogramCmd = &cobra.Command{
	Use:   "spectrogram <source|dir>",
	Short: "Draw a spectrogram of a recording, or of every WAV in a directory, as PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpectrogram,
}

var mixCmd = &cobra.Command{
	Use:   "mix <track_a> <track_b>",
	Short: "Render the equal-power A/B mix of the common region to WAV",
	Args:  cobra.ExactArgs(2),
	RunE:  runMix,
}

func init() {
	waveformCmd.Flags().StringVarP(&waveformOut, "out", "o", "waveform.png", "Output PNG path")
	waveformCmd.Flags().IntVar(&waveformWidth, "width", 0, "Image width in pixels (default from config)")
	waveformCmd.Flags().IntVar(&waveformHeight, "height", 0, "Image height in pixels (default from config)")
	waveformCmd.Flags().IntVar(&waveformMix, "mix", 50, "Mix position 0 (all A) to 100 (all B), sets track opacity")
	waveformCmd.Flags().StringVar(&waveformTrack, "track", audiolab.TrackBoth, "Track to draw: a, b or both")

	spectrogramCmd.Flags().StringVarP(&spectrogramOut, "out", "o", "spectrogram.png", "Output PNG path, or output directory for a directory source")
	spectrogramCmd.Flags().IntVar(&spectrogramWidth, "width", 1024, "Image width in pixels")
	spectrogramCmd.Flags().IntVar(&spectrogramHeight, "height", 512, "Image height in pixels")

	mixCmd.Flags().StringVarP(&mixOut, "out", "o", "mix.wav", "Output WAV path")
	mixCmd.Flags().IntVar(&mixValue, "mix", 50, "Mix position 0 (all A) to 100 (all B)")
}

func runWaveform(cmd *cobra.Command, args []string) error {
	svc, pair, err := loadPair(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer svc.Close()

	width, height := waveformWidth, waveformHeight
	if width <= 0 {
		width = cfg.Waveform.Width
	}
	if height <= 0 {
		height = cfg.Waveform.Height
		if waveformTrack == audiolab.TrackBoth {
			height *= 2
		}
	}

	f, err := os.Create(waveformOut)
	if err != nil {
		return err
	}
	if err := svc.WaveformPNG(pair, waveformTrack, waveformMix, width, height, f); err != nil {
		f.Close()
		os.Remove(waveformOut)
		return fmt.Errorf("failed to draw waveform: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Waveform saved to %s (%dx%d, %s)\n", waveformOut, width, height, formatDuration(pair.CommonDuration))
	return nil
}

func runSpectrogram(cmd *cobra.Command, args []string) error {
	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		return runSpectrogramDir(cmd, args[0])
	}

	fmt.Fprintln(cmd.OutOrStdout(), "🎵 Decoding audio...")
	src, err := openSource(cmd, args[0])
	if err != nil {
		return err
	}
	defer src.Cleanup()

	if err := waveform.SaveSpectrogram(src.Buffer, spectrogramOut, spectrogramWidth, spectrogramHeight); err != nil {
		return fmt.Errorf("failed to draw spectrogram: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Spectrogram of %s saved to %s\n", src.Name, spectrogramOut)
	return nil
}

// runSpectrogramDir draws every WAV under dir into the --out directory,
// one <name>.png per file. Unreadable files are logged and skipped.
func runSpectrogramDir(cmd *cobra.Command, dir string) error {
	log := logger.GetLogger()
	out := cmd.OutOrStdout()

	outDir := spectrogramOut
	if !cmd.Flags().Changed("out") {
		outDir = "spectrograms"
	}
	if err := utils.MakeDir(outDir); err != nil {
		return err
	}

	var done, skipped int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		fmt.Fprintf(out, "Processing %s...\n", path)
		buf, err := audio.ReadWAVFile(path)
		if err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			skipped++
			return nil
		}
		target := filepath.Join(outDir, filepath.Base(path)+".png")
		if err := waveform.SaveSpectrogram(buf, target, spectrogramWidth, spectrogramHeight); err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			skipped++
			return nil
		}
		done++
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n✅ Saved %d spectrogram(s) to %s", done, outDir)
	if skipped > 0 {
		fmt.Fprintf(out, " (%d skipped)", skipped)
	}
	fmt.Fprintln(out)
	return nil
}

func runMix(cmd *cobra.Command, args []string) error {
	svc, pair, err := loadPair(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer svc.Close()

	f, err := os.Create(mixOut)
	if err != nil {
		return err
	}
	if err := svc.RenderMix(cmd.Context(), pair, mixValue, f); err != nil {
		f.Close()
		os.Remove(mixOut)
		return fmt.Errorf("failed to render mix: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	size := "?"
	if info, err := os.Stat(mixOut); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	g := mix.EqualPower(mixValue)
	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Mix A %d%% / B %d%% saved to %s (%s, %s)\n",
		g.APct, g.BPct, mixOut, formatDuration(pair.CommonDuration), size)
	return nil
}
