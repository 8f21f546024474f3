package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/logger"
)

var infoCmd = &cobra.Command{
	Use:   "info <source>",
	Short: "Show format details of an audio file or URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	src, err := openSource(cmd, args[0])
	if err != nil {
		return err
	}
	defer src.Cleanup()

	meta, err := audio.ReadMetadata(cmd.Context(), src.Path)
	if err != nil {
		logger.GetLogger().Debugf("ffprobe unavailable for %s: %v", src.Path, err)
		meta = audio.MetadataFromBuffer(src.Name, src.Buffer)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🎵 %s\n", meta.Filename)
	if meta.Title != "" {
		fmt.Fprintf(out, "   Title:    %s\n", meta.Title)
	}
	if meta.Artist != "" {
		fmt.Fprintf(out, "   Artist:   %s\n", meta.Artist)
	}
	if meta.Album != "" {
		fmt.Fprintf(out, "   Album:    %s\n", meta.Album)
	}
	fmt.Fprintf(out, "   Format:   %s\n", meta.Format)
	fmt.Fprintf(out, "   Duration: %s\n", formatDuration(meta.DurationSec))
	fmt.Fprintf(out, "   Rate:     %s Hz\n", humanize.Comma(int64(meta.SampleRate)))
	fmt.Fprintf(out, "   Channels: %d\n", meta.Channels)
	if meta.BitDepth > 0 {
		fmt.Fprintf(out, "   Bits:     %d\n", meta.BitDepth)
	}
	fmt.Fprintf(out, "   Decoded:  %s samples at %s Hz\n",
		humanize.Comma(int64(src.Buffer.Len())), humanize.Comma(int64(src.Buffer.SampleRate)))
	if peak := src.Buffer.Peak(); peak > 0 {
		fmt.Fprintf(out, "   Peak:     %.1f dBFS\n", 20*math.Log10(peak))
	} else {
		fmt.Fprintln(out, "   Peak:     silent")
	}
	return nil
}
