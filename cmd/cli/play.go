package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/mix"
	"github.com/himanishpuri/AudioLab/pkg/logger"
)

var (
	playMix   int
	playStart float64
)

var playCmd = &cobra.Command{
	Use:   "play <track_a> <track_b>",
	Short: "Play both tracks in sync with an A/B crossfade",
	Long: `Play the aligned pair through the default audio device.

While playing, type a command and press enter:
  p          play/pause
  r          restart from the beginning
  s <sec>    seek to a position in seconds
  m <0-100>  set the mix (0 = all A, 100 = all B)
  a / b      solo track A or B
  q          quit`,
	Args: cobra.ExactArgs(2),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().IntVar(&playMix, "mix", 50, "Initial mix position 0 (all A) to 100 (all B)")
	playCmd.Flags().Float64Var(&playStart, "start", 0, "Start position in seconds")
}

func runPlay(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()

	svc, pair, err := loadPair(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer svc.Close()

	mixer, err := pair.Mixer()
	if err != nil {
		return err
	}
	sink, err := newOtoSink(mixer.SampleRate())
	if err != nil {
		log.Errorf("Audio device unavailable: %v", err)
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	transport := mix.NewTransport(mixer, sink)
	defer transport.Close()
	transport.SetMix(playMix)
	if err := transport.Seek(playStart); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n▶️  Playing %s ↔ %s (lag %+.3fs)\n", pair.A.Name, pair.B.Name, pair.Alignment.LagSec)
	if err := transport.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	lines := make(chan string)
	go readLines(os.Stdin, lines)
	return playLoop(ctx, transport, lines, out)
}

func readLines(r io.Reader, lines chan<- string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- sc.Text()
	}
	close(lines)
}

// playLoop prints the playhead until playback ends, the context is
// cancelled or the user quits.
func playLoop(ctx context.Context, t *mix.Transport, lines <-chan string, out io.Writer) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\n⏹  Stopped")
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			quit, err := applyControl(t, line)
			if err != nil {
				fmt.Fprintf(out, "\n❌ %v\n", err)
			}
			if quit {
				fmt.Fprintln(out, "\n⏹  Stopped")
				return nil
			}
		case <-ticker.C:
			fmt.Fprintf(out, "\r%s", statusLine(t))
			if t.Ended() && !t.Playing() {
				fmt.Fprintln(out, "\n✅ Finished")
				return nil
			}
		}
	}
}

// applyControl runs one interactive command against the transport.
func applyControl(t *mix.Transport, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(fields[0])
	switch cmd {
	case "q", "quit":
		return true, nil
	case "p", "pause", "play":
		return false, t.Toggle()
	case "r", "restart":
		return false, t.Restart()
	case "a":
		t.SetMix(0)
	case "b":
		t.SetMix(100)
	case "s", "seek", "m", "mix":
		if len(fields) < 2 {
			return false, fmt.Errorf("%s needs a value", fields[0])
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return false, fmt.Errorf("invalid value %q", fields[1])
		}
		if cmd == "s" || cmd == "seek" {
			return false, t.Seek(v)
		}
		t.SetMix(int(v))
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

func statusLine(t *mix.Transport) string {
	m := t.Mixer()
	g := mix.EqualPower(m.Slider())
	state := "⏸ "
	if t.Playing() {
		state = "▶️ "
	}
	const barWidth = 30
	filled := int(t.Progress() * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %s %s / %s  A %3d%% | B %3d%% ",
		state, bar, formatDuration(t.Position()), formatDuration(m.CommonDuration()), g.APct, g.BPct)
}
