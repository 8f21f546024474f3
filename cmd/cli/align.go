package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/AudioLab/pkg/audiolab"
	"github.com/himanishpuri/AudioLab/pkg/logger"
)

var alignCmd = &cobra.Command{
	Use:   "align <track_a> <track_b>",
	Short: "Estimate the offset between two recordings",
	Long: `Estimate how far track B is shifted against track A.

Sources can be local files or http(s) URLs. The result is stored, so
aligning the same pair again is instant.`,
	Args: cobra.ExactArgs(2),
	RunE: runAlign,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored alignments",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <alignment_id>",
	Short: "Show one stored alignment",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <alignment_id>",
	Short: "Delete a stored alignment",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

// loadPair opens the service and aligns the two sources.
func loadPair(cmd *cobra.Command, srcA, srcB string) (audiolab.Service, *audiolab.Pair, error) {
	log := logger.GetLogger()

	fmt.Fprintln(cmd.OutOrStdout(), "🔧 Initializing service...")
	svc, err := createService()
	if err != nil {
		log.Errorf("Service initialization failed: %v", err)
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "🎵 Decoding and aligning tracks...")
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	pair, err := svc.LoadPair(ctx, srcA, srcB)
	if err != nil {
		svc.Close()
		log.Errorf("LoadPair failed: %v", err)
		return nil, nil, fmt.Errorf("failed to align tracks: %w", err)
	}
	return svc, pair, nil
}

func runAlign(cmd *cobra.Command, args []string) error {
	svc, pair, err := loadPair(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	res := pair.Alignment
	fmt.Fprintln(out, "\n✅ Alignment complete!")
	if pair.Cached {
		fmt.Fprintln(out, "   (from stored result)")
	}
	fmt.Fprintf(out, "   ID:        %s\n", pair.RecordID)
	fmt.Fprintf(out, "   Lag:       %+.3fs (%s)\n", res.LagSec, describeLag(res.LagSec))
	fmt.Fprintf(out, "   Score:     %.3f\n", res.Score)
	fmt.Fprintf(out, "   A offset:  %.3fs\n", res.OffsetA())
	fmt.Fprintf(out, "   B offset:  %.3fs\n", res.OffsetB())
	fmt.Fprintf(out, "   Common:    %s\n", formatDuration(pair.CommonDuration))
	fmt.Fprintf(out, "   Track A:   %s (%s, %d Hz)\n", pair.A.Name, formatDuration(pair.A.Buffer.Duration()), pair.A.Buffer.SampleRate)
	fmt.Fprintf(out, "   Track B:   %s (%s, %d Hz)\n", pair.B.Name, formatDuration(pair.B.Buffer.Duration()), pair.B.Buffer.SampleRate)
	return nil
}

func describeLag(lag float64) string {
	switch {
	case lag > 0:
		return "B starts later"
	case lag < 0:
		return "A starts later"
	default:
		return "in sync"
	}
}

func formatDuration(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(sec * float64(time.Second))
	m := int(d / time.Minute)
	return fmt.Sprintf("%d:%06.3f", m, (d - time.Duration(m)*time.Minute).Seconds())
}

func runList(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()

	svc, err := createService()
	if err != nil {
		log.Errorf("Service initialization failed: %v", err)
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	records, err := svc.ListAlignments()
	if err != nil {
		log.Errorf("ListAlignments failed: %v", err)
		return fmt.Errorf("failed to list alignments: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "\n📭 No alignments in database")
		return nil
	}

	fmt.Fprintf(out, "\n📚 Found %s alignment(s):\n\n", humanize.Comma(int64(len(records))))
	for i, rec := range records {
		fmt.Fprintf(out, "%d. %s ↔ %s (ID: %s)\n", i+1, rec.TrackAName, rec.TrackBName, rec.ID)
		fmt.Fprintf(out, "   Lag: %+.3fs | Score: %.3f | Method: %s | Updated %s\n",
			rec.LagSec, rec.Score, rec.Method, humanize.Time(rec.UpdatedAt))
		fmt.Fprintln(out)
	}
	log.Infof("Listed %d alignments", len(records))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	rec, err := svc.GetAlignment(args[0])
	if errors.Is(err, audiolab.ErrNotFound) {
		return fmt.Errorf("alignment not found (ID: %s)", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to load alignment: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n🎚  Alignment %s\n", rec.ID)
	fmt.Fprintf(out, "   Track A:   %s\n", rec.TrackAName)
	fmt.Fprintf(out, "   Track B:   %s\n", rec.TrackBName)
	fmt.Fprintf(out, "   Lag:       %+.3fs (%s)\n", rec.LagSec, describeLag(rec.LagSec))
	fmt.Fprintf(out, "   Score:     %.3f\n", rec.Score)
	fmt.Fprintf(out, "   Envelope:  %.1f Hz\n", rec.EnvelopeRate)
	fmt.Fprintf(out, "   Common:    %s\n", formatDuration(rec.CommonDurationSec))
	fmt.Fprintf(out, "   Method:    %s\n", rec.Method)
	fmt.Fprintf(out, "   Created:   %s\n", humanize.Time(rec.CreatedAt))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	rec, err := svc.GetAlignment(args[0])
	if err != nil {
		log.Warnf("Alignment %s not found: %v", args[0], err)
		return fmt.Errorf("alignment not found (ID: %s)", args[0])
	}
	if err := svc.DeleteAlignment(rec.ID); err != nil {
		log.Errorf("DeleteAlignment failed: %v", err)
		return fmt.Errorf("failed to delete alignment: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Deleted alignment %s (%s ↔ %s)\n", rec.ID, rec.TrackAName, rec.TrackBName)
	return nil
}
