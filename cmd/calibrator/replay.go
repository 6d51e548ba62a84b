package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/expert-revision/internal/service"
)

var (
	replaySweep   bool
	replaySummary bool
)

func init() {
	replayCmd.Flags().BoolVar(&replaySweep, "sweep", true, "Measure revision effectiveness after the replay")
	replayCmd.Flags().BoolVar(&replaySummary, "summary", false, "Print a calibration summary per expert")
}

var replayCmd = &cobra.Command{
	Use:   "replay [games.jsonl]",
	Short: "Replay graded games from a JSON-lines file",
	Long: `Reads one game result per line, applies them in order and writes one
JSON report per game to stdout. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open replay file: %w", err)
			}
			defer f.Close()
			in = f
		}
		return replay(cmd.Context(), in, cmd.OutOrStdout())
	},
}

// readGames decodes one GameResult per non-empty line
func readGames(r io.Reader) ([]service.GameResult, error) {
	var games []service.GameResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var g service.GameResult
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		games = append(games, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read games: %w", err)
	}

	return games, nil
}

func replay(ctx context.Context, in io.Reader, out io.Writer) error {
	games, err := readGames(in)
	if err != nil {
		return err
	}

	repos, db, err := openRepositories(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	svc := service.NewCalibrationService(cfg, repos, appLog)
	reports, err := svc.ProcessGames(ctx, games)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, report := range reports {
		if report == nil {
			continue
		}
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if replaySweep {
		sweep, err := svc.SweepEffectiveness(ctx)
		if err != nil {
			return err
		}
		appLog.WithFields(logrus.Fields{
			"games":    len(games),
			"measured": sweep.Measured,
			"pending":  sweep.NotReady,
		}).Info("Replay complete")
	}

	if replaySummary {
		for _, expertID := range svc.Experts() {
			summary, err := svc.ExpertSummary(ctx, expertID)
			if err != nil {
				return err
			}
			if err := enc.Encode(summary); err != nil {
				return fmt.Errorf("failed to write summary: %w", err)
			}
		}
	}

	return nil
}
