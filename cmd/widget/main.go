// Command widget prints the daemon's last synced timer snapshot, the way a
// menu bar or status line companion would show it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"converge/internal/db"
	"converge/internal/model"
	"converge/internal/repository"
)

type CLI struct {
	DBPath   string        `help:"Path to the daemon's SQLite database" type:"path" default:"./data/converge.db" env:"DB_PATH"`
	Watch    bool          `help:"Keep printing until interrupted" short:"w"`
	Interval time.Duration `help:"Refresh interval in watch mode" default:"1s"`
	JSON     bool          `help:"Print the snapshot as JSON" name:"json"`
}

type snapshotOutput struct {
	model.Snapshot
	RemainingNow int `json:"remainingNow"`
}

func (c *CLI) Run() error {
	database, err := db.OpenSQLite(c.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := db.RunMigrations(ctx, database, db.Migrations()); err != nil {
		return err
	}
	repo := repository.NewSnapshotRepository(database)

	if !c.Watch {
		return printOnce(ctx, os.Stdout, repo, time.Now(), c.JSON)
	}

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		if err := printOnce(ctx, os.Stdout, repo, time.Now(), c.JSON); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type snapshotGetter interface {
	Get(ctx context.Context) (*model.Snapshot, error)
}

func printOnce(ctx context.Context, w io.Writer, repo snapshotGetter, now time.Time, asJSON bool) error {
	snapshot, err := repo.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		_, err = fmt.Fprintln(w, "--:-- (no timer running)")
		return err
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	return render(w, *snapshot, now, asJSON)
}

func render(w io.Writer, snapshot model.Snapshot, now time.Time, asJSON bool) error {
	remaining := snapshot.RemainingAt(now)
	if asJSON {
		return json.NewEncoder(w).Encode(snapshotOutput{Snapshot: snapshot, RemainingNow: remaining})
	}

	status := "paused"
	if snapshot.IsRunning {
		status = "running"
	}
	_, err := fmt.Fprintf(w, "%s %s %s #%d\n",
		phaseLabel(snapshot.Phase), model.FormatSeconds(remaining), status, snapshot.CompletedPomodoros)
	return err
}

func phaseLabel(phase model.Phase) string {
	switch phase {
	case model.PhaseWork:
		return "Work"
	case model.PhaseBreak:
		return "Break"
	default:
		return "Ready"
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("widget"),
		kong.Description("Show the current Pomodoro timer"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
