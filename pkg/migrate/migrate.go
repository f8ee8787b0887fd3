package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Outcome is one migration touched or listed by a command.
type Outcome struct {
	Version  int64
	Path     string
	Action   string
	Duration time.Duration
}

func (o Outcome) String() string {
	if o.Duration > 0 {
		return fmt.Sprintf("%-8s %d %s (%s)", o.Action, o.Version, o.Path, o.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("%-8s %d %s", o.Action, o.Version, o.Path)
}

// Migrations are written for postgres; sqlite uses db.ApplySQLiteSchema.
func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Run executes up, down or status against db.
func Run(ctx context.Context, db *sql.DB, dir, command string) ([]Outcome, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	switch command {
	case "up":
		results, err := provider.Up(ctx)
		return fromResults(results), wrapGoose(command, err)
	case "down":
		result, err := provider.Down(ctx)
		if result == nil {
			return nil, wrapGoose(command, err)
		}
		return fromResults([]*goose.MigrationResult{result}), wrapGoose(command, err)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return nil, wrapGoose(command, err)
		}
		out := make([]Outcome, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, Outcome{Version: st.Source.Version, Path: st.Source.Path, Action: string(st.State)})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported goose command %q", command)
	}
}

// MigrateToVersion moves the schema up or down until target is the current version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir, targetVersion string) ([]Outcome, error) {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < target:
		results, err = provider.UpTo(ctx, target)
	case current > target:
		results, err = provider.DownTo(ctx, target)
	}
	return fromResults(results), wrapGoose(fmt.Sprintf("to %d", target), err)
}

func fromResults(results []*goose.MigrationResult) []Outcome {
	out := make([]Outcome, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Outcome{Version: r.Source.Version, Path: r.Source.Path, Action: r.Direction, Duration: r.Duration})
	}
	return out
}

func wrapGoose(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
