package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"astropipe/internal/logging"
	"astropipe/internal/manifest"
	"astropipe/internal/services"
	"astropipe/internal/services/siril"
	"astropipe/internal/stage"
)

// Driver executes an ordered set of stage handlers against one working
// directory: bootstrap the host session, skip stages whose completion
// marker is already present, run the rest, and record every decision in
// the manifest.
type Driver struct {
	Conn    siril.Conn
	Store   *manifest.Store
	Logger  *slog.Logger
	Session siril.SessionOptions

	// LockDir holds the per-workdir lock files that refuse concurrent
	// invocations against the same directory.
	LockDir string
}

// StageOutcome is one stage's terminal state within a run.
type StageOutcome struct {
	Request  stage.Request
	Status   manifest.Status
	Marker   string
	Detail   string
	Duration time.Duration
}

// FileFailure is a recoverable per-file error surfaced by a stage.
type FileFailure struct {
	Stage stage.Request
	File  string
	Err   string
}

// Summary reports what one invocation did.
type Summary struct {
	RunID        string
	WorkDir      string
	Stages       []StageOutcome
	FileFailures []FileFailure
}

// Failed reports whether any stage ended in the failed state.
func (s Summary) Failed() bool {
	for _, outcome := range s.Stages {
		if outcome.Status == manifest.StatusFailed {
			return true
		}
	}
	return false
}

// Run drives the handlers in stage priority order. Fatal errors
// (connection, configuration) abort the run; a stage-level failure is
// recorded and the remaining stages still execute. Completed stages are
// never rolled back: re-running the same invocation resumes from the
// markers.
func (d *Driver) Run(ctx context.Context, workdir string, handlers []stage.Handler) (Summary, error) {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	lock := flock.New(d.lockPath(workdir))
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "run", "lock", d.lockPath(workdir), err)
	}
	if !locked {
		return Summary{}, services.Wrap(services.ErrValidation, "run", "lock",
			fmt.Sprintf("another invocation already occupies %s", workdir), nil)
	}
	defer lock.Unlock()

	run, err := d.Store.BeginRun(ctx, workdir)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{RunID: run.ID, WorkDir: workdir}
	ctx = services.WithRunID(ctx, run.ID)
	logger = logger.With(logging.FieldRunID, run.ID)

	if err := d.Conn.Connect(ctx); err != nil {
		d.finishRun(ctx, run.ID, "connect failed")
		return summary, err
	}
	defer d.Conn.Close()
	if err := siril.Setup(ctx, d.Conn, d.sessionOptions(workdir)); err != nil {
		d.finishRun(ctx, run.ID, "session setup failed")
		return summary, err
	}

	// The processed set outlives individual stages so a later stage does
	// not rework an earlier stage's outputs.
	processed := stage.NewProcessedSet()

	var fatal error
	for _, handler := range stage.Sort(handlers) {
		request := handler.Request()
		stageLogger := logger.With(logging.FieldStage, request.Label())
		env := &stage.Env{
			WorkDir:   workdir,
			Conn:      d.Conn,
			Logger:    stageLogger,
			Processed: processed,
			OnFileFailure: func(file string, err error) {
				stageLogger.Warn("file failed, continuing", "file", file, "error", err)
				summary.FileFailures = append(summary.FileFailures, FileFailure{
					Stage: request, File: file, Err: err.Error(),
				})
			},
		}

		if marker := handler.Marker(); !marker.Empty() {
			if path, ok := marker.Exists(workdir); ok {
				stageLogger.Info("already done, skipping", "marker", path)
				if err := d.Store.RecordSkip(ctx, run.ID, string(request.Kind), request.Signature(), path); err != nil {
					stageLogger.Warn("could not record skip", "error", err)
				}
				summary.Stages = append(summary.Stages, StageOutcome{
					Request: request, Status: manifest.StatusSkipped, Marker: path,
				})
				continue
			}
		}

		stageLogger.Info("stage starting")
		stageID, err := d.Store.StartStage(ctx, run.ID, string(request.Kind), request.Signature())
		if err != nil {
			stageLogger.Warn("could not record stage start", "error", err)
		}
		started := time.Now()
		execErr := handler.Execute(services.WithStage(ctx, string(request.Kind)), env)
		outcome := StageOutcome{Request: request, Duration: time.Since(started)}

		if execErr != nil {
			outcome.Status = manifest.StatusFailed
			outcome.Detail = execErr.Error()
			stageLogger.Error("stage failed", "error", execErr)
			if services.Fatal(execErr) {
				fatal = execErr
			}
		} else {
			outcome.Status = manifest.StatusDone
			stageLogger.Info("stage done", "duration", outcome.Duration)
		}
		if stageID != 0 {
			if err := d.Store.FinishStage(ctx, stageID, outcome.Status, outcome.Detail); err != nil {
				stageLogger.Warn("could not record stage finish", "error", err)
			}
		}
		summary.Stages = append(summary.Stages, outcome)
		if fatal != nil {
			break
		}
	}

	d.finishRun(ctx, run.ID, summaryLine(summary))
	return summary, fatal
}

func (d *Driver) sessionOptions(workdir string) siril.SessionOptions {
	opts := d.Session
	opts.WorkDir = workdir
	return opts
}

func (d *Driver) finishRun(ctx context.Context, runID, text string) {
	if err := d.Store.FinishRun(ctx, runID, text); err != nil && d.Logger != nil {
		d.Logger.Warn("could not record run finish", "error", err)
	}
}

// lockPath derives a stable lock file name for a working directory.
func (d *Driver) lockPath(workdir string) string {
	sum := sha256.Sum256([]byte(workdir))
	return filepath.Join(d.LockDir, "run-"+hex.EncodeToString(sum[:8])+".lock")
}

// summaryLine condenses a run summary to one line for the manifest.
func summaryLine(s Summary) string {
	var skipped, done, failed int
	for _, outcome := range s.Stages {
		switch outcome.Status {
		case manifest.StatusSkipped:
			skipped++
		case manifest.StatusDone:
			done++
		case manifest.StatusFailed:
			failed++
		}
	}
	return fmt.Sprintf("%d done, %d skipped, %d failed, %d file failures",
		done, skipped, failed, len(s.FileFailures))
}
