package enhance

import (
	"context"
	"os"
	"path/filepath"

	"astropipe/internal/fileutil"
	"astropipe/internal/services"
	"astropipe/internal/stage"
)

// forEachImage runs fn against every image artifact in the working
// directory that was not produced earlier in this run. A failed file is
// reported through the env and skipped; the remaining files still run.
func forEachImage(ctx context.Context, env *stage.Env, kind stage.Kind, fn func(image string) error) error {
	images, err := fileutil.ListImages(env.WorkDir)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(kind), "list images", env.WorkDir, err)
	}
	for _, image := range images {
		if env.Processed.Contains(image) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(image); err != nil {
			if services.Fatal(err) {
				return err
			}
			env.FileFailed(image, err)
		}
	}
	return nil
}

// alreadyDerived reports whether the parameter-suffixed output for an
// image survives on disk from an earlier invocation. The derived name
// is recorded as processed so the stage does not pick it up as a fresh
// input later in the same pass.
func alreadyDerived(env *stage.Env, derived string) bool {
	if _, err := os.Stat(filepath.Join(env.WorkDir, derived)); err != nil {
		return false
	}
	env.Logger.Info("already done, skipping", "artifact", derived)
	env.Processed.Add(derived)
	return true
}

// hostTransform is the load/transform/save shape shared by every stage
// that runs inside the host: load the artifact, issue the transform
// commands, save under the derived name, and record the new artifact so
// later stages leave it alone.
func hostTransform(ctx context.Context, env *stage.Env, kind stage.Kind, suffix string, cmds func(image string) [][]string) error {
	return forEachImage(ctx, env, kind, func(image string) error {
		derived := stage.DerivedName(image, suffix)
		if alreadyDerived(env, derived) {
			return nil
		}
		lines := [][]string{{"load", image}}
		lines = append(lines, cmds(image)...)
		lines = append(lines, []string{"save", derived})
		for _, args := range lines {
			if err := env.Conn.Cmd(ctx, args...); err != nil {
				return services.Wrap(services.ErrExternalTool, string(kind), "host command", image, err)
			}
		}
		env.Processed.Add(derived)
		return nil
	})
}
