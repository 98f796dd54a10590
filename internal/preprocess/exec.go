package preprocess

import (
	"context"

	"astropipe/internal/services"
	"astropipe/internal/services/siril"
	"astropipe/internal/stage"
)

// runCmds sends the command lines in order, wrapping the first failure
// with the stage and the offending line.
func runCmds(ctx context.Context, env *stage.Env, kind stage.Kind, operation string, cmds [][]string) error {
	for _, args := range cmds {
		if err := env.Conn.Cmd(ctx, args...); err != nil {
			return services.Wrap(services.ErrExternalTool, string(kind), operation, siril.CommandLine(args), err)
		}
	}
	return nil
}
