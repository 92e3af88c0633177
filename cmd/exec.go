// -- cmd/exec.go --
package cmd

import (
	"context"
	stdjson "encoding/json"

	"github.com/spf13/cobra"

	"github.com/selwire/jsonwire"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec SCRIPT [ARG...]",
		Short: "Run a JavaScript snippet in the browser and print its result",
		Long: `exec injects SCRIPT into the page and prints whatever it returns,
encoded as JSON. Each ARG is passed to the script via the arguments
array; ARGs that parse as JSON are passed as their decoded value,
anything else is passed as a string.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, sess *jsonwire.Session) error {
				script := args[0]
				scriptArgs := make([]any, 0, len(args)-1)
				for _, raw := range args[1:] {
					if stdjson.Valid([]byte(raw)) {
						scriptArgs = append(scriptArgs, stdjson.RawMessage(raw))
					} else {
						scriptArgs = append(scriptArgs, raw)
					}
				}

				run := sess.Execute
				if async, _ := cmd.Flags().GetBool("async"); async {
					run = sess.ExecuteAsync
				}

				result, err := run(ctx, script, scriptArgs...)
				if err != nil {
					return err
				}
				cmd.Println(string(result))
				return nil
			})
		},
	}
	cmd.Flags().Bool("async", false, "run the script asynchronously; it must call the trailing callback argument")
	return cmd
}
