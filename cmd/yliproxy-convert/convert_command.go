package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"yliproxy/internal/converter"
	"yliproxy/internal/identifier"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <url|file>...",
		Short: "Convert media links or local files and print their public URLs (needs the data-dir lock)",
		Args:  cobra.MinimumNArgs(1),
		Long: `Convert media links or local files and print their public URLs.

The command locks DATA_PATH for the whole run, like the server does. It
fails with "data directory is in use by another process" while a yliproxy
server uses the same DATA_PATH; stop the server or send the references to
its POST /api/convert endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			decorate := isTerminal(out)

			return ctx.withConverter(func(cache *converter.Cache) error {
				failed := 0
				for _, arg := range args {
					res, err := convertArg(cmd, cache, arg)
					if err != nil {
						if cmd.Context().Err() != nil {
							return cmd.Context().Err()
						}
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", arg, err)
						continue
					}
					printResult(out, arg, res, decorate)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d conversions failed", failed, len(args))
				}
				return nil
			})
		},
	}
}

// convertArg treats arg as a local upload when it names a regular file and
// as a URL otherwise.
func convertArg(cmd *cobra.Command, cache *converter.Cache, arg string) (converter.Result, error) {
	info, err := os.Stat(arg)
	if err != nil || !info.Mode().IsRegular() {
		return cache.Resolve(cmd.Context(), identifier.Reference{URL: arg})
	}

	f, err := os.Open(arg)
	if err != nil {
		return converter.Result{}, fmt.Errorf("open %s: %w", arg, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close %s: %v\n", arg, cerr)
		}
	}()

	return cache.Resolve(cmd.Context(), identifier.Reference{Filename: filepath.Base(arg), Body: f})
}

// printResult writes the bare URL for scripts and pipes, and a labelled
// line on a terminal.
func printResult(w io.Writer, source string, res converter.Result, decorate bool) {
	if !decorate {
		fmt.Fprintln(w, res.URL)
		return
	}
	state := "converted"
	if res.Cached {
		state = "cached"
	}
	fmt.Fprintf(w, "%-9s %s\n          %s\n", state, source, res.URL)
}
