package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesonlint/mesonlint/pkg/registry"
)

func newBuiltinsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builtins [name]",
		Short: "Print builtin function and method signatures",
		Long: `Print the signatures the analyzer validates calls against.

Without an argument every function is listed. A function name prints its
signature, an object type name (e.g. str) lists its methods and a
receiver.method name prints one method.`,
		Example: `  mesonlint builtins
  mesonlint builtins executable
  mesonlint builtins str
  mesonlint builtins str.format`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			var fns []*registry.Function
			if len(args) == 0 {
				fns = a.reg.Functions()
			} else {
				fns, err = lookupBuiltins(a.reg, args[0])
				if err != nil {
					return err
				}
			}
			return writeSignatures(cmd.OutOrStdout(), fns)
		},
	}

	return cmd
}

func lookupBuiltins(reg *registry.Registry, name string) ([]*registry.Function, error) {
	if receiver, method, ok := strings.Cut(name, "."); ok {
		if fn, found := reg.LookupMethodByReceiver(receiver, method); found {
			return []*registry.Function{fn}, nil
		}
		return nil, fmt.Errorf("unknown method %s", name)
	}
	if fn, ok := reg.LookupFunction(name); ok {
		return []*registry.Function{fn}, nil
	}
	if methods := reg.Methods(name); len(methods) > 0 {
		return methods, nil
	}
	return nil, fmt.Errorf("unknown function or object %s", name)
}

type signature struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
}

func writeSignatures(w io.Writer, fns []*registry.Function) error {
	if jsonOutput {
		out := make([]signature, 0, len(fns))
		for _, fn := range fns {
			out = append(out, signature{ID: fn.ID(), Signature: fn.Signature()})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, fn := range fns {
		fmt.Fprintln(w, fn.Signature())
	}
	return nil
}
