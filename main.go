package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"fpc/pkg/ast"
	"fpc/pkg/fpc"
	"fpc/pkg/parser"
)

var version = "0.1.0"

func main() {
	if err := newCommand(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "fpc",
		Usage:   "type inference for functional array programs",
		Version: version,
		// -v is --verbose; the version subcommand replaces --version.
		HideVersion: true,
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Usage: "precision prefix, one of isdcz (default: the registry's, then d)"},
			&cli.StringFlag{Name: "registry", Aliases: []string{"r"}, Usage: "signature registry (default: fpc.yaml found next to FILE or above)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "trace the analysis passes on stderr"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable colored output"},
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Aliases:   []string{"c"},
				Usage:     "infer the type of every definition",
				ArgsUsage: "FILE",
				Action:    checkAction,
			},
			{
				Name:      "print",
				Usage:     "print the program annotated with its types",
				ArgsUsage: "FILE",
				Action:    printAction,
			},
			{
				Name:      "env",
				Usage:     "dump the type environment of every definition",
				ArgsUsage: "FILE",
				Action:    envAction,
			},
			{
				Name:   "version",
				Usage:  "print fpc version",
				Action: versionAction,
			},
		},
	}
}

// analyzeArg parses the file named by the first argument and analyzes all
// of its definitions.
func analyzeArg(ctx context.Context, cmd *cli.Command) ([]fpc.Analysis, error) {
	if cmd.Args().Len() != 1 {
		return nil, errors.New("expected exactly one FILE argument")
	}
	fileName := cmd.Args().First()
	src, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	f, err := parser.ParseFile(fileName, string(src))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fileName, err)
	}
	reg, err := loadRegistry(cmd.String("registry"), filepath.Dir(fileName))
	if err != nil {
		return nil, err
	}
	prefix, err := resolvePrefix(cmd.String("prefix"), reg)
	if err != nil {
		return nil, err
	}
	var opts []fpc.Option
	if cmd.Bool("verbose") {
		opts = append(opts, fpc.WithLogger(log.New(cmd.Root().ErrWriter, "[fpc] ", log.LstdFlags)))
	}
	out, err := fpc.AnalyzeFile(ctx, f, reg, prefix, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return out, nil
}

func loadRegistry(path, dir string) (*fpc.Registry, error) {
	if path == "" {
		found, err := fpc.FindRegistry(dir)
		if err != nil || found == "" {
			return nil, err
		}
		path = found
	}
	return fpc.LoadRegistry(path)
}

func resolvePrefix(flag string, reg *fpc.Registry) (byte, error) {
	switch {
	case flag == "" && reg != nil && reg.Prefix != 0:
		return reg.Prefix, nil
	case flag == "":
		return 'd', nil
	}
	return fpc.ParsePrefix(flag)
}

// useColor follows the NO_COLOR convention and only colors terminals.
func useColor(cmd *cli.Command) bool {
	if cmd.Bool("no-color") {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := cmd.Root().Writer.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func paint(on bool, code, s string) string {
	if !on {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	out, err := analyzeArg(ctx, cmd)
	if err != nil {
		return err
	}
	color := useColor(cmd)
	w := cmd.Root().Writer
	for _, a := range out {
		_, _ = fmt.Fprintf(w, "%s: %s\n", paint(color, "1", a.Def.Name), paint(color, "36", signature(a)))
	}
	return nil
}

// signature spells a definition's type from its parameters to its result.
func signature(a fpc.Analysis) string {
	l, ok := a.Result.Source.(*ast.Lambda)
	if !ok {
		return a.Result.Type.String()
	}
	params := make([]string, len(l.Params))
	for i, p := range l.Params {
		if t, ok := a.Result.Types[p.ID()]; ok {
			params[i] = t.String()
		} else {
			params[i] = "?"
		}
	}
	return "(" + strings.Join(params, ", ") + ") -> " + a.Result.Type.String()
}

func printAction(ctx context.Context, cmd *cli.Command) error {
	out, err := analyzeArg(ctx, cmd)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer
	for i, a := range out {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprint(w, fpc.NewPrinter(a.Result, a.Def.Name).Print())
	}
	return nil
}

func envAction(ctx context.Context, cmd *cli.Command) error {
	out, err := analyzeArg(ctx, cmd)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer
	for _, a := range out {
		_, _ = fmt.Fprintf(w, "%s (tag %s)\n%s", a.Def.Name, a.Result.Tag, a.Result.Env)
	}
	return nil
}

func versionAction(ctx context.Context, cmd *cli.Command) error {
	_, _ = fmt.Fprintf(cmd.Root().Writer, "fpc v%s\n", version)
	return nil
}
