package main

import (
	"context"
	"log"
	"os"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/urfave/cli/v3"

	"fpc/pkg/fpc"
	"fpc/pkg/lsp"
)

func main() {
	logger := log.New(os.Stderr, "[fpc-lsp] ", log.LstdFlags)
	if err := newCommand(logger).Run(context.Background(), os.Args); err != nil {
		logger.Fatal(err)
	}
}

func newCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "fpc-lsp",
		Usage: "fpc language server over stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "registry", Aliases: []string{"r"}, Usage: "signature registry (default: fpc.yaml found from the workspace root)"},
			&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Usage: "precision prefix, one of isdcz (default: the registry's, then d)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx, cmd, logger)
		},
	}
}

func serve(ctx context.Context, cmd *cli.Command, logger *log.Logger) error {
	var reg *fpc.Registry
	if path := cmd.String("registry"); path != "" {
		var err error
		if reg, err = fpc.LoadRegistry(path); err != nil {
			return err
		}
	}
	var prefix byte
	if p := cmd.String("prefix"); p != "" {
		var err error
		if prefix, err = fpc.ParsePrefix(p); err != nil {
			return err
		}
	}

	logger.Println("starting fpc language server")
	server := lsp.NewServer(reg, prefix, logger)
	conn := jsonrpc2.NewConn(
		ctx,
		jsonrpc2.NewBufferedStream(stdrwc{}, jsonrpc2.VSCodeObjectCodec{}),
		lsp.NewHandler(server),
	)
	server.Attach(conn)

	<-conn.DisconnectNotify()
	logger.Println("connection closed")
	return nil
}

// stdrwc implements io.ReadWriteCloser for stdin/stdout
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
