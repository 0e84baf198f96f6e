// Command tryonctl drives the try-on backend from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/config"
	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/render"
	"github.com/zulfkhar00/instafit_console/internal/session"
	"github.com/zulfkhar00/instafit_console/internal/watch"
)

const usage = `usage: tryonctl <command> [flags]

commands:
  try-on   -person P -garment G [-base URL]
  analyze  -person P [-model b2|b5|sam] [-base URL]
  health   [-base URL]
  shell    [-base URL]
  watch    -console URL -token T
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tryonctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := args[0], args[1:]
	switch cmd {
	case "try-on":
		return runOnce(ctx, cfg, session.FlowTryOn, args, out)
	case "analyze":
		return runOnce(ctx, cfg, session.FlowAnalyze, args, out)
	case "health":
		return runHealth(ctx, cfg, args, out)
	case "shell":
		return runShell(cfg, args, out)
	case "watch":
		return runWatch(ctx, args, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newController(cfg config.Config, base string) *dispatcher.Controller {
	client := backend.New(backend.WithTimeout(cfg.RequestTimeout))
	return dispatcher.NewController("local", client, dispatcher.Options{
		BaseURL:           base,
		Category:          backend.DefaultCategory,
		SegmentationModel: cfg.SegmentationModel,
	})
}

func runOnce(ctx context.Context, cfg config.Config, flow session.Flow, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(string(flow), flag.ContinueOnError)
	base := fs.String("base", cfg.APIBaseURL, "backend base URL")
	person := fs.String("person", "", "person image file")
	garment := fs.String("garment", "", "garment image file")
	model := fs.String("model", "", "segmentation model for analyze (b2, b5, sam)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctrl := newController(cfg, *base)
	if err := selectFile(ctrl, "person", *person); err != nil {
		return err
	}
	if flow == session.FlowTryOn {
		if err := selectFile(ctrl, "garment", *garment); err != nil {
			return err
		}
	}
	if *model != "" {
		m, err := backend.ParseModel(*model)
		if err != nil {
			return err
		}
		ctrl.Apply(session.SelectModel{Model: m})
	}

	runErr := ctrl.Run(ctx, flow)
	fmt.Fprint(out, render.Text(render.Build(ctrl.State())))
	return runErr
}

func runHealth(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	base := fs.String("base", cfg.APIBaseURL, "backend base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client := backend.New(backend.WithTimeout(cfg.RequestTimeout))
	h, err := client.Health(ctx, *base)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s %s\n", backend.TrimBaseURL(*base), h.Status, h.Message)
	return nil
}

func runShell(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	base := fs.String("base", cfg.APIBaseURL, "backend base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return newShell(newController(cfg, *base), out).loop()
}

func runWatch(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	console := fs.String("console", "http://localhost:8080", "console address")
	token := fs.String("token", "", "session token from POST /api/session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("watch: -token is required")
	}
	return watch.Stream(ctx, *console, *token, func(v render.View) bool {
		fmt.Fprintln(out, "----")
		fmt.Fprint(out, render.Text(v))
		return true
	})
}
