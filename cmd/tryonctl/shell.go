package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"

	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/render"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

const shellHelp = `commands:
  base <url>        set the backend API URL
  person <file>     select the person image
  garment <file>    select the garment image
  model <b2|b5|sam> select the segmentation model
  try-on            generate a try-on image
  analyze           analyze the person image
  show              print the current state
  dismiss           clear the last error notice
  help              show this help
  quit              leave the shell
`

var errQuit = errors.New("quit")

type shell struct {
	ctrl *dispatcher.Controller
	out  io.Writer
}

func newShell(ctrl *dispatcher.Controller, out io.Writer) *shell {
	return &shell{ctrl: ctrl, out: out}
}

func (s *shell) loop() error {
	modelItems := make([]readline.PrefixCompleterInterface, 0, len(backend.Models()))
	for _, m := range backend.Models() {
		modelItems = append(modelItems, readline.PcItem(string(m)))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "tryon> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("base"),
			readline.PcItem("person"),
			readline.PcItem("garment"),
			readline.PcItem("model", modelItems...),
			readline.PcItem("try-on"),
			readline.PcItem("analyze"),
			readline.PcItem("show"),
			readline.PcItem("dismiss"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	fmt.Fprint(s.out, render.Text(render.Build(s.ctrl.State())))
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil { // io.EOF
			return nil
		}
		if err := s.exec(context.Background(), line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(s.out, err)
		}
	}
}

// exec runs one shell line. Dispatches can be cancelled with Ctrl-C.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, arg := fields[0], strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch cmd {
	case "base":
		if arg == "" {
			return errors.New("usage: base <url>")
		}
		s.ctrl.Apply(session.SetBaseURL{URL: arg})
	case "person", "garment":
		if arg == "" {
			return fmt.Errorf("usage: %s <file>", cmd)
		}
		if err := selectFile(s.ctrl, cmd, arg); err != nil {
			return err
		}
	case "model":
		m, err := backend.ParseModel(arg)
		if err != nil {
			return err
		}
		s.ctrl.Apply(session.SelectModel{Model: m})
	case "try-on", "analyze":
		flow := session.FlowTryOn
		if cmd == "analyze" {
			flow = session.FlowAnalyze
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err := s.ctrl.Run(ctx, flow)
		stop()
		if errors.Is(err, dispatcher.ErrMissingInput) {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		// A failed call is already reported through the notice.
	case "show":
	case "dismiss":
		s.ctrl.Apply(session.DismissNotice{})
	case "help", "?":
		fmt.Fprint(s.out, shellHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	fmt.Fprint(s.out, render.Text(render.Build(s.ctrl.State())))
	return nil
}
