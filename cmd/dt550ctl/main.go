/*
 * dt550ctl - Type 550/555 DECtape controller CLI.
 *
 * Copyright 2026, dt550ctl contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Command dt550ctl drives a Type 550/555 DECtape controller
// standalone, outside of a host CPU simulator, for inspection and
// scripted testing of tape images.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cmdpkg "github.com/dtape/dt550ctl/command/command"
	"github.com/dtape/dt550ctl/config"
	"github.com/dtape/dt550ctl/dectape"
	"github.com/dtape/dt550ctl/logging"
	"github.com/dtape/dt550ctl/octal"
	"github.com/dtape/dt550ctl/scheduler"
	"github.com/dtape/dt550ctl/tapeimage"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "dt550ctl",
		Short: "Standalone Type 550/555 DECtape controller",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "dt550ctl.yaml", "configuration file")
	root.AddCommand(newRunCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var script string
	c := &cobra.Command{
		Use:   "run",
		Short: "Boot a controller from config and execute commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(configPath, script)
		},
	}
	c.Flags().StringVar(&script, "script", "", "file of commands to execute; stdin if unset")
	return c
}

// session ties together the live controller and its per-unit Command
// adapters, the driving loop for the "run" subcommand.
type session struct {
	cfg        config.Config
	controller *dectape.Controller
	units      [dectape.NumUnits]*cmdpkg.Unit
	log        *logging.Logger
}

// openLogOutput opens path for logging, or falls back to stderr if
// path is empty. The returned close func is always safe to call.
func openLogOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, f.Close, nil
}

func runController(configPath, script string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLogOutput(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logging.New(logOut, cfg.Logging.Level)
	log.SetMirrorStderr(cfg.Logging.Mirror)

	clock := scheduler.New()
	ctrl := dectape.NewController(clock)
	ctrl.Timing = cfg.Timing()
	ctrl.Disabled = cfg.Disabled
	ctrl.Logger = log
	ctrl.DebugMask = cfg.DebugMask()
	ctrl.LogBlock = cfg.Logging.Block

	adapter := tapeimage.Adapter{}
	sess := &session{cfg: cfg, controller: ctrl, log: log}
	for i := range sess.units {
		sess.units[i] = &cmdpkg.Unit{Controller: ctrl, Index: i, Adapter: adapter}
	}

	for i, uc := range cfg.Units {
		if uc.Attach == "" {
			continue
		}
		format, err := config.ParseFormat(uc.Format)
		if err != nil {
			return err
		}
		if err := ctrl.Attach(i, adapter, uc.Attach, format, uc.WriteLocked); err != nil {
			return err
		}
	}

	var in *bufio.Scanner
	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			return err
		}
		defer f.Close()
		in = bufio.NewScanner(f)
	} else {
		in = bufio.NewScanner(os.Stdin)
	}

	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := sess.dispatch(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return in.Err()
}

func (s *session) dispatch(line string) error {
	fields := strings.Fields(line)
	verb := fields[0]
	switch verb {
	case "attach":
		return s.cmdAttach(fields[1:])
	case "detach":
		return s.cmdDetach(fields[1:])
	case "set":
		return s.cmdSet(fields[1:])
	case "show":
		return s.cmdShow(fields[1:])
	case "pulse":
		return s.cmdPulse(fields[1:])
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}

func unitIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= dectape.NumUnits {
		return 0, fmt.Errorf("invalid unit %q", s)
	}
	return n, nil
}

func parseOptions(args []string) []*cmdpkg.CmdOption {
	opts := make([]*cmdpkg.CmdOption, 0, len(args))
	for _, a := range args {
		if eq := strings.IndexByte(a, '='); eq >= 0 {
			opts = append(opts, &cmdpkg.CmdOption{Name: strings.ToUpper(a[:eq]), EqualOpt: a[eq+1:]})
		} else {
			opts = append(opts, &cmdpkg.CmdOption{Name: strings.ToUpper(a)})
		}
	}
	return opts
}

func (s *session) cmdAttach(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: attach <unit> FILE=<path> [FORMAT=18B|16B|12B] [RO]")
	}
	idx, err := unitIndex(args[0])
	if err != nil {
		return err
	}
	return s.units[idx].Attach(parseOptions(args[1:]))
}

func (s *session) cmdDetach(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: detach <unit>")
	}
	idx, err := unitIndex(args[0])
	if err != nil {
		return err
	}
	return s.units[idx].Detach()
}

func (s *session) cmdSet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <unit> <on|off> <option>...")
	}
	idx, err := unitIndex(args[0])
	if err != nil {
		return err
	}
	on := args[1] == "on"
	return s.units[idx].Set(on, parseOptions(args[2:]))
}

func (s *session) cmdShow(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: show <unit> <option>...")
	}
	idx, err := unitIndex(args[0])
	if err != nil {
		return err
	}
	out, err := s.units[idx].Show(parseOptions(args[1:]))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func (s *session) cmdPulse(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: pulse <3-7> <data>")
	}
	p, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid pulse %q", args[0])
	}
	data, err := strconv.ParseUint(args[1], 8, 32)
	if err != nil {
		return fmt.Errorf("invalid octal data %q", args[1])
	}
	result, refused := s.controller.Pulse(dectape.Pulse(p), uint32(data))
	if refused {
		fmt.Println("stop")
		return nil
	}
	var out strings.Builder
	octal.FormatDigits(&out, result, 6)
	fmt.Println(out.String())
	return nil
}
