/*
 * dt550ctl - Command interface
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

package command

import (
	"fmt"
	"strings"

	"github.com/dtape/dt550ctl/dectape"
	"github.com/dtape/dt550ctl/octal"
)

// CmdOption is one parsed option passed to Set, Show or Attach.
type CmdOption struct {
	Name     string // Name of option.
	EqualOpt string // Value of string after =.
	Value    int    // Numeric value.
}

// List of option types.
const (
	OptionSwitch = 1 + iota
	OptionFile
	OptionNumber
	OptionName
	OptionList
)

const (
	ValidAttach = 1 << iota
	ValidSet
	ValidShow
)

// Options describes one option a Command accepts. The CLI layer hands
// parsed options to Attach/Set/Show without checking them against this
// list; those methods ignore option names they do not recognise.
type Options struct {
	Name        string   // Name of option.
	OptionType  int      // Type of argument.
	OptionValid int      // Option valid for command type.
	OptionList  []string // List of valid values for this option.
}

// Command is the uniform attach/detach/set/show surface the CLI drives
// every controllable unit through.
type Command interface {
	Options(opt string) []Options              // Return list of supported options.
	Attach(options []*CmdOption) error          // Attach device to file.
	Detach() error                              // Detach a device.
	Set(set bool, options []*CmdOption) error   // Do set/unset command.
	Show(options []*CmdOption) (string, error)  // Do show command.
}

// Adapter performs the on-disk transcoding Attach/Detach need. It is
// satisfied by tapeimage.Adapter; kept as an interface here so this
// package does not need to import tapeimage directly.
type Adapter interface {
	Load(path string, format dectape.Format, capacity int) ([]uint32, int, error)
	Save(path string, words []uint32, hwmark int, format dectape.Format) error
}

// Unit adapts one dectape.Controller transport to Command, so the
// CLI's attach/detach/set/show subcommands can drive it through a
// validated option list the way the teacher's device models expose
// Attach/Detach/Set/Show for tape, card and printer units.
type Unit struct {
	Controller *dectape.Controller
	Index      int
	Adapter    Adapter
}

func (u *Unit) Options(opt string) []Options {
	switch opt {
	case "attach":
		return []Options{
			{Name: "FILE", OptionType: OptionFile, OptionValid: ValidAttach},
			{Name: "FORMAT", OptionType: OptionName, OptionValid: ValidAttach, OptionList: []string{"18B", "16B", "12B"}},
			{Name: "RO", OptionType: OptionSwitch, OptionValid: ValidAttach},
		}
	case "set":
		return []Options{
			{Name: "WRITELOCK", OptionType: OptionSwitch, OptionValid: ValidSet},
		}
	case "show":
		return []Options{
			{Name: "POSITION", OptionType: OptionSwitch, OptionValid: ValidShow},
			{Name: "STATE", OptionType: OptionSwitch, OptionValid: ValidShow},
		}
	default:
		return nil
	}
}

func (u *Unit) Attach(options []*CmdOption) error {
	var path string
	format := dectape.Format18B
	writeLocked := false
	for _, opt := range options {
		switch opt.Name {
		case "FILE":
			path = opt.EqualOpt
		case "FORMAT":
			f, err := parseFormat(opt.EqualOpt)
			if err != nil {
				return err
			}
			format = f
		case "RO":
			writeLocked = true
		}
	}
	if path == "" {
		return fmt.Errorf("command: attach requires FILE=<path>")
	}
	return u.Controller.Attach(u.Index, u.Adapter, path, format, writeLocked)
}

func (u *Unit) Detach() error {
	return u.Controller.Detach(u.Index, u.Adapter)
}

func (u *Unit) Set(set bool, options []*CmdOption) error {
	for _, opt := range options {
		if opt.Name == "WRITELOCK" {
			if err := u.Controller.SetWriteLock(u.Index, set); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *Unit) Show(options []*CmdOption) (string, error) {
	unit := u.Controller.Units[u.Index]
	var out strings.Builder
	for _, opt := range options {
		switch opt.Name {
		case "POSITION":
			fmt.Fprintf(&out, "unit %d position ", u.Index)
			octal.FormatLine(&out, unit.Position())
			out.WriteByte('\n')
		case "STATE":
			fmt.Fprintf(&out, "unit %d motion ", u.Index)
			octal.FormatDigits(&out, uint32(unit.Motion()), 1)
			fmt.Fprintf(&out, " attached %v writelocked %v\n", unit.Attached(), unit.WriteLocked())
		}
	}
	return out.String(), nil
}

func parseFormat(s string) (dectape.Format, error) {
	switch strings.ToUpper(s) {
	case "18B", "":
		return dectape.Format18B, nil
	case "16B":
		return dectape.Format16B, nil
	case "12B":
		return dectape.Format12B, nil
	default:
		return 0, fmt.Errorf("command: unknown format %q", s)
	}
}
