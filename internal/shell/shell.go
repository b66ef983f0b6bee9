// Package shell implements the interactive SimpleFS command line: a line
// tokenizer, per-command dispatch and usage text, the same shape as
// main.go's startCLI()/executeCommand() loop but driving a single
// *volume.Volume instead of a process-wide command registry.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"simplefs/internal/disk"
	"simplefs/internal/volume"
)

// Shell drives one block device through the interactive command set.
type Shell struct {
	dev *disk.Device
	vol *volume.Volume

	scanner *bufio.Scanner
	out     io.Writer
	errOut  io.Writer
	logger  *log.Logger
}

// New builds a shell bound to dev, reading commands from in and writing
// output/errors to out/errOut. Operational diagnostics (malformed
// commands, recovered internal errors) go through a plain log.Logger
// onto errOut, the same register sandstore's LocalDiscLogService logs
// in — no structured/third-party logger appears anywhere in the
// retrieval pack for this kind of side channel.
func New(dev *disk.Device, in io.Reader, out, errOut io.Writer) *Shell {
	return &Shell{
		dev:     dev,
		scanner: bufio.NewScanner(in),
		out:     out,
		errOut:  errOut,
		logger:  log.New(errOut, "simplefs: ", log.LstdFlags),
	}
}

// Run drives the REPL until EOF or an exit/quit command, returning the
// process exit code the caller should use.
func (s *Shell) Run() int {
	for {
		fmt.Fprint(s.out, "sfssh> ")
		if !s.scanner.Scan() {
			break
		}
		line := s.scanner.Text()

		if isComment(line) {
			continue
		}
		line = removeInlineComment(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := tokenize(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if cmd == "exit" || cmd == "quit" {
			s.shutdown()
			return 0
		}

		if err := s.safeDispatch(cmd, args); err != nil {
			fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}
	}

	if err := s.scanner.Err(); err != nil {
		fmt.Fprintln(s.errOut, "Error reading input:", err)
	}
	s.shutdown()
	return 0
}

// shutdown unmounts the volume, if any, and prints the device's lifetime
// read/write/mount totals, the Go stand-in for the original program's
// destructor-time report (Go has no destructors to rely on for this).
func (s *Shell) shutdown() {
	if s.vol != nil {
		s.vol.Exit()
	}
	stats := s.dev.Stats()
	fmt.Fprintf(s.out, "%d reads, %d writes, %d mounts\n", stats.Reads, stats.Writes, stats.Mounts)
}

// safeDispatch guards command dispatch with recover so a bug in a command
// handler surfaces as a logged diagnostic rather than killing the REPL.
func (s *Shell) safeDispatch(cmd string, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("recovered panic dispatching %q: %v", cmd, r)
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return s.dispatch(cmd, args)
}

// prompt reads the next input line as a password response, reusing the
// same scanner the command loop reads from (there is no terminal-echo
// suppression, matching the plain fgets-based prompt it is grounded on).
func (s *Shell) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	if !s.scanner.Scan() {
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *Shell) dispatch(cmd string, args []string) error {
	switch cmd {
	case "format":
		if err := volume.Format(s.dev); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "disk formatted")
		return nil

	case "mount":
		v, err := volume.Mount(s.dev, s.prompt)
		if err != nil {
			return err
		}
		s.vol = v
		fmt.Fprintln(s.out, "disk mounted")
		return nil

	case "debug":
		if s.vol == nil {
			return volume.ErrNotMounted
		}
		return s.vol.Debug(s.out, s.prompt)

	case "stat":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		return v.StatReport(s.out)

	case "password":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return s.usageError("password", "set|change|remove")
		}
		switch args[0] {
		case "set":
			return v.SetPassword(s.prompt)
		case "change":
			return v.ChangePassword(s.prompt)
		case "remove":
			return v.RemovePassword(s.prompt)
		default:
			return s.usageError("password", "set|change|remove")
		}

	case "mkdir":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return s.usageError("mkdir", "name")
		}
		return v.Mkdir(args[0])

	case "rmdir":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return s.usageError("rmdir", "name")
		}
		return v.Rmdir(args[0])

	case "cd":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return s.usageError("cd", "name")
		}
		return v.Cd(args[0])

	case "ls":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		var entries []volume.Entry
		if len(args) == 0 {
			entries, err = v.Ls()
		} else {
			entries, err = v.LsDir(args[0])
		}
		if err != nil {
			return err
		}
		printEntries(s.out, entries)
		return nil

	case "touch":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return s.usageError("touch", "name")
		}
		return v.Touch(args[0])

	case "rm":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return s.usageError("rm", "name")
		}
		return v.Rm(args[0])

	case "copyin":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return s.usageError("copyin", "hostPath name")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := v.CopyIn(f, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%d bytes copied\n", n)
		return nil

	case "copyout":
		v, err := s.requireVolume()
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return s.usageError("copyout", "name hostPath")
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := v.CopyOut(args[0], f)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%d bytes copied\n", n)
		return nil

	case "help":
		printHelp(s.out)
		return nil

	default:
		s.logger.Printf("malformed command: %q", cmd)
		fmt.Fprintln(s.errOut, "Unknown command")
		return nil
	}
}

func (s *Shell) requireVolume() (*volume.Volume, error) {
	if s.vol == nil {
		return nil, volume.ErrNotMounted
	}
	return s.vol, nil
}

func (s *Shell) usageError(cmd, usage string) error {
	s.logger.Printf("malformed command: %q (usage: %s %s)", cmd, cmd, usage)
	return fmt.Errorf("usage: %s %s", cmd, usage)
}

func printEntries(w io.Writer, entries []volume.Entry) {
	for _, e := range entries {
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		fmt.Fprintf(w, "%-6d %-16s %s\n", e.Inum, e.Name, kind)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "format                    format the image (refused while mounted)")
	fmt.Fprintln(w, "mount                     mount the image")
	fmt.Fprintln(w, "debug                     print superblock and inode state")
	fmt.Fprintln(w, "password set|change|remove   manage the password gate")
	fmt.Fprintln(w, "mkdir name                create a directory")
	fmt.Fprintln(w, "rmdir name                recursively remove a directory")
	fmt.Fprintln(w, "cd name                   change directory")
	fmt.Fprintln(w, "ls [name]                 list the current or named directory")
	fmt.Fprintln(w, "stat                      dump directory/inode topology")
	fmt.Fprintln(w, "touch name                create an empty file")
	fmt.Fprintln(w, "rm name                   remove a file or directory")
	fmt.Fprintln(w, "copyin hostPath name      import a host file")
	fmt.Fprintln(w, "copyout name hostPath     export a file to the host")
	fmt.Fprintln(w, "help                      show this text")
	fmt.Fprintln(w, "exit | quit               unmount and exit")
}

// isComment reports whether line, once trimmed, is a shell comment.
func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// removeInlineComment strips a trailing "# ..." comment that isn't
// inside a quoted argument.
func removeInlineComment(line string) string {
	inQuotes := false
	var quoteChar byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if !inQuotes {
			switch c {
			case '"', '\'':
				inQuotes = true
				quoteChar = c
			case '#':
				return strings.TrimSpace(line[:i])
			}
		} else if c == quoteChar {
			inQuotes = false
		}
	}
	return line
}

// tokenize splits a line on whitespace, respecting single/double quotes.
func tokenize(line string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	var quoteChar byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		if !inQuotes {
			switch c {
			case '"', '\'':
				inQuotes = true
				quoteChar = c
			case ' ', '\t':
				if current.Len() > 0 {
					args = append(args, current.String())
					current.Reset()
				}
			default:
				current.WriteByte(c)
			}
		} else {
			if c == quoteChar {
				inQuotes = false
			} else {
				current.WriteByte(c)
			}
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
