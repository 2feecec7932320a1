package arbiter

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// Interactive prompts an operator at a terminal for each repair, reading a
// single keystroke in raw mode so the operator doesn't have to press Enter -
// the same UX real fsck tools use. NewInteractive falls back to line-buffered
// input if in.Fd() isn't a TTY (e.g. input redirected from a pipe in a
// test harness), since raw mode has nothing to attach to in that case.
type Interactive struct {
	in       *os.File
	out      io.Writer
	rawReady bool
	orig     *unix.Termios
}

// NewInteractive builds an Interactive arbiter reading from in and writing
// prompts to out. It is the caller's responsibility to confirm in is a TTY
// before running the checker in interactive mode at all (the driver does
// this with isatty.IsTerminal and refuses -r without one).
func NewInteractive(in *os.File, out io.Writer) *Interactive {
	a := &Interactive{in: in, out: out}
	if isatty.IsTerminal(in.Fd()) {
		a.rawReady = true
	}
	return a
}

func (a *Interactive) Ask(question string, defaultYes bool) (bool, error) {
	suffix := "(y/n)? "
	if !defaultYes {
		suffix = "(n/y)? "
	}
	fmt.Fprintf(a.out, "%s %s", question, suffix)

	if !a.rawReady {
		var line string
		_, err := fmt.Fscanln(a.in, &line)
		if err != nil {
			if defaultYes {
				fmt.Fprintln(a.out, "yes")
			} else {
				fmt.Fprintln(a.out, "no")
			}
			return defaultYes, nil
		}
		return answerIsYes(line, defaultYes), nil
	}

	restore, err := a.enterRawMode()
	if err != nil {
		// Raw mode unavailable for some reason after all; degrade to
		// line-buffered rather than fail the whole repair session.
		a.rawReady = false
		return a.Ask(question, defaultYes)
	}
	defer restore()

	buf := make([]byte, 1)
	n, err := a.in.Read(buf)
	fmt.Fprintln(a.out)
	if err != nil || n == 0 {
		return defaultYes, nil
	}
	return answerIsYes(string(buf[:n]), defaultYes), nil
}

func answerIsYes(s string, defaultYes bool) bool {
	switch s {
	case "y", "Y":
		return true
	case "n", "N":
		return false
	default:
		return defaultYes
	}
}

// enterRawMode disables canonical mode and echo on the terminal attached to
// a.in and returns a function that restores the previous state. Restoration
// is also wired to SIGINT/SIGQUIT/SIGTERM so a Ctrl-C mid-prompt doesn't
// leave the operator's shell in raw mode.
func (a *Interactive) enterRawMode() (func(), error) {
	fd := int(a.in.Fd())
	orig, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	raw := *orig
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	done := make(chan struct{})

	restore := func() {
		close(done)
		signal.Stop(sigCh)
		unix.IoctlSetTermios(fd, unix.TCSETS, orig)
	}

	go func() {
		select {
		case sig := <-sigCh:
			unix.IoctlSetTermios(fd, unix.TCSETS, orig)
			reraise(sig)
		case <-done:
		}
	}()

	return restore, nil
}

// reraise resets sig's disposition to default and delivers it to this
// process again, per spec.md §4.8/§5: the handler restores the terminal and
// then lets the signal terminate the process the normal way, rather than
// swallowing it behind a made-up exit code.
func reraise(sig os.Signal) {
	signal.Reset(sig)
	s, ok := sig.(syscall.Signal)
	if !ok {
		os.Exit(1)
	}
	unix.Kill(os.Getpid(), s)
}
