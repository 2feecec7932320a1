package checker

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dargueta/mfsck/arbiter"
	"github.com/dargueta/mfsck/blockio"
	"github.com/dargueta/mfsck/diagnostics"
	"github.com/dargueta/mfsck/disks"
	"github.com/dargueta/mfsck/errors"
	"github.com/dargueta/mfsck/minix"
	"github.com/dargueta/mfsck/mount"
	"github.com/mattn/go-isatty"
)

// Config bundles every CLI flag from spec.md §6 into one value, resolved
// before Run is called.
type Config struct {
	Device string

	List       bool // -l
	Automatic  bool // -a
	Repair     bool // -r, implies interactive unless Automatic is also set
	Verbose    bool // -v, default true
	ShowSuper  bool // -s
	WarnMode   bool // -m
	Force      bool // -f

	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
}

// Driver owns one checking run end to end: open, decode, load, walk,
// reconcile, report, flush. It is the Go analogue of C10.
type Driver struct {
	cfg Config
}

func New(cfg Config) *Driver {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	return &Driver{cfg: cfg}
}

// Run executes the full ten-step sequence from spec.md §4.9 and returns the
// process exit code: 0 clean, 3 changes written, 4 errors uncorrected, 7
// both, 8 fatal, 16 usage error.
func (d *Driver) Run() int {
	cfg := d.cfg

	if cfg.Repair && !cfg.Automatic {
		if !isatty.IsTerminal(cfg.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Fprintln(cfg.Stderr, errors.ErrTTYRequired.Error())
			return 16
		}
	}

	mounted, err := mount.IsMounted(cfg.Device)
	if err == nil && mounted {
		arb := d.arbiterFor()
		proceed, _ := arb.Ask(fmt.Sprintf("%s is mounted, continue anyway", cfg.Device), false)
		if !proceed {
			return 8
		}
	}

	flags := os.O_RDONLY
	if cfg.Repair {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(cfg.Device, flags, 0)
	if err != nil {
		fmt.Fprintln(cfg.Stderr, err.Error())
		return 8
	}
	defer f.Close()

	report := diagnostics.New()
	dev := blockio.New(f, report.Warn)

	sb, err := minix.ReadSuperblock(dev, report.Uncorrected)
	if err != nil {
		fmt.Fprintln(cfg.Stderr, err.Error())
		return 8
	}

	if cfg.ShowSuper {
		d.printSuperblock(sb)
	}

	if sb.State&minix.StateValid != 0 && sb.State&minix.StateError == 0 && !cfg.Force {
		fmt.Fprintln(cfg.Stdout, "clean")
		return 0
	}

	arb := d.arbiterFor()
	fs, err := minix.Load(sb, dev, arb, report)
	if err != nil {
		fmt.Fprintln(cfg.Stderr, err.Error())
		return 8
	}
	// Superblock layout problems were recorded as uncorrected above.
	if report.HasUncorrected() {
		fs.ErrorsUncorrected = true
	}
	if cfg.List {
		fs.List = func(inumber uint32, mode uint16, nlinks uint16, path string) {
			fmt.Fprintf(cfg.Stdout, "%7d %06o %3d %s\n", inumber, mode, nlinks, path)
		}
	}

	restoreSignals := installSignalHandler()
	defer restoreSignals()

	rootIno := fs.Inodes[minix.RootInode]
	if !rootIno.IsDir() {
		fmt.Fprintln(cfg.Stderr, errors.ErrRootNotDirectory.Error())
		return 8
	}

	rootBlock := make([]byte, blockio.BlockSize)
	dev.ReadBlock(rootIno.Zone[0], rootBlock)
	sb.DirSize = minix.ProbeDirSize(rootBlock, sb.DirSize)
	sb.NameLen = sb.DirSize - 2

	fs.VisitRoot()
	fs.RecursiveCheck(minix.RootInode)
	Reconcile(fs, cfg.WarnMode)

	if cfg.Verbose {
		d.printSummary(fs)
	}
	if report.Count() > 0 {
		fmt.Fprint(cfg.Stderr, report.String())
	}

	if fs.Changed || cfg.Repair {
		if err := fs.Flush(); err != nil {
			fmt.Fprintln(cfg.Stderr, err.Error())
			return 8
		}
	}

	code := 0
	if fs.Changed {
		code += 3
	}
	if fs.ErrorsUncorrected {
		code += 4
	}
	return code
}

func (d *Driver) arbiterFor() arbiter.Arbiter {
	switch {
	case d.cfg.Repair && d.cfg.Automatic:
		return arbiter.Automatic{}
	case d.cfg.Repair:
		return arbiter.NewInteractive(d.cfg.Stdin, d.cfg.Stdout)
	default:
		return arbiter.ReadOnly{}
	}
}

// installSignalHandler terminates the process on SIGINT/SIGQUIT/SIGTERM
// without flushing, per spec.md §5: a half-written pass is not written at
// all. The Interactive arbiter's own raw-mode restoration handles the TTY;
// this handler only needs to guarantee the process exits without reaching
// Flush.
func installSignalHandler() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			signal.Reset(sig)
			if s, ok := sig.(syscall.Signal); ok {
				syscall.Kill(os.Getpid(), s)
			} else {
				os.Exit(1)
			}
		case <-done:
		}
	}()
	return func() {
		close(done)
		signal.Stop(ch)
	}
}

func (d *Driver) printSuperblock(sb *minix.Superblock) {
	fmt.Fprintf(d.cfg.Stdout, "variant:          %s\n", sb.Name)
	fmt.Fprintf(d.cfg.Stdout, "ninodes:          %d\n", sb.NInodes)
	fmt.Fprintf(d.cfg.Stdout, "nzones:           %d\n", sb.NZones)
	fmt.Fprintf(d.cfg.Stdout, "imap_blocks:      %d\n", sb.ImapBlocks)
	fmt.Fprintf(d.cfg.Stdout, "zmap_blocks:      %d\n", sb.ZmapBlocks)
	fmt.Fprintf(d.cfg.Stdout, "first_data_zone:  %d\n", sb.FirstDataZone)
	fmt.Fprintf(d.cfg.Stdout, "state:            0x%04x\n", sb.State)

	sizeBytes := int64(sb.NZones) * blockio.BlockSize
	if geometry, exact := disks.NearestBySize(sizeBytes); exact {
		fmt.Fprintf(d.cfg.Stdout, "media:            %s\n", geometry.Name)
	}
}

func (d *Driver) printSummary(fs *minix.FileSystem) {
	s := fs.Summary
	out := d.cfg.Stdout
	totalRefs := 0
	for _, c := range fs.InodeCount {
		totalRefs += int(c)
	}

	fmt.Fprintf(out, "%d/%d inodes used (%.1f%%)\n",
		fs.InodeMap.Popcount(), fs.InodeMap.NumBits(), percent(fs.InodeMap.Popcount(), fs.InodeMap.NumBits()))
	fmt.Fprintf(out, "%d/%d zones used (%.1f%%)\n",
		fs.ZoneMap.Popcount(), fs.ZoneMap.NumBits(), percent(fs.ZoneMap.Popcount(), fs.ZoneMap.NumBits()))
	fmt.Fprintf(out, "%d regular, %d directories, %d char, %d block, %d symlinks, %d sockets, %d fifos, %d unknown\n",
		s.Regular, s.Directories, s.CharSpecial, s.BlockSpecial, s.Symlinks, s.Sockets, s.Fifos, s.Unknown)
	fmt.Fprintf(out, "%d links\n", s.VisibleLinks(totalRefs))
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
