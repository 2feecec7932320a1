// Command mfsck checks and optionally repairs a Minix-style filesystem
// image.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dargueta/mfsck/checker"
	"github.com/urfave/cli/v2"
)

func main() {
	// The library's default version flag is --version/-v, and -v is verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Aliases: []string{"V"}, Usage: "print the version"}

	app := &cli.App{
		Name:      "mfsck",
		Usage:     "Check and repair a Minix-style filesystem image",
		ArgsUsage: "DEVICE",
		Version:   "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "list every file visited"},
			&cli.BoolFlag{Name: "automatic", Aliases: []string{"a"}, Usage: "automatic repair"},
			&cli.BoolFlag{Name: "repair", Aliases: []string{"r"}, Usage: "interactive repair"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "verbose summary", Value: true},
			&cli.BoolFlag{Name: "super", Aliases: []string{"s"}, Usage: "print superblock info before checking"},
			&cli.BoolFlag{Name: "warn-mode", Aliases: []string{"m"}, Usage: "warn about allocated-but-cleared inodes retaining a mode"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "force check even if the image looks clean"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(fmt.Sprintf("usage: %s [-larvsmfV] device", c.App.Name), 16)
	}

	cfg := checker.Config{
		Device:    c.Args().Get(0),
		List:      c.Bool("list"),
		Automatic: c.Bool("automatic"),
		Repair:    c.Bool("repair") || c.Bool("automatic"),
		Verbose:   c.Bool("verbose"),
		ShowSuper: c.Bool("super"),
		WarnMode:  c.Bool("warn-mode"),
		Force:     c.Bool("force"),
	}

	code := checker.New(cfg).Run()
	return cli.Exit("", code)
}
