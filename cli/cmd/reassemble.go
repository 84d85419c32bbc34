package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/seam-io/seam/archive"
)

// ReassembleCommand returns the reassemble command: reconstruct the
// original payload from an archive file.
func ReassembleCommand() *cli.Command {
	return &cli.Command{
		Name:      "reassemble",
		Usage:     "Reconstruct the captured payload from an archive file",
		ArgsUsage: "<archive-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write payload to this file instead of stdout",
			},
		},
		Action: reassembleAction,
	}
}

func reassembleAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("reassemble requires exactly one archive file argument", 1)
	}

	content, err := archive.Reassemble(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("reassemble: %v", err), 1)
	}

	if out := c.String("output"); out != "" {
		if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
			return cli.Exit(fmt.Sprintf("write output: %v", err), 1)
		}
		return nil
	}
	_, err = fmt.Fprint(c.App.Writer, content)
	return err
}
