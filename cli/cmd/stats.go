package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/seam-io/seam/archive"
	"github.com/seam-io/seam/cli/render"
)

// StatsCommand returns the stats command: aggregate counts over a local
// archive directory.
func StatsCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.StringFlag{
			Name:     "dir",
			Usage:    "Archive directory to summarize",
			Required: true,
		},
	)

	return &cli.Command{
		Name:   "stats",
		Usage:  "Show statistics for a capture archive directory",
		Flags:  flags,
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	stats, err := archive.ComputeStats(c.String("dir"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("compute stats: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_archives", stats)
	}
	return r.Render(stats)
}
