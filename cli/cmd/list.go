package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/seam-io/seam/archive"
	"github.com/seam-io/seam/cli/render"
)

// ListEntry is one row of the list command output.
type ListEntry struct {
	File        string `json:"file"`
	SessionID   string `json:"session_id"`
	Title       string `json:"title"`
	CaptureType string `json:"capture_type"`
	TotalParts  int    `json:"total_parts"`
	CreatedAt   string `json:"created_at"`
}

// ListCommand returns the list command: archives in a directory, newest
// first.
func ListCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.StringFlag{
			Name:     "dir",
			Usage:    "Archive directory to list",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of archives to show",
			Value: 20,
		},
	)

	return &cli.Command{
		Name:   "list",
		Usage:  "List capture archives, newest first",
		Flags:  flags,
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list command", 1)
	}

	paths, err := archive.List(c.String("dir"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("list archives: %v", err), 1)
	}
	if limit := c.Int("limit"); limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	entries := make([]ListEntry, 0, len(paths))
	for _, path := range paths {
		summary, err := archive.ReadSummaryFile(path)
		if err != nil {
			// Unreadable archives are skipped rather than failing the
			// whole listing.
			continue
		}
		entries = append(entries, ListEntry{
			File:        path,
			SessionID:   summary.Header.SessionID,
			Title:       summary.Header.Title,
			CaptureType: summary.Header.CaptureType,
			TotalParts:  summary.Header.TotalParts,
			CreatedAt:   summary.Header.CreatedAt,
		})
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(entries)
}
