package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/seam-io/seam/capture"
	"github.com/seam-io/seam/cli/render"
	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/types"
)

// SaveCommand returns the save command: a one-shot capture from a file or
// stdin, without going through the MCP server.
func SaveCommand() *cli.Command {
	flags := append(ConnectionFlags(), ReadOnlyFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:     "title",
			Usage:    "Title for the capture",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "Read content from this file instead of stdin",
		},
		&cli.StringFlag{
			Name:  "kind",
			Usage: "Content kind: conversation, artifact, code, mixed (inferred when empty)",
		},
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "Tag to attach (repeatable)",
		},
		&cli.StringFlag{
			Name:  "conversation-id",
			Usage: "Conversation id for living-document resolution",
		},
		&cli.StringFlag{
			Name:  "platform",
			Usage: "Platform name for living-document resolution",
		},
	)

	return &cli.Command{
		Name:   "save",
		Usage:  "Capture content from a file or stdin",
		Flags:  flags,
		Action: saveAction,
	}
}

func saveAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for save command", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	content, err := readContent(c.String("file"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := log.NewLogger()
	wf, cleanup, err := buildWorkflow(c, cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cleanup()

	res, err := wf.Save(c.Context, capture.SaveInput{
		Content:        content,
		Title:          c.String("title"),
		Tags:           c.StringSlice("tag"),
		Kind:           types.ContentKind(c.String("kind")),
		ConversationID: c.String("conversation-id"),
		Platform:       c.String("platform"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("save failed: %v", err), 1)
	}
	return r.Render(res)
}

func readContent(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("no content on stdin (use --file or pipe input)")
	}
	return string(data), nil
}
