package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/open-mv-sandbox/daicon-go/filesource"
	"github.com/open-mv-sandbox/daicon-go/filestore"
)

func newCmd_List() *cli.Command {
	var targetPath string
	return &cli.Command{
		Name:        "list",
		Usage:       "List the entries in a daicon file.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "path of the target file",
				Required:    true,
				Destination: &targetPath,
			},
		},
		Action: func(c *cli.Context) error {
			file, err := filestore.OpenDisk(targetPath, false)
			if err != nil {
				return err
			}

			source := filesource.Open(file.Sender(), filesource.OpenExisting(0))
			entries, err := source.List(c.Context)
			source.Close()
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			for _, e := range entries {
				fmt.Printf("%s offset=%d size=%d\n", e.Id, e.Offset, e.Size)
			}
			return nil
		},
	}
}
