package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/filesource"
	"github.com/open-mv-sandbox/daicon-go/filestore"
)

func newCmd_Set() *cli.Command {
	var targetPath string
	var idStr string
	var inputPath string
	return &cli.Command{
		Name:        "set",
		Usage:       "Set or add an entry in a daicon file.",
		Description: "Append the input file's contents as a payload and publish it under the given id.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "path of the target file",
				Required:    true,
				Destination: &targetPath,
			},
			&cli.StringFlag{
				Name:        "id",
				Aliases:     []string{"d"},
				Usage:       "id to assign the added data, 0x followed by 8 hex characters",
				Required:    true,
				Destination: &idStr,
			},
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path of the input file to read",
				Required:    true,
				Destination: &inputPath,
			},
		},
		Action: func(c *cli.Context) error {
			id, err := parseId(idStr)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return err
			}

			file, err := filestore.OpenDisk(targetPath, false)
			if err != nil {
				return err
			}

			source := filesource.Open(file.Sender(), filesource.OpenExisting(0))
			err = source.Set(c.Context, id, data)
			source.Close()
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("failed to set %s: %w", id, err)
			}

			klog.V(1).Infof("set %s, %s", id, formatSize(len(data)))
			fmt.Printf("set %s (%s) in %s\n", id, formatSize(len(data)), targetPath)
			return nil
		},
	}
}
