package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/filesource"
	"github.com/open-mv-sandbox/daicon-go/filestore"
)

func newCmd_Create() *cli.Command {
	var targetPath string
	var capacity uint
	return &cli.Command{
		Name:        "create",
		Usage:       "Create a new empty daicon file.",
		Description: "Create a new empty daicon file with a single table at the front.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "path of the target file",
				Required:    true,
				Destination: &targetPath,
			},
			&cli.UintFlag{
				Name:        "capacity",
				Usage:       "index slot count of the first table",
				Value:       uint(filesource.DefaultCapacity),
				Destination: &capacity,
			},
		},
		Action: func(c *cli.Context) error {
			if capacity == 0 || capacity > 65535 {
				return fmt.Errorf("capacity must be between 1 and 65535, got %d", capacity)
			}

			file, err := filestore.OpenDisk(targetPath, true)
			if err != nil {
				return err
			}

			source := filesource.Open(file.Sender(), filesource.Options{
				AllocateCapacity: uint16(capacity),
			})
			// The initial table flush is already queued on the backend;
			// closing drains it to disk.
			source.Close()
			if err := file.Close(); err != nil {
				return err
			}

			klog.V(1).Infof("created %s with %d slots", targetPath, capacity)
			fmt.Printf("created %s\n", targetPath)
			return nil
		},
	}
}

func formatSize(n int) string {
	return humanize.Bytes(uint64(n))
}
