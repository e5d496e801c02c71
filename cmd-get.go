package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/fileproto"
	"github.com/open-mv-sandbox/daicon-go/filesource"
	"github.com/open-mv-sandbox/daicon-go/filestore"
	remotefile "github.com/open-mv-sandbox/daicon-go/remote-file"
)

func newCmd_Get() *cli.Command {
	var targetPath string
	var idStr string
	var outputPath string
	return &cli.Command{
		Name:        "get",
		Usage:       "Get an entry from a daicon file.",
		Description: "Get an entry from a daicon file. The target can be a local path or an http(s) URL, in which case the file is fetched with range requests.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "path or URL of the target file",
				Required:    true,
				Destination: &targetPath,
			},
			&cli.StringFlag{
				Name:        "id",
				Aliases:     []string{"d"},
				Usage:       "id of the entry to get, 0x followed by 8 hex characters",
				Required:    true,
				Destination: &idStr,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path of the output file to write",
				Required:    true,
				Destination: &outputPath,
			},
		},
		Action: func(c *cli.Context) error {
			id, err := parseId(idStr)
			if err != nil {
				return err
			}

			var sender fileproto.Sender
			var closeFile func() error
			if isRemoteTarget(targetPath) {
				file, err := remotefile.Open(c.Context, targetPath)
				if err != nil {
					return err
				}
				sender = file.Sender()
				closeFile = file.Close
			} else {
				file, err := filestore.OpenDisk(targetPath, false)
				if err != nil {
					return err
				}
				sender = file.Sender()
				closeFile = file.Close
			}

			source := filesource.Open(sender, filesource.OpenExisting(0))
			data, err := source.Get(c.Context, id)
			source.Close()
			if cerr := closeFile(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", id, err)
			}

			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return err
			}
			klog.V(1).Infof("got %s, %s", id, formatSize(len(data)))
			fmt.Printf("wrote %s (%s) to %s\n", id, formatSize(len(data)), outputPath)
			return nil
		},
	}
}
