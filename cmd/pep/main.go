package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ENDESGA/pep"
	"github.com/ENDESGA/pep/pepdb"
	"github.com/ENDESGA/pep/pepimage"
	"github.com/urfave/cli/v2"
)

const defaultDB = "pep.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func channelBits(bits int) (pep.ChannelBits, error) {
	switch bits {
	case 1:
		return pep.Channel1Bit, nil
	case 2:
		return pep.Channel2Bit, nil
	case 4:
		return pep.Channel4Bit, nil
	case 8:
		return pep.Channel8Bit, nil
	}
	return 0, fmt.Errorf("invalid bits per channel: %d", bits)
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func main() {
	app := cli.NewApp()

	app.Name = "pep"
	app.Usage = "pep pixel art codec utility"
	app.Version = pep.Version

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"PEP_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to image database",
		},
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "encode",
			Usage:       "Compress an image to a .pep file",
			Description: "",
			ArgsUsage:   "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "bits",
					Value: 8,
					Usage: "palette bits per channel (1, 2, 4 or 8)",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				bits, err := channelBits(c.Int("bits"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				in, err := os.Open(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer in.Close()

				m, _, err := image.Decode(in)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				out, err := os.Create(replaceExt(c.Args().First(), ".pep"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer out.Close()

				if err := pepimage.Encode(out, m, &pepimage.Options{ChannelBits: bits}); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "decode",
			Usage:       "Decompress a .pep file to a PNG",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				in, err := os.Open(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer in.Close()

				m, err := pepimage.Decode(in)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				out, err := os.Create(replaceExt(c.Args().First(), ".png"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer out.Close()

				if err := png.Encode(out, m); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "info",
			Usage:       "Print details of a .pep file",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, err := pep.Load(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Printf("%dx%d %s, %d colors, %d bits per channel, %d byte payload\n",
					m.Width, m.Height, m.Format, m.PaletteSize, m.ChannelBits.Bits(), len(m.Payload))

				return nil
			},
		},
		{
			Name:        "pack",
			Usage:       "Compress every image under a directory into the database",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := log.New(ioutil.Discard, "", 0)
				if c.Bool("verbose") {
					logger.SetOutput(os.Stderr)
				}

				store, err := pepdb.Open(c.String("db"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer store.Close()

				if err := pepdb.NewPacker(store, logger).Pack(c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
