package main

import (
	"io/ioutil"
	"log"
	"os"

	shadertoy "github.com/bodgit/img2shadertoy"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func mode(c *cli.Context) shadertoy.Mode {
	switch {
	case c.Bool("dct") && c.Bool("rle"):
		return shadertoy.DCTRLE
	case c.Bool("dct"):
		return shadertoy.DCT
	case c.Bool("rle"):
		return shadertoy.RLE
	default:
		return shadertoy.Raw
	}
}

func main() {
	app := cli.NewApp()

	app.Name = "img2shadertoy"
	app.Usage = "Convert images to self-contained Shadertoy scripts"
	app.ArgsUsage = "FILE..."
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "rle",
			Usage: "run-length encode the pixel data",
		},
		&cli.BoolFlag{
			Name:  "dct",
			Usage: "encode with the 8x8 block transform (8 bpp, grayscale output)",
		},
		&cli.BoolFlag{
			Name:  "exact",
			Usage: "keep the requested encoding even when it is larger",
		},
		&cli.IntFlag{
			Name:    "depth",
			EnvVars: []string{"IMG2SHADERTOY_DEPTH"},
			Value:   8,
			Usage:   "bit depth for non-bitmap input (1, 4 or 8)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the script to `FILE` instead of stdout (single input only)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.NArg() < 1 {
			cli.ShowAppHelpAndExit(c, 1)
		}

		logger := log.New(ioutil.Discard, "", 0)
		if c.Bool("verbose") {
			logger.SetOutput(os.Stderr)
		}

		opts := &shadertoy.Options{}
		if c.Bool("exact") {
			opts.Fallback = shadertoy.FallbackNever
		}

		e := shadertoy.New(logger)

		// Multiple inputs are converted in place, each to FILE.glsl.
		if c.NArg() > 1 {
			if c.String("output") != "" {
				return cli.NewExitError("--output needs a single input file", 1)
			}
			if err := e.ConvertFiles(c.Args().Slice(), mode(c), c.Int("depth"), opts); err != nil {
				return cli.NewExitError(err, 1)
			}
			return nil
		}

		img, err := shadertoy.LoadImage(c.Args().First(), c.Int("depth"))
		if err != nil {
			return cli.NewExitError(err, 1)
		}

		script, err := e.Encode(img, mode(c), opts)
		if err != nil {
			return cli.NewExitError(err, 1)
		}

		if file := c.String("output"); file != "" {
			out, err := os.Create(file)
			if err != nil {
				return cli.NewExitError(err, 1)
			}
			if _, err := out.WriteString(script); err != nil {
				out.Close()
				return cli.NewExitError(err, 1)
			}
			if err := out.Close(); err != nil {
				return cli.NewExitError(err, 1)
			}
			return nil
		}

		if _, err := os.Stdout.WriteString(script); err != nil {
			return cli.NewExitError(err, 1)
		}

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
