package cmd

import (
	"github.com/achilleasa/accel/log"
	"github.com/urfave/cli"
)

var logger = log.New("accel")

func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalIsSet("log-level") {
		level, err := log.ParseLevel(ctx.GlobalString("log-level"))
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
	return nil
}
