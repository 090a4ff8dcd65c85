package main

import (
	"net/http"

	"github.com/urfave/cli/v2"
)

var info = cli.Command{
	Name:   "info",
	Usage:  "get info about the platform settings of the daemon",
	Action: infoAction,
}

func infoAction(ctx *cli.Context) error {
	resp, err := httpRequest(http.MethodGet, "/v1/info", nil, false)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
