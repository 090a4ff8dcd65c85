package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
)

var (
	webhook = cli.Command{
		Name:  "webhook",
		Usage: "add or remove webhooks",
		Subcommands: []*cli.Command{
			webhookAddCmd, webhookRemoveCmd,
		},
	}

	listwebhooks = cli.Command{
		Name:  "webhooks",
		Usage: "list all webhooks, optionally filtered by target event",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "topic",
				Usage: "the event topic to filter hooks by",
				Value: "",
			},
		},
		Action: listWebhooksAction,
	}

	webhookAddCmd = &cli.Command{
		Name:  "add",
		Usage: "add a webhook notified for some event",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "topic",
				Usage: "the event topic for which the webhook gets notified",
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "the endpoint where to notify the webhook",
				Value: "",
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "the eventual secret to authenticate requests",
				Value: "",
			},
		},
		Action: addWebhookAction,
	}
	webhookRemoveCmd = &cli.Command{
		Name:  "remove",
		Usage: "remove a webhook by id",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "the id of the webhook to remove",
			},
		},
		Action: removeWebhookAction,
	}
)

func addWebhookAction(ctx *cli.Context) error {
	resp, err := httpRequest(
		http.MethodPost, "/v1/admin/webhooks", map[string]interface{}{
			"topic":    ctx.String("topic"),
			"endpoint": ctx.String("endpoint"),
			"secret":   ctx.String("secret"),
		}, true,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	if _, err := httpRequest(
		http.MethodDelete,
		fmt.Sprintf("/v1/admin/webhooks/%s", ctx.String("id")),
		nil, true,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("webhook removed")
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	apiPath := "/v1/admin/webhooks"
	if topic := ctx.String("topic"); len(topic) > 0 {
		apiPath += "?topic=" + topic
	}

	resp, err := httpRequest(http.MethodGet, apiPath, nil, true)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
