package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
)

var (
	tradeIdFlag = cli.Uint64Flag{
		Name:  "trade_id",
		Usage: "the id of an existent trade",
	}

	callerFlag = cli.StringFlag{
		Name:  "caller",
		Usage: "hex address of the acting party, defaults to the configured address",
		Value: "",
	}

	trade = cli.Command{
		Name:  "trade",
		Usage: "create and drive escrowed trades",
		Subcommands: []*cli.Command{
			tradeCreateCmd, tradeGetCmd, tradeListCmd,
			tradeFundCmd, tradeConfirmCmd, tradeCancelCmd, tradeRefundCmd,
			tradeDisputeCmd, tradeUndisputeCmd,
		},
	}

	tradeCreateCmd = &cli.Command{
		Name:  "create",
		Usage: "create a new trade between a maker and a taker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "maker",
				Usage: "hex address of the maker party",
			},
			&cli.StringFlag{
				Name:  "taker",
				Usage: "hex address of the taker party",
			},
			&cli.StringFlag{
				Name:  "asset",
				Usage: "the asset both legs are denominated in",
			},
			&cli.Uint64Flag{
				Name:  "price",
				Usage: "the agreed price of the underlying deal",
			},
			&cli.Uint64Flag{
				Name:  "deposit",
				Usage: "the collateral each party locks on top of the price",
			},
			&cli.Uint64Flag{
				Name:  "funding_window",
				Usage: "seconds both parties have to fund their legs",
			},
			&cli.StringFlag{
				Name:  "direction",
				Usage: "who delivers the priced good: maker_sells or maker_buys",
				Value: "maker_sells",
			},
			&cli.StringFlag{
				Name:  "agreement_hash",
				Usage: "hex digest of the off-band agreement document",
			},
		},
		Action: tradeCreateAction,
	}
	tradeGetCmd = &cli.Command{
		Name:   "get",
		Usage:  "get a trade by id",
		Flags:  []cli.Flag{&tradeIdFlag},
		Action: tradeGetAction,
	}
	tradeListCmd = &cli.Command{
		Name:  "list",
		Usage: "list all trades, optionally filtered by party",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "party",
				Usage: "hex address filtering trades by involved party",
				Value: "",
			},
		},
		Action: tradeListAction,
	}
	tradeFundCmd = &cli.Command{
		Name:   "fund",
		Usage:  "fund the caller's leg of a trade",
		Flags:  []cli.Flag{&tradeIdFlag, &callerFlag},
		Action: tradeFundAction,
	}
	tradeConfirmCmd = &cli.Command{
		Name:   "confirm",
		Usage:  "confirm delivery for the caller's side of a trade",
		Flags:  []cli.Flag{&tradeIdFlag, &callerFlag},
		Action: tradeConfirmAction,
	}
	tradeCancelCmd = &cli.Command{
		Name:   "cancel",
		Usage:  "cancel a trade whose funding deadline expired",
		Flags:  []cli.Flag{&tradeIdFlag},
		Action: tradeCancelAction,
	}
	tradeRefundCmd = &cli.Command{
		Name:   "refund",
		Usage:  "claim back the caller's escrow of a cancelled trade",
		Flags:  []cli.Flag{&tradeIdFlag, &callerFlag},
		Action: tradeRefundAction,
	}
	tradeDisputeCmd = &cli.Command{
		Name:   "dispute",
		Usage:  "freeze a funded trade pending arbitration",
		Flags:  []cli.Flag{&tradeIdFlag, &callerFlag},
		Action: tradeDisputeAction,
	}
	tradeUndisputeCmd = &cli.Command{
		Name:   "undispute",
		Usage:  "withdraw a dispute previously raised by the caller",
		Flags:  []cli.Flag{&tradeIdFlag, &callerFlag},
		Action: tradeUndisputeAction,
	}
)

func tradeCreateAction(ctx *cli.Context) error {
	resp, err := httpRequest(
		http.MethodPost, "/v1/trades", map[string]interface{}{
			"maker":          ctx.String("maker"),
			"taker":          ctx.String("taker"),
			"asset":          ctx.String("asset"),
			"price":          ctx.Uint64("price"),
			"deposit":        ctx.Uint64("deposit"),
			"funding_window": ctx.Uint64("funding_window"),
			"direction":      ctx.String("direction"),
			"agreement_hash": ctx.String("agreement_hash"),
		}, false,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func tradeGetAction(ctx *cli.Context) error {
	resp, err := httpRequest(
		http.MethodGet,
		fmt.Sprintf("/v1/trades/%d", ctx.Uint64("trade_id")),
		nil, false,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func tradeListAction(ctx *cli.Context) error {
	apiPath := "/v1/trades"
	if party := ctx.String("party"); len(party) > 0 {
		apiPath += "?party=" + party
	}

	resp, err := httpRequest(http.MethodGet, apiPath, nil, false)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func tradeFundAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	resp, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/trades/%d/fund", ctx.Uint64("trade_id")),
		map[string]interface{}{"caller": caller}, false,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func tradeConfirmAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	if _, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/trades/%d/confirm", ctx.Uint64("trade_id")),
		map[string]interface{}{"caller": caller}, false,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("trade confirmed")
	return nil
}

func tradeCancelAction(ctx *cli.Context) error {
	if _, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/trades/%d/cancel", ctx.Uint64("trade_id")),
		nil, false,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("trade cancelled")
	return nil
}

func tradeRefundAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	resp, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/trades/%d/refund", ctx.Uint64("trade_id")),
		map[string]interface{}{"caller": caller}, false,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func tradeDisputeAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	if _, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/trades/%d/dispute", ctx.Uint64("trade_id")),
		map[string]interface{}{"caller": caller}, false,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("dispute raised")
	return nil
}

func tradeUndisputeAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	if _, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/trades/%d/dispute/cancel", ctx.Uint64("trade_id")),
		map[string]interface{}{"caller": caller}, false,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("dispute withdrawn")
	return nil
}
