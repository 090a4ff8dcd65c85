package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
)

var (
	admin = cli.Command{
		Name:  "admin",
		Usage: "platform settings and arbitration operations",
		Subcommands: []*cli.Command{
			adminFeeCmd, adminVaultCmd,
			adminResolveCmd, adminClearCmd, adminWithdrawCmd,
		},
	}

	adminFeeCmd = &cli.Command{
		Name:  "fee",
		Usage: "update the platform fee in basis points",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "basis_points",
				Usage: "the new fee in basis points, zero disables the fee",
			},
			&callerFlag,
		},
		Action: adminFeeAction,
	}
	adminVaultCmd = &cli.Command{
		Name:  "vault",
		Usage: "update the address collecting the platform fee",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "vault",
				Usage: "hex address of the new fee vault",
			},
			&callerFlag,
		},
		Action: adminVaultAction,
	}
	adminResolveCmd = &cli.Command{
		Name:  "resolve",
		Usage: "resolve a disputed trade in favor of one party",
		Flags: []cli.Flag{
			&tradeIdFlag,
			&cli.StringFlag{
				Name:  "winner",
				Usage: "hex address of the party receiving the escrow",
			},
			&cli.StringFlag{
				Name:  "reason",
				Usage: "free text motivating the ruling",
				Value: "",
			},
			&callerFlag,
		},
		Action: adminResolveAction,
	}
	adminClearCmd = &cli.Command{
		Name:  "clear",
		Usage: "clear a dispute and send the trade back to funded",
		Flags: []cli.Flag{
			&tradeIdFlag,
			&cli.StringFlag{
				Name:  "reason",
				Usage: "free text motivating the ruling",
				Value: "",
			},
			&callerFlag,
		},
		Action: adminClearAction,
	}
	adminWithdrawCmd = &cli.Command{
		Name:   "withdraw",
		Usage:  "move the escrow of a disputed trade to the fee vault",
		Flags:  []cli.Flag{&tradeIdFlag, &callerFlag},
		Action: adminWithdrawAction,
	}
)

func adminFeeAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	if _, err := httpRequest(
		http.MethodPut, "/v1/admin/fee", map[string]interface{}{
			"caller":           caller,
			"new_basis_points": ctx.Uint("basis_points"),
		}, true,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("platform fee has been updated")
	return nil
}

func adminVaultAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	if _, err := httpRequest(
		http.MethodPut, "/v1/admin/vault", map[string]interface{}{
			"caller": caller,
			"vault":  ctx.String("vault"),
		}, true,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("fee vault has been updated")
	return nil
}

func adminResolveAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	if _, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/admin/trades/%d/resolve", ctx.Uint64("trade_id")),
		map[string]interface{}{
			"caller": caller,
			"winner": ctx.String("winner"),
			"reason": ctx.String("reason"),
		}, true,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("dispute resolved")
	return nil
}

func adminClearAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	if _, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/admin/trades/%d/clear", ctx.Uint64("trade_id")),
		map[string]interface{}{
			"caller": caller,
			"reason": ctx.String("reason"),
		}, true,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("dispute cleared")
	return nil
}

func adminWithdrawAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	resp, err := httpRequest(
		http.MethodPost,
		fmt.Sprintf("/v1/admin/trades/%d/withdraw", ctx.Uint64("trade_id")),
		map[string]interface{}{"caller": caller}, true,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
