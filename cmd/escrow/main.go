package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/golang-jwt/jwt"
	"github.com/urfave/cli/v2"
)

var (
	escrowDataDir = btcutil.AppDataDir("escrow-operator", false)
	statePath     = path.Join(escrowDataDir, "state.json")

	httpClient = &http.Client{Timeout: 15 * time.Second}

	// version is set through ldflags at release time.
	version = "dev"
)

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "escrow operator CLI"
	app.Usage = "Command line interface for escrowd daemon operators"
	app.Commands = append(
		app.Commands,
		&config,
		&info,
		&trade,
		&admin,
		&webhook,
		&listwebhooks,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	json.Unmarshal(file, &data)

	return data, nil
}

func setState(data map[string]string) error {
	if _, err := os.Stat(escrowDataDir); os.IsNotExist(err) {
		os.Mkdir(escrowDataDir, os.ModeDir|0755)
	}

	currentData := map[string]string{}
	if file, err := os.ReadFile(statePath); err == nil {
		json.Unmarshal(file, &currentData)
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0644); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string, 0)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func getDaemonURL() (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	daemonURL, ok := state["daemon_url"]
	if !ok {
		return "", errors.New("set daemon_url with `config set daemon_url`")
	}
	return daemonURL, nil
}

func getAddressFromState() (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	address, ok := state["address"]
	if !ok {
		return "", errors.New("set address with `config set address`")
	}
	return address, nil
}

// getCaller resolves the acting party of a request, a --caller flag wins
// over the address stored in the local state.
func getCaller(ctx *cli.Context) (string, error) {
	if caller := ctx.String("caller"); len(caller) > 0 {
		return caller, nil
	}
	return getAddressFromState()
}

// adminBearerToken mints the token admin requests carry, signed with the
// secret shared with the daemon.
func adminBearerToken() (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	secret, ok := state["admin_secret"]
	if !ok {
		return "", errors.New("set admin_secret with `config set admin_secret`")
	}
	return jwt.New(jwt.SigningMethodHS256).SignedString([]byte(secret))
}

func httpRequest(
	method, apiPath string, body interface{}, admin bool,
) ([]byte, error) {
	daemonURL, err := getDaemonURL()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(method, daemonURL+apiPath, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		token, err := adminBearerToken()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to reach the daemon: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var daemonErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &daemonErr) == nil && daemonErr.Error != "" {
			return nil, errors.New(daemonErr.Error)
		}
		return nil, fmt.Errorf("daemon replied with status %d", resp.StatusCode)
	}

	return respBody, nil
}

func printRespJSON(resp []byte) {
	var indented bytes.Buffer
	if err := json.Indent(&indented, resp, "", "\t"); err != nil {
		fmt.Println(string(resp))
		return
	}
	fmt.Println(indented.String())
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "[escrow] %v\n", err)
	os.Exit(1)
}
