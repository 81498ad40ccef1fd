package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	configPath := flag.String("config", "baspctl.toml", "path to baspctl's local config")
	target := flag.String("target", "", "admin surface base URL, overrides config")
	token := flag.String("token", "", "bearer token, overrides config")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: baspctl [-config path] [-target url] [-token token] <routes|published|metrics|healthz>")
		os.Exit(2)
	}

	cfg, err := loadCtlConfig(*configPath)
	if err != nil && *target == "" {
		fmt.Fprintf(os.Stderr, "baspctl: %v\n", err)
		os.Exit(1)
	}
	if *target != "" {
		cfg.AdminAddr = *target
	}
	if *token != "" {
		cfg.AuthToken = *token
	}

	if err := query(cfg, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "baspctl: %v\n", err)
		os.Exit(1)
	}
}

func query(cfg ctlConfig, command string) error {
	path, ok := map[string]string{
		"routes":    "/routes",
		"published": "/published",
		"metrics":   "/metrics",
		"healthz":   "/healthz",
	}[command]
	if !ok {
		return fmt.Errorf("unknown command: %s", command)
	}

	req, err := http.NewRequest(http.MethodGet, cfg.AdminAddr+path, nil)
	if err != nil {
		return err
	}
	if cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.AuthToken)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %d: %s", path, resp.StatusCode, string(body))
	}

	if command == "metrics" {
		fmt.Print(string(body))
		return nil
	}
	return printJSON(body)
}

func printJSON(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return nil
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
