package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func opsCmd(name, path string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:9100", "ops server base url")
	limit := fs.Int("limit", 0, "result limit (sessions only)")
	_ = fs.Parse(args)

	body, err := fetch(opsURL(*baseURL, path, *limit))
	fmt.Print(body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
}

func opsURL(base, path string, limit int) string {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + path
	if limit > 0 {
		u += fmt.Sprintf("?limit=%d", limit)
	}
	return u
}

func fetch(u string) (string, error) {
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return string(b), fmt.Errorf("status %d", resp.StatusCode)
	}
	return string(b), nil
}
