// Package main pushes a test appservice transaction to a running bridge
// listener, the way a homeserver would.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/l5yth/potato-mesh/internal/api/middleware"
	"github.com/l5yth/potato-mesh/internal/config"
)

const sampleTransaction = `{"events":[]}`

var prefixes = map[string]string{
	"v1":     "/_matrix/app/v1/transactions/",
	"legacy": "/_matrix/appservice/v1/transactions/",
	"bare":   "/transactions/",
}

type options struct {
	listener string
	token    string
	auth     string
	route    string
	txnID    string
	bodyFile string
	timeout  time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:          "sendtxn",
		Short:        "Send a test appservice transaction to the bridge listener",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.token == "" {
				o.token = os.Getenv(config.EnvHSToken)
			}
			if o.token == "" {
				return fmt.Errorf("--token or %s is required", config.EnvHSToken)
			}

			var body []byte
			var err error
			switch o.bodyFile {
			case "":
				body = []byte(sampleTransaction)
			case "-":
				body, err = io.ReadAll(cmd.InOrStdin())
			default:
				body, err = os.ReadFile(o.bodyFile)
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()

			status, resp, err := send(ctx, http.DefaultClient, o, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, strings.TrimSpace(string(resp)))
			if status != http.StatusOK {
				return fmt.Errorf("listener answered %d", status)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&o.listener, "url", "http://localhost:41448", "Listener base URL")
	fs.StringVar(&o.token, "token", "", "Homeserver token (default $"+config.EnvHSToken+")")
	fs.StringVar(&o.auth, "auth", "bearer", "Token placement: bearer, header or query")
	fs.StringVar(&o.route, "route", "v1", "Transaction route: v1, legacy or bare")
	fs.StringVar(&o.txnID, "txn-id", "", "Transaction id (default a fresh ULID)")
	fs.StringVar(&o.bodyFile, "body", "", "File with the transaction JSON, - for stdin")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "Request timeout")

	return cmd
}

// send PUTs body to the listener and returns the status and response body.
func send(ctx context.Context, client *http.Client, o options, body []byte) (int, []byte, error) {
	prefix, ok := prefixes[o.route]
	if !ok {
		return 0, nil, fmt.Errorf("unknown route %q", o.route)
	}
	txnID := o.txnID
	if txnID == "" {
		txnID = ulid.Make().String()
	}

	u, err := url.Parse(strings.TrimRight(o.listener, "/") + prefix + url.PathEscape(txnID))
	if err != nil {
		return 0, nil, fmt.Errorf("parse listener url: %w", err)
	}

	header := http.Header{"Content-Type": {"application/json"}}
	switch o.auth {
	case "bearer":
		header.Set("Authorization", "Bearer "+o.token)
	case "header":
		header.Set(middleware.LegacyTokenHeader, o.token)
	case "query":
		q := u.Query()
		q.Set("access_token", o.token)
		u.RawQuery = q.Encode()
	default:
		return 0, nil, fmt.Errorf("unknown auth placement %q", o.auth)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header = header

	resp, err := client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return 0, nil, fmt.Errorf("send transaction: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
