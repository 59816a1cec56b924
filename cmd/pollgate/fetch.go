package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/pollgate/pkg/cli"
	"mercator-hq/pollgate/pkg/client"
	"mercator-hq/pollgate/pkg/config"
)

var fetchFlags struct {
	method         string
	data           string
	headers        []string
	maxWait        time.Duration
	pollAfter      time.Duration
	include        bool
	progress       bool
	initialHeader  string
	pollHeader     string
	requestTimeout time.Duration
}

var fetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Send a protected request and wait for its response",
	Long: `Send a request carrying a fresh correlation id and print the final
response body. When the request is answered with a gateway timeout or an
interim 204, fetch polls with the same id until the response arrives.

Examples:
  # Call the demo endpoint through a gateway
  pollgate fetch https://app.example.com/slow?delay=45s

  # Hand-off strategy without a gateway in between
  pollgate fetch http://localhost:8080/slow?delay=20s --poll-after 15s

  # POST with a body and a custom header
  pollgate fetch -X POST -d '{"q":1}' -H 'Content-Type: application/json' http://localhost:8080/jobs`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchFlags.method, "request", "X", http.MethodGet, "HTTP method")
	fetchCmd.Flags().StringVarP(&fetchFlags.data, "data", "d", "", "request body")
	fetchCmd.Flags().StringArrayVarP(&fetchFlags.headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")
	fetchCmd.Flags().DurationVar(&fetchFlags.maxWait, "max-wait", client.DefaultMaxWait, "give up polling after this long")
	fetchCmd.Flags().DurationVar(&fetchFlags.pollAfter, "poll-after", 0, "start polling while the original request is still open")
	fetchCmd.Flags().BoolVarP(&fetchFlags.include, "include", "i", false, "print the response status and headers")
	fetchCmd.Flags().BoolVar(&fetchFlags.progress, "progress", false, "report waiting progress on stderr")
	fetchCmd.Flags().StringVar(&fetchFlags.initialHeader, "initial-header", config.DefaultInitialRequestHeader, "initial request header name")
	fetchCmd.Flags().StringVar(&fetchFlags.pollHeader, "poll-header", config.DefaultPollHeader, "poll header name")
	fetchCmd.Flags().DurationVar(&fetchFlags.requestTimeout, "request-timeout", 0, "timeout of each individual request (0 for none)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	var body io.Reader
	if fetchFlags.data != "" {
		body = strings.NewReader(fetchFlags.data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(fetchFlags.method), args[0], body)
	if err != nil {
		return cli.NewCommandError("fetch", err)
	}
	for _, h := range fetchFlags.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return cli.NewCommandError("fetch", fmt.Errorf("invalid header %q: expected 'Name: value'", h))
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	c := client.New(
		client.WithHTTPClient(&http.Client{Timeout: fetchFlags.requestTimeout}),
		client.WithHeaders(fetchFlags.initialHeader, fetchFlags.pollHeader),
		client.WithMaxWait(fetchFlags.maxWait),
		client.WithPollAfter(fetchFlags.pollAfter),
	)

	finish := func(error) {}
	if fetchFlags.progress {
		finish = cli.NewWaitProgress(stderr(cmd), "Waiting", fetchFlags.maxWait).Run(ctx, time.Second)
	}

	resp, err := c.Do(req)
	finish(err)
	if err != nil {
		return cli.NewCommandError("fetch", err)
	}
	defer resp.Body.Close()

	out := stdout(cmd)
	if fetchFlags.include {
		fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
		if err := resp.Header.Write(out); err != nil {
			return cli.NewCommandError("fetch", err)
		}
		fmt.Fprintln(out)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return cli.NewCommandError("fetch", fmt.Errorf("failed to read response: %w", err))
	}
	return nil
}
