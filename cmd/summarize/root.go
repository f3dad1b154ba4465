package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"smart-summary/internal/app"
	"smart-summary/internal/client"
	"smart-summary/internal/domain"
	"smart-summary/internal/extract"
	"smart-summary/internal/orchestrator"
)

type options struct {
	file        string
	maxLength   int
	endpoint    string
	provider    string
	retry       bool
	watch       bool
	metricsAddr string
}

type depsBuilder func(opts options) (app.ClientDeps, error)

func buildDeps(opts options) (app.ClientDeps, error) {
	deps, err := app.BuildClient()
	if err != nil {
		return app.ClientDeps{}, err
	}
	if opts.endpoint != "" {
		transport, err := client.New(opts.endpoint, &http.Client{Timeout: deps.Config.RequestTimeout}, deps.Log)
		if err != nil {
			return app.ClientDeps{}, err
		}
		deps.Transport = transport
		deps.Config.SummaryEndpoint = opts.endpoint
	}
	return deps, nil
}

// reportedError is a failure the printer has already shown.
type reportedError struct {
	reason string
}

func (e *reportedError) Error() string {
	return e.reason
}

func newRootCmd(in io.Reader, out, errOut io.Writer, build depsBuilder) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "summarize [text...]",
		Short: "Summarize text with a streaming summarization backend",
		Long: `Summarize text passed as arguments, read from --file (txt, md or pdf), or read from stdin.

With --watch every stdin line is treated as a paste: bursts are debounced and
only the last line of a burst is summarized.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := build(opts)
			if err != nil {
				fmt.Fprintln(errOut, "error:", err)
				return err
			}
			err = run(cmd.Context(), deps, opts, args, in, out, errOut)
			var reported *reportedError
			if err != nil && !errors.As(err, &reported) {
				fmt.Fprintln(errOut, "error:", err)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "summarize the contents of a txt, md or pdf file")
	cmd.Flags().IntVarP(&opts.maxLength, "max-length", "n", 0, "maximum summary length in words (default from MAX_LENGTH)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "streaming endpoint URL (default from SUMMARY_ENDPOINT)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "backend provider name (default from SUMMARY_PROVIDER)")
	cmd.Flags().BoolVar(&opts.retry, "retry", false, "ignore any cached summary and fetch a fresh one")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "summarize each stdin line as a debounced paste")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve client metrics on this address while running")
	cmd.MarkFlagsMutuallyExclusive("watch", "file")

	return cmd
}

func run(ctx context.Context, deps app.ClientDeps, opts options, args []string, in io.Reader, out, errOut io.Writer) error {
	cfg := deps.Config
	maxLength := cfg.MaxLength
	if opts.maxLength != 0 {
		maxLength = opts.maxLength
	}
	provider := cfg.SummaryProvider
	if opts.provider != "" {
		provider = opts.provider
	}

	if opts.metricsAddr != "" {
		srv := &http.Server{Addr: opts.metricsAddr, Handler: deps.Metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				deps.Log.Warn("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	p := newPrinter(out, errOut)
	o := orchestrator.New(deps.Transport, deps.Cache, orchestrator.Options{
		MaxLength:           maxLength,
		Provider:            provider,
		APIKey:              cfg.SummaryAPIKey,
		DebounceWindow:      cfg.DebounceWindow,
		CacheNoticeDuration: cfg.CacheNoticeDuration,
		OnChange:            p.OnChange,
		Logger:              deps.Log,
		Metrics:             deps.Metrics,
	})
	defer o.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if opts.watch {
		return watch(ctx, o, in)
	}

	text, err := readInput(opts, args, in, cfg.MaxUploadSize)
	if err != nil {
		return err
	}
	if opts.retry {
		err = o.RetryBypassingCache(text)
	} else {
		err = o.SubmitImmediate(text)
	}
	if err != nil {
		return err
	}
	return settle(ctx, o)
}

// watch feeds stdin lines to the debounced path until EOF.
func watch(ctx context.Context, o *orchestrator.Orchestrator, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			o.CancelCurrent()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read stdin: %w", err)
					}
				default:
				}
				return settle(ctx, o)
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := o.SubmitDebounced(line); err != nil {
				return err
			}
		}
	}
}

// settle waits for pending work and reports a failed final state as an error.
func settle(ctx context.Context, o *orchestrator.Orchestrator) error {
	if err := o.Wait(ctx); err != nil {
		o.CancelCurrent()
		return err
	}
	if st := o.State(); st.Status == domain.StatusFailed {
		return &reportedError{reason: st.Error}
	}
	return nil
}

func readInput(opts options, args []string, in io.Reader, maxSize int64) (string, error) {
	switch {
	case opts.file != "":
		if len(args) > 0 {
			return "", errors.New("pass either text arguments or --file, not both")
		}
		return extract.File(opts.file, maxSize)
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		body, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(body), nil
	}
}
