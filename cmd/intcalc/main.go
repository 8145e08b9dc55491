package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/jessevdk/go-flags"
	"github.com/karupanerura/intcalc/internal/config"
	"github.com/karupanerura/intcalc/internal/expression"
	"github.com/karupanerura/intcalc/internal/server"
	"github.com/karupanerura/intcalc/internal/types"
	"github.com/mattn/go-isatty"
)

const configReloadInterval = 5 * time.Second

type Option struct {
	Config   string `short:"c" long:"config" description:"[OPTIONAL] Config file (YAML or JSON)" required:"false"`
	Overflow string `long:"overflow" description:"[OPTIONAL] Overflow policy" choice:"error" choice:"wrap" choice:"saturate" required:"false"`
	JSON     bool   `long:"json" description:"[OPTIONAL] Print the result as JSON"`
	Debug    bool   `long:"debug" description:"[OPTIONAL] Trace tokenizing and evaluation to stderr"`
	Listen   string `short:"l" long:"listen" description:"[OPTIONAL] Listen host and port to serve the evaluation API" required:"false"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var opt Option
	// expressions such as "-5+3" look like unknown short options
	parser := flags.NewParser(&opt, flags.Default|flags.IgnoreUnknown)
	parser.Usage = "[OPTIONS] [--] EXPRESSION\n\nA lone argument is always the expression unless it is -h or starts with --.\nWith options, write expressions such as -l5 or -c1 after --."
	rest := args
	if !isLoneExpression(args) {
		var err error
		rest, err = parser.ParseArgs(args)
		if err != nil {
			if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
				return 0
			}
			printError(stdout)
			return 1
		}
	}

	loader := func() (*config.Config, error) {
		return loadConfig(&opt)
	}

	// server mode
	if opt.Listen != "" {
		if len(rest) != 0 {
			parser.WriteHelp(os.Stderr)
			return 1
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		interval := configReloadInterval
		if opt.Config == "" {
			interval = 0
		}
		if err := serveEvaluations(ctx, opt.Listen, loader, interval); err != nil {
			log.Printf("failed to serve evaluations: %v", err)
			return 1
		}
		return 0
	}

	if len(rest) != 1 {
		log.Printf("expected exactly one expression but got %d arguments", len(rest))
		printError(stdout)
		return 1
	}
	source := rest[0]

	cfg, err := loader()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		printError(stdout)
		return 1
	}

	parseExpr := expression.ParseExpr
	if cfg.Debug {
		parseExpr = expression.ParseExprWithDebugOutput
	}

	ret, err := cfg.Evaluator().EvaluateValue(parseExpr(source))
	if err != nil {
		log.Printf("failed to evaluate %q: %v", source, err)
		if opt.JSON {
			var exception types.Exception
			if errors.As(err, &exception) {
				if err = dumpJSON(stdout, map[string]any{"expression": source, "error": exception.Exception()}); err != nil {
					log.Printf("failed to dump evaluation error as JSON: %v", err)
				}
				return 1
			}
		}
		printError(stdout)
		return 1
	}

	if opt.JSON {
		if err = dumpJSON(stdout, map[string]any{"expression": source, "result": ret}); err != nil {
			log.Printf("failed to dump evaluation result: %v", err)
			return 1
		}
		return 0
	}
	if _, err = fmt.Fprintln(stdout, ret); err != nil {
		log.Printf("failed to print evaluation result: %v", err)
		return 1
	}
	return 0
}

// isLoneExpression reports whether args is a single expression that must not
// be read as options, e.g. "-h1" or "-l5".
func isLoneExpression(args []string) bool {
	return len(args) == 1 && args[0] != "-h" && !strings.HasPrefix(args[0], "--")
}

func loadConfig(opt *Option) (*config.Config, error) {
	cfg := config.Default()
	if opt.Config != "" {
		var err error
		cfg, err = config.LoadFile(opt.Config)
		if err != nil {
			return nil, fmt.Errorf("config.LoadFile: %w", err)
		}
	}

	if opt.Overflow != "" {
		policy, err := expression.ParseOverflowPolicy(opt.Overflow)
		if err != nil {
			return nil, err
		}
		cfg.Overflow = policy
	}
	if opt.Debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func printError(w io.Writer) {
	if _, err := fmt.Fprintln(w, "error"); err != nil {
		log.Printf("failed to print error: %v", err)
	}
}

func serveEvaluations(ctx context.Context, listen string, loader func() (*config.Config, error), interval time.Duration) error {
	handler, err := server.NewHTTPHandler(ctx, loader, interval)
	if err != nil {
		return err
	}

	srv := http.Server{
		Handler: handler,
		Addr:    listen,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("failed to shutdown: %v", err)
		}
	}()

	log.Printf("Listen HTTP on %s", listen)
	if err := srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

func dumpJSON(w io.Writer, v any) error {
	opts := []json.EncodeOptionFunc{json.DisableHTMLEscape()}
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		if isatty.IsTerminal(f.Fd()) {
			opts = append(opts, json.Colorize(json.DefaultColorScheme))
		}
	}

	b, err := json.MarshalIndentWithOption(v, "", "\t", opts...)
	if err != nil {
		return fmt.Errorf("json.MarshalIndentWithOption: %w", err)
	}

	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("w.Write: %w", err)
	}
	if _, err = io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}
	return nil
}
