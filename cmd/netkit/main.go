package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/netkit/internal/app"
	"github.com/GriffinCanCode/netkit/internal/client"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/transport"
	"github.com/GriffinCanCode/netkit/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "netkit:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("netkit", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML or TOML config file")
	baseURL := fs.String("base", "", "Base URL (overrides config)")
	raw := fs.Bool("raw", false, "Log full request and response exchanges")
	dev := fs.Bool("dev", false, "Development logging (colored, debug level)")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return errors.New("usage: netkit [flags] get|delete <path> | post|put|patch <path> <json> | ws <path>")
	}
	cmd, path := rest[0], rest[1]

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}
	if *raw {
		cfg.Client.LogMode = logging.ModeRaw
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	tk, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer tk.Close()

	if cfg.Metrics.Addr != "" {
		srv := tk.MetricsServer()
		go func() {
			if err := srv.Run(ctx, cfg.Metrics.Addr); err != nil {
				tk.Logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	switch cmd {
	case "get", "delete", "post", "put", "patch":
		var body string
		if len(rest) > 2 {
			body = rest[2]
		}
		return request(ctx, tk.Client, cmd, path, body, stdout)
	case "ws":
		return stream(ctx, tk, path, stdin, stdout)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func request(ctx context.Context, c *client.Client, method, path, body string, stdout io.Writer) error {
	req := c.NewRequest(method, path)
	if body != "" {
		req = req.WithRawBody([]byte(body))
	}

	resp, err := c.Do(ctx, req, nil)
	if err != nil {
		var svc *client.ServiceError
		if errors.As(err, &svc) && len(svc.Body) > 0 {
			_, _ = stdout.Write(svc.Body)
			fmt.Fprintln(stdout)
		}
		return err
	}
	_, err = stdout.Write(resp.Body)
	if err == nil && len(resp.Body) > 0 {
		fmt.Fprintln(stdout)
	}
	return err
}

// stream prints every incoming frame and sends each stdin line as a text
// frame. An unexpected disconnect triggers one reconnect.
func stream(ctx context.Context, tk *app.Toolkit, path string, stdin io.Reader, stdout io.Writer) error {
	target, err := tk.Target(path)
	if err != nil {
		return err
	}

	session := tk.NewSession()
	defer session.Close()
	sub := session.Subscribe()
	defer sub.Close()

	if err := session.Connect(ctx, target); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	events := make(chan ws.Event)
	go func() {
		defer close(events)
		for {
			e, err := sub.Next(ctx)
			if err != nil {
				return
			}
			select {
			case events <- e:
			case <-done:
				return
			}
		}
	}()

	reconnected := false
	for {
		select {
		case <-ctx.Done():
			return disconnect(session)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			err := session.SendFrame(ctx, transport.Frame{Type: transport.TextMessage, Data: []byte(line)})
			if err != nil {
				tk.Logger.Warn("Send failed", zap.Error(err))
			}

		case e, ok := <-events:
			if !ok {
				return disconnect(session)
			}
			switch {
			case e.Kind == ws.EventMessage:
				fmt.Fprintln(stdout, string(e.Frame.Data))
			case e.IsState(ws.StateDisconnected):
				if reconnected {
					return errors.New("connection lost")
				}
				reconnected = true
				if err := session.Reconnect(ctx); err != nil {
					return err
				}
			}
		}
	}
}

// disconnect closes the session and waits briefly for the close handshake.
func disconnect(session *ws.Session) error {
	sub := session.Subscribe()
	if err := session.Disconnect(); err != nil {
		sub.Close()
		return err
	}
	if session.State() == ws.StateDisconnected {
		sub.Close()
		return nil
	}
	_, err := ws.Await(context.Background(), sub, ws.AnyState(ws.StateDisconnected), 3*time.Second)
	return err
}
