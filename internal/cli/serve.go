package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/mdns"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/agusx1211/dtrack/internal/config"
	"github.com/agusx1211/dtrack/internal/hexid"
	"github.com/agusx1211/dtrack/internal/webserver"
)

const serveMDNSServiceType = "_dtrack._tcp"

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API the web grid talks to: POST /update, GET /stats,
GET /health (also under /api), plus read-only views and a WebSocket event
stream at /ws/events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().IntP("port", "p", 3000, "Port to listen on (0 picks a free port)")
	cmd.Flags().String("host", "127.0.0.1", "Host to bind to")
	cmd.Flags().Bool("expose", false, "Bind to 0.0.0.0 for LAN access (enables TLS and a generated token)")
	cmd.Flags().String("tls", "", "TLS mode: 'self-signed' or 'custom' (requires --cert and --key)")
	cmd.Flags().String("cert", "", "Path to TLS certificate file (for --tls=custom)")
	cmd.Flags().String("key", "", "Path to TLS key file (for --tls=custom)")
	cmd.Flags().String("auth-token", "", "Require Bearer token for API access")
	cmd.Flags().Float64("rate-limit", 0, "Max requests per second per IP (0 = unlimited)")
	cmd.Flags().Bool("mdns", false, "Advertise server on local network via mDNS/Bonjour")
	return cmd
}

// serveSettings is the server config after flags are applied over the file
// config.
func serveSettings(cmd *cobra.Command, cfg config.ServerConfig) (webserver.Options, bool, bool, error) {
	flags := cmd.Flags()
	opts := webserver.Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		TLSMode:   cfg.TLS,
		CertFile:  cfg.Cert,
		KeyFile:   cfg.Key,
		AuthToken: cfg.AuthToken,
	}
	if flags.Changed("port") {
		opts.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("host") {
		opts.Host, _ = flags.GetString("host")
	}
	if flags.Changed("tls") {
		opts.TLSMode, _ = flags.GetString("tls")
	}
	if flags.Changed("cert") {
		opts.CertFile, _ = flags.GetString("cert")
	}
	if flags.Changed("key") {
		opts.KeyFile, _ = flags.GetString("key")
	}
	if flags.Changed("auth-token") {
		opts.AuthToken, _ = flags.GetString("auth-token")
	}
	opts.RateLimit, _ = flags.GetFloat64("rate-limit")

	expose, _ := flags.GetBool("expose")
	enableMDNS, _ := flags.GetBool("mdns")
	enableMDNS = enableMDNS || cfg.MDNS

	if expose {
		opts.Host = "0.0.0.0"
		if !flags.Changed("tls") && opts.TLSMode == config.TLSOff {
			opts.TLSMode = config.TLSSelfSigned
		}
		if strings.TrimSpace(opts.AuthToken) == "" {
			opts.AuthToken = hexid.Token()
			fmt.Fprintf(os.Stderr, "Generated auth token: %s\n", opts.AuthToken)
		}
		fmt.Fprintln(os.Stderr, "Warning: Exposing the API on all interfaces.")
	}

	if opts.TLSMode != config.TLSOff && opts.TLSMode != config.TLSSelfSigned && opts.TLSMode != config.TLSCustom {
		return opts, false, false, fmt.Errorf("invalid --tls value %q, expected 'self-signed' or 'custom'", opts.TLSMode)
	}
	if opts.TLSMode == config.TLSCustom && (opts.CertFile == "" || opts.KeyFile == "") {
		return opts, false, false, fmt.Errorf("--tls=custom requires both --cert and --key")
	}
	return opts, expose, enableMDNS, nil
}

func runServe(cmd *cobra.Command, ropts *rootOptions) error {
	a, err := openApp(cmd, ropts)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, expose, enableMDNS, err := serveSettings(cmd, a.cfg.Server)
	if err != nil {
		return err
	}

	srv := webserver.New(a.svc, opts)
	if err := srv.Start(); err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			fmt.Fprintf(os.Stderr, "Port %d is already in use.\n", opts.Port)
			fmt.Fprintf(os.Stderr, "Try: dtrack serve --port %d\n", opts.Port+1)
		}
		return fmt.Errorf("starting web server: %w", err)
	}

	url := fmt.Sprintf("%s://%s", srv.Scheme(), srv.Addr())
	_, port := splitHostPort(srv.Addr())

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%sDaily Tracker API%s listening on \033]8;;%s\033\\%s\033]8;;\033\\\n", styleBoldCyan, colorReset, url, url)
	if fp := srv.Fingerprint(); fp != "" {
		fmt.Fprintf(w, "TLS fingerprint (SHA-256): %s\n", fp)
	}
	if expose {
		if err := printQRCode(cmd, url); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to render QR code: %v\n", err)
		}
	}
	if opts.AuthToken != "" {
		fmt.Fprintln(w, "Auth token required for API access.")
	}
	if a.notifier != nil {
		fmt.Fprintf(w, "Activity log: %s\n", a.notifier.Dir())
	}

	if expose || enableMDNS {
		server, err := startMDNSService("dtrack", port, url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to start mDNS advertisement: %v\n", err)
		} else {
			defer server.Shutdown()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	return nil
}

func startMDNSService(name string, port int, url string) (*mdns.Server, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid port for mDNS advertisement: %d", port)
	}
	txtRecords := []string{
		"service=dtrack",
		fmt.Sprintf("url=%s", url),
	}
	service, err := mdns.NewMDNSService(name, serveMDNSServiceType, "local", "", port, nil, txtRecords)
	if err != nil {
		return nil, err
	}
	return mdns.NewServer(&mdns.Config{
		Zone: service,
	})
}

func printQRCode(cmd *cobra.Command, url string) error {
	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), code.ToString(false))
	return nil
}

func splitHostPort(addr string) (string, int) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return host, 0
	}
	return host, port
}
