package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/luca-patrignani/proof-of-play/config"
	"github.com/luca-patrignani/proof-of-play/dispatch"
	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/ledger"
	"github.com/luca-patrignani/proof-of-play/network"
	"github.com/luca-patrignani/proof-of-play/store/postgres"
	"github.com/luca-patrignani/proof-of-play/store/sqlite"
	"github.com/luca-patrignani/proof-of-play/transaction"
)

const certFile = "pop-cert.pem"

const usage = `usage:
  pop serve
  pop keygen <keyfile>
  pop submit <keyfile> <node> <ugid> <entropy>
  pop balance <node> <account>`

func main() {
	// Create a new slog handler with the default PTerm logger
	logger := slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))
	slog.SetDefault(logger)

	if err := run(os.Args[1:], logger); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(args []string, logger *slog.Logger) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "serve":
		return serve(logger)
	case "keygen":
		if len(args) != 2 {
			return errors.New(usage)
		}
		return keygen(args[1])
	case "submit":
		if len(args) != 5 {
			return errors.New(usage)
		}
		entropy, err := parseEntropy(args[4])
		if err != nil {
			return err
		}
		return submit(args[1], args[2], args[3], entropy)
	case "balance":
		if len(args) != 3 {
			return errors.New(usage)
		}
		return balance(args[1], pop.AccountID(args[2]))
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func parseEntropy(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid entropy %q: %w", s, err)
	}
	return uint32(v), nil
}

// nodeState is the state backend served by the node.
type nodeState interface {
	dispatch.State
	Verify(ctx context.Context) error
}

func openState(cfg *config.Config) (nodeState, func() error, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return ledger.NewState(), func() error { return nil }, nil
	}
}

func banner() {
	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("P", pterm.FgCyan.ToStyle()),
		putils.LettersFromStringWithStyle("o", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("P", pterm.FgCyan.ToStyle()),
	).Render()
}

func serve(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	banner()

	spinner, _ := pterm.DefaultSpinner.Start("Opening " + string(cfg.Store) + " state...")
	state, closeState, err := openState(cfg)
	if err != nil {
		spinner.Fail()
		return err
	}
	defer func() {
		if err := closeState(); err != nil {
			logger.Error("failed to close state", "error", err)
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := state.Verify(ctx); err != nil {
		spinner.Fail()
		return fmt.Errorf("state failed verification: %w", err)
	}
	spinner.Success()

	handler := cfg.Handler()
	d := dispatch.New(state, handler, dispatch.WithLogger(logger))

	opts := []network.ServerOption{network.WithLogger(logger), network.WithCORSOrigins(cfg.CORSOrigins)}
	if cfg.TLS {
		opts = append(opts, network.WithSelfSignedTLS(cfg.ListenAddr))
	}
	srv, err := network.NewServer(d, opts...)
	if err != nil {
		return err
	}
	if pem := srv.CertificatePEM(); pem != nil {
		if err := os.WriteFile(certFile, pem, 0o644); err != nil {
			return fmt.Errorf("write certificate: %w", err)
		}
		pterm.Info.Printfln("Self-signed certificate written to %s", certFile)
	}

	l, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen on address", "address", cfg.ListenAddr, "error", err)
		return err
	}
	printNodeInfo(cfg, handler, l.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func keygen(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	key := transaction.GenerateKey()
	raw, err := key.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(raw)+"\n"), 0o600); err != nil {
		return err
	}
	pterm.Success.Printfln("Key written to %s", path)
	pterm.Info.Printfln("Account: %s", key.Account())
	return nil
}

func loadKey(path string) (*transaction.Key, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", path, err)
	}
	return transaction.KeyFromBytes(b)
}

func newClient(node string) (*network.Client, error) {
	base, err := nodeURL(node, defaultPort)
	if err != nil {
		return nil, err
	}
	var opts []network.ClientOption
	if ca := os.Getenv("POP_CA_FILE"); ca != "" {
		pem, err := os.ReadFile(ca)
		if err != nil {
			return nil, err
		}
		opts = append(opts, network.WithRootCA(pem))
	}
	return network.NewClient(base, opts...)
}

func submit(keyPath, node, ugid string, entropy uint32) error {
	key, err := loadKey(keyPath)
	if err != nil {
		return err
	}
	client, err := newClient(node)
	if err != nil {
		return err
	}
	tx := transaction.NewSubmitPoP([]byte(ugid), entropy)
	if err := tx.Sign(key); err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.Start("Submitting proof of play...")
	receipt, err := client.Submit(context.Background(), tx)
	if err != nil {
		spinner.Fail()
		if receipt.TxHash != "" {
			printReceipt(receipt)
		}
		return err
	}
	spinner.Success()
	printReceipt(receipt)
	return nil
}

func balance(node string, account pop.AccountID) error {
	client, err := newClient(node)
	if err != nil {
		return err
	}
	b, err := client.Balance(context.Background(), account)
	if err != nil {
		return err
	}
	printBalance(account, b)
	return nil
}
