package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/internal/portal"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/actionclient"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/config"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/logging"
)

const usage = "usage: portalctl call --action <ACTION> --email <addr> [--role <role>] [--data <json>] [--config <path>] | " +
	"portalctl sign --action <ACTION> --email <addr> [--role <role>] [--data <json>] [--config <path>] | " +
	"portalctl verify [--file <path>] [--max-skew <duration>] [--config <path>]"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 when the action or
// check failed, 2 for usage errors.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		failSummary(stdout, "", "", "", usage)
		return 2
	}
	switch args[0] {
	case "call":
		return runCall(ctx, args[1:], stdout, stderr)
	case "sign":
		return runSign(args[1:], stdout, stderr)
	case "verify":
		return runVerify(args[1:], stdin, stdout, stderr)
	default:
		failSummary(stdout, "", "", "", "unknown command")
		return 2
	}
}

type actionFlags struct {
	action string
	email  string
	role   string
	data   string
	config string
}

func parseActionFlags(name string, args []string, stderr io.Writer) (actionFlags, error) {
	var f actionFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.action, "action", "", "action name, e.g. PUBLISH_CURRICULUM")
	fs.StringVar(&f.email, "email", "", "acting user's email")
	fs.StringVar(&f.role, "role", "ADMIN", "acting user's role")
	fs.StringVar(&f.data, "data", "{}", "action data as a JSON object")
	fs.StringVar(&f.config, "config", "", "optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	f.action = strings.TrimSpace(f.action)
	f.email = strings.TrimSpace(f.email)
	if f.action == "" || f.email == "" {
		return f, errors.New("both --action and --email are required")
	}
	if !json.Valid([]byte(f.data)) {
		return f, errors.New("--data is not valid JSON")
	}
	return f, nil
}

func (f actionFlags) actor() envelope.Actor {
	return envelope.Actor{Email: f.email, Role: f.role}
}

func runCall(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseActionFlags("call", args, stderr)
	if err != nil {
		failSummary(stdout, f.action, "", "", err.Error())
		return 2
	}
	cfg, err := config.LoadPortal(f.config)
	if err != nil {
		failSummary(stdout, f.action, "", "", err.Error())
		return 1
	}
	log := logging.Component(logging.NewWithWriter(cfg.Log, stderr), "portalctl")
	gw := portal.NewGateway(
		actionclient.New(cfg.ClientConfig()),
		log,
		portal.WithMetrics(portal.NewMetrics(prometheus.NewRegistry())),
	)

	res, err := portal.Do[json.RawMessage](ctx, gw, f.actor(), f.action, json.RawMessage(f.data))
	if err != nil {
		failSummary(stdout, f.action, "", string(actionclient.CodeOf(err)), err.Error())
		return 1
	}
	if !res.OK {
		failSummary(stdout, f.action, "", res.Code, res.Message)
		return 1
	}
	fmt.Fprintf(stdout, "{\"protocol_version\":%s,\"status\":\"PASS\",\"action\":%s,\"data\":%s,\"timestamp_utc\":\"%s\"}\n",
		jsonQuote(envelope.ProtocolVersion),
		jsonQuote(f.action),
		rawOrEmpty(res.Data),
		time.Now().UTC().Format(time.RFC3339),
	)
	return 0
}

// runSign prints a sealed envelope without sending it, for replaying
// against an executor by hand.
func runSign(args []string, stdout, stderr io.Writer) int {
	f, err := parseActionFlags("sign", args, stderr)
	if err != nil {
		failSummary(stdout, f.action, "", "", err.Error())
		return 2
	}
	cfg, err := config.LoadPortal(f.config)
	if err != nil {
		failSummary(stdout, f.action, "", "", err.Error())
		return 1
	}
	signer, err := envelope.NewSigner(cfg.Backend.SigningSecret)
	if err != nil {
		failSummary(stdout, f.action, "", string(actionclient.CodeConfigMissing), err.Error())
		return 1
	}
	env, err := envelope.NewAssembler(signer).Build(f.actor(), f.action, json.RawMessage(f.data))
	if err != nil {
		failSummary(stdout, f.action, "", "", err.Error())
		return 1
	}
	b, err := envelope.Marshal(env)
	if err != nil {
		failSummary(stdout, f.action, env.RequestID, "", err.Error())
		return 1
	}
	fmt.Fprintln(stdout, string(b))
	return 0
}

func runVerify(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "-", "envelope JSON file, - for stdin")
	maxSkew := fs.Duration("max-skew", 5*time.Minute, "accepted clock skew, 0 disables the check")
	cfgPath := fs.String("config", "", "optional YAML config file")
	if err := fs.Parse(args); err != nil {
		failSummary(stdout, "", "", "", err.Error())
		return 2
	}

	var in io.Reader = stdin
	if *file != "-" {
		fh, err := os.Open(*file)
		if err != nil {
			failSummary(stdout, "", "", "", "read envelope failed: "+err.Error())
			return 1
		}
		defer fh.Close()
		in = fh
	}
	var env envelope.ActionEnvelope
	if err := json.NewDecoder(in).Decode(&env); err != nil {
		failSummary(stdout, "", "", "", "decode envelope failed: "+err.Error())
		return 1
	}

	cfg, err := config.LoadPortal(*cfgPath)
	if err != nil {
		failSummary(stdout, env.Action, env.RequestID, "", err.Error())
		return 1
	}
	verifier, err := envelope.NewVerifier(cfg.Backend.SigningSecret)
	if err != nil {
		failSummary(stdout, env.Action, env.RequestID, string(actionclient.CodeConfigMissing), err.Error())
		return 1
	}
	if err := verifier.Verify(env); err != nil {
		failSummary(stdout, env.Action, env.RequestID, "BAD_SIGNATURE", err.Error())
		return 1
	}
	if *maxSkew > 0 && !envelope.Fresh(env.TS, time.Now(), *maxSkew) {
		failSummary(stdout, env.Action, env.RequestID, "STALE_TIMESTAMP", "timestamp outside accepted skew")
		return 1
	}
	fmt.Fprintf(stdout, "{\"protocol_version\":%s,\"status\":\"PASS\",\"action\":%s,\"request_id\":%s,\"timestamp_utc\":\"%s\"}\n",
		jsonQuote(envelope.ProtocolVersion),
		jsonQuote(env.Action),
		jsonQuote(env.RequestID),
		time.Now().UTC().Format(time.RFC3339),
	)
	return 0
}

func failSummary(w io.Writer, action, requestID, code, reason string) {
	fmt.Fprintf(w, "{\"protocol_version\":%s,\"status\":\"FAIL\",\"action\":%s,\"request_id\":%s,\"code\":%s,\"reason\":%s,\"timestamp_utc\":\"%s\"}\n",
		jsonQuote(envelope.ProtocolVersion),
		jsonQuote(action),
		jsonQuote(requestID),
		jsonQuote(code),
		jsonQuote(reason),
		time.Now().UTC().Format(time.RFC3339),
	)
}

func rawOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func jsonQuote(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
