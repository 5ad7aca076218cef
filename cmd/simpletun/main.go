package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rectcircle/simpletun/internal/config"
	"github.com/rectcircle/simpletun/internal/simpletun"
	"github.com/rectcircle/simpletun/internal/simpletun/protocol"
	"github.com/rectcircle/simpletun/internal/variable"
	"github.com/rectcircle/simpletun/tools"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var (
	subcommandKeyServer       = "server"
	subcommandKeyClient       = "client"
	subcommandKeyHashPassword = "hash-password"
	subcommandKeyHelp         = "help"
)

const authStatusHelp = `Auth Status:
  R00: Both Username and Password incorrect
  R01: Username incorrect
  R02: Password incorrect
  R03: All correct
`

var errHelp = errors.New("help requested")

// parseArgs - parse the flags of `subcommand`; flags override the --config file,
// which overrides the defaults
func parseArgs(subcommand string, desc string, args []string, output io.Writer) (settings config.Settings, err error) {
	var (
		flags      = config.DefaultSettings()
		configPath string
		tun        bool
		tap        bool
		help       bool
	)
	flagset := pflag.NewFlagSet(subcommand, pflag.ContinueOnError)
	flagset.SetOutput(output)
	flagset.StringVarP(&flags.Interface, "interface", "i", "", "name of interface to use (mandatory)")
	switch subcommand {
	case subcommandKeyClient:
		flagset.StringVarP(&flags.Server, "server", "c", "", "server address to connect to (mandatory)")
	case subcommandKeyServer:
		flagset.StringVar(&flags.Credentials, "credentials", flags.Credentials, "credentials file with Username= and Password= (or PasswordBcrypt=) lines")
	}
	flagset.Uint16VarP(&flags.Port, "port", "p", flags.Port, "port to listen on (server) or to connect to (client)")
	flagset.BoolVarP(&tun, "tun", "u", false, "use TUN (default)")
	flagset.BoolVarP(&tap, "tap", "a", false, "use TAP")
	flagset.BoolVarP(&flags.Debug, "debug", "d", false, "outputs debug information while running")
	flagset.IntVar(&flags.BufferSize, "buffer-size", flags.BufferSize, "buffer for one packet read from the interface, must be >= MTU")
	flagset.DurationVar(&flags.HandshakeTimeout, "handshake-timeout", 0, "bound of the authentication handshake, 0 for none")
	flagset.StringVar(&configPath, "config", "", "YAML settings file, flags take precedence (default ~/.simpletun/simpletun.yaml if present)")
	flagset.BoolVarP(&help, "help", "h", false, "output this subcommand help")
	flagset.Usage = func() {
		fmt.Fprintf(output, "%s\nUsage of `%s %s`:\n", desc, os.Args[0], subcommand)
		flagset.PrintDefaults()
		fmt.Fprint(output, authStatusHelp)
	}
	if err = flagset.Parse(args); err != nil {
		return
	}
	if help {
		flagset.Usage()
		return settings, errHelp
	}
	if flagset.NArg() > 0 {
		return settings, fmt.Errorf("too many options: %s", strings.Join(flagset.Args(), " "))
	}

	settings = config.DefaultSettings()
	if configPath == "" {
		if dir := variable.ConfigBaseDir(); dir != "" && tools.PathExist(filepath.Join(dir, variable.SettingsFileName)) {
			configPath = filepath.Join(dir, variable.SettingsFileName)
		}
	}
	if configPath != "" {
		if settings, err = config.LoadSettings(configPath); err != nil {
			return
		}
	}
	overrides := map[string]func(){
		"interface":         func() { settings.Interface = flags.Interface },
		"server":            func() { settings.Server = flags.Server },
		"credentials":       func() { settings.Credentials = flags.Credentials },
		"port":              func() { settings.Port = flags.Port },
		"debug":             func() { settings.Debug = flags.Debug },
		"buffer-size":       func() { settings.BufferSize = flags.BufferSize },
		"handshake-timeout": func() { settings.HandshakeTimeout = flags.HandshakeTimeout },
	}
	flagset.Visit(func(f *pflag.Flag) {
		if override, ok := overrides[f.Name]; ok {
			override()
		}
	})
	switch {
	case tun && tap:
		return settings, errors.New("-u and -a are exclusive")
	case tun:
		settings.InterfaceType = "tun"
	case tap:
		settings.InterfaceType = "tap"
	}

	if err = settings.Validate(); err != nil {
		return
	}
	if subcommand == subcommandKeyClient && settings.Server == "" {
		return settings, errors.New("must specify server address")
	}
	return settings, nil
}

func parseArgsOrExit(subcommand string, desc string, args []string) config.Settings {
	settings, err := parseArgs(subcommand, desc, args, os.Stderr)
	if errors.Is(err, errHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(2)
	}
	return settings
}

func runServer(ctx context.Context, settings config.Settings) error {
	logger := tools.NewLogger(os.Stderr, settings.Debug)
	credentials, err := config.LoadCredentials(settings.Credentials)
	tools.LogAndExitIfErr(logger, err)
	fmt.Printf("Found Username in config file: %s\n", credentials.Username)

	device, err := simpletun.OpenDevice(settings.Interface, settings.InterfaceType == "tap", settings.BufferSize)
	tools.LogAndExitIfErr(logger, err)
	defer device.Close()
	logger.Debug("Successfully connected to interface", "interface", device.Name())

	return simpletun.Server(ctx, simpletun.ServerOptions{
		Address:  tools.ToAddressString("", settings.Port),
		Device:   device,
		Verifier: credentials,
		Out:      os.Stdout,
		Options: protocol.Options{
			Logger:           logger,
			HandshakeTimeout: settings.HandshakeTimeout,
		},
	})
}

func runClient(ctx context.Context, settings config.Settings) error {
	logger := tools.NewLogger(os.Stderr, settings.Debug)
	device, err := simpletun.OpenDevice(settings.Interface, settings.InterfaceType == "tap", settings.BufferSize)
	tools.LogAndExitIfErr(logger, err)
	defer device.Close()
	logger.Debug("Successfully connected to interface", "interface", device.Name())

	return simpletun.Client(ctx, simpletun.ClientOptions{
		Address:     tools.ToAddressString(settings.Server, settings.Port),
		Device:      device,
		Credentials: &simpletun.Prompt{In: os.Stdin, Out: os.Stdout},
		Out:         os.Stdout,
		Options: protocol.Options{
			Logger:           logger,
			HandshakeTimeout: settings.HandshakeTimeout,
		},
	})
}

// hashPassword - print a `PasswordBcrypt=` line for the credentials file
func hashPassword(args []string) error {
	var (
		cost int
		help bool
	)
	flagset := pflag.NewFlagSet(subcommandKeyHashPassword, pflag.ExitOnError)
	flagset.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	flagset.BoolVarP(&help, "help", "h", false, "output this subcommand help")
	flagset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Hash a password for the server credentials file\nUsage of `%s %s`:\n", os.Args[0], subcommandKeyHashPassword)
		flagset.PrintDefaults()
	}
	flagset.Parse(args)
	if help {
		flagset.Usage()
		os.Exit(0)
	}

	var password []byte
	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		fmt.Fprint(os.Stderr, "Password: ")
		p, err := term.ReadPassword(stdinFd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = p
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return fmt.Errorf("reading password: %w", err)
		}
		password = []byte(strings.TrimRight(line, "\r\n"))
	}
	hash, err := config.HashPassword(password, cost)
	if err != nil {
		return err
	}
	fmt.Printf("%s=%s\n", config.KeyPasswordBcrypt, hash)
	return nil
}

func helpAndExit(isErr bool) {
	stdOutOrErr := os.Stdout
	if isErr {
		stdOutOrErr = os.Stderr
	}
	fmt.Fprintf(stdOutOrErr, "Bridge a tun/tap interface with a TCP connection\nUsage of %s server | client | hash-password\n  -help\n         output this help\n", os.Args[0])
	if isErr {
		os.Exit(2)
	}
}

func main() {
	if len(os.Args) < 2 {
		helpAndExit(true)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		err   error
		debug bool
	)
	switch os.Args[1] {
	case subcommandKeyServer:
		settings := parseArgsOrExit(os.Args[1], "Run in server mode: accept one client", os.Args[2:])
		debug = settings.Debug
		err = runServer(ctx, settings)
	case subcommandKeyClient:
		settings := parseArgsOrExit(os.Args[1], "Run in client mode: connect to a server", os.Args[2:])
		debug = settings.Debug
		err = runClient(ctx, settings)
	case subcommandKeyHashPassword:
		err = hashPassword(os.Args[2:])
	case subcommandKeyHelp, "-h", "--help":
		helpAndExit(false)
	default:
		helpAndExit(true)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	tools.LogAndExitIfErr(tools.NewLogger(os.Stderr, debug), err)
}
