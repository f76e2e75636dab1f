package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/hanpama/typegraph/internal/config"
)

const rootUsage = `typegraph: GraphQL over a key-value store

USAGE:
  typegraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL server over the configured tables
  exec             Execute one GraphQL request and print the result
  print-schema     Print the schema of the configured tables in SDL
  kv-serve         Expose the configured store as a gRPC key-value service
  kv-proto         Print the .proto definition of the key-value service
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>                      YAML configuration (default: built-in defaults)
  -watch                              Reload tables when the config file changes
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.metadata-header <name>      Forward HTTP header to gRPC metadata. Repeatable
  -store.driver <name>                memory, sqlite, postgres, mysql or grpc
  -store.dsn <dsn>                    Data source name of SQL stores
  -store.endpoint <host:port>         Endpoint of the grpc store. Repeatable
  -log.level <level>                  debug, info, warn or error
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: typegraph)
`

const execUsage = `exec FLAGS:
  -config <file>           YAML configuration
  -query <text>            GraphQL document (required; "-" reads stdin)
  -variables <json>        Variables as a JSON object
  -operation <name>        Operation to run in a multi-operation document
  -store.driver <name>     Override the configured store driver
  -store.dsn <dsn>         Override the configured data source name
`

const printSchemaUsage = `print-schema FLAGS:
  -config <file>  YAML configuration
  -out <file>     Write the SDL to file (default: stdout)
`

const kvServeUsage = `kv-serve FLAGS:
  -config <file>        YAML configuration; its store section selects the backend
  -addr <addr>          gRPC listen address (default: :9090)
  -store.driver <name>  Override the configured store driver
  -store.dsn <dsn>      Override the configured data source name
`

const kvProtoUsage = `kv-proto FLAGS:
  -out <file>  Write the .proto file (default: stdout)
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

// cli carries the process streams so commands can be run from tests.
type cli struct {
	stdin          io.Reader
	stdout, stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	global := flag.NewFlagSet("typegraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return c.serve(cmdArgs)
	case "exec":
		return c.exec(cmdArgs)
	case "print-schema":
		return c.printSchema(cmdArgs)
	case "kv-serve":
		return c.kvServe(cmdArgs)
	case "kv-proto":
		return c.kvProto(cmdArgs)
	case "help":
		return c.help(cmdArgs)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) help(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stdout, rootUsage)
		return nil
	}
	usage, ok := map[string]string{
		"serve":        serveUsage,
		"exec":         execUsage,
		"print-schema": printSchemaUsage,
		"kv-serve":     kvServeUsage,
		"kv-proto":     kvProtoUsage,
	}[args[0]]
	if !ok {
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	fmt.Fprint(c.stdout, usage)
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// configFlags binds the flags shared by the commands that read a
// configuration. Flags override the file only when set.
type configFlags struct {
	path       string
	watch      bool
	addr       string
	pretty     bool
	timeout    time.Duration
	headers    stringListFlag
	driver     string
	dsn        string
	endpoints  stringListFlag
	logLevel   string
	otelEP     string
	otelSvc    string
	serverOnly bool
}

func (f *configFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "config", "", "YAML configuration file")
	fs.StringVar(&f.driver, "store.driver", "", "Store driver")
	fs.StringVar(&f.dsn, "store.dsn", "", "Store data source name")
	if !f.serverOnly {
		return
	}
	fs.BoolVar(&f.watch, "watch", false, "Reload on config change")
	fs.StringVar(&f.addr, "server.addr", "", "HTTP listen address")
	fs.BoolVar(&f.pretty, "server.pretty", false, "Pretty-print JSON responses")
	fs.DurationVar(&f.timeout, "server.timeout", 0, "Per-request timeout")
	fs.Var(&f.headers, "server.metadata-header", "Forward HTTP header to gRPC metadata")
	fs.Var(&f.endpoints, "store.endpoint", "gRPC store endpoint")
	fs.StringVar(&f.logLevel, "log.level", "", "Log level")
	fs.StringVar(&f.otelEP, "otel.endpoint", "", "OTLP collector endpoint")
	fs.StringVar(&f.otelSvc, "otel.service", "", "OpenTelemetry service name")
}

// load reads the configuration and applies the flags set on fs.
func (f *configFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	if f.path == "" {
		def := config.Default()
		cfg = &def
	} else {
		var err error
		if cfg, err = config.Load(f.path); err != nil {
			return nil, err
		}
	}
	f.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *configFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "server.addr":
			cfg.Server.Addr = f.addr
		case "server.pretty":
			cfg.Server.Pretty = f.pretty
		case "server.timeout":
			cfg.Server.Timeout = f.timeout
		case "server.metadata-header":
			cfg.Server.MetadataHeaders = f.headers
		case "store.driver":
			cfg.Store.Driver = f.driver
		case "store.dsn":
			cfg.Store.DSN = f.dsn
		case "store.endpoint":
			cfg.Store.Endpoints = f.endpoints
		case "log.level":
			cfg.Log.Level = f.logLevel
		case "otel.endpoint":
			cfg.OTel.Endpoint = f.otelEP
		case "otel.service":
			cfg.OTel.Service = f.otelSvc
		}
	})
}
