package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/stdr"
	"github.com/goccy/go-yaml"

	"github.com/graphplan/graphplan/internal/eventbus"
	"github.com/graphplan/graphplan/internal/language"
	"github.com/graphplan/graphplan/internal/merger"
	"github.com/graphplan/graphplan/internal/otel"
	"github.com/graphplan/graphplan/internal/schema"
	"github.com/graphplan/graphplan/internal/server"
)

const rootUsage = `graphplan: GraphQL selection normalizer & plan tools

USAGE:
  graphplan <command> [flags]

COMMANDS:
  plan             Merge a query against a schema and print the plan as JSON
  serve            Run the HTTP plan service
  print-schema     Parse, rebuild and render a schema SDL (normalization check)
  help             Show help for any command
`

const planUsage = `plan FLAGS:
  -schema <file>          GraphQL SDL file (required)
  -query <file>           Query file; "-" or empty reads stdin
  -vars <file>            Variable bindings, JSON or YAML by extension
  -op <name>              Operation name when the document has several
  -pretty                 Pretty-print the plan JSON
`

const serveUsage = `serve FLAGS:
  -config <file>          YAML config file; flags override its values
  -schema <file>          GraphQL SDL file (required unless set in config)
  -server.addr <addr>     HTTP listen address (default: :8080)
  -server.pretty          Pretty-print JSON responses
  -server.timeout <dur>   Per-request timeout, e.g. 10s (default: 10s)
  -otel.endpoint <addr>   OTLP collector endpoint
  -otel.service <name>    OpenTelemetry service name (default: graphplan)
`

const printSchemaUsage = `print-schema FLAGS:
  -schema <file>          GraphQL SDL file (required)
  -out <file>             Write rendered SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := args[0]
	cmdArgs := args[1:]
	switch cmd {
	case "plan":
		return cmdPlan(cmdArgs)
	case "serve":
		return cmdServe(cmdArgs)
	case "print-schema":
		return cmdPrintSchema(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "plan":
		fmt.Print(planUsage)
	case "serve":
		fmt.Print(serveUsage)
	case "print-schema":
		fmt.Print(printSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdPlan(args []string) error {
	schemaFile := ""
	queryFile := ""
	varsFile := ""
	opName := ""
	pretty := false

	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&queryFile, "query", queryFile, "Query file")
	fs.StringVar(&varsFile, "vars", varsFile, "Variable bindings file")
	fs.StringVar(&opName, "op", opName, "Operation name")
	fs.BoolVar(&pretty, "pretty", pretty, "Pretty-print the plan JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, planUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, planUsage)
		return fmt.Errorf("-schema is required")
	}

	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	query, err := readInput(queryFile)
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	vars, err := loadVars(varsFile)
	if err != nil {
		return err
	}

	doc, err := language.ParseQuery(query)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	root, err := merger.MergeOperation(sch, doc, opName, vars)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(root)
}

// serveConfig mirrors the serve flags; flags override file values.
type serveConfig struct {
	Schema string `yaml:"schema"`
	Server struct {
		Addr    string `yaml:"addr"`
		Pretty  bool   `yaml:"pretty"`
		Timeout string `yaml:"timeout"`
	} `yaml:"server"`
	Otel struct {
		Endpoint string `yaml:"endpoint"`
		Service  string `yaml:"service"`
	} `yaml:"otel"`
}

func cmdServe(args []string) error {
	configFile := ""
	schemaFile := ""
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	otelEndpoint := ""
	otelService := "graphplan"

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configFile, "config", configFile, "YAML config file")
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	if configFile != "" {
		var cfg serveConfig
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		if schemaFile == "" {
			schemaFile = cfg.Schema
		}
		set := flagsSet(fs)
		if !set["server.addr"] && cfg.Server.Addr != "" {
			addr = cfg.Server.Addr
		}
		if !set["server.pretty"] && cfg.Server.Pretty {
			pretty = true
		}
		if !set["server.timeout"] && cfg.Server.Timeout != "" {
			d, err := time.ParseDuration(cfg.Server.Timeout)
			if err != nil {
				return fmt.Errorf("config server.timeout: %w", err)
			}
			timeout = d
		}
		if !set["otel.endpoint"] && cfg.Otel.Endpoint != "" {
			otelEndpoint = cfg.Otel.Endpoint
		}
		if !set["otel.service"] && cfg.Otel.Service != "" {
			otelService = cfg.Otel.Service
		}
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema is required")
	}

	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	sopts := []server.Option{server.WithLogger(logger)}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	h, err := server.New(sch, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/plan", h)

	logger.Info("plan server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func cmdPrintSchema(args []string) error {
	schemaFile := ""
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&outFile, "out", outFile, "Write rendered SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return fmt.Errorf("-schema is required")
	}

	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	sdl := schema.Render(sch)
	if outFile == "" {
		fmt.Print(sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func loadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.BuildFromSDL(string(data))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func loadVars(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vars: %w", err)
	}
	vars := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("parse vars: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("parse vars: %w", err)
		}
	}
	return vars, nil
}

func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
