package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/viant/mcp-protocol/schema"

	"github.com/plexora/authbridge/bridge"
	"github.com/plexora/authbridge/credential"
	"github.com/plexora/authbridge/example/issues"
	"github.com/plexora/authbridge/provider"
	"github.com/plexora/authbridge/registry"
	"github.com/plexora/authbridge/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	ctx := context.Background()

	config, err := loadConfig(ctx, options.ConfigURL)
	if err != nil {
		return err
	}
	if options.Addr != "" {
		config.Addr = options.Addr
	}

	signingKey, err := loadSigningKey(ctx, config.SigningKeyURL)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	providers := provider.NewRegistry(config.adapters()...)
	issuer := credential.New(signingKey, providers)
	connections := registry.New()

	bridgeService := bridge.New(
		&bridge.Config{
			PublicURL:             config.PublicURL,
			DefaultProvider:       config.DefaultProvider,
			CompatAuthorizeParams: config.CompatAuthorizeParams,
		},
		providers,
		issuer,
		bridge.WithLogger(logger),
		bridge.WithConnectionTokens(func(sessionKey string) map[string]provider.TokenSet {
			payload, err := connections.Lookup(sessionKey)
			if err != nil {
				return nil
			}
			return payload.Tokens
		}),
	)
	defer bridgeService.Stop()

	name := config.Name
	if name == "" {
		name = "authbridge"
	}
	version := config.Version
	if version == "" {
		version = "0.1"
	}

	serverOptions := []server.Option{
		server.WithNewHandler(issues.NewHandler(&issues.Config{APIBaseURL: config.TrackerAPIBaseURL})),
		server.WithImplementation(schema.Implementation{Name: name, Version: version}),
		server.WithBridge(bridgeService),
		server.WithIssuer(issuer),
		server.WithRegistry(connections),
		server.WithLogger(logger),
	}
	if config.CORS != nil {
		serverOptions = append(serverOptions, server.WithCORS(config.CORS))
	}

	srv, err := server.New(serverOptions...)
	if err != nil {
		return err
	}

	if options.Stdio {
		return srv.Stdio(ctx).ListenAndServe()
	}
	srv.UseStreamableHTTP(true)
	httpServer := srv.HTTP(ctx, config.Addr)
	logger.Info("listening", "addr", httpServer.Addr, "publicURL", config.PublicURL)
	return httpServer.ListenAndServe()
}
