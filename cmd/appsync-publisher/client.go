package main

import (
	"context"
	"fmt"
	"log/slog"

	sdkv2_v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go/aws/session"
	sdkv1_v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/cache"
	"github.com/sony/appsync-publisher-go/graphql"
	"github.com/sony/appsync-publisher-go/internal/config"
)

// newClient builds the AppSync client described by cfg. The caller closes it.
func newClient(ctx context.Context, cfg *config.Config) (*appsync.Client, error) {
	gopts := []graphql.ClientOption{graphql.WithTimeout(cfg.Timeout)}
	if cfg.Proxy != "" {
		gopts = append(gopts, graphql.WithHTTPProxy(cfg.Proxy))
	}

	var (
		opts  []appsync.ClientOption
		wsOpt []appsync.PureWebSocketSubscriberOption
	)
	switch cfg.Auth.Type {
	case config.AuthAPIKey:
		gopts = append(gopts, graphql.WithAPIKey(cfg.Auth.APIKey))
		wsOpt = append(wsOpt, appsync.WithAPIKey(cfg.Endpoint, cfg.Auth.APIKey))
	case config.AuthOIDC:
		gopts = append(gopts, graphql.WithCredential(cfg.Auth.Token))
		wsOpt = append(wsOpt, appsync.WithOIDC(cfg.Endpoint, cfg.Auth.Token))
	case config.AuthIAM:
		opt, err := iamOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	if cfg.SubscriberID != "" {
		opts = append(opts, appsync.WithSubscriberID(cfg.SubscriberID))
	}
	if cfg.Protocol == config.ProtocolGraphQLWS {
		opts = append(opts, appsync.WithRealtimeEndpoint(cfg.RealtimeEndpoint, wsOpt...))
	}
	if cfg.Cache.Path != "" {
		store, err := cache.OpenSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, appsync.WithCache(store))
	}

	slog.Debug("creating client", "endpoint", cfg.Endpoint, "protocol", cfg.Protocol, "auth", cfg.Auth.Type)
	return appsync.NewClient(appsync.NewGraphQLClient(graphql.NewClient(cfg.Endpoint, gopts...)), opts...), nil
}

// iamOption loads AWS credentials with the configured SDK. The client signs
// both HTTP requests and realtime handshakes with the same signer.
func iamOption(ctx context.Context, cfg *config.Config) (appsync.ClientOption, error) {
	switch cfg.Auth.SDKVersion {
	case "v1":
		sess, err := session.NewSession()
		if err != nil {
			return nil, fmt.Errorf("creating aws session: %w", err)
		}
		return appsync.WithIAMAuthorizationV1(sdkv1_v4.NewSigner(sess.Config.Credentials), cfg.Region, cfg.Endpoint), nil
	default:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		creds, err := awsCfg.Credentials.Retrieve(ctx)
		if err != nil {
			return nil, fmt.Errorf("retrieving aws credentials: %w", err)
		}
		return appsync.WithIAMAuthorizationV2(sdkv2_v4.NewSigner(), creds, cfg.Region, cfg.Endpoint), nil
	}
}
