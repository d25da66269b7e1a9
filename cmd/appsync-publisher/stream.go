package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/k0kubun/pp"
	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
	"github.com/sony/appsync-publisher-go/publishers"
	"github.com/spf13/cobra"
)

type streamFlags struct {
	requestFlags
	failFast bool
}

func (f *streamFlags) register(cmd *cobra.Command) {
	f.requestFlags.register(cmd)
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "Stop at the first error instead of printing it")
}

func (f *streamFlags) failureMode() publishers.FailureMode {
	if f.failFast {
		return publishers.PropagateFailures
	}
	return publishers.SuppressFailures
}

func watchCmd(configPath *string) *cobra.Command {
	var (
		flags       streamFlags
		cachePolicy string
	)
	cmd := &cobra.Command{
		Use:   "watch [document]",
		Short: "Watch a query and print every update until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := appsync.ParseCachePolicy(cachePolicy)
			if err != nil {
				return err
			}
			return runStream(cmd, *configPath, &flags, args, func(client *appsync.Client, req graphql.PostRequest, opts ...publishers.Option) publishers.Publisher[publishers.Result] {
				return publishers.WatchPublisher(client, req, append(opts, publishers.WithCachePolicy(policy))...)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&cachePolicy, "cache-policy", appsync.DefaultCachePolicy.String(), "Cache policy of the initial fetch")
	return cmd
}

func subscribeCmd(configPath *string) *cobra.Command {
	var flags streamFlags
	cmd := &cobra.Command{
		Use:   "subscribe [document]",
		Short: "Subscribe and print every message until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd, *configPath, &flags, args, func(client *appsync.Client, req graphql.PostRequest, opts ...publishers.Option) publishers.Publisher[publishers.Result] {
				return publishers.SubscribePublisher(client, req, opts...)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

type streamFactory func(client *appsync.Client, req graphql.PostRequest, opts ...publishers.Option) publishers.Publisher[publishers.Result]

func runStream(cmd *cobra.Command, configPath string, flags *streamFlags, args []string, newPublisher streamFactory) error {
	req, err := flags.request(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withClient(ctx, configPath, func(client *appsync.Client, queue appsync.DispatchQueue) error {
		values, errs := publishers.Channel(ctx, newPublisher(client, req,
			publishers.WithContext(ctx),
			publishers.WithQueue(queue),
			publishers.WithFailureMode(flags.failureMode())))
		for result := range values {
			if result.Err != nil {
				slog.Warn("stream error", "error", result.Err)
				continue
			}
			if _, err := pp.Fprintln(cmd.OutOrStdout(), result.Value); err != nil {
				return err
			}
		}
		if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
