package main

import (
	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/publishers"
	"github.com/spf13/cobra"
)

func queryCmd(configPath *string) *cobra.Command {
	var (
		flags       requestFlags
		cachePolicy string
	)
	cmd := &cobra.Command{
		Use:   "query [document]",
		Short: "Fetch a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args)
			if err != nil {
				return err
			}
			policy, err := appsync.ParseCachePolicy(cachePolicy)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withClient(ctx, *configPath, func(client *appsync.Client, queue appsync.DispatchQueue) error {
				return printOne(ctx, cmd, publishers.FetchPublisher(client, req,
					publishers.WithCachePolicy(policy),
					publishers.WithContext(ctx),
					publishers.WithQueue(queue)))
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&cachePolicy, "cache-policy", appsync.DefaultCachePolicy.String(), "Cache policy")
	return cmd
}

func mutateCmd(configPath *string) *cobra.Command {
	var (
		flags   requestFlags
		noStore bool
	)
	cmd := &cobra.Command{
		Use:   "mutate [document]",
		Short: "Perform a mutation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withClient(ctx, *configPath, func(client *appsync.Client, queue appsync.DispatchQueue) error {
				return printOne(ctx, cmd, publishers.PerformPublisher(client, req,
					publishers.WithPublishResultToStore(!noStore),
					publishers.WithContext(ctx),
					publishers.WithQueue(queue)))
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not write the result to the cache")
	return cmd
}

func clearCacheCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withClient(ctx, *configPath, func(client *appsync.Client, queue appsync.DispatchQueue) error {
				values, errs := publishers.Channel[struct{}](ctx, publishers.ClearCachePublisher(client, publishers.WithQueue(queue)))
				for range values {
					cmd.Println("cache cleared")
				}
				return <-errs
			})
		},
	}
}
