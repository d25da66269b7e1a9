package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/k0kubun/pp"
	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
	"github.com/sony/appsync-publisher-go/internal/config"
	"github.com/sony/appsync-publisher-go/publishers"
	"github.com/spf13/cobra"
)

type requestFlags struct {
	file          string
	variables     string
	operationName string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read the document from a file instead of the argument")
	cmd.Flags().StringVar(&f.variables, "variables", "", "Operation variables as a JSON object")
	cmd.Flags().StringVar(&f.operationName, "operation-name", "", "Operation to run when the document has several")
}

// request builds a PostRequest from the first argument or --file.
func (f *requestFlags) request(args []string) (graphql.PostRequest, error) {
	var query string
	switch {
	case f.file != "":
		b, err := os.ReadFile(f.file)
		if err != nil {
			return graphql.PostRequest{}, fmt.Errorf("reading document: %w", err)
		}
		query = string(b)
	case len(args) > 0:
		query = args[0]
	default:
		return graphql.PostRequest{}, errors.New("a document argument or --file is required")
	}

	req := graphql.PostRequest{Query: query}
	if f.operationName != "" {
		name := f.operationName
		req.OperationName = &name
	}
	if f.variables != "" {
		if !json.Valid([]byte(f.variables)) {
			return graphql.PostRequest{}, fmt.Errorf("invalid variables: %s", f.variables)
		}
		raw := json.RawMessage(f.variables)
		req.Variables = &raw
	}
	return req, nil
}

// withClient loads the config and runs fn with a client and a serial
// delivery queue, closing both afterwards.
func withClient(ctx context.Context, configPath string, fn func(client *appsync.Client, queue appsync.DispatchQueue) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	queue := appsync.NewSerialQueue()
	defer queue.Close()
	return fn(client, queue)
}

// printOne prints the single value of a one-shot publisher.
func printOne[T any](ctx context.Context, cmd *cobra.Command, publisher publishers.Publisher[T]) error {
	values, errs := publishers.Channel(ctx, publisher)
	for v := range values {
		if _, err := pp.Fprintln(cmd.OutOrStdout(), v); err != nil {
			return err
		}
	}
	return <-errs
}
