package main

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	appsync "github.com/sony/appsync-publisher-go"
	"github.com/sony/appsync-publisher-go/graphql"
	"github.com/sony/appsync-publisher-go/publishers"
	"github.com/spf13/cobra"
)

func uploadCmd(configPath *string) *cobra.Command {
	var (
		flags requestFlags
		files []string
	)
	cmd := &cobra.Command{
		Use:   "upload [document] --attach field=path...",
		Short: "Run an operation with file uploads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args)
			if err != nil {
				return err
			}
			attachments, err := parseAttachments(files)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withClient(ctx, *configPath, func(client *appsync.Client, queue appsync.DispatchQueue) error {
				return printOne(ctx, cmd, publishers.UploadPublisher(client, req, attachments,
					publishers.WithContext(ctx),
					publishers.WithQueue(queue)))
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&files, "attach", nil, "File to upload as field=path, repeatable")
	_ = cmd.MarkFlagRequired("attach")
	return cmd
}

func parseAttachments(specs []string) ([]graphql.File, error) {
	files := make([]graphql.File, 0, len(specs))
	for _, spec := range specs {
		field, path, ok := strings.Cut(spec, "=")
		if !ok || field == "" || path == "" {
			return nil, fmt.Errorf("invalid attachment %q, want field=path", spec)
		}
		files = append(files, graphql.File{
			FieldName:    field,
			OriginalName: filepath.Base(path),
			MimeType:     mime.TypeByExtension(filepath.Ext(path)),
			Path:         path,
		})
	}
	return files, nil
}
