package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sony/appsync-publisher-go/internal/appsynctest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	root := rootCmd()
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, endpoint string, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "appsync.yaml")
	content := fmt.Sprintf("version: 1\nendpoint: %s/graphql\n%s", endpoint, extra)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("output: %q", out)
	}
}

func TestQueryAndMutate(t *testing.T) {
	server := appsynctest.NewAppSyncEchoServer()
	defer server.Close()
	cfg := writeConfig(t, server.URL, fmt.Sprintf("cache:\n  path: %s\n", filepath.Join(t.TempDir(), "cache.db")))

	out, err := run(t, "query", "-c", cfg, "query Message() { message }")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, appsynctest.InitialMessage) {
		t.Fatalf("query output: %s", out)
	}

	out, err = run(t, "mutate", "-c", cfg,
		"--variables", `{"message": "Hi, CLI!"}`,
		"mutation Echo($message: String!) { echo(message: $message) }")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Hi, CLI!") {
		t.Fatalf("mutate output: %s", out)
	}

	// the first query was cached in the sqlite store
	out, err = run(t, "query", "-c", cfg, "--cache-policy", "returnCacheDataDontFetch", "query Message() { message }")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, appsynctest.InitialMessage) {
		t.Fatalf("cached query output: %s", out)
	}

	if _, err := run(t, "clear-cache", "-c", cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "query", "-c", cfg, "--cache-policy", "returnCacheDataDontFetch", "query Message() { message }"); err == nil {
		t.Fatal("cache survived clear-cache")
	}
}

func TestUpload(t *testing.T) {
	server := appsynctest.NewAppSyncEchoServer()
	defer server.Close()
	cfg := writeConfig(t, server.URL, "")

	file := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(file, []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "upload", "-c", cfg, "--attach", "file="+file, "mutation Upload($file: Upload!) { upload(file: $file) }")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "notes.txt") {
		t.Fatalf("upload output: %s", out)
	}
}

func TestInvalidInput(t *testing.T) {
	tests := map[string][]string{
		"missing config":       {"query", "-c", filepath.Join(t.TempDir(), "none.yaml"), "query { message }"},
		"unknown cache policy": {"query", "--cache-policy", "sometimes", "query { message }"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRequestFlags(t *testing.T) {
	f := requestFlags{variables: `{"a": 1}`, operationName: "Op"}
	req, err := f.request([]string{"query Op { a }"})
	if err != nil {
		t.Fatal(err)
	}
	if req.Query != "query Op { a }" || *req.OperationName != "Op" || string(*req.Variables) != `{"a": 1}` {
		t.Fatalf("request: %+v", req)
	}

	if _, err := (&requestFlags{}).request(nil); err == nil {
		t.Fatal("missing document accepted")
	}
	if _, err := (&requestFlags{variables: "{"}).request([]string{"query { a }"}); err == nil {
		t.Fatal("invalid variables accepted")
	}

	doc := filepath.Join(t.TempDir(), "query.graphql")
	if err := os.WriteFile(doc, []byte("query { fromFile }"), 0o644); err != nil {
		t.Fatal(err)
	}
	req, err = (&requestFlags{file: doc}).request([]string{"ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if req.Query != "query { fromFile }" {
		t.Fatalf("query: %q", req.Query)
	}
}

func TestParseAttachments(t *testing.T) {
	files, err := parseAttachments([]string{"avatar=/tmp/me.png", "docs=a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].FieldName != "avatar" || files[0].OriginalName != "me.png" || files[0].MimeType != "image/png" {
		t.Fatalf("files: %+v", files)
	}
	for _, bad := range []string{"noequals", "=path", "field="} {
		if _, err := parseAttachments([]string{bad}); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}
