package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func readMultipart(t *testing.T, body []byte, contentType string) map[string][]byte {
	t.Helper()
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatal(err)
	}
	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	parts := map[string][]byte{}
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(p)
		if err != nil {
			t.Fatal(err)
		}
		parts[p.FormName()] = b
	}
	return parts
}

func TestNewMultipartBody(t *testing.T) {
	variables := json.RawMessage(`{"caption": "hello"}`)
	tests := []struct {
		name      string
		files     []File
		wantMap   map[string][]string
		wantVars  map[string]interface{}
		wantParts map[string]string
	}{
		{
			name:      "single file",
			files:     []File{{FieldName: "file", OriginalName: "a.txt", Data: []byte("alpha")}},
			wantMap:   map[string][]string{"0": {"variables.file"}},
			wantVars:  map[string]interface{}{"caption": "hello", "file": nil},
			wantParts: map[string]string{"0": "alpha"},
		},
		{
			name: "multiple files with the same field",
			files: []File{
				{FieldName: "files", OriginalName: "a.txt", Data: []byte("alpha")},
				{FieldName: "files", OriginalName: "b.txt", Data: []byte("beta")},
			},
			wantMap:   map[string][]string{"0": {"variables.files.0"}, "1": {"variables.files.1"}},
			wantVars:  map[string]interface{}{"caption": "hello", "files": []interface{}{nil, nil}},
			wantParts: map[string]string{"0": "alpha", "1": "beta"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType, err := newMultipartBody(PostRequest{Query: "mutation", Variables: &variables}, tt.files)
			if err != nil {
				t.Fatal(err)
			}
			parts := readMultipart(t, body, contentType)

			var operations struct {
				Query     string                 `json:"query"`
				Variables map[string]interface{} `json:"variables"`
			}
			if err := json.Unmarshal(parts["operations"], &operations); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(operations.Variables, tt.wantVars) {
				t.Errorf("variables: got %+v, want %+v", operations.Variables, tt.wantVars)
			}

			var fileMap map[string][]string
			if err := json.Unmarshal(parts["map"], &fileMap); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(fileMap, tt.wantMap) {
				t.Errorf("map: got %+v, want %+v", fileMap, tt.wantMap)
			}
			for name, want := range tt.wantParts {
				if string(parts[name]) != want {
					t.Errorf("part %s: got %q, want %q", name, parts[name], want)
				}
			}
		})
	}
}

func TestNewMultipartBodyErrors(t *testing.T) {
	if _, _, err := newMultipartBody(PostRequest{}, nil); err == nil {
		t.Fatal("no files should fail")
	}
	if _, _, err := newMultipartBody(PostRequest{}, []File{{Data: []byte("x")}}); err == nil {
		t.Fatal("empty field name should fail")
	}
	if _, _, err := newMultipartBody(PostRequest{}, []File{{FieldName: "file"}}); err == nil {
		t.Fatal("file without content should fail")
	}
}

func TestNewMultipartBodyFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(path, []byte("from disk"), 0o600); err != nil {
		t.Fatal(err)
	}
	body, contentType, err := newMultipartBody(PostRequest{}, []File{{FieldName: "file", Path: path}})
	if err != nil {
		t.Fatal(err)
	}
	parts := readMultipart(t, body, contentType)
	if string(parts["0"]) != "from disk" {
		t.Fatalf("got %q", parts["0"])
	}
}

func TestUploadAsync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, header, err := r.FormFile("0")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := json.Marshal(Response{Data: map[string]interface{}{"upload": header.Filename}})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}))
	defer server.Close()

	type ret struct {
		response *Response
		err      error
	}
	ch := make(chan ret, 1)
	client := NewClient(server.URL)
	cancel, err := client.UploadAsync(context.Background(), http.Header{}, PostRequest{Query: "mutation"},
		[]File{{FieldName: "file", OriginalName: "a.txt", MimeType: "text/plain", Data: []byte("alpha")}},
		func(r *Response, err error) { ch <- ret{r, err} })
	if err != nil {
		t.Fatal(err)
	}
	if cancel == nil {
		t.Fatal("cancel is nil")
	}
	got := <-ch
	if got.err != nil {
		t.Fatal(got.err)
	}
	name := new(string)
	if err := got.response.DataAs(name); err != nil {
		t.Fatal(err)
	}
	if *name != "a.txt" {
		t.Fatalf("got %q", *name)
	}
}
