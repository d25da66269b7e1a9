package graphql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
)

// File is a file attached to a GraphQL multipart request.
//
// FieldName is the operation variable the file binds to. Either Data or Path
// must be set; Path is read when the request is built.
type File struct {
	FieldName    string
	OriginalName string
	MimeType     string
	Data         []byte
	Path         string
}

func (f *File) content() ([]byte, error) {
	if f.Data != nil {
		return f.Data, nil
	}
	if f.Path == "" {
		return nil, fmt.Errorf("file %q has no content", f.FieldName)
	}
	return os.ReadFile(f.Path)
}

func (f *File) filename() string {
	if f.OriginalName != "" {
		return f.OriginalName
	}
	if f.Path != "" {
		return filepath.Base(f.Path)
	}
	return f.FieldName
}

func (f *File) mimeType() string {
	if f.MimeType != "" {
		return f.MimeType
	}
	return "application/octet-stream"
}

// Multipart is an encoded GraphQL multipart request.
// Body is sent as is, so a signature computed over it stays valid.
type Multipart struct {
	Request     PostRequest
	Files       []File
	Body        []byte
	ContentType string
}

// NewMultipart encodes the request as a GraphQL multipart request:
// an "operations" part with null placeholders, a "map" part binding each
// file part to its variable path, and one part per file.
func NewMultipart(request PostRequest, files []File) (*Multipart, error) {
	body, contentType, err := newMultipartBody(request, files)
	if err != nil {
		return nil, err
	}
	return &Multipart{Request: request, Files: files, Body: body, ContentType: contentType}, nil
}

func newMultipartBody(request PostRequest, files []File) ([]byte, string, error) {
	if len(files) == 0 {
		return nil, "", errors.New("no files to upload")
	}

	vars, err := request.variables()
	if err != nil {
		return nil, "", err
	}

	counts := map[string]int{}
	for _, f := range files {
		if f.FieldName == "" {
			return nil, "", errors.New("file field name is empty")
		}
		counts[f.FieldName]++
	}

	fileMap := map[string][]string{}
	seen := map[string]int{}
	for i, f := range files {
		path := "variables." + f.FieldName
		if counts[f.FieldName] > 1 {
			path = fmt.Sprintf("%s.%d", path, seen[f.FieldName])
			seen[f.FieldName]++
			if _, ok := vars[f.FieldName].([]interface{}); !ok {
				vars[f.FieldName] = make([]interface{}, counts[f.FieldName])
			}
		} else {
			vars[f.FieldName] = nil
		}
		fileMap[strconv.Itoa(i)] = []string{path}
	}

	operations, err := json.Marshal(struct {
		Query         string                 `json:"query"`
		OperationName *string                `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}{request.Query, request.OperationName, vars})
	if err != nil {
		return nil, "", err
	}
	mapping, err := json.Marshal(fileMap)
	if err != nil {
		return nil, "", err
	}

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	if err := w.WriteField("operations", string(operations)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("map", string(mapping)); err != nil {
		return nil, "", err
	}
	for i, f := range files {
		content, err := f.content()
		if err != nil {
			return nil, "", err
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%d"; filename=%q`, i, f.filename()))
		h.Set("Content-Type", f.mimeType())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), w.FormDataContentType(), nil
}
