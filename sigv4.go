package appsync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkv2_v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	sdkv1_v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
)

const signingService = "appsync"

var errUnsupportedSigner = errors.New("unsupported signer")

type sigv4 interface {
	signHTTP(payload []byte) (http.Header, error)
	signWS(payload []byte) (map[string]string, error)
}

type _signer struct {
	sdkSigner any
	region    string
	url       string

	creds *aws.Credentials
}

func (s *_signer) sign(req *http.Request, payload []byte) error {
	switch signer := s.sdkSigner.(type) {
	case *sdkv1_v4.Signer:
		slog.Debug("signing request using sdk v1")
		_, err := signer.Sign(req, bytes.NewReader(payload), signingService, s.region, time.Now())
		return err
	case *sdkv2_v4.Signer:
		slog.Debug("signing request using sdk v2")
		if s.creds == nil {
			return errors.New("sdk v2 signer requires credentials")
		}
		hash := sha256.Sum256(payload)
		return signer.SignHTTP(context.TODO(), *s.creds, req, hex.EncodeToString(hash[:]), signingService, s.region, time.Now())
	}
	return errUnsupportedSigner
}

func (s *_signer) signHTTP(payload []byte) (http.Header, error) {
	slog.Debug("signing http request", "payload", string(payload))
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewBuffer(payload))
	if err != nil {
		slog.Error("error creating signing request", "error", err)
		return nil, err
	}
	if err := s.sign(req, payload); err != nil {
		slog.Error("error signing request", "error", err)
		return nil, err
	}
	return req.Header, nil
}

func (s *_signer) signWS(payload []byte) (map[string]string, error) {
	url := s.url
	if bytes.Equal(payload, []byte("{}")) {
		url = url + "/connect"
	}
	slog.Debug("signing ws", "url", url, "payload", string(payload))
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		slog.Error("error creating signing request", "error", err)
		return nil, err
	}
	req.Header.Add("accept", "application/json, text/javascript")
	req.Header.Add("content-encoding", "amz-1.0")
	req.Header.Add("content-type", "application/json; charset=UTF-8")

	if err := s.sign(req, payload); err != nil {
		slog.Error("error signing request", "error", err)
		return nil, err
	}

	headers := map[string]string{
		"accept":           req.Header.Get("accept"),
		"content-encoding": req.Header.Get("content-encoding"),
		"content-type":     req.Header.Get("content-type"),
		"host":             req.Host,
		"x-amz-date":       req.Header.Get("x-amz-date"),
		"Authorization":    req.Header.Get("Authorization"),
	}
	if _, ok := s.sdkSigner.(*sdkv2_v4.Signer); ok {
		headers["content-length"] = strconv.FormatInt(req.ContentLength, 10)
	}
	if token := req.Header.Get("X-Amz-Security-Token"); token != "" {
		headers["X-Amz-Security-Token"] = token
	}
	slog.Debug("signed ws headers", "headers", headers)
	return headers, nil
}
