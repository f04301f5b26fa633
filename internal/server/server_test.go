package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/amqpdetective/internal/config"
	"github.com/danmuck/amqpdetective/internal/detective"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/render"
	"github.com/danmuck/amqpdetective/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, nil)
}

func wire(t *testing.T, src frame.Source, names ...string) []byte {
	t.Helper()
	var msgs []frame.Message
	for _, name := range names {
		f, err := frame.NewMethodFrame(src, 1, name, nil)
		require.NoError(t, err)
		msgs = append(msgs, f)
	}
	data, err := frame.Encode(msgs)
	require.NoError(t, err)
	return data
}

func multipartBody(t *testing.T, parts map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range parts {
		fw, err := mw.CreateFormFile(name, name+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, "ok", health["status"])

	rr = httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "amqpdetective_http_requests_total")
}

func TestAnalyzeNamedRule(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	body, contentType := multipartBody(t, map[string][]byte{
		"client": wire(t, frame.SourceClient, "basic.get"),
		"server": wire(t, frame.SourceServer, "basic.get-empty"),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze?rule=get", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report render.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.True(t, report.Matched)
	require.Equal(t, detective.OutcomeMatched, report.Outcome)
	require.Len(t, report.Messages, 2)
	require.Equal(t, "basic.get-empty", report.Messages[1].Name)
}

func TestAnalyzeRootMismatchIsNotAnError(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	body, contentType := multipartBody(t, map[string][]byte{
		"client": append([]byte("AMQP\x00\x00\x09\x01"), wire(t, frame.SourceClient, "connection.open")...),
		"server": append(wire(t, frame.SourceServer, "connection.start"), 0x08),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var report render.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.False(t, report.Matched)
	require.Equal(t, 3, report.Flagged)
	require.NotEmpty(t, report.Mismatch)
	require.NotEmpty(t, report.ServerError)
	for _, m := range report.Messages {
		require.True(t, m.OutOfOrder)
	}
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, func(cfg *config.Config) { cfg.Analysis.MaxCaptureBytes = 16 })

	cases := []struct {
		name   string
		parts  map[string][]byte
		query  string
		status int
	}{
		{"missing server", map[string][]byte{"client": nil}, "", http.StatusBadRequest},
		{"unknown rule", map[string][]byte{"client": nil, "server": nil}, "?rule=nope", http.StatusBadRequest},
		{"capture too large", map[string][]byte{"client": make([]byte, 17), "server": nil}, "", http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		body, contentType := multipartBody(t, tc.parts)
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze"+tc.query, body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.HTTPRouter().ServeHTTP(rr, req)
		require.Equal(t, tc.status, rr.Code, "%s: %s", tc.name, rr.Body.String())
	}
}

func TestGrammarListing(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/grammar", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Root  string     `json:"root"`
		Rules []ruleView `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "protocol", body.Root)
	require.Equal(t, "protocol", body.Rules[0].Name)
	require.Equal(t, []string{"open-connection", "?use-connection", "close-connection"}, body.Rules[0].Steps)
}

func TestRunStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := newTestServer(t, func(cfg *config.Config) { cfg.Server.Addr = addr })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not stop")
	}
}
