package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/karupanerura/intcalc/internal/config"
	"github.com/karupanerura/intcalc/internal/expression"
	"github.com/karupanerura/intcalc/internal/server"
)

type evaluation struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	State      string `json:"state"`
	Result     *int64 `json:"result"`
	Error      *struct {
		Tags    []string `json:"tags"`
		Message string   `json:"message"`
	} `json:"error"`
}

func newServer(t *testing.T, loader func() (*config.Config, error), interval time.Duration) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler, err := server.NewHTTPHandler(ctx, loader, interval)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func defaultLoader() (*config.Config, error) {
	return config.Default(), nil
}

func doJSON(t *testing.T, method, url, body string, v any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil && res.StatusCode == http.StatusOK {
		if err := json.Unmarshal(b, v); err != nil {
			t.Fatalf("json.Unmarshal(%s): %v", b, err)
		}
	}
	return res.StatusCode
}

func TestCreateAndGetEvaluation(t *testing.T) {
	t.Parallel()

	srv := newServer(t, defaultLoader, 0)

	var created evaluation
	if status := doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"expression":"2+3*4"}`, &created); status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if created.State != "SUCCEEDED" || created.Result == nil || *created.Result != 14 {
		t.Fatalf("unexpected evaluation: %+v", created)
	}

	var got evaluation
	if status := doJSON(t, http.MethodGet, srv.URL+created.Name, "", &got); status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("unexpected evaluation (-want +got):\n%s", diff)
	}

	var failed evaluation
	if status := doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"expression":"5/0"}`, &failed); status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if failed.State != "FAILED" || failed.Result != nil || failed.Error == nil {
		t.Fatalf("unexpected evaluation: %+v", failed)
	}
	if diff := cmp.Diff([]string{"ZeroDivisionError"}, failed.Error.Tags); diff != "" {
		t.Errorf("unexpected tags (-want +got):\n%s", diff)
	}

	var list struct {
		Evaluations []evaluation `json:"evaluations"`
	}
	if status := doJSON(t, http.MethodGet, srv.URL+"/v1/evaluations", "", &list); status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if len(list.Evaluations) != 2 || list.Evaluations[0].Name != created.Name || list.Evaluations[1].Name != failed.Name {
		t.Errorf("unexpected list: %+v", list.Evaluations)
	}
}

func TestBatchEvaluate(t *testing.T) {
	t.Parallel()

	srv := newServer(t, defaultLoader, 0)

	var res struct {
		Evaluations []evaluation `json:"evaluations"`
	}
	body := `{"expressions":["10-3-2","--5","5 5","7/2","-7/2"]}`
	if status := doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations:batchEvaluate", body, &res); status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}

	type summary struct {
		Expression string
		State      string
		Result     int64
	}
	got := make([]summary, len(res.Evaluations))
	for i, ev := range res.Evaluations {
		got[i] = summary{Expression: ev.Expression, State: ev.State}
		if ev.Result != nil {
			got[i].Result = *ev.Result
		}
	}

	want := []summary{
		{Expression: "10-3-2", State: "SUCCEEDED", Result: 5},
		{Expression: "--5", State: "SUCCEEDED", Result: 5},
		{Expression: "5 5", State: "FAILED"},
		{Expression: "7/2", State: "SUCCEEDED", Result: 3},
		{Expression: "-7/2", State: "SUCCEEDED", Result: -3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected evaluations (-want +got):\n%s", diff)
	}
}

func TestHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := newServer(t, defaultLoader, 0)

	for _, tt := range []struct {
		method string
		path   string
		body   string
		status int
	}{
		{method: http.MethodGet, path: "/", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/v1/evaluations/unknown", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/v1/evaluations/a/b", status: http.StatusNotFound},
		{method: http.MethodDelete, path: "/v1/evaluations", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/v1/evaluations:batchEvaluate", status: http.StatusMethodNotAllowed},
		{method: http.MethodDelete, path: "/v1/evaluations/000000000001", status: http.StatusMethodNotAllowed},
		{method: http.MethodPost, path: "/v1/evaluations", body: `{`, status: http.StatusBadRequest},
		{method: http.MethodPost, path: "/v1/evaluations", body: `{}`, status: http.StatusBadRequest},
		{method: http.MethodPost, path: "/v1/evaluations:batchEvaluate", body: `[`, status: http.StatusBadRequest},
	} {
		if status := doJSON(t, tt.method, srv.URL+tt.path, tt.body, nil); status != tt.status {
			t.Errorf("%s %s: expect %d but got %d", tt.method, tt.path, tt.status, status)
		}
	}
}

func TestReloadConfig(t *testing.T) {
	t.Parallel()

	var calls int32
	loader := func() (*config.Config, error) {
		cfg := config.Default()
		if atomic.AddInt32(&calls, 1) > 1 {
			cfg.Overflow = expression.OverflowSaturate
		}
		return cfg, nil
	}
	srv := newServer(t, loader, 10*time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for {
		var ev evaluation
		if status := doJSON(t, http.MethodPost, srv.URL+"/v1/evaluations", `{"expression":"9223372036854775807+1"}`, &ev); status != http.StatusOK {
			t.Fatalf("unexpected status: %d", status)
		}
		if ev.State == "SUCCEEDED" {
			if *ev.Result != 9223372036854775807 {
				t.Errorf("expect saturated result but got %d", *ev.Result)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("config was not reloaded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
