package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/karupanerura/intcalc/internal/config"
	"github.com/karupanerura/intcalc/internal/expression"
	"github.com/karupanerura/intcalc/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	basePath         = "/v1/evaluations"
	batchMethodPath  = basePath + ":batchEvaluate"
	batchConcurrency = 8
	maxBatchSize     = 1000
)

type evaluation struct {
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	State      string    `json:"state"`
	Result     *int64    `json:"result,omitempty"`
	Error      any       `json:"error,omitempty"`
	CreateTime time.Time `json:"createTime"`
}

type httpHandler struct {
	config      atomic.Value
	idBase      uint64
	evaluations sync.Map
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == basePath:
		switch r.Method {
		case http.MethodGet:
			h.listEvaluations(w, r)
			return

		case http.MethodPost:
			h.createEvaluation(w, r)
			return

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

	case r.URL.Path == batchMethodPath:
		if r.Method == http.MethodPost {
			h.batchEvaluate(w, r)
			return
		}
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return

	case strings.HasPrefix(r.URL.Path, basePath+"/"):
		id := strings.TrimPrefix(r.URL.Path, basePath+"/")
		if id == "" || strings.ContainsRune(id, '/') {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			h.getEvaluation(w, r, id)
			return

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

	default:
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
}

func (h *httpHandler) evaluator() *expression.Evaluator {
	return h.config.Load().(*config.Config).Evaluator()
}

func (h *httpHandler) evaluate(ev *expression.Evaluator, source string) *evaluation {
	id := fmt.Sprintf("%012x", atomic.AddUint64(&h.idBase, 1))
	ret := &evaluation{
		Name:       basePath + "/" + id,
		Expression: source,
		CreateTime: time.Now().UTC(),
	}

	v, err := ev.EvaluateValue(expression.ParseExpr(source))
	if err != nil {
		ret.State = "FAILED"
		var exception types.Exception
		if errors.As(err, &exception) {
			ret.Error = exception.Exception()
		} else {
			log.Printf("failed to evaluate expression: %v", err)
			ret.Error = err.Error()
		}
	} else {
		ret.State = "SUCCEEDED"
		ret.Result = &v
	}

	h.evaluations.Store(id, ret)
	return ret
}

func (h *httpHandler) createEvaluation(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req struct {
		Expression *string `json:"expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.Expression == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ev := h.evaluator()
	if err := resJSON(w, http.StatusOK, h.evaluate(ev, *req.Expression)); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (h *httpHandler) batchEvaluate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req struct {
		Expressions []string `json:"expressions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if len(req.Expressions) > maxBatchSize {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ev := h.evaluator()
	results := make([]*evaluation, len(req.Expressions))
	eg, ctx := errgroup.WithContext(r.Context())
	eg.SetLimit(batchConcurrency)
	for i, source := range req.Expressions {
		i, source := i, source
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = h.evaluate(ev, source)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Printf("batch evaluation aborted: %v", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := resJSON(w, http.StatusOK, map[string][]*evaluation{"evaluations": results}); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (h *httpHandler) listEvaluations(w http.ResponseWriter, r *http.Request) {
	results := []*evaluation{}
	h.evaluations.Range(func(key, value any) bool {
		results = append(results, value.(*evaluation))
		return true
	})
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreateTime.Equal(results[j].CreateTime) {
			return results[i].Name < results[j].Name
		}
		return results[i].CreateTime.Before(results[j].CreateTime)
	})

	if err := resJSON(w, http.StatusOK, map[string][]*evaluation{"evaluations": results}); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (h *httpHandler) getEvaluation(w http.ResponseWriter, r *http.Request, id string) {
	ret, ok := h.evaluations.Load(id)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := resJSON(w, http.StatusOK, ret.(*evaluation)); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

// NewHTTPHandler serves the evaluation API. When reloadInterval is positive
// the loader is called again on that interval until ctx is done.
func NewHTTPHandler(ctx context.Context, loader func() (*config.Config, error), reloadInterval time.Duration) (http.Handler, error) {
	cfg, err := loader()
	if err != nil {
		return nil, err
	}

	h := &httpHandler{}
	h.config.Store(cfg)
	if reloadInterval > 0 {
		go h.reload(ctx, loader, reloadInterval)
	}
	return h, nil
}

func (h *httpHandler) reload(ctx context.Context, loader func() (*config.Config, error), interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cfg, err := loader()
			if err != nil {
				log.Printf("failed to reload config: %v", err)
				continue
			}
			h.config.Store(cfg)
		}
	}
}

func resJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)+1))
	w.WriteHeader(status)

	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("w.Write: %w", err)
	}
	if _, err = io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}
	return nil
}
