package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"

	eventbus "github.com/graphplan/graphplan/internal/eventbus"
	events "github.com/graphplan/graphplan/internal/events"
	language "github.com/graphplan/graphplan/internal/language"
	merger "github.com/graphplan/graphplan/internal/merger"
	reqid "github.com/graphplan/graphplan/internal/reqid"
	schema "github.com/graphplan/graphplan/internal/schema"
)

const errBodyTooLargeMessage = "request body too large"

// Handler is an http.Handler that serves query plans: it parses an incoming
// GraphQL request, merges it against the configured schema, and responds with
// the resolved field tree as JSON.
type Handler struct {
	sch *schema.Schema
	opt Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Logger receives request-level log records. Defaults to logr.Discard.
	Logger logr.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithLogger(log logr.Logger) Option { return func(o *Options) { o.Logger = log } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a plan handler for the given schema.
func New(sch *schema.Schema, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second, Logger: logr.Discard()}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{sch: sch, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse("method not allowed"), h.opt.Pretty)
		return
	}

	req, perr := parseRequest(r, h.opt.MaxBodyBytes)
	if perr != nil {
		status = http.StatusBadRequest
		if perr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(perr.Message), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	h.opt.Logger.V(1).Info("planning request",
		"requestID", rid, "operationName", req.OperationName)

	res, merr := h.planOne(ctx, req)
	if merr != nil {
		status = http.StatusBadRequest
		h.opt.Logger.Error(merr, "plan failed", "requestID", rid)
		writeJSON(w, status, errorResponse(merr.Error()), h.opt.Pretty)
		return
	}
	writeJSON(w, status, res, h.opt.Pretty)
}

func (h *Handler) planOne(ctx context.Context, req PlanRequest) (*planResponse, error) {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	eventbus.Publish(ctx, events.PlanStart{Query: req.Query, OperationName: req.OperationName})
	root, err := merger.MergeOperation(h.sch, doc, req.OperationName, req.Variables)
	fieldCount := 0
	if root != nil {
		fieldCount = len(root.SubFields)
	}
	eventbus.Publish(ctx, events.PlanFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		FieldCount:    fieldCount,
		Err:           err,
		Duration:      time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return &planResponse{Plan: root}, nil
}

// ------------------ Request parsing ------------------

type PlanRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type planResponse struct {
	Plan *merger.ResolvedField `json:"plan"`
}

func parseRequest(r *http.Request, maxBody int64) (PlanRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return PlanRequest{}, &language.Error{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return PlanRequest{}, &language.Error{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return PlanRequest{Query: q, Variables: vars, OperationName: op}, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return PlanRequest{}, &language.Error{Message: "unsupported Content-Type"}
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return PlanRequest{}, &language.Error{Message: "failed to read body"}
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return PlanRequest{}, &language.Error{Message: errBodyTooLargeMessage}
	}

	var req PlanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return PlanRequest{}, &language.Error{Message: "invalid JSON"}
	}
	if req.Query == "" {
		return PlanRequest{}, &language.Error{Message: "missing 'query'"}
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil
}

// ------------------ Response formatting ------------------

type responseError struct {
	Message string `json:"message"`
}

type errorBody struct {
	Errors []responseError `json:"errors"`
}

func errorResponse(message string) errorBody {
	return errorBody{Errors: []responseError{{Message: message}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
