package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	schema "github.com/graphplan/graphplan/internal/schema"
)

const testSDL = `
type Query {
  pet: Pet
  greeting(name: String = "world"): String
}

type Pet {
  name: String
  age: Int
}
`

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	h, err := New(sch, opts...)
	require.NoError(t, err)
	return h
}

func postPlan(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type planEnvelope struct {
	Plan struct {
		Fields []struct {
			Name   string `json:"name"`
			Alias  string `json:"alias"`
			Type   string `json:"type"`
			Fields []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"fields"`
			Arguments map[string]any `json:"arguments"`
		} `json:"fields"`
	} `json:"plan"`
}

func TestServer_PostPlan(t *testing.T) {
	h := newTestHandler(t)
	rec := postPlan(t, h, `{"query": "{ pet { name age } }"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var env planEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Plan.Fields, 1)
	pet := env.Plan.Fields[0]
	require.Equal(t, "pet", pet.Name)
	require.Equal(t, "Pet", pet.Type)
	require.Len(t, pet.Fields, 2)
	require.Equal(t, "name", pet.Fields[0].Name)
	require.Equal(t, "age", pet.Fields[1].Name)
	require.Equal(t, "Int", pet.Fields[1].Type)
}

func TestServer_PostPlanWithVariables(t *testing.T) {
	h := newTestHandler(t)
	rec := postPlan(t, h, `{
		"query": "query($n: String) { greeting(name: $n) }",
		"variables": {"n": "team"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env planEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, map[string]any{"name": "team"}, env.Plan.Fields[0].Arguments)
}

func TestServer_GetPlan(t *testing.T) {
	h := newTestHandler(t)
	target := "/plan?query=" + url.QueryEscape(`{ greeting }`)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var env planEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "greeting", env.Plan.Fields[0].Name)
}

func TestServer_Errors(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"invalid JSON", `{"query": `, http.StatusBadRequest, "invalid JSON"},
		{"missing query", `{}`, http.StatusBadRequest, "missing 'query'"},
		{"unparsable query", `{"query": "{ pet"}`, http.StatusBadRequest, ""},
		{"unknown operation", `{"query": "query A { pet { name } }", "operationName": "B"}`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postPlan(t, h, tc.body)
			require.Equal(t, tc.status, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotEmpty(t, body.Errors)
			if tc.msg != "" {
				require.Equal(t, tc.msg, body.Errors[0].Message)
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodDelete, "/plan", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_UnsupportedContentType(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(`query=x`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BodyTooLarge(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(16))
	rec := postPlan(t, h, `{"query": "{ pet { name age } }"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	h := newTestHandler(t, WithCORS("https://app.example"))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/plan", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/plan", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServer_PrettyOutput(t *testing.T) {
	h := newTestHandler(t, WithPretty())
	rec := postPlan(t, h, `{"query": "{ greeting }"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "\n  ")
}
