package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kalambet/permitflow/internal/api"
	"github.com/kalambet/permitflow/internal/config"
	"github.com/kalambet/permitflow/internal/intake"
	"github.com/kalambet/permitflow/internal/permit"
	"github.com/kalambet/permitflow/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// newAppServer serves the real API over an in-memory store.
func newAppServer(t *testing.T) (*httptest.Server, *intake.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := intake.New(intake.Deps{Store: storage.NewMemory(), Logger: logger})
	srv := httptest.NewServer(api.NewAppHandler(api.AppDeps{
		Service: svc,
		Token:   "test-token",
		Logger:  logger,
	}))
	t.Cleanup(srv.Close)
	return srv, svc
}

// useClient makes commands talk to c instead of the configured server.
func useClient(t *testing.T, c *apiClient) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return c, nil }
	t.Cleanup(func() { newAPIClient = old })
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--no-color"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

var ctx = context.Background()

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	if _, err := client.get(ctx, "/health"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.token = ""
	if _, err := client.get(ctx, "/health"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
	if ts.requests[1].Auth != "" {
		t.Errorf("auth = %q, want no header without a token", ts.requests[1].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"invalid API token","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.post(ctx, "/projects", map[string]string{"name": "x"})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "invalid API token") {
		t.Errorf("error = %q, want status and server message", err.Error())
	}
}

func TestStatusCommand_Running(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	resp, err := ts.client().get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status code = %d, want 200", resp.StatusCode)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestBaseURL(t *testing.T) {
	old := serverURL
	defer func() { serverURL = old }()

	tests := []struct {
		server string
		host   string
		port   int
		want   string
	}{
		{"", "0.0.0.0", 3333, "http://127.0.0.1:3333"},
		{"", "", 8080, "http://127.0.0.1:8080"},
		{"", "10.0.0.5", 4000, "http://10.0.0.5:4000"},
		{"", "::1", 4000, "http://[::1]:4000"},
		{"https://permits.example.com/", "0.0.0.0", 3333, "https://permits.example.com"},
	}
	for _, tt := range tests {
		serverURL = tt.server
		got := baseURL(config.ServerConfig{Host: tt.host, Port: tt.port})
		if got != tt.want {
			t.Errorf("baseURL(%q, %q, %d) = %q, want %q", tt.server, tt.host, tt.port, got, tt.want)
		}
	}
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "classify", "--work-types", "interior,exterior", "--interior", "bathroom_remodel", "--exterior", "fencing,roof_modifications")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "otc_review Over-the-Counter Submission Process") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "matched: bathroom_remodel, roof_modifications") {
		t.Errorf("output should list matched rules, got %q", out)
	}
}

func TestClassifyCommand_JSONFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.yaml")
	scope := "workTypes: [property_additions]\npropertyAddition: adu\n"
	if err := os.WriteFile(path, []byte(scope), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "classify", "-f", path, "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp api.ClassifyResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Requirement != permit.InHouseReview {
		t.Errorf("requirement = %q, want in_house_review", resp.Requirement)
	}
	if resp.Details.Title != "In-House Review Process" {
		t.Errorf("details = %+v", resp.Details)
	}
}

func TestClassifyCommand_InvalidScope(t *testing.T) {
	_, err := execute(t, "classify", "--work-types", "exterior")
	if err == nil {
		t.Fatal("expected error when exterior work is missing")
	}
	if !strings.Contains(err.Error(), "invalid scope") {
		t.Errorf("error = %q", err)
	}
}

func TestProjectCreateCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /projects": `{"id":"p-1","name":"Garage","location":"Reno, NV","createdAt":"2026-01-02T03:04:05Z"}`,
	})
	useClient(t, ts.client())

	out, err := execute(t, "project", "create", "--name", "Garage", "--location", "Reno, NV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "p-1" {
		t.Errorf("output = %q, want the project id", out)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/projects" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["name"] != "Garage" || body["location"] != "Reno, NV" {
		t.Errorf("body = %v", body)
	}
}

func TestProjectCreateCommand_MissingArgs(t *testing.T) {
	_, err := execute(t, "project", "create", "--name", "only")
	if err == nil {
		t.Fatal("expected error for missing args")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestQuestionnaireSubmitCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PUT /projects/p-1/questionnaire": `{"id":"q-1","projectId":"p-1","responses":{"workTypes":["exterior"],"exteriorWork":["roof_modifications"]},"permitRequirement":"otc_review","createdAt":"2026-01-02T03:04:05Z","updatedAt":"2026-01-02T03:04:05Z"}`,
	})
	useClient(t, ts.client())

	out, err := execute(t, "questionnaire", "submit", "p-1", "--work-types", "exterior", "--exterior", "roof_modifications")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "otc_review") {
		t.Errorf("output = %q", out)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	var body permit.Payload
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if len(body.ExteriorWork) != 1 || body.ExteriorWork[0] != permit.RoofModifications {
		t.Errorf("body = %+v", body)
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("auth = %q", ts.requests[0].Auth)
	}
}

func TestQuestionnaireSubmitCommand_InvalidScopeSendsNothing(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	useClient(t, ts.client())

	if _, err := execute(t, "questionnaire", "submit", "p-1", "--work-types", "property_additions"); err == nil {
		t.Fatal("expected validation error")
	}
	if len(ts.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(ts.requests))
	}
}

func TestQuestionnaireShowCommand_NoneSubmitted(t *testing.T) {
	srv, svc := newAppServer(t)
	useClient(t, &apiClient{baseURL: srv.URL, token: "test-token", httpClient: srv.Client()})

	p, err := svc.CreateProject(intake.ProjectInput{Name: "Deck", Location: "Boise, ID"})
	if err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "questionnaire", "show", p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want nothing on stdout", out)
	}

	if _, err := svc.Submit(p.ID, permit.MustResponse(permit.Exterior(permit.RoofModifications))); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "questionnaire", "show", p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var q storage.Questionnaire
	if err := json.Unmarshal([]byte(out), &q); err != nil {
		t.Fatalf("output is not a questionnaire: %v\n%s", err, out)
	}
	if q.PermitRequirement != permit.OTCReview {
		t.Errorf("requirement = %q, want otc_review", q.PermitRequirement)
	}
}

func TestProjectShowCommand_UnknownProject(t *testing.T) {
	srv, _ := newAppServer(t)
	useClient(t, &apiClient{baseURL: srv.URL, token: "test-token", httpClient: srv.Client()})

	_, err := execute(t, "project", "show", "ghost")
	if err == nil {
		t.Fatal("expected error for unknown project")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want 404", err)
	}
}

func TestRunImport(t *testing.T) {
	srv, svc := newAppServer(t)
	client := &apiClient{baseURL: srv.URL, token: "test-token", httpClient: srv.Client()}

	entries := []importEntry{
		{ProjectInput: intake.ProjectInput{Name: "Kitchen", Location: "Oakland, CA"}, Scope: &permit.Payload{
			WorkTypes:    []permit.WorkType{permit.WorkInterior},
			InteriorWork: []permit.InteriorWork{permit.Flooring},
		}},
		{ProjectInput: intake.ProjectInput{Name: "ADU", Location: "Oakland, CA"}, Scope: &permit.Payload{
			WorkTypes:        []permit.WorkType{permit.WorkPropertyAdditions},
			PropertyAddition: permit.ADU,
		}},
		{ProjectInput: intake.ProjectInput{Name: "Unscoped", Location: "Oakland, CA"}},
	}

	results, err := runImport(ctx, client, entries, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Project.Name != "Kitchen" || results[0].Questionnaire.PermitRequirement != permit.NoPermit {
		t.Errorf("result[0] = %+v", results[0])
	}
	if results[1].Questionnaire.PermitRequirement != permit.InHouseReview {
		t.Errorf("result[1] = %+v", results[1])
	}
	if results[2].Questionnaire != nil {
		t.Errorf("result[2] should have no questionnaire, got %+v", results[2].Questionnaire)
	}

	qs, err := svc.Questionnaires()
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 {
		t.Errorf("stored %d questionnaires, want 2", len(qs))
	}
}

func TestRunImport_StopsOnInvalidScope(t *testing.T) {
	srv, _ := newAppServer(t)
	client := &apiClient{baseURL: srv.URL, token: "test-token", httpClient: srv.Client()}

	entries := []importEntry{
		{ProjectInput: intake.ProjectInput{Name: "Bad", Location: "Reno, NV"}, Scope: &permit.Payload{
			WorkTypes: []permit.WorkType{permit.WorkExterior},
		}},
	}
	_, err := runImport(ctx, client, entries, 1)
	if err == nil {
		t.Fatal("expected error for invalid scope")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %q, want a 400", err)
	}
}

func TestReadImportFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	os.WriteFile(good, []byte(`projects:
  - name: Smith kitchen
    location: Oakland, CA
    scope:
      workTypes: [interior, exterior]
      interiorWork: [new_bathroom]
      exteriorWork: [fencing]
  - name: Fence only
    location: Reno, NV
`), 0o644)

	entries, err := readImportFile(good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "Smith kitchen" || entries[0].Scope == nil || len(entries[0].Scope.InteriorWork) != 1 {
		t.Errorf("entry[0] = %+v", entries[0])
	}
	if entries[1].Scope != nil {
		t.Errorf("entry[1] scope = %+v, want nil", entries[1].Scope)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("projects:\n  - name: No location\n"), 0o644)
	if _, err := readImportFile(bad); err == nil || !strings.Contains(err.Error(), "location") {
		t.Errorf("err = %v, want missing location", err)
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("projects: []\n"), 0o644)
	if _, err := readImportFile(empty); err == nil {
		t.Error("expected error for empty import file")
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Storage.Backend = "sqlite"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := map[string]string{}
	for _, k := range keys {
		found[k.Key] = k.Value
	}
	if found["server.port"] != "4000" {
		t.Errorf("server.port = %q, want 4000", found["server.port"])
	}
	if found["storage.backend"] != "sqlite" {
		t.Errorf("storage.backend = %q, want sqlite", found["storage.backend"])
	}
}
