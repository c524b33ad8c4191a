// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wingedpig/buildwatch/internal/crashes"
	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/events"
	"github.com/wingedpig/buildwatch/internal/logs"
	"github.com/wingedpig/buildwatch/internal/monitor"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
)

// mockServer creates a test server that returns the given response.
func mockServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// apiHandler creates a handler that returns a standard API response.
func apiHandler(data interface{}, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}
}

// apiErrorHandler creates a handler that returns an API error.
func apiErrorHandler(code, message string, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    code,
				"message": message,
			},
		})
	}
}

// expectRequest wraps next with method and path checks.
func expectRequest(t *testing.T, method, path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			t.Errorf("method = %s, want %s", r.Method, method)
		}
		if r.URL.Path != path {
			t.Errorf("path = %s, want %s", r.URL.Path, path)
		}
		next(w, r)
	}
}

func TestNew(t *testing.T) {
	c := New("http://localhost:7420/")

	if c.BaseURL() != "http://localhost:7420" {
		t.Errorf("BaseURL() = %q, want trailing slash removed", c.BaseURL())
	}
	if c.Builds == nil || c.Monitor == nil || c.Crashes == nil || c.Events == nil {
		t.Error("sub-client is nil")
	}
}

func TestNewWithOptions(t *testing.T) {
	hc := &http.Client{}
	c := New("http://localhost:7420", WithHTTPClient(hc), WithTimeout(5*time.Second))
	if c.httpClient != hc {
		t.Error("WithHTTPClient not applied")
	}
	if hc.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", hc.Timeout)
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Code: "not_found", Message: "crash x not found"}
	if err.Error() != "not_found: crash x not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	err2 := &APIError{Message: "Something went wrong"}
	if err2.Error() != "Something went wrong" {
		t.Errorf("Error() = %q", err2.Error())
	}
}

func TestErrorResponses(t *testing.T) {
	t.Run("envelope error", func(t *testing.T) {
		server := mockServer(t, apiErrorHandler("process_spawn_error", "spawn log: not found", http.StatusBadGateway))

		_, err := New(server.URL).Monitor.Start(context.Background(), "com.example.app")

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if apiErr.Code != "process_spawn_error" || apiErr.StatusCode != http.StatusBadGateway {
			t.Errorf("APIError = %+v", apiErr)
		}
	})

	t.Run("non-envelope failure", func(t *testing.T) {
		server := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})

		_, err := New(server.URL).Builds.Status(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		server := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": invalid json}`))
		})

		_, err := New(server.URL).Crashes.List(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("wrong data type", func(t *testing.T) {
		server := mockServer(t, apiHandler("not an object", http.StatusOK))

		_, err := New(server.URL).Monitor.Status(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestBuildClient_Record(t *testing.T) {
	var got recorder.BuildResult
	server := mockServer(t, expectRequest(t, http.MethodPost, "/api/v1/builds", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		apiHandler(recorder.BuildRecord{EventID: 7, Result: got}, http.StatusCreated)(w, r)
	}))

	rec, err := New(server.URL).Builds.Record(context.Background(), recorder.BuildResult{
		Status:     diagnostics.StatusError,
		ErrorCount: 1,
		Diagnostics: []recorder.ParsedDiagnostic{
			{Severity: diagnostics.SeverityError, FilePath: "A.swift", Message: "boom"},
		},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.EventID != 7 {
		t.Errorf("EventID = %d, want 7", rec.EventID)
	}
	if got.Status != diagnostics.StatusError || len(got.Diagnostics) != 1 {
		t.Errorf("server received %+v", got)
	}
}

func TestBuildClient_Queries(t *testing.T) {
	t.Run("trends", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/builds/trends", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("days") != "14" {
				t.Errorf("days = %q", r.URL.Query().Get("days"))
			}
			apiHandler(map[string]interface{}{"total_builds": 4, "success_rate": 0.75, "health": "good"}, http.StatusOK)(w, r)
		}))

		tr, err := New(server.URL).Builds.Trends(context.Background(), 14)
		if err != nil {
			t.Fatalf("Trends() error = %v", err)
		}
		if tr.Health != trends.HealthGood || tr.TotalBuilds != 4 {
			t.Errorf("Trends() = %+v", tr)
		}
	})

	t.Run("recent diagnostics", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/builds/diagnostics", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("hours") != "2" || r.URL.Query().Get("limit") != "5" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			apiHandler([]map[string]interface{}{{"message": "boom", "severity": "error"}}, http.StatusOK)(w, r)
		}))

		diags, err := New(server.URL).Builds.RecentDiagnostics(context.Background(), 2, 5)
		if err != nil {
			t.Fatalf("RecentDiagnostics() error = %v", err)
		}
		if len(diags) != 1 || diags[0].Message != "boom" {
			t.Errorf("RecentDiagnostics() = %+v", diags)
		}
	})

	t.Run("frequent issues default query", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/issues/frequent", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				t.Errorf("query = %q, want empty", r.URL.RawQuery)
			}
			apiHandler(nil, http.StatusOK)(w, r)
		}))

		issues, err := New(server.URL).Builds.FrequentIssues(context.Background(), 0, 0)
		if err != nil {
			t.Fatalf("FrequentIssues() error = %v", err)
		}
		if issues == nil || len(issues) != 0 {
			t.Errorf("FrequentIssues() = %#v, want empty slice", issues)
		}
	})

	t.Run("status", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/status", apiHandler(map[string]interface{}{
			"current_build":     nil,
			"monitoring_active": true,
			"build_health":      map[string]interface{}{"status": "poor"},
		}, http.StatusOK)))

		report, err := New(server.URL).Builds.Status(context.Background())
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if report.CurrentBuild != nil || !report.MonitoringActive || report.BuildHealth.Status != trends.HealthPoor {
			t.Errorf("Status() = %+v", report)
		}
	})
}

func TestBuildClient_Solutions(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodPost, "/api/v1/solutions", func(w http.ResponseWriter, r *http.Request) {
			var in SolutionInput
			json.NewDecoder(r.Body).Decode(&in)
			if in.Message != "boom" || in.Solution != "fix it" {
				t.Errorf("body = %+v", in)
			}
			apiHandler(AddedSolution{ID: 3, Fingerprint: "abc"}, http.StatusOK)(w, r)
		}))

		added, err := New(server.URL).Builds.AddSolution(context.Background(), SolutionInput{Message: "boom", Solution: "fix it"})
		if err != nil {
			t.Fatalf("AddSolution() error = %v", err)
		}
		if added.ID != 3 || added.Fingerprint != "abc" {
			t.Errorf("AddSolution() = %+v", added)
		}
	})

	t.Run("best found", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/solutions/best", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("message") != "Value of type 'X' has no member 'y'" {
				t.Errorf("message = %q", r.URL.Query().Get("message"))
			}
			apiHandler(diagnostics.Solution{ID: 1, Text: "rename", SuccessCount: 2}, http.StatusOK)(w, r)
		}))

		sol, err := New(server.URL).Builds.BestSolution(context.Background(), "Value of type 'X' has no member 'y'")
		if err != nil {
			t.Fatalf("BestSolution() error = %v", err)
		}
		if sol == nil || sol.Text != "rename" || sol.SuccessCount != 2 {
			t.Errorf("BestSolution() = %+v", sol)
		}
	})

	t.Run("best unknown", func(t *testing.T) {
		server := mockServer(t, apiHandler(nil, http.StatusOK))

		sol, err := New(server.URL).Builds.BestSolution(context.Background(), "never seen")
		if err != nil {
			t.Fatalf("BestSolution() error = %v", err)
		}
		if sol != nil {
			t.Errorf("BestSolution() = %+v, want nil", sol)
		}
	})
}

func TestMonitorClient(t *testing.T) {
	t.Run("start", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodPost, "/api/v1/monitor/start", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["bundle_id"] != "com.example.app" {
				t.Errorf("bundle_id = %q", body["bundle_id"])
			}
			apiHandler(monitor.StartResult{Status: monitor.StatusMonitoringStarted, BundleID: "com.example.app"}, http.StatusOK)(w, r)
		}))

		res, err := New(server.URL).Monitor.Start(context.Background(), "com.example.app")
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if res.Status != monitor.StatusMonitoringStarted {
			t.Errorf("Status = %q", res.Status)
		}
	})

	t.Run("stop", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodPost, "/api/v1/monitor/stop",
			apiHandler(monitor.StopResult{Status: monitor.StatusNotRunning}, http.StatusOK)))

		res, err := New(server.URL).Monitor.Stop(context.Background())
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if res.Status != monitor.StatusNotRunning {
			t.Errorf("Status = %q", res.Status)
		}
	})

	t.Run("logs with count", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/monitor/logs", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("count") != "2" {
				t.Errorf("count = %q", r.URL.Query().Get("count"))
			}
			apiHandler([]logs.LogEntry{{Raw: "one", Sequence: 1}, {Raw: "two", Sequence: 2}}, http.StatusOK)(w, r)
		}))

		entries, err := New(server.URL).Monitor.Logs(context.Background(), 2)
		if err != nil {
			t.Fatalf("Logs() error = %v", err)
		}
		if len(entries) != 2 || entries[1].Raw != "two" {
			t.Errorf("Logs() = %+v", entries)
		}
	})

	t.Run("errors default count", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/monitor/errors", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				t.Errorf("query = %q, want empty", r.URL.RawQuery)
			}
			apiHandler([]logs.LogEntry{{Raw: "Fatal error: x", IsError: true, ErrorKind: logs.KindFatal}}, http.StatusOK)(w, r)
		}))

		entries, err := New(server.URL).Monitor.Errors(context.Background(), 0)
		if err != nil {
			t.Fatalf("Errors() error = %v", err)
		}
		if len(entries) != 1 || entries[0].ErrorKind != logs.KindFatal {
			t.Errorf("Errors() = %+v", entries)
		}
	})

	t.Run("status and analyze", func(t *testing.T) {
		server := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/monitor/status":
				apiHandler(monitor.Status{Monitoring: true, State: monitor.StateStreaming}, http.StatusOK)(w, r)
			case "/api/v1/monitor/analyze":
				apiHandler(monitor.Analysis{ErrorCount: 0, Insights: "No runtime errors detected"}, http.StatusOK)(w, r)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		c := New(server.URL)
		st, err := c.Monitor.Status(context.Background())
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if !st.Monitoring || st.State != monitor.StateStreaming {
			t.Errorf("Status() = %+v", st)
		}

		an, err := c.Monitor.Analyze(context.Background())
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if an.Insights != "No runtime errors detected" {
			t.Errorf("Analyze() = %+v", an)
		}
	})
}

func TestCrashClient(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/crashes",
			apiHandler([]crashes.CrashSummary{{ID: "app-1", BundleID: "app"}}, http.StatusOK)))

		list, err := New(server.URL).Crashes.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 1 || list[0].ID != "app-1" {
			t.Errorf("List() = %+v", list)
		}
	})

	t.Run("get", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/crashes/app-1",
			apiHandler(crashes.CrashContext{ID: "app-1", BundleID: "app"}, http.StatusOK)))

		crash, err := New(server.URL).Crashes.Get(context.Background(), "app-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if crash.BundleID != "app" {
			t.Errorf("Get() = %+v", crash)
		}
	})

	t.Run("get not found", func(t *testing.T) {
		server := mockServer(t, apiErrorHandler("not_found", "crash not found: x", http.StatusNotFound))

		_, err := New(server.URL).Crashes.Get(context.Background(), "x")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Code != "not_found" {
			t.Errorf("Get() error = %v, want not_found", err)
		}
	})

	t.Run("newest none", func(t *testing.T) {
		server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/crashes/newest", apiHandler(nil, http.StatusOK)))

		crash, err := New(server.URL).Crashes.Newest(context.Background())
		if err != nil {
			t.Fatalf("Newest() error = %v", err)
		}
		if crash != nil {
			t.Errorf("Newest() = %+v, want nil", crash)
		}
	})
}

func TestEventClient_List(t *testing.T) {
	evts := []events.Event{
		{ID: "evt-1", Type: events.EventBuildRecorded, Timestamp: time.Now()},
		{ID: "evt-2", Type: events.EventMonitorStarted, Timestamp: time.Now()},
	}
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	server := mockServer(t, expectRequest(t, http.MethodGet, "/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "50" {
			t.Errorf("limit = %q", q.Get("limit"))
		}
		if types := q["type"]; len(types) != 2 || types[0] != "build.*" {
			t.Errorf("type = %v", types)
		}
		if q.Get("since") != "2026-01-02T03:04:05Z" {
			t.Errorf("since = %q", q.Get("since"))
		}
		if q.Has("until") {
			t.Error("until should be omitted")
		}
		apiHandler(evts, http.StatusOK)(w, r)
	}))

	result, err := New(server.URL).Events.List(context.Background(), &ListOptions{
		Limit: 50,
		Types: []string{"build.*", "monitor.*"},
		Since: since,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result) != 2 {
		t.Errorf("List() returned %d events, want 2", len(result))
	}
}

func TestContextCancellation(t *testing.T) {
	server := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		apiHandler([]crashes.CrashSummary{}, http.StatusOK)(w, r)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(server.URL).Crashes.List(ctx); err == nil {
		t.Error("expected error due to cancelled context")
	}
}
