package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/epigenicai/genagent/agent"
	"github.com/epigenicai/genagent/rag"
	"github.com/epigenicai/genagent/testutil"
	"github.com/epigenicai/genagent/tracker"
	"github.com/epigenicai/genagent/types"
	"github.com/epigenicai/genagent/workflow"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	factory := func(gene string, prefs types.Preferences) (*workflow.Graph, workflow.FinalizeFunc, error) {
		tool := rag.NewTool(rag.NewHashEmbedder(64), logger)
		deps := workflow.PipelineDeps{
			Literature:        agent.NewLiteratureAgent(&testutil.FakeLiterature{Papers: testutil.Citations(gene, 2)}, tool, logger),
			Web:               agent.NewWebAgent(&testutil.FakeWeb{}, tool, logger),
			Commercial:        agent.NewCommercialAgent(&testutil.FakeCommercial{}, logger),
			Report:            agent.NewReportAgent(&testutil.FakeGenerator{}, tool, 5, 0.0, logger),
			CitationAudit:     agent.NewCitationAuditor(logger),
			CompletenessAudit: agent.NewCompletenessAuditor(logger),
			Exporter:          &testutil.FakeExporter{},
		}
		return workflow.BuildPipeline(gene, prefs, deps)
	}
	cfg := workflow.Config{
		MaxAttempts:       2,
		MaxRevisionRounds: 1,
		StageTimeout:      2 * time.Second,
		GlobalTimeout:     5 * time.Second,
		RetryInitialDelay: time.Millisecond,
		RetryMaxDelay:     5 * time.Millisecond,
	}
	tr := tracker.New(factory, nil, cfg, nil, nil, logger)

	mux := http.NewServeMux()
	NewJobHandler(tr, logger).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeResponse(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer resp.Body.Close()
	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func submitJob(t *testing.T, srv *httptest.Server, gene string) string {
	t.Helper()
	body, _ := json.Marshal(SubmitRequest{Gene: gene, Preferences: types.Preferences{
		Sections: []string{"Literature Review", "Conclusion"},
	}})
	resp, err := http.Post(srv.URL+"/v1/jobs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeResponse(t, resp)
	require.True(t, env.Success)
	data, _ := json.Marshal(env.Data)
	var sub SubmitResponse
	require.NoError(t, json.Unmarshal(data, &sub))
	require.NotEmpty(t, sub.JobID)
	return sub.JobID
}

func TestSubmitAndPollJob(t *testing.T) {
	srv := newTestServer(t)
	id := submitJob(t, srv, "BRCA1")

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/v1/jobs/" + id)
		if err != nil {
			return false
		}
		env := decodeResponse(t, resp)
		data, _ := json.Marshal(env.Data)
		var view tracker.JobView
		if err := json.Unmarshal(data, &view); err != nil {
			return false
		}
		return view.Status == workflow.JobCompleted
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(srv.URL + "/v1/jobs/" + id)
	require.NoError(t, err)
	env := decodeResponse(t, resp)
	data, _ := json.Marshal(env.Data)
	var view tracker.JobView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, "BRCA1", view.Gene)
	require.NotNil(t, view.Report)
	assert.NotEmpty(t, view.ReportURI)
	assert.Len(t, view.Stages, 7)
}

func TestSubmitRejectsEmptyGene(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(SubmitRequest{Gene: "  "})
	resp, err := http.Post(srv.URL+"/v1/jobs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env := decodeResponse(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrInvalidInput), env.Error.Code)
}

func TestSubmitRejectsBadBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/jobs", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeResponse(t, resp)
}

func TestStatusUnknownJob(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/jobs/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env := decodeResponse(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrNotFound), env.Error.Code)
}

func TestCancelJob(t *testing.T) {
	srv := newTestServer(t)
	id := submitJob(t, srv, "TP53")

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/jobs/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeResponse(t, resp)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/jobs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeResponse(t, resp)
}
