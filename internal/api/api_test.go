package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/notetree/internal/config"
	"github.com/dgallion1/notetree/internal/document"
	"github.com/dgallion1/notetree/internal/jobs"
	"github.com/dgallion1/notetree/internal/metrics"
	"github.com/dgallion1/notetree/internal/testdoc"
)

const testKey = "secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:             testKey,
		WorkerCount:        2,
		MaxQueueSize:       8,
		DecodeConcurrency:  4,
		JobTTL:             time.Hour,
		SearchSkipExcluded: true,
	}

	doc, err := document.Open(context.Background(), testdoc.XMLFile(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })

	orch := jobs.NewOrchestrator(cfg, doc.Search, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(doc, orch, metrics.NewRegistry(), log, cfg)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type nodeList struct {
	Nodes []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		HasSubnodes bool   `json:"has_subnodes"`
		IsParent    bool   `json:"is_parent"`
		IsSubnode   bool   `json:"is_subnode"`
	} `json:"nodes"`
}

func (l nodeList) ids() []int64 {
	out := []int64{}
	for _, n := range l.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nodes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/nodes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNavigation(t *testing.T) {
	s := newTestServer(t)

	var roots nodeList
	rec := do(t, s, http.MethodGet, "/api/nodes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &roots)
	assert.Equal(t, []int64{1, 4, 5}, roots.ids())
	assert.True(t, roots.Nodes[0].HasSubnodes)
	assert.False(t, roots.Nodes[1].HasSubnodes)

	var children nodeList
	rec = do(t, s, http.MethodGet, "/api/nodes/3/children", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &children)
	assert.Equal(t, []int64{3, 6}, children.ids())
	assert.True(t, children.Nodes[0].IsParent)
	assert.True(t, children.Nodes[1].IsSubnode)

	var parent nodeList
	decodeBody(t, do(t, s, http.MethodGet, "/api/nodes/6/parent", ""), &parent)
	assert.Equal(t, []int64{3, 6}, parent.ids())

	var top nodeList
	decodeBody(t, do(t, s, http.MethodGet, "/api/nodes/5/parent", ""), &top)
	assert.Equal(t, []int64{1, 4, 5}, top.ids())

	var bookmarks nodeList
	decodeBody(t, do(t, s, http.MethodGet, "/api/bookmarks", ""), &bookmarks)
	assert.Equal(t, []int64{5, 1}, bookmarks.ids())
}

func TestNode(t *testing.T) {
	s := newTestServer(t)

	var leaf struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		IsSubnode bool   `json:"is_subnode"`
	}
	rec := do(t, s, http.MethodGet, "/api/nodes/6", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &leaf)
	assert.Equal(t, "Kitten", leaf.Name)
	assert.True(t, leaf.IsSubnode)

	var path struct {
		Path []struct {
			Name string `json:"name"`
		} `json:"path"`
	}
	decodeBody(t, do(t, s, http.MethodGet, "/api/nodes/6/path", ""), &path)
	require.Len(t, path.Path, 3)
	assert.Equal(t, "Welcome", path.Path[0].Name)
	assert.Equal(t, "Plain", path.Path[1].Name)
	assert.Equal(t, "Kitten", path.Path[2].Name)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nodes/99", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nodes/99/children", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/nodes/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/nodes/0/path", "").Code)
}

func TestContent(t *testing.T) {
	s := newTestServer(t)

	var body struct {
		NodeID int64 `json:"node_id"`
		Blocks []struct {
			Kind  string          `json:"kind"`
			Block json.RawMessage `json:"block"`
		} `json:"blocks"`
	}
	rec := do(t, s, http.MethodGet, "/api/nodes/1/content", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	assert.EqualValues(t, 1, body.NodeID)
	require.Len(t, body.Blocks, 3)
	assert.Equal(t, "text", body.Blocks[0].Kind)
	assert.Equal(t, "table", body.Blocks[1].Kind)
	assert.Equal(t, "text", body.Blocks[2].Kind)
	assert.Contains(t, string(body.Blocks[0].Block), `"kind":"codebox"`)
	assert.Contains(t, string(body.Blocks[0].Block), `"kind":"image"`)

	// An alias shows its master's content.
	var alias struct {
		Blocks []json.RawMessage `json:"blocks"`
	}
	decodeBody(t, do(t, s, http.MethodGet, "/api/nodes/4/content", ""), &alias)
	assert.Len(t, alias.Blocks, 3)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nodes/42/content", "").Code)
}

func TestPayload(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/nodes/1/payload?offset=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testdoc.PicturePNG, rec.Body.Bytes())
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	rec = do(t, s, http.MethodGet, "/api/nodes/5/payload?offset=11&filename=notes.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testdoc.AttachmentData, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="notes.txt"`)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nodes/1/payload?offset=99", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nodes/5/payload?offset=11&filename=other.txt", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/nodes/1/payload", "").Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/nodes/1/export.md", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	md := rec.Body.String()
	assert.Contains(t, md, "# Welcome\n")
	assert.Contains(t, md, "![image](/api/nodes/1/payload?offset=5)")
	assert.NotContains(t, md, "## Code")

	rec = do(t, s, http.MethodGet, "/api/nodes/1/export.md?subtree=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	md = rec.Body.String()
	for _, want := range []string{"# Welcome\n", "## Code\n", "## Plain\n", "### Kitten\n", "cat nap"} {
		assert.Contains(t, md, want)
	}
	assert.Less(t, strings.Index(md, "## Code"), strings.Index(md, "## Plain"))
	assert.Less(t, strings.Index(md, "## Plain"), strings.Index(md, "### Kitten"))

	rec = do(t, s, http.MethodGet, "/api/nodes/5/export.md", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[notes.txt](/api/nodes/5/payload?offset=11&filename=notes.txt)")

	rec = do(t, s, http.MethodGet, "/api/nodes/1/export.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Welcome</h1>")
	assert.Contains(t, rec.Body.String(), "<title>Welcome</title>")

	rec = do(t, s, http.MethodGet, "/api/nodes/1/export.docx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "node-1.docx")

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/nodes/1/export.pdf", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nodes/99/export.md", "").Code)
}

func TestFind(t *testing.T) {
	s := newTestServer(t)

	var snap jobs.JobSnapshot
	rec := do(t, s, http.MethodGet, "/api/nodes/3/find?q=AT", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &snap)
	assert.Equal(t, jobs.StatusFinished, snap.Status)
	assert.Equal(t, jobs.KindFind, snap.Kind)
	assert.Len(t, snap.Hits, 3)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/nodes/3/find", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nodes/99/find?q=a", "").Code)
}

func pollSearch(t *testing.T, s *Server, url string) jobs.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var snap jobs.JobSnapshot
		rec := do(t, s, http.MethodGet, url, "")
		require.Equal(t, http.StatusOK, rec.Code)
		decodeBody(t, rec, &snap)
		if snap.Status.Terminal() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("search %s still %s", snap.ID, snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func matchIDs(snap jobs.JobSnapshot) []int64 {
	out := []int64{}
	for _, m := range snap.Matches {
		out = append(out, m.NodeID)
	}
	return out
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)

	var accepted struct {
		JobID        string `json:"job_id"`
		SkipExcluded bool   `json:"skip_excluded"`
		PollURL      string `json:"poll_url"`
	}
	rec := do(t, s, http.MethodPost, "/api/search", `{"query":"cat"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	decodeBody(t, rec, &accepted)
	assert.True(t, accepted.SkipExcluded)
	assert.Equal(t, "/api/search/"+accepted.JobID, accepted.PollURL)

	snap := pollSearch(t, s, accepted.PollURL)
	assert.Equal(t, jobs.StatusFinished, snap.Status)
	assert.Equal(t, []int64{2, 6}, matchIDs(snap))

	rec = do(t, s, http.MethodPost, "/api/search", `{"query":"cat","skip_excluded":false}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	decodeBody(t, rec, &accepted)
	assert.False(t, accepted.SkipExcluded)
	snap = pollSearch(t, s, accepted.PollURL)
	assert.Equal(t, []int64{2, 3, 6, 7}, matchIDs(snap))
}

func TestSearch_BadRequests(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/search", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/search", `{"query":"  "}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/search/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/search/nope", "").Code)
}

func TestSearch_Cancel(t *testing.T) {
	s := newTestServer(t)

	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decodeBody(t, do(t, s, http.MethodPost, "/api/search", `{"query":"cat"}`), &accepted)

	rec := do(t, s, http.MethodDelete, accepted.PollURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"job_id":"`+accepted.JobID+`","cancelled":true}`, rec.Body.String())

	// The search may have finished before the cancel landed.
	snap := pollSearch(t, s, accepted.PollURL)
	assert.Contains(t, []jobs.JobStatus{jobs.StatusCancelled, jobs.StatusFinished}, snap.Status)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/api/nodes", "")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notetree_http_requests")
	assert.Contains(t, rec.Body.String(), `route="/api/nodes"`)
}

func TestSearch_AfterShutdown(t *testing.T) {
	s := newTestServer(t)
	s.orchestrator.Stop()

	rec := do(t, s, http.MethodPost, "/api/search", `{"query":"cat"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "orchestrator stopped")

	rec = do(t, s, http.MethodGet, "/api/nodes/3/find?q=at", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
