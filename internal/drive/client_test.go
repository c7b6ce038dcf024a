package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokens struct{}

func (staticTokens) Token(context.Context) (Token, error) {
	return Token{Value: "test-token", ExpiresIn: time.Hour}, nil
}

func newTestClient(t *testing.T, handler http.Handler, cfg Config) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	retry := NewRetryer(3, time.Millisecond, zap.NewNop())
	retry.jitter = func() time.Duration { return 0 }
	return NewClient(cfg, staticTokens{}, retry, srv.Client(), zap.NewNop(), nil), srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListChildrenFollowsContinuationLinks(t *testing.T) {
	var baseURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/root:/CLIENTS/Acme_KEY1:/children", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"value":           []Item{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}},
			"@odata.nextLink": baseURL + "/page2",
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"value": []Item{{ID: "3", Name: "c"}},
		})
	})
	client, srv := newTestClient(t, mux, Config{})
	baseURL = srv.URL

	items, err := client.ListChildren(context.Background(), "CLIENTS/Acme_KEY1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "3", items[2].ID)
}

func TestListChildrenMissingFolderYieldsEmptyList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{"code": "itemNotFound", "message": "not found"},
		})
	})
	client, _ := newTestClient(t, mux, Config{})

	items, err := client.ListChildren(context.Background(), "CLIENTS/nobody")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEnsureFolderReturnsExistingID(t *testing.T) {
	creates := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/root:/CLIENTS:", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, Item{ID: "root-1", Name: "CLIENTS", Folder: &FolderFacet{}})
			return
		}
		creates++
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux, Config{})

	id, err := client.EnsureFolder(context.Background(), "CLIENTS")
	require.NoError(t, err)
	assert.Equal(t, "root-1", id)
	assert.Zero(t, creates, "existing folders must not be re-created")
}

func TestEnsureFolderCreatesWhenAbsent(t *testing.T) {
	exists := false
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/root:/CLIENTS/Acme_KEY1:", func(w http.ResponseWriter, r *http.Request) {
		if !exists {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"error": map[string]string{"code": "itemNotFound"},
			})
			return
		}
		writeJSON(w, http.StatusOK, Item{ID: "f-1", Folder: &FolderFacet{}})
	})
	mux.HandleFunc("/drive/root:/CLIENTS/Acme_KEY1:/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "fail", payload["@microsoft.graph.conflictBehavior"])
		exists = true
		writeJSON(w, http.StatusCreated, Item{ID: "f-1", Folder: &FolderFacet{}})
	})
	client, _ := newTestClient(t, mux, Config{})

	id, err := client.EnsureFolder(context.Background(), "CLIENTS/Acme_KEY1")
	require.NoError(t, err)
	assert.Equal(t, "f-1", id)
}

func TestEnsureFolderResolvesCreateRace(t *testing.T) {
	gets := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/root:/CLIENTS:", func(w http.ResponseWriter, r *http.Request) {
		gets++
		if gets == 1 {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"error": map[string]string{"code": "itemNotFound"},
			})
			return
		}
		// Second read sees the concurrent winner.
		writeJSON(w, http.StatusOK, Item{ID: "winner", Folder: &FolderFacet{}})
	})
	mux.HandleFunc("/drive/root:/CLIENTS:/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]string{"code": "nameAlreadyExists"},
		})
	})
	client, _ := newTestClient(t, mux, Config{})

	id, err := client.EnsureFolder(context.Background(), "CLIENTS")
	require.NoError(t, err)
	assert.Equal(t, "winner", id)
}

func TestEnsureFolderRejectsFileCollision(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Item{ID: "file-1", Name: "CLIENTS"})
	})
	client, _ := newTestClient(t, mux, Config{})

	_, err := client.EnsureFolder(context.Background(), "CLIENTS")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, Classify(err).StatusCode)
}

func TestUploadSmallFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/root:/CLIENTS/a/template/doc.pdf:/content", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusCreated, Item{ID: "item-9"})
	})
	client, _ := newTestClient(t, mux, Config{SmallFileLimit: 1024})

	id, err := client.Upload(context.Background(), "CLIENTS/a/template/doc.pdf", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "item-9", id)
}

func TestUploadChunkedUsesSession(t *testing.T) {
	var baseURL string
	var ranges []string
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/root:/CLIENTS/a/big.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"uploadUrl": baseURL + "/session/abc"})
	})
	mux.HandleFunc("/session/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "session URLs are pre-authorised")
		ranges = append(ranges, r.Header.Get("Content-Range"))
		if strings.HasPrefix(r.Header.Get("Content-Range"), "bytes 20-") {
			writeJSON(w, http.StatusCreated, Item{ID: "big-1"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"nextExpectedRanges": []string{}})
	})
	client, srv := newTestClient(t, mux, Config{SmallFileLimit: 4, ChunkSize: 10})
	baseURL = srv.URL

	content := make([]byte, 25)
	id, err := client.Upload(context.Background(), "CLIENTS/a/big.bin", content)
	require.NoError(t, err)
	assert.Equal(t, "big-1", id)
	assert.Equal(t, []string{"bytes 0-9/25", "bytes 10-19/25", "bytes 20-24/25"}, ranges)
}

func TestDeleteTreatsMissingItemAsSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/items/gone", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{"code": "itemNotFound"},
		})
	})
	client, _ := newTestClient(t, mux, Config{})

	assert.NoError(t, client.Delete(context.Background(), "gone"))
}

func TestRenameSendsPatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/items/q-1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "New_Segment", payload["name"])
		writeJSON(w, http.StatusOK, Item{ID: "q-1", Name: "New_Segment"})
	})
	client, _ := newTestClient(t, mux, Config{})

	require.NoError(t, client.Rename(context.Background(), "q-1", "New_Segment"))
}

func TestDownloadStreamsContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/items/d-1/content", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "payload-bytes")
	})
	client, _ := newTestClient(t, mux, Config{DownloadTimeout: time.Second})

	rc, err := client.Download(context.Background(), "d-1")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload-bytes", string(data))
}
