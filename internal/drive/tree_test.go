package drive

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTree serves a mutable folder hierarchy and records deletion order.
type fakeTree struct {
	folders map[string][]Item // path -> children
	ids     map[string]string // path -> folder item id
	deleted []string
}

func (f *fakeTree) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ":/children"):
			path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/drive/root:/"), ":/children")
			children, ok := f.folders[path]
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]interface{}{
					"error": map[string]string{"code": "itemNotFound"},
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"value": children})
		case strings.HasPrefix(r.URL.Path, "/drive/items/") && r.Method == http.MethodDelete:
			id := strings.TrimPrefix(r.URL.Path, "/drive/items/")
			f.deleted = append(f.deleted, id)
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(r.URL.Path, "/drive/root:/"):
			path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/drive/root:/"), ":")
			id, ok := f.ids[path]
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]interface{}{
					"error": map[string]string{"code": "itemNotFound"},
				})
				return
			}
			writeJSON(w, http.StatusOK, Item{ID: id, Folder: &FolderFacet{}})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func TestDeleteTreeRemovesChildrenBeforeParent(t *testing.T) {
	tree := &fakeTree{
		folders: map[string][]Item{
			"CLIENTS/Acme_K1": {
				{ID: "q1", Name: "Question_One", Folder: &FolderFacet{}},
				{ID: "loose", Name: "notes.txt"},
			},
			"CLIENTS/Acme_K1/Question_One": {
				{ID: "tpl", Name: "template", Folder: &FolderFacet{}},
				{ID: "ans", Name: "answer", Folder: &FolderFacet{}},
			},
			"CLIENTS/Acme_K1/Question_One/template": {
				{ID: "file-t", Name: "form.pdf"},
			},
			"CLIENTS/Acme_K1/Question_One/answer": {},
		},
		ids: map[string]string{
			"CLIENTS/Acme_K1":                       "q-root",
			"CLIENTS/Acme_K1/Question_One":          "q1",
			"CLIENTS/Acme_K1/Question_One/template": "tpl",
			"CLIENTS/Acme_K1/Question_One/answer":   "ans",
		},
	}
	client, _ := newTestClient(t, tree.handler(), Config{})

	require.NoError(t, client.DeleteTree(context.Background(), "CLIENTS/Acme_K1"))

	// Leaves first, then their containers, then the root of the subtree.
	assert.Equal(t, []string{"file-t", "tpl", "ans", "q1", "loose", "q-root"}, tree.deleted)
}

func TestDeleteTreeMissingPathIsNoop(t *testing.T) {
	tree := &fakeTree{folders: map[string][]Item{}, ids: map[string]string{}}
	client, _ := newTestClient(t, tree.handler(), Config{})

	require.NoError(t, client.DeleteTree(context.Background(), "CLIENTS/never_created"))
	assert.Empty(t, tree.deleted)
}
