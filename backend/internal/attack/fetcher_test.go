package attack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cybergraph/backend/pkg/errors"
)

func TestHTTPFetcher_FetchBundle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"type": "bundle",
			"id": "bundle--1",
			"objects": [
				{"type": "intrusion-set", "id": "intrusion-set--1", "name": "APT29",
				 "aliases": ["Cozy Bear", "The Dukes"],
				 "external_references": [{"source_name": "mitre-attack", "external_id": "G0016"}]},
				{"type": "relationship", "id": "relationship--1", "relationship_type": "uses"}
			]
		}`))
	}))
	defer server.Close()

	objects, err := NewHTTPFetcher(5*time.Second).FetchBundle(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.Equal(t, "intrusion-set", objects[0].Type())
	assert.Equal(t, []string{"Cozy Bear", "The Dukes"}, objects[0].Strings("aliases"))
	id, url := objects[0].ExternalReference()
	assert.Equal(t, "G0016", id)
	assert.Empty(t, url)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(time.Second).FetchBundle(context.Background(), server.URL)
		var fetchErr *apperrors.ErrBundleFetchFailed
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
		assert.True(t, apperrors.IsRetryable(err))
	})

	t.Run("decode", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"objects": [`))
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(time.Second).FetchBundle(context.Background(), server.URL)
		var fetchErr *apperrors.ErrBundleFetchFailed
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusOK, fetchErr.StatusCode)
	})
}

func TestFetchMatrices(t *testing.T) {
	fetcher := &mapFetcher{bundles: map[string][]Object{
		MatrixURLs["enterprise"]: {{"type": "tool"}},
		MatrixURLs["ics"]:        {{"type": "malware"}, {"type": "tool"}},
	}}

	bundles, err := FetchMatrices(context.Background(), fetcher, []string{"enterprise", "ics"})
	require.NoError(t, err)
	assert.Len(t, bundles["enterprise"], 1)
	assert.Len(t, bundles["ics"], 2)

	_, err = FetchMatrices(context.Background(), fetcher, []string{"enterprise", "mobile"})
	assert.Error(t, err)

	_, err = FetchMatrices(context.Background(), fetcher, []string{"pre"})
	var unknown *apperrors.ErrUnknownMatrix
	assert.ErrorAs(t, err, &unknown)
}

type mapFetcher struct {
	bundles map[string][]Object
}

func (m *mapFetcher) FetchBundle(_ context.Context, url string) ([]Object, error) {
	objects, ok := m.bundles[url]
	if !ok {
		return nil, apperrors.NewBundleFetchFailed(url, http.StatusNotFound, nil)
	}
	return objects, nil
}

func TestPhaseTitle(t *testing.T) {
	assert.Equal(t, "Command And Control", phaseTitle("command-and-control"))
	assert.Equal(t, "Initial Access", phaseTitle("initial-access"))
}
