package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/httpfetch"
)

var allNames = []string{"bulbasaur", "ivysaur", "venusaur", "charmander", "charmeleon"}

type listingServer struct {
	*httptest.Server
	pages atomic.Int64
}

// newListingServer pages through allNames honoring limit and offset.
func newListingServer(t *testing.T) *listingServer {
	t.Helper()
	s := &listingServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/pokemon", func(w http.ResponseWriter, r *http.Request) {
		s.pages.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		page := domain.CatalogPage{Count: len(allNames), Results: []domain.CatalogItemRef{}}
		for i := offset; i < offset+limit && i < len(allNames); i++ {
			page.Results = append(page.Results, domain.CatalogItemRef{
				Name: allNames[i],
				URL:  fmt.Sprintf("%s/api/v2/pokemon/%d/", s.URL, i+1),
			})
		}
		if offset+limit < len(allNames) {
			page.Next = fmt.Sprintf("%s/api/v2/pokemon?limit=%d&offset=%d", s.URL, limit, offset+limit)
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/api/v2/pokemon/1/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"name":"bulbasaur","species":{"name":"bulbasaur","url":"https://api.test/species/1/"},
			"sprites":{"front_default":null,"other":{"official-artwork":{"front_default":"https://img.test/1.png","front_shiny":null}}}}`))
	})
	mux.HandleFunc("/api/v2/pokemon/2/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":2,"name":"ivysaur"}`))
	})
	mux.HandleFunc("/api/v2/pokemon-species/1/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"name":"bulbasaur","color":{"name":"green"},"generation":{"name":"generation-i"}}`))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestClient(baseURL string, pageSize int) *Client {
	fetcher := httpfetch.New(httpfetch.Options{MaxRetries: 0, BaseDelay: time.Millisecond}, zap.NewNop())
	return NewClient(fetcher, baseURL, pageSize, zap.NewNop())
}

func refNames(refs []domain.CatalogItemRef) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.Name
	}
	return out
}

func TestListItemsFollowsNextLinks(t *testing.T) {
	srv := newListingServer(t)
	client := newTestClient(srv.URL+"/api/v2", 2)

	refs, err := client.ListItems(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, allNames, refNames(refs))
	assert.EqualValues(t, 3, srv.pages.Load())
}

func TestListItemsSinglePage(t *testing.T) {
	srv := newListingServer(t)
	client := newTestClient(srv.URL+"/api/v2", 20000)

	refs, err := client.ListItems(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, refs, len(allNames))
	assert.EqualValues(t, 1, srv.pages.Load())
}

func TestListItemsLimitAndOffset(t *testing.T) {
	srv := newListingServer(t)
	client := newTestClient(srv.URL+"/api/v2", 2)

	refs, err := client.ListItems(context.Background(), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, allNames[:3], refNames(refs))

	refs, err = client.ListItems(context.Background(), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"charmeleon"}, refNames(refs))

	refs, err = client.ListItems(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestListItemsStopsOnSelfReferencingNext(t *testing.T) {
	var hits atomic.Int64
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(domain.CatalogPage{
			Next:    srv.URL + r.URL.String(),
			Results: []domain.CatalogItemRef{{Name: "loop"}},
		})
	}))
	defer srv.Close()

	refs, err := newTestClient(srv.URL, 10).ListItems(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	assert.EqualValues(t, 1, hits.Load())
}

func TestListItemsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 10).ListItems(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch catalog listing")
}

func TestFetchDetailDecodesNullSprites(t *testing.T) {
	srv := newListingServer(t)
	client := newTestClient(srv.URL+"/api/v2", 10)

	record, err := client.FetchDetail(context.Background(), srv.URL+"/api/v2/pokemon/1/")
	require.NoError(t, err)
	assert.Equal(t, 1, record.ID)
	assert.Equal(t, "", record.Sprites.FrontDefault)
	assert.Equal(t, "https://img.test/1.png", record.Sprites.Other.OfficialArtwork.FrontDefault)
	assert.Equal(t, "https://api.test/species/1/", record.Species.URL)
}

func TestFetchDetailRequiresSpecies(t *testing.T) {
	srv := newListingServer(t)
	client := newTestClient(srv.URL+"/api/v2", 10)

	_, err := client.FetchDetail(context.Background(), srv.URL+"/api/v2/pokemon/2/")
	assert.Error(t, err)
}

func TestFetchSpecies(t *testing.T) {
	srv := newListingServer(t)
	client := newTestClient(srv.URL+"/api/v2", 10)

	record, err := client.FetchSpecies(context.Background(), srv.URL+"/api/v2/pokemon-species/1/")
	require.NoError(t, err)
	info := record.Info()
	assert.Equal(t, "green", info.Color)
	assert.Equal(t, 1, info.Generation)
}
