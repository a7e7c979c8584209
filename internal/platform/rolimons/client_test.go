package rolimons_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/platform/rolimons"
)

func newClient(t *testing.T, mux *http.ServeMux) *rolimons.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return rolimons.New(rolimons.Endpoints{API: srv.URL, Web: srv.URL}, "roli-cookie")
}

func TestFetchCatalog(t *testing.T) {
	rq := require.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/v2/itemdetails", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"item_count":3,"items":{
			"1365767":["Valkyrie Helm","",165000,180000,-1,3,2,-1,-1,-1],
			"1028606":["Red Baseball Cap","RBC",1200,-1,null,null,null,1,-1,1],
			"bad":["x","",1,1,1,1,1,1,1,1],
			"42":["short"]
		}}`)
	})

	c := newClient(t, mux)
	cat, err := c.FetchCatalog(context.Background())
	rq.NoError(err)
	rq.Len(cat, 2)

	valk := cat[1365767]
	rq.Equal("Valkyrie Helm", valk.Name)
	rq.Equal(int64(180000), valk.Value)
	rq.Equal(3, valk.Demand)
	rq.False(valk.Projected)

	rbc := cat[1028606]
	rq.False(rbc.HasValue())
	rq.Equal(int64(1200), rbc.EffectiveValue())
	rq.Equal(-1, rbc.Demand)
	rq.True(rbc.Projected)
	rq.True(rbc.Rare)
}

func TestFetchCatalogEmpty(t *testing.T) {
	rq := require.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/v2/itemdetails", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":false}`)
	})

	_, err := newClient(t, mux).FetchCatalog(context.Background())
	rq.ErrorIs(err, domain.ErrMalformedResponse)
}

func TestPostAd(t *testing.T) {
	rq := require.New(t)

	var got rolimons.Ad
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tradeads/v1/createad", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("_RoliVerification")
		rq.NoError(err)
		rq.Equal("roli-cookie", ck.Value)
		rq.NoError(json.NewDecoder(r.Body).Decode(&got))
		if len(got.OfferItemIDs) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	c := newClient(t, mux)
	ctx := context.Background()

	rq.NoError(c.PostAd(ctx, rolimons.Ad{PlayerID: 5, OfferItemIDs: []int64{1, 2}, RequestTags: []string{"any"}}))
	rq.Equal(int64(5), got.PlayerID)
	rq.Equal([]int64{}, got.RequestItemIDs)

	rq.Error(c.PostAd(ctx, rolimons.Ad{PlayerID: 5}))
}

func TestRecentAdsAndAdCount(t *testing.T) {
	rq := require.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tradeads/v1/getrecentads", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"trade_ads":[
			[100,1700000000,555,"alice",{"items":[1]},{"tags":["any"]}],
			[101,1700000001,0,"ghost",{},{}],
			[102]
		]}`)
	})
	mux.HandleFunc("GET /player/555", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><script>
			var foo = 1;
			var player_details_data = {"player_id":555,"player_name":"alice","trade_ad_count":17,"rank":null};
			var scanned_player_assets = {};
		</script></html>`)
	})
	mux.HandleFunc("GET /player/556", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html></html>`)
	})

	c := newClient(t, mux)
	ctx := context.Background()

	ads, err := c.RecentAds(ctx)
	rq.NoError(err)
	rq.Len(ads, 1)
	rq.Equal(int64(555), ads[0].PlayerID)
	rq.Equal("alice", ads[0].Username)

	n, err := c.TradeAdCount(ctx, 555)
	rq.NoError(err)
	rq.Equal(17, n)

	_, err = c.TradeAdCount(ctx, 556)
	rq.ErrorIs(err, domain.ErrMalformedResponse)
}
