package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	v1 "github.com/jdholdren/riffle/api/v1"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/serverutil"
)

func (s Server) getItems(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx         = r.Context()
		query       = r.URL.Query()
		page, limit = parsePaginationParams(r, defaultLimit, maxLimit)
	)
	favs, _ := strconv.ParseBool(query.Get("favourites"))

	res, err := s.timeline.Paginate(ctx, riffle.Query{
		Page:  page,
		Limit: limit,
		Filter: riffle.Filter{
			ChannelID:      query.Get("channel_id"),
			CollectionID:   query.Get("collection_id"),
			OnlyFavourites: favs,
			Search:         query.Get("q"),
		},
	})
	if err != nil {
		return err
	}

	items := res.Items
	if items == nil {
		items = []riffle.TimelineItem{}
	}
	return serverutil.WriteJSON(w, http.StatusOK, v1.ItemsResponse{
		Items:      items,
		Pagination: calculatePaginationMeta(res.Page, res.Limit, res.Total),
	})
}

func (s Server) getItem(w http.ResponseWriter, r *http.Request) error {
	item, err := s.repo.Item(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, item)
}

func (s Server) patchItem(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[v1.UpdateItemRequest](r.Body)
	if err != nil {
		return err
	}

	item, err := s.repo.UpdateItem(r.Context(), mux.Vars(r)["id"], riffle.UpdateItemArgs{
		Read:      body.Read,
		Closed:    body.Closed,
		Favourite: body.Favourite,
	})
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, item)
}
