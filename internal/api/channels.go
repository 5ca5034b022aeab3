package api

import (
	stderrs "errors"
	"html"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	v1 "github.com/jdholdren/riffle/api/v1"
	"github.com/jdholdren/riffle/internal/errors"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/serverutil"
)

// How many feeds of a batch subscribe are fetched at once.
const subscribeConcurrency = 5

var stripPolicy = bluemonday.StrictPolicy()

// plainText removes all html tags from user input. The policy escapes what
// it keeps, so entities are turned back into characters before storing.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", errors.E(errors.KindInput, "missing query parameter", errors.Detail{Field: name, Error: "required"})
	}
	return v, nil
}

func (s Server) getChannels(w http.ResponseWriter, r *http.Request) error {
	channels, err := s.repo.AllChannels(r.Context())
	if err != nil {
		return err
	}
	if channels == nil {
		channels = []riffle.Channel{}
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.ChannelsResponse{Channels: channels})
}

func (s Server) postChannels(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	body, err := serverutil.DecodeValid[v1.SubscribeRequest](r.Body)
	if err != nil {
		return err
	}

	if body.URL != "" {
		res, err := s.subscriber.Subscribe(ctx, body.URL)
		if err != nil {
			return err
		}
		return serverutil.WriteJSON(w, http.StatusCreated, v1.SubscribeResponse{
			Channel:  res.Channel,
			NewItems: res.Inserted,
		})
	}

	// Each URL of a batch succeeds or fails on its own.
	results := make([]v1.SubscribeResult, len(body.URLs))
	var g errgroup.Group
	g.SetLimit(subscribeConcurrency)
	for i, u := range body.URLs {
		g.Go(func() error {
			results[i] = v1.SubscribeResult{URL: u}
			res, err := s.subscriber.Subscribe(ctx, u)
			if err != nil {
				results[i].Error = message(err)
				return nil
			}
			results[i].Success = true
			results[i].Channel = &res.Channel
			results[i].NewItems = res.Inserted
			return nil
		})
	}
	_ = g.Wait()

	return serverutil.WriteJSON(w, http.StatusOK, v1.BatchSubscribeResponse{Results: results})
}

// message is what a user gets to see of a failure.
func message(err error) string {
	var sErr *errors.Error
	if stderrs.As(err, &sErr) {
		return sErr.Message()
	}
	return "internal server error"
}

func (s Server) deleteChannel(w http.ResponseWriter, r *http.Request) error {
	link, err := requiredParam(r, "link")
	if err != nil {
		return err
	}

	if err := s.repo.DeleteChannel(r.Context(), link); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s Server) patchChannelSettings(w http.ResponseWriter, r *http.Request) error {
	link, err := requiredParam(r, "link")
	if err != nil {
		return err
	}
	body, err := serverutil.DecodeValid[v1.UpdateChannelSettingsRequest](r.Body)
	if err != nil {
		return err
	}

	args := riffle.UpdateChannelSettingsArgs{
		HideOnMainFeed: body.HideOnMainFeed,
		CollectionIDs:  body.CollectionIDs,
	}
	if body.CustomTitle != nil {
		title := plainText(*body.CustomTitle)
		args.CustomTitle = &title
	}

	ch, err := s.repo.UpdateChannelSettings(r.Context(), link, args)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, ch)
}

func (s Server) postChannelCollection(w http.ResponseWriter, r *http.Request) error {
	link, err := requiredParam(r, "link")
	if err != nil {
		return err
	}
	collectionID, err := requiredParam(r, "collection_id")
	if err != nil {
		return err
	}

	ch, err := s.repo.ToggleChannelCollection(r.Context(), link, collectionID)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, ch)
}
