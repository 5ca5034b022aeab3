package api

import (
	"net/http"

	"github.com/gorilla/mux"

	v1 "github.com/jdholdren/riffle/api/v1"
	"github.com/jdholdren/riffle/internal/errors"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/serverutil"
)

func (s Server) getCollections(w http.ResponseWriter, r *http.Request) error {
	collections, err := s.repo.AllCollections(r.Context())
	if err != nil {
		return err
	}
	if collections == nil {
		collections = []riffle.Collection{}
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.CollectionsResponse{Collections: collections})
}

func (s Server) postCollection(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[v1.CreateCollectionRequest](r.Body)
	if err != nil {
		return err
	}

	name := plainText(body.Name)
	if name == "" {
		return errors.E(errors.KindInput, "invalid request", errors.Detail{Field: "name", Error: "required"})
	}

	c, err := s.repo.CreateCollection(r.Context(), name)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, c)
}

func (s Server) deleteCollection(w http.ResponseWriter, r *http.Request) error {
	if err := s.repo.DeleteCollection(r.Context(), mux.Vars(r)["id"]); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
