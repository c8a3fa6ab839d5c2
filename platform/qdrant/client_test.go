package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchSendsFilterAndDecodesResults(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/inquiries/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "k" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":[{"id":"a","score":0.9,"payload":{"sender":"x@y.z"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "k", Collection: "inquiries"})
	res, err := c.Search(context.Background(), []float32{0.1, 0.2}, 3, FieldEquals("sender", "x@y.z"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Score != 0.9 {
		t.Fatalf("unexpected results %+v", res)
	}
	if got.Filter == nil || got.Filter.Must[0].Key != "sender" || got.Limit != 3 {
		t.Fatalf("filter not forwarded: %+v", got)
	}
}

func TestEnsureCollectionCreatesMissing(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			_, _ = w.Write([]byte(`{"result":true}`))
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Collection: "inquiries"})
	if err := c.EnsureCollection(context.Background(), 8); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if !created {
		t.Fatalf("expected collection to be created")
	}
}
