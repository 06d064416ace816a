package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princedesai012/Doc-Flow/internal/model"
)

func TestResolve(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/request/tok123", r.URL.Path)
			json.NewEncoder(w).Encode(model.Request{ID: "r1", Status: model.StatusViewed})
		}))
		defer srv.Close()

		c := New(srv.URL, time.Second)
		req, err := c.Resolve(context.Background(), "tok123")
		require.NoError(t, err)
		assert.Equal(t, "r1", req.ID)
		assert.Equal(t, model.StatusViewed, req.Status)
	})

	t.Run("expired link surfaces the api code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"request_id":"x","error":{"code":"LINK_EXPIRED","message":"this link is no longer active"}}`))
		}))
		defer srv.Close()

		c := New(srv.URL, time.Second)
		_, err := c.Resolve(context.Background(), "old")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Equal(t, "LINK_EXPIRED", apiErr.Code)
	})
}

func TestUpload(t *testing.T) {
	t.Run("sends multipart fields", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "tok123", r.FormValue("accessToken"))
			assert.Equal(t, "PAN", r.FormValue("docType"))

			f, fh, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			assert.Equal(t, "capture.jpg", fh.Filename)
			assert.Equal(t, "image/jpeg", fh.Header.Get("Content-Type"))

			json.NewEncoder(w).Encode(model.Request{ID: "r1", Status: model.StatusPartial})
		}))
		defer srv.Close()

		c := New(srv.URL, time.Second)
		req, err := c.Upload(context.Background(), "tok123", "PAN", "capture.jpg", strings.NewReader("img-bytes"), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, model.StatusPartial, req.Status)
	})

	t.Run("undeclared type surfaces the api code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"request_id":"x","error":{"code":"INVALID_DOC_TYPE","message":"document type was not requested"}}`))
		}))
		defer srv.Close()

		c := New(srv.URL, time.Second)
		_, err := c.Upload(context.Background(), "tok123", "Passport", "a.jpg", strings.NewReader("x"), "image/jpeg")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INVALID_DOC_TYPE", apiErr.Code)
	})
}
