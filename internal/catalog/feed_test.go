package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *FeedClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewFeedClient(srv.URL, time.Second)
}

func TestFetchProducts(t *testing.T) {
	c := serve(t, http.StatusOK, `{"products":[
		{"name":"Brown eggs","id":1,"in_stock":true,"description":"Raw organic brown eggs in a basket","price":28.1,"weight":400,"image":"0.jpg"},
		{"name":"Mystery box","id":2,"in_stock":false,"description":"","price":"9.99","image":"1.jpg"}
	]}`)

	products, err := c.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	eggs := products[0]
	assert.Equal(t, 1, eggs.ID)
	assert.Equal(t, "Brown eggs", eggs.Name)
	assert.True(t, eggs.Price.Equal(decimal.RequireFromString("28.1")))
	require.NotNil(t, eggs.Weight)
	assert.Equal(t, 400, *eggs.Weight)
	assert.True(t, eggs.InStock)

	box := products[1]
	assert.Nil(t, box.Weight)
	assert.False(t, box.InStock)
	assert.True(t, box.Price.Equal(decimal.RequireFromString("9.99")))
}

func TestFetchProductsEmptyFeed(t *testing.T) {
	c := serve(t, http.StatusOK, `{"products":[]}`)
	products, err := c.FetchProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestFetchProductsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusBadGateway, `{"products":[]}`},
		{"not json", http.StatusOK, `nope`},
		{"missing products", http.StatusOK, `{"items":[]}`},
		{"bad price", http.StatusOK, `{"products":[{"id":1,"price":"abc"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serve(t, tt.status, tt.body).FetchProducts(context.Background())
			assert.Error(t, err)
		})
	}
}
