package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTP(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := NewHTTP(Options{URL: "http://localhost:8086"})
		require.NoError(t, err)
		assert.Equal(t, "ns", c.Precision())
	})

	t.Run("explicit precision", func(t *testing.T) {
		c, err := NewHTTP(Options{URL: "http://localhost:8086", Precision: "ms"})
		require.NoError(t, err)
		assert.Equal(t, "ms", c.Precision())
	})

	t.Run("rejects urls without scheme", func(t *testing.T) {
		_, err := NewHTTP(Options{URL: "localhost:8086"})
		require.Error(t, err)
	})
}

func TestQueryDecodesShards(t *testing.T) {
	var gotPath, gotQ, gotDB, gotEpoch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQ = r.URL.Query().Get("q")
		gotDB = r.URL.Query().Get("db")
		gotEpoch = r.URL.Query().Get("epoch")
		fmt.Fprint(w, `{"results":[{"series":[
			{"name":"cpu","tags":{"host":"eu"},"columns":["time","usage"],"values":[[1,0.5],[2,0.6]]},
			{"name":"cpu","tags":{"host":"us"},"columns":["time","usage"],"values":[[1,0.7]]}
		]}]}`)
	}))
	defer srv.Close()

	c, err := NewHTTP(Options{URL: srv.URL, Database: "db"})
	require.NoError(t, err)

	shards, err := c.Query(context.Background(), `select * from "cpu"`, QueryOptions{Epoch: "s"})
	require.NoError(t, err)

	assert.Equal(t, "/query", gotPath)
	assert.Equal(t, `select * from "cpu"`, gotQ)
	assert.Equal(t, "db", gotDB)
	assert.Equal(t, "s", gotEpoch)

	require.Len(t, shards, 2)
	assert.Equal(t, "cpu", shards[0].Name)
	assert.Equal(t, map[string]string{"host": "eu"}, shards[0].Tags)
	require.Len(t, shards[0].Rows, 2)
	assert.Equal(t, 0.5, shards[0].Rows[0]["usage"])
	assert.Equal(t, float64(1), shards[0].Rows[0]["time"])
	assert.Equal(t, map[string]string{"host": "us"}, shards[1].Tags)
}

func TestQueryBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"error":"measurement not found"}]}`)
	}))
	defer srv.Close()

	c, err := NewHTTP(Options{URL: srv.URL})
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "select 1", QueryOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "measurement not found")
}

func TestQueryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewHTTP(Options{URL: srv.URL, RetryMax: 1})
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "select 1", QueryOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "bad query")
}

func TestQuerySendsBasicAuth(t *testing.T) {
	var user, pass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c, err := NewHTTP(Options{URL: srv.URL, Username: "root", Password: "secret"})
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "select 1", QueryOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "root", user)
	assert.Equal(t, "secret", pass)
}

func TestWritePoint(t *testing.T) {
	var gotPath, gotBody string
	var gotParams map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotParams = r.URL.Query()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewHTTP(Options{URL: srv.URL, Database: "db", Precision: "ns"})
	require.NoError(t, err)

	ts := int64(1420000000000000000)
	err = c.WritePoint(context.Background(), "cpu", PointData{
		Values:    map[string]any{"usage": 0.5, "count": 2},
		Tags:      map[string]string{"host": "eu-1"},
		Timestamp: &ts,
	}, "", "a_year", "")
	require.NoError(t, err)

	assert.Equal(t, "/write", gotPath)
	assert.Equal(t, []string{"db"}, gotParams["db"])
	assert.Equal(t, []string{"a_year"}, gotParams["rp"])
	assert.Equal(t, []string{"ns"}, gotParams["precision"])
	assert.Equal(t, "cpu,host=eu-1 count=2i,usage=0.5 1420000000000000000", gotBody)
}

func TestWritePointOverrides(t *testing.T) {
	var gotParams map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewHTTP(Options{URL: srv.URL, Database: "db", Precision: "ns"})
	require.NoError(t, err)

	err = c.WritePoint(context.Background(), "cpu", PointData{
		Values: map[string]any{"usage": 1},
	}, "ms", "", "custom")
	require.NoError(t, err)

	assert.Equal(t, []string{"custom"}, gotParams["db"])
	assert.Equal(t, []string{"ms"}, gotParams["precision"])
	assert.Nil(t, gotParams["rp"])
}

func TestEncodeLine(t *testing.T) {
	t.Run("full point", func(t *testing.T) {
		ts := int64(123)
		line, err := encodeLine("cpu", PointData{
			Values:    map[string]any{"usage": 0.5, "count": 2},
			Tags:      map[string]string{"host": "eu", "az": "a"},
			Timestamp: &ts,
		})
		require.NoError(t, err)
		assert.Equal(t, "cpu,az=a,host=eu count=2i,usage=0.5 123", line)
	})

	t.Run("no tags no timestamp", func(t *testing.T) {
		line, err := encodeLine("cpu", PointData{Values: map[string]any{"usage": 1.5}})
		require.NoError(t, err)
		assert.Equal(t, "cpu usage=1.5", line)
	})

	t.Run("value types", func(t *testing.T) {
		line, err := encodeLine("m", PointData{Values: map[string]any{
			"b": true,
			"f": 2.5,
			"i": int64(7),
			"s": `say "hi"`,
		}})
		require.NoError(t, err)
		assert.Equal(t, `m b=true,f=2.5,i=7i,s="say \"hi\""`, line)
	})

	t.Run("escaping", func(t *testing.T) {
		line, err := encodeLine("cpu load", PointData{
			Values: map[string]any{"usage": 1},
			Tags:   map[string]string{"data center": "eu=west,1"},
		})
		require.NoError(t, err)
		assert.Equal(t, `cpu\ load,data\ center=eu\=west\,1 usage=1i`, line)
	})

	t.Run("no values is an error", func(t *testing.T) {
		_, err := encodeLine("cpu", PointData{})
		require.Error(t, err)
	})
}
