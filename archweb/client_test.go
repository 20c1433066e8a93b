package archweb

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrphansFollowsPagination(t *testing.T) {
	var requestedPages []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/packages/search/json/", r.URL.Path)
		require.Equal(t, "orphan", r.URL.Query().Get("maintainer"))

		page := r.URL.Query().Get("page")
		requestedPages = append(requestedPages, page)

		pageNum, err := strconv.Atoi(page)
		require.NoError(t, err)
		resp := map[string]any{
			"num_pages": 2,
			"page":      pageNum,
		}
		switch page {
		case "1":
			resp["results"] = []map[string]string{{"pkgname": "liborphan"}, {"pkgname": "olddaemon"}}
		default:
			resp["results"] = []map[string]string{{"pkgname": "stale-tool"}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	orphans, err := c.Orphans(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"1", "2"}, requestedPages)
	require.Len(t, orphans, 3)
	require.True(t, orphans.Has("liborphan"))
	require.True(t, orphans.Has("stale-tool"))
}

func TestOrphansCapitalizesRepoNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.ElementsMatch(t, []string{"Core", "Extra"}, r.URL.Query()["repo"])
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"num_pages": 1,
			"results":   []map[string]string{},
		}))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRepos("core", "extra"))
	_, err := c.Orphans(context.Background())
	require.NoError(t, err)
}

func TestMaintainers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/packages/extra/x86_64/nginx/json/", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"maintainers": []string{"alice", "bob"},
		}))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	maints, err := c.Maintainers(context.Background(), "extra", "x86_64", "nginx")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, maints)
}

func TestMaintainersHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Maintainers(context.Background(), "extra", "x86_64", "gone")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestFetchSyncDB(t *testing.T) {
	db := buildDB(t, true, []dbEntry{
		{pkgid: "foo-1-1", desc: "%NAME%\nfoo\n\n%ARCH%\nx86_64\n"},
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/core/os/x86_64/core.db", r.URL.Path)
		_, _ = w.Write(db)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	c := NewClient(WithMirrorURL(srv.URL))

	path, err := c.FetchSyncDB(context.Background(), "core", destDir)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "core.db"))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.Equal(db, written))
}

func TestLoadPackagesMergesRepos(t *testing.T) {
	coreDB := buildDB(t, true, []dbEntry{
		{pkgid: "glibc-2.38-1", desc: "%NAME%\nglibc\n\n%ARCH%\nx86_64\n"},
	})
	extraDB := buildDB(t, true, []dbEntry{
		{pkgid: "nginx-1.24-1", desc: "%NAME%\nnginx\n\n%ARCH%\nx86_64\n\n%DEPENDS%\nglibc\n"},
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/core/"):
			_, _ = w.Write(coreDB)
		case strings.HasPrefix(r.URL.Path, "/extra/"):
			_, _ = w.Write(extraDB)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(WithMirrorURL(srv.URL), WithRepos("core", "extra"))
	pkgs, err := c.LoadPackages(context.Background(), t.TempDir())
	require.NoError(t, err)

	require.Len(t, pkgs, 2)
	require.Equal(t, "core", pkgs["glibc"].Repo)
	require.Equal(t, "extra", pkgs["nginx"].Repo)
}

func TestBuildAndWriteReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// maintainers endpoint for any package
		name := strings.Split(strings.Trim(r.URL.Path, "/"), "/")[3]
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"maintainers": []string{"maint-of-" + name},
		}))
	}))
	defer srv.Close()

	pkgs := map[string]*Package{
		"app":       pkg("app", "liborphan"),
		"liborphan": pkg("liborphan"),
	}
	pkgs["liborphan"].RequiredBy = NewSet("app")

	c := NewClient(WithBaseURL(srv.URL))
	reports, err := BuildReports(context.Background(), c, pkgs, NewSet("liborphan"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "liborphan", reports[0].Orphan)
	require.Equal(t, []string{"app"}, reports[0].ByMaintainer["maint-of-app"])

	var buf bytes.Buffer
	WriteReport(&buf, reports, NewSet("libdead", "libgone"))
	out := buf.String()

	require.Contains(t, out, "- liborphan:")
	require.Contains(t, out, "maint-of-app: app")
	// unneeded orphans come out sorted
	require.Less(t, strings.Index(out, "libdead"), strings.Index(out, "libgone"))
}
