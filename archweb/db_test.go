package archweb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/require"
)

// dbEntry is one package directory in a synthetic sync database
type dbEntry struct {
	pkgid   string
	desc    string
	depends string
}

// buildDB assembles a gzip-compressed sync database tar in memory
func buildDB(t *testing.T, compress bool, entries []dbEntry) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)

	writeFile := func(name, content string) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.pkgid + "/",
			Mode:     0o755,
			Typeflag: tar.TypeDir,
		}))
		writeFile(e.pkgid+"/desc", e.desc)
		if e.depends != "" {
			writeFile(e.pkgid+"/depends", e.depends)
		}
	}
	require.NoError(t, tw.Close())

	if !compress {
		return tarBuf.Bytes()
	}

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	_, err := gz.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return gzBuf.Bytes()
}

func TestParseRepoDB(t *testing.T) {
	db := buildDB(t, true, []dbEntry{
		{
			pkgid: "libfoo-1.0-1",
			desc:  "%NAME%\nlibfoo\n\n%BASE%\nfoo\n\n%ARCH%\nx86_64\n\n%DEPENDS%\nglibc>=2.38\n",
			depends: "%MAKEDEPENDS%\ncmake\n\n%OPTDEPENDS%\n" +
				"gtk3: for the GUI\n",
		},
		{
			pkgid: "bar-2.0-1",
			desc:  "%NAME%\nbar\n\n%ARCH%\nany\n",
		},
	})

	pkgs, err := ParseRepoDB(bytes.NewReader(db), "extra")
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	foo := pkgs["libfoo"]
	require.NotNil(t, foo)
	require.Equal(t, "extra", foo.Repo)
	require.Equal(t, "foo", foo.Base)
	require.Equal(t, "x86_64", foo.Arch)
	require.True(t, foo.Depends.Has("glibc"), "version constraint should be stripped")
	require.True(t, foo.MakeDepends.Has("cmake"), "depends file should merge with desc")
	require.True(t, foo.OptDepends.Has("gtk3"), "optdepends description should be stripped")

	bar := pkgs["bar"]
	require.NotNil(t, bar)
	require.Empty(t, bar.Depends, "missing fields become empty sets")
	require.NotNil(t, bar.MakeDepends)
	require.NotNil(t, bar.CheckDepends)
}

func TestParseRepoDBUncompressed(t *testing.T) {
	db := buildDB(t, false, []dbEntry{
		{pkgid: "baz-1-1", desc: "%NAME%\nbaz\n\n%ARCH%\nx86_64\n"},
	})

	pkgs, err := ParseRepoDB(bytes.NewReader(db), "core")
	require.NoError(t, err)
	require.Contains(t, pkgs, "baz")
}

func TestParseRepoDBMissingName(t *testing.T) {
	db := buildDB(t, true, []dbEntry{
		{pkgid: "broken-1-1", desc: "%ARCH%\nx86_64\n"},
	})

	_, err := ParseRepoDB(bytes.NewReader(db), "core")
	require.Error(t, err)
}
