package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/skillview/internal/apperr"
	"github.com/starford/skillview/internal/storage"
)

func TestHTTP_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acme/skills/main/a/SKILL.md", r.URL.Path)
		_, _ = w.Write([]byte("# A\n"))
	}))
	defer srv.Close()

	f := NewHTTP(WithTimeout(time.Second))
	got, err := f.Fetch(context.Background(), srv.URL+"/acme/skills/main/a/SKILL.md")
	require.NoError(t, err)
	assert.Equal(t, "# A\n", got)
}

func TestHTTP_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusMovedPermanently} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		f := NewHTTP(WithClient(&http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}))
		_, err := f.Fetch(context.Background(), srv.URL+"/x.md")
		srv.Close()

		require.Error(t, err, "status %d", status)
		assert.True(t, errors.Is(err, apperr.ErrFetchFailed), "status %d", status)
	}
}

func TestHTTP_BodyLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		size := maxBodyBytes
		if r.URL.Path == "/big.md" {
			size++
		}
		_, _ = w.Write([]byte(strings.Repeat("a", size)))
	}))
	defer srv.Close()

	f := NewHTTP(WithRetry(3, time.Millisecond))

	got, err := f.Fetch(context.Background(), srv.URL+"/exact.md")
	require.NoError(t, err)
	assert.Len(t, got, maxBodyBytes)

	calls.Store(0)
	_, err = f.Fetch(context.Background(), srv.URL+"/big.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrFetchFailed))
	assert.Contains(t, err.Error(), "exceeds")
	assert.Equal(t, int32(1), calls.Load(), "oversized body is not retried")
}

func TestHTTP_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("third time"))
	}))
	defer srv.Close()

	f := NewHTTP(WithRetry(3, time.Millisecond))
	got, err := f.Fetch(context.Background(), srv.URL+"/x.md")
	require.NoError(t, err)
	assert.Equal(t, "third time", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTP_DoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTP(WithRetry(5, time.Millisecond))
	_, err := f.Fetch(context.Background(), srv.URL+"/x.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrFetchFailed))
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTP_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewHTTP().Fetch(context.Background(), addr+"/x.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrFetchFailed))
}

func TestHTTP_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTP().Fetch(ctx, srv.URL+"/slow.md")
	assert.True(t, errors.Is(err, apperr.ErrFetchFailed))
}

func TestHTTP_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTP(WithRateLimit(0.001))
	_, err := f.Fetch(context.Background(), srv.URL+"/a.md")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL+"/b.md")
	assert.True(t, errors.Is(err, apperr.ErrFetchFailed))
}

func newLocal(t *testing.T) *Local {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "skill", "SKILL.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("local body"), 0o644))
	store, err := storage.NewFS(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewLocal(store)
}

func TestLocal_ParentRelative(t *testing.T) {
	l := newLocal(t)
	got, err := l.Fetch(context.Background(), "../skill/SKILL.md")
	require.NoError(t, err)
	assert.Equal(t, "local body", got)
}

func TestLocal_Missing(t *testing.T) {
	l := newLocal(t)
	_, err := l.Fetch(context.Background(), "../skill/references/none.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrFetchFailed))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocal_Traversal(t *testing.T) {
	l := newLocal(t)
	_, err := l.Fetch(context.Background(), "../../etc/passwd")
	assert.True(t, errors.Is(err, apperr.ErrFetchFailed))
}

func TestRouter(t *testing.T) {
	var calls []string
	r := &Router{
		Remote: Func(func(_ context.Context, a string) (string, error) { calls = append(calls, "remote:"+a); return "", nil }),
		Local:  Func(func(_ context.Context, a string) (string, error) { calls = append(calls, "local:"+a); return "", nil }),
	}
	ctx := context.Background()
	_, _ = r.Fetch(ctx, "https://raw.githubusercontent.com/a/b/main/x.md")
	_, _ = r.Fetch(ctx, "http://localhost/x.md")
	_, _ = r.Fetch(ctx, "../x.md")
	assert.Equal(t, []string{
		"remote:https://raw.githubusercontent.com/a/b/main/x.md",
		"remote:http://localhost/x.md",
		"local:../x.md",
	}, calls)
}
