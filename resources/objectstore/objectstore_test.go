package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type S3TestSuite struct {
	suite.Suite

	server *httptest.Server

	mu      sync.Mutex
	objects map[string][]byte
}

func TestS3TestSuite(t *testing.T) {
	suite.Run(t, new(S3TestSuite))
}

// SetupTest starts a minimal path-style S3 endpoint that knows one bucket.
func (s *S3TestSuite) SetupTest() {
	s.objects = make(map[string][]byte)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/archive":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			s.objects[r.URL.Path] = body
			s.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func (s *S3TestSuite) TearDownTest() {
	s.server.Close()
}

func (s *S3TestSuite) config(bucket string) Config {
	return Config{
		Bucket:    bucket,
		Region:    "us-east-1",
		Endpoint:  s.server.URL,
		AccessKey: "test",
		SecretKey: "test",
	}
}

func (s *S3TestSuite) TestConnectAndPut() {
	store := New(s.config("archive"))
	s.True(store.Enabled())
	s.Require().NoError(store.Connect(context.Background()))

	s.Require().NoError(store.Put(context.Background(), "metrics/1", []byte("up 1\n")))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Equal([]byte("up 1\n"), s.objects["/archive/metrics/1"])
}

func (s *S3TestSuite) TestConnectMissingBucket() {
	store := New(s.config("missing"))
	s.Error(store.Connect(context.Background()))
}

func (s *S3TestSuite) TestDisabled() {
	store := New(s.config(""))
	s.False(store.Enabled())
	s.Require().NoError(store.Connect(context.Background()))
	s.ErrorIs(store.Put(context.Background(), "k", nil), ErrNoBucket)
}

func (s *S3TestSuite) TestPutNotConnected() {
	store := New(s.config("archive"))
	s.ErrorIs(store.Put(context.Background(), "k", nil), ErrNotConnected)
}
