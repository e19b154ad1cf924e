package replica

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 accepts PutObject requests and remembers bodies by bucket/key path.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	fail    bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader(`<?xml version="1.0"?><Error><Code>InternalError</Code><Message>down</Message></Error>`)),
			Header:     http.Header{"Content-Type": {"application/xml"}},
			Request:    req,
		}, nil
	}
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusMethodNotAllowed, Body: io.NopCloser(strings.NewReader("")), Header: http.Header{}, Request: req}, nil
	}
	body, _ := io.ReadAll(req.Body)
	f.objects[strings.TrimPrefix(req.URL.Path, "/")] = string(body)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     http.Header{"ETag": {`"etag"`}},
		Request:    req,
	}, nil
}

func newFakeS3Replica(rt http.RoundTripper) *S3 {
	awsCfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
	}
	return NewS3FromConfig(awsCfg, S3Config{
		Bucket:    "roster",
		Endpoint:  "https://mock.s3.local",
		Prefix:    "ledger",
		PathStyle: true,
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.RetryMaxAttempts = 1
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
}

func TestS3PutUploadsUnderPrefix(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	r := newFakeS3Replica(fake)

	err := r.Put(context.Background(),
		Object{Name: "master.csv", ContentType: "text/csv", Data: []byte("person_id\n")},
		Object{Name: "history.csv", ContentType: "text/csv", Data: []byte("log_id\n")},
	)
	require.NoError(t, err)
	assert.Equal(t, "person_id\n", fake.objects["roster/ledger/master.csv"])
	assert.Equal(t, "log_id\n", fake.objects["roster/ledger/history.csv"])
	assert.Equal(t, "s3://roster/ledger", r.Target())
}

func TestS3PutReportsFailure(t *testing.T) {
	r := newFakeS3Replica(&fakeS3{objects: map[string]string{}, fail: true})
	err := r.Put(context.Background(), Object{Name: "master.csv", Data: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://roster/ledger/master.csv")
}

func TestDirectoryMirrors(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, d.Put(context.Background(), Object{Name: "archive/20260101T000000Z/master.csv", Data: []byte("a")}))

	data, err := d.Read("archive/20260101T000000Z/master.csv")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	assert.True(t, strings.HasPrefix(d.Target(), "dir://"))

	_, err = NewDirectory("")
	assert.Error(t, err)
}
