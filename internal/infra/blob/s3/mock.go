package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a *Store whose SDK client talks to an in-memory
// fake transport. Only the operations blob.Store needs are implemented.
func NewMockForTests() *Store {
	transport := &fakeTransport{objects: make(map[string]fakeObject)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: transport}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: "mock-bucket", presign: s3.NewPresignClient(client)}
}

type fakeObject struct {
	data        []byte
	contentType string
}

type fakeTransport struct {
	objects map[string]fakeObject
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// path-style: /<bucket>/<key>
	_, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	switch {
	case req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2"):
		return f.listObjects(req.URL.Query().Get("prefix")), nil
	case req.Method == http.MethodHead:
		return f.headObject(key), nil
	case req.Method == http.MethodPut:
		return f.putObject(key, req), nil
	case req.Method == http.MethodGet:
		return f.getObject(key), nil
	case req.Method == http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, http.Header{}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func (f *fakeTransport) listObjects(prefix string) *http.Response {
	var keys []string
	for k := range f.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?><ListBucketResult><IsTruncated>false</IsTruncated>")
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].data))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func (f *fakeTransport) headObject(key string) *http.Response {
	obj, ok := f.objects[key]
	if !ok {
		return respond(http.StatusNotFound, nil, http.Header{})
	}
	return respond(http.StatusOK, nil, objectHeaders(obj))
}

func (f *fakeTransport) putObject(key string, req *http.Request) *http.Response {
	body, _ := io.ReadAll(req.Body)
	if decoded, ok := unchunk(body); ok {
		body = decoded
	}
	if _, exists := f.objects[key]; !exists {
		f.objects[key] = fakeObject{data: body, contentType: req.Header.Get("Content-Type")}
	}
	return respond(http.StatusOK, nil, http.Header{"ETag": {"\"etag\""}})
}

func (f *fakeTransport) getObject(key string) *http.Response {
	obj, ok := f.objects[key]
	if !ok {
		return respond(http.StatusNotFound, nil, http.Header{})
	}
	return respond(http.StatusOK, obj.data, objectHeaders(obj))
}

func objectHeaders(obj fakeObject) http.Header {
	return http.Header{
		"Content-Length": {strconv.Itoa(len(obj.data))},
		"Content-Type":   {obj.contentType},
		"ETag":           {"\"etag\""},
		"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
	}
}

func respond(status int, body []byte, headers http.Header) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     headers,
	}
}

// unchunk decodes a single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func unchunk(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}
