// Package reqlog captures per-request audit metadata and the response
// body, and writes one structured API log record per request.
package reqlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const (
	HeaderCallerApp  = "app-flavour"
	HeaderAppVersion = "app-version-code"

	// UnknownCaller is recorded when the caller app header is absent.
	UnknownCaller = "unknown"
	// NoVersion is recorded when the app version header is absent.
	NoVersion = "0"

	wallClockLayout = "15:04:05.000"
)

// Context is the audit metadata of one request. It is built once by
// Recorder.Record before the handler runs and is not modified afterwards.
type Context struct {
	RequestID      string
	TraceID        string
	CallerApp      string
	AppVersion     string
	APIName        string
	Method         string
	ClientIP       string
	StartWallClock string
	Start          time.Time
	// Body is the trimmed request body: decoded JSON, or nil when the
	// request had no JSON body.
	Body any
}

// IDSource issues strictly increasing request IDs derived from the clock:
// Unix milliseconds with six fractional digits.
type IDSource struct {
	last atomic.Int64
}

// Next returns an ID greater than every ID previously returned.
func (s *IDSource) Next(now time.Time) string {
	for {
		prev := s.last.Load()
		n := now.UnixNano()
		if n <= prev {
			n = prev + 1
		}
		if s.last.CompareAndSwap(prev, n) {
			return fmt.Sprintf("%d.%06d", n/int64(time.Millisecond), n%int64(time.Millisecond))
		}
	}
}

// Recorder builds audit contexts. One Recorder is shared by all requests;
// it holds no per-request state.
type Recorder struct {
	ids     IDSource
	route   string
	maxBody int64
	now     func() time.Time
}

// NewRecorder creates a Recorder that strips "/<route>/" from API names.
// Request bodies larger than maxBody are normalised but not logged.
func NewRecorder(route string, maxBody int64) *Recorder {
	if maxBody <= 0 {
		maxBody = 64 << 10
	}
	return &Recorder{route: strings.Trim(route, "/"), maxBody: maxBody, now: time.Now}
}

// Record captures the audit context of r. JSON bodies, including bodies
// sent without a Content-Type, are deep-trimmed and r.Body is replaced with
// the trimmed encoding, so handlers see the normalised input. A body that
// should be JSON but does not parse is an error; the caller must fail the
// request.
func (rec *Recorder) Record(r *http.Request, clientIP, traceID string) (*Context, error) {
	start := rec.now()
	ctx := &Context{
		RequestID:      rec.ids.Next(start),
		TraceID:        traceID,
		CallerApp:      headerOr(r, HeaderCallerApp, UnknownCaller),
		AppVersion:     headerOr(r, HeaderAppVersion, NoVersion),
		APIName:        rec.apiName(r),
		Method:         r.Method,
		ClientIP:       clientIP,
		StartWallClock: start.Format(wallClockLayout),
		Start:          start,
	}

	body, err := rec.trimBody(r)
	if err != nil {
		return nil, err
	}
	ctx.Body = body
	return ctx, nil
}

func headerOr(r *http.Request, name, def string) string {
	if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
		return v
	}
	return def
}

func (rec *Recorder) apiName(r *http.Request) string {
	path := r.URL.Path // excludes the query string
	if rec.route != "" {
		path = strings.Replace(path, "/"+rec.route+"/", "", 1)
	}
	return path
}

// IsJSONContent reports whether a Content-Type header value names a JSON
// payload. An absent header counts as JSON, since JSON binding does not
// look at it.
func IsJSONContent(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

func (rec *Recorder) trimBody(r *http.Request) (any, error) {
	if r.Body == nil || r.Body == http.NoBody || !IsJSONContent(r.Header.Get("Content-Type")) {
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		return nil, nil
	}

	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	v = Trim(v)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(&buf)
	r.ContentLength = int64(buf.Len())

	// maxBody bounds the log record only; the handler always sees the
	// normalised body.
	if int64(len(raw)) > rec.maxBody {
		return fmt.Sprintf("<%d+ bytes not logged>", rec.maxBody), nil
	}
	return v, nil
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("reqlog: trailing data after JSON body")
	}
	return v, nil
}

// Trim returns v with leading and trailing whitespace removed from every
// string at every depth. Non-string values are returned unchanged.
func Trim(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for k, e := range t {
			t[k] = Trim(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = Trim(e)
		}
		return t
	default:
		return v
	}
}
