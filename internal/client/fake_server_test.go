package client_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/LeadsPlus/rets/internal/client"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "user"
	testPassword = "pass"

	// basicUserPass is "Basic " + base64("user:pass").
	basicUserPass = "Basic dXNlcjpwYXNz"

	capabilityBlock = `
MemberName=Test Agent
User=42,Agent,1,TESTAGENT
Search=/rets/search
GetMetadata=/rets/getmetadata
Logout=/rets/logout
`
)

// recordedRequest is one request seen by the fake server.
type recordedRequest struct {
	Path    string
	Host    string
	Headers http.Header
	Body    string
}

// fakeRETS is an httptest server that records every request and dispatches
// on the URL path.
type fakeRETS struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]http.HandlerFunc
}

func newFakeRETS(t *testing.T, routes map[string]http.HandlerFunc) *fakeRETS {
	t.Helper()

	fake := &fakeRETS{routes: routes}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		request.Body = io.NopCloser(bytes.NewReader(body))

		fake.mu.Lock()
		fake.requests = append(fake.requests, recordedRequest{
			Path:    request.URL.Path,
			Host:    request.Host,
			Headers: request.Header.Clone(),
			Body:    string(body),
		})
		handler, ok := fake.routes[request.URL.Path]
		fake.mu.Unlock()

		if !ok {
			http.NotFound(writer, request)

			return
		}

		handler(writer, request)
	}))
	t.Cleanup(fake.Close)

	return fake
}

// Requests returns the recorded requests for path, or all of them when path
// is empty.
func (f *fakeRETS) Requests(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []recordedRequest

	for _, req := range f.requests {
		if path == "" || req.Path == path {
			out = append(out, req)
		}
	}

	return out
}

// LoginURL is the absolute login URL of the fake server.
func (f *fakeRETS) LoginURL() string {
	return f.URL + "/rets/login"
}

// basicLogin challenges until the request carries user:pass and then answers
// with capabilities.
func basicLogin(capabilities string, setCookies ...string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		for _, cookie := range setCookies {
			writer.Header().Add("Set-Cookie", cookie)
		}

		if request.Header.Get("Authorization") != basicUserPass {
			writer.Header().Set("WWW-Authenticate", `Basic realm="rets"`)
			writer.WriteHeader(http.StatusUnauthorized)

			return
		}

		writeCapabilities(writer, capabilities)
	}
}

func writeCapabilities(writer http.ResponseWriter, capabilities string) {
	_, _ = fmt.Fprintf(writer,
		`<RETS ReplyCode="0" ReplyText="V2.7.0 761: Success"><RETS-RESPONSE>%s</RETS-RESPONSE></RETS>`,
		capabilities)
}

func alwaysUnauthorized(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("WWW-Authenticate", `Basic realm="rets"`)
	writer.WriteHeader(http.StatusUnauthorized)
}

func replyOK(writer http.ResponseWriter, _ *http.Request) {
	_, _ = writer.Write([]byte(`<RETS ReplyCode="0" ReplyText="Operation Successful"/>`))
}

// compactMetadata renders a COMPACT metadata reply with tab-framed rows, the
// shape real servers send.
func compactMetadata(kind string, columns []string, rows ...[]string) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, `<RETS ReplyCode="0" ReplyText="Success"><METADATA-%s Version="1.00.000" Date="Tue, 3 Sep 2013 00:00:00 GMT">`, kind)
	builder.WriteString(`<DELIMITER value="09"/>`)
	fmt.Fprintf(&builder, "<COLUMNS>\t%s\t</COLUMNS>", strings.Join(columns, "\t"))

	for _, row := range rows {
		fmt.Fprintf(&builder, "<DATA>\t%s\t</DATA>", strings.Join(row, "\t"))
	}

	fmt.Fprintf(&builder, "</METADATA-%s></RETS>", kind)

	return builder.String()
}

// newTestClient builds a client against fake with user:pass credentials.
func newTestClient(t *testing.T, fake *fakeRETS, mutate ...func(*rets.Config)) *client.Client {
	t.Helper()

	config := &rets.Config{
		LoginURL: fake.LoginURL(),
		Username: testUsername,
		Password: testPassword,
	}

	for _, fn := range mutate {
		fn(config)
	}

	retsClient, err := client.New(config)
	require.NoError(t, err)

	return retsClient
}
