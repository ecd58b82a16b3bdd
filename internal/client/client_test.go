package client_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/LeadsPlus/rets/internal/auth"
	"github.com/LeadsPlus/rets/internal/client"
	"github.com/LeadsPlus/rets/pkg/compact"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"
	"github.com/icholy/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBuilder answers every challenge with user:pass and records the
// attempt numbers it is handed.
type countingBuilder struct {
	mu       sync.Mutex
	attempts []int
}

func (b *countingBuilder) BuildAuthorization(challenge string, uri *url.URL, attempt int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attempts = append(b.attempts, attempt)

	return basicUserPass, nil
}

func (b *countingBuilder) Attempts() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]int(nil), b.attempts...)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(nil)
		require.ErrorIs(t, err, rets.ErrConfigRequired)
	})

	t.Run("requires login URL", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(&rets.Config{})
		require.ErrorIs(t, err, rets.ErrLoginURLRequired)
	})

	t.Run("rejects non http scheme", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(&rets.Config{LoginURL: "ftp://rets.example.com/login"})
		require.ErrorIs(t, err, rets.ErrInvalidLoginURL)
		require.ErrorIs(t, err, client.ErrUnsupportedScheme)
	})

	t.Run("rejects relative URL", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(&rets.Config{LoginURL: "/rets/login"})
		require.ErrorIs(t, err, rets.ErrInvalidLoginURL)
	})

	t.Run("performs no requests", func(t *testing.T) {
		t.Parallel()

		fake := newFakeRETS(t, map[string]http.HandlerFunc{"/rets/login": basicLogin(capabilityBlock)})

		retsClient := newTestClient(t, fake)
		assert.NotNil(t, retsClient)
		assert.Empty(t, fake.Requests(""))
		assert.Equal(t, "/rets/login", retsClient.LoginURL().Path)
	})
}

func TestHostPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "http://rets.example.com/rets/login", want: "rets.example.com:80"},
		{raw: "https://rets.example.com/rets/login", want: "rets.example.com:443"},
		{raw: "http://rets.example.com:6103/rets/login", want: "rets.example.com:6103"},
	}

	for _, testCase := range tests {
		t.Run(testCase.raw, func(t *testing.T) {
			t.Parallel()

			parsed, err := client.ParseLoginURL(testCase.raw)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, client.HostPort(parsed))
		})
	}
}

func TestLogin_ChallengeThenSuccess(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{"/rets/login": basicLogin(capabilityBlock)})
	retsClient := newTestClient(t, fake)

	capabilities, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/rets/search", capabilities["Search"])
	assert.Equal(t, "/rets/getmetadata", capabilities["GetMetadata"])
	assert.Equal(t, "42,Agent,1,TESTAGENT", capabilities["User"])

	requests := fake.Requests("/rets/login")
	require.Len(t, requests, 2)
	assert.Empty(t, requests[0].Headers.Get("Authorization"))
	assert.Equal(t, basicUserPass, requests[1].Headers.Get("Authorization"))
	assert.Equal(t, basicUserPass, retsClient.Session().Authorization)
	assert.Equal(t, 1, retsClient.Attempts())
}

func TestLogin_IsIdempotent(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{"/rets/login": basicLogin(capabilityBlock)})
	retsClient := newTestClient(t, fake)

	first, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	second, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	_, err = retsClient.Capability(context.Background(), "Search")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, fake.Requests("/rets/login"), 2)
}

func TestLogin_TwoUnauthorizedRetriesOnce(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{"/rets/login": alwaysUnauthorized})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Login(context.Background())
	require.ErrorIs(t, err, rets.ErrAuthorizationFailure)
	assert.True(t, rets.IsAuthorizationFailure(err))

	assert.Len(t, fake.Requests("/rets/login"), 2)

	session := retsClient.Session()
	assert.Empty(t, session.Authorization)
	assert.Nil(t, session.Capabilities)
}

func TestLogin_WithoutChallenge(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": func(writer http.ResponseWriter, _ *http.Request) {
			writeCapabilities(writer, capabilityBlock)
		},
	})
	retsClient := newTestClient(t, fake)

	capabilities, err := retsClient.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/rets/search", capabilities["Search"])
	assert.Len(t, fake.Requests("/rets/login"), 1)
	assert.Equal(t, 0, retsClient.Attempts())
}

func TestLogin_ProtocolError(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": func(writer http.ResponseWriter, _ *http.Request) {
			_, _ = writer.Write([]byte(`<RETS ReplyCode="20013" ReplyText="Invalid credentials"/>`))
		},
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Login(context.Background())
	require.Error(t, err)

	protoErr := &rets.ProtocolError{}
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, 20013, protoErr.Code)
	assert.Equal(t, "Invalid credentials", protoErr.Text)
	assert.Nil(t, retsClient.Session().Capabilities)
}

func TestLogin_ProtocolErrorOnRetry(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": func(writer http.ResponseWriter, request *http.Request) {
			if request.Header.Get("Authorization") == "" {
				alwaysUnauthorized(writer, request)

				return
			}

			_, _ = writer.Write([]byte(`<RETS ReplyCode="20037" ReplyText="Too many outstanding requests"/>`))
		},
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Login(context.Background())
	assert.True(t, rets.IsProtocolError(err, 20037))
	assert.Empty(t, retsClient.Session().Authorization)
}

func TestLogin_DigestChallenge(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": func(writer http.ResponseWriter, request *http.Request) {
			authorization := request.Header.Get("Authorization")
			if authorization == "" {
				writer.Header().Set("WWW-Authenticate", `Digest realm="rets@example.com", qop="auth", nonce="2a1b3c", opaque="0000"`)
				writer.WriteHeader(http.StatusUnauthorized)

				return
			}

			credentials, err := digest.ParseCredentials(authorization)
			if err != nil || credentials.Username != testUsername || credentials.URI != "/rets/login" {
				writer.WriteHeader(http.StatusUnauthorized)

				return
			}

			writeCapabilities(writer, capabilityBlock)
		},
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	credentials, err := digest.ParseCredentials(retsClient.Session().Authorization)
	require.NoError(t, err)
	assert.Equal(t, 1, credentials.Nc)
}

func TestCapability(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": basicLogin(capabilityBlock + "Broken=/rets/bad\x7fpath\nAbsolute=http://other.example.com:6103/rets/object\n"),
	})
	retsClient := newTestClient(t, fake)

	search, err := retsClient.Capability(context.Background(), "Search")
	require.NoError(t, err)
	assert.Equal(t, "/rets/search", search.Path)

	absolute, err := retsClient.Capability(context.Background(), "Absolute")
	require.NoError(t, err)
	assert.Equal(t, "/rets/object", absolute.Path)

	_, err = retsClient.Capability(context.Background(), "Broken")
	require.Error(t, err)
	assert.True(t, rets.IsMalformedResponse(err))

	_, err = retsClient.Capability(context.Background(), "GetObject")
	require.ErrorIs(t, err, rets.ErrCapabilityNotFound)
	assert.False(t, rets.IsMalformedResponse(err))
}

func TestRequest_Headers(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login":  basicLogin(capabilityBlock, "RETS-Session-ID=sess-9; Path=/"),
		"/rets/search": replyOK,
	})
	retsClient := newTestClient(t, fake, func(config *rets.Config) {
		config.UserAgent = "MyAgent/1.0"
		config.UserAgentPassword = "uapass"
	})

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	_, err = retsClient.Request(context.Background(), "/rets/search", nil, http.Header{"X-Extra": []string{"1"}})
	require.NoError(t, err)

	searches := fake.Requests("/rets/search")
	require.Len(t, searches, 1)

	headers := searches[0].Headers
	assert.Equal(t, "MyAgent/1.0", headers.Get("User-Agent"))
	assert.Equal(t, "RETS/1.7.2", headers.Get("RETS-Version"))
	assert.Equal(t, basicUserPass, headers.Get("Authorization"))
	assert.Equal(t, "RETS-Session-ID=sess-9", headers.Get("Cookie"))
	assert.Equal(t, "1", headers.Get("X-Extra"))
	assert.Empty(t, headers.Get("RETS-Request-ID"))
	assert.Equal(t,
		auth.UserAgentAuthorization("MyAgent/1.0", "uapass", "", "sess-9", "RETS/1.7.2"),
		headers.Get("RETS-UA-Authorization"))

	_, port, err := net.SplitHostPort(fake.Listener.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:"+port, searches[0].Host)
}

func TestRequest_DefaultsAndRequestID(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": basicLogin(capabilityBlock),
	})
	retsClient := newTestClient(t, fake, func(config *rets.Config) {
		config.SendRequestID = true
		config.UserAgentPassword = "uapass"
	})

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	for _, req := range fake.Requests("/rets/login") {
		assert.Equal(t, "Client/1.0", req.Headers.Get("User-Agent"))
		assert.Empty(t, req.Headers.Get("Cookie"))

		requestID := req.Headers.Get("RETS-Request-ID")
		_, err := uuid.Parse(requestID)
		require.NoError(t, err)
		assert.Equal(t,
			auth.UserAgentAuthorization("Client/1.0", "uapass", requestID, "", "RETS/1.7.2"),
			req.Headers.Get("RETS-UA-Authorization"))
	}
}

func TestRequest_Cookies(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": func(writer http.ResponseWriter, request *http.Request) {
			if request.Header.Get("Authorization") == "" {
				writer.Header().Add("Set-Cookie", "A=1; Path=/")
				alwaysUnauthorized(writer, request)

				return
			}

			writer.Header().Add("Set-Cookie", "B=2; Path=/")
			writeCapabilities(writer, capabilityBlock)
		},
		"/rets/search": func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Add("Set-Cookie", "A=3; Path=/; HttpOnly")
			replyOK(writer, request)
		},
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	_, err = retsClient.Request(context.Background(), "/rets/search", nil, nil)
	require.NoError(t, err)

	_, err = retsClient.Request(context.Background(), "/rets/search", nil, nil)
	require.NoError(t, err)

	logins := fake.Requests("/rets/login")
	require.Len(t, logins, 2)
	assert.Equal(t, "A=1", logins[1].Headers.Get("Cookie"))

	searches := fake.Requests("/rets/search")
	require.Len(t, searches, 2)
	assert.Equal(t, "A=1; B=2", searches[0].Headers.Get("Cookie"))
	assert.Equal(t, "A=3; B=2", searches[1].Headers.Get("Cookie"))
	assert.Equal(t, "A=3; B=2", retsClient.Session().Cookies)
}

func TestRequest_ReauthenticatesAndReplays(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		expired = true
	)

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": basicLogin(capabilityBlock),
		"/rets/search": func(writer http.ResponseWriter, request *http.Request) {
			mu.Lock()
			defer mu.Unlock()

			if expired {
				expired = false

				alwaysUnauthorized(writer, request)

				return
			}

			_, _ = writer.Write([]byte(`<RETS ReplyCode="0" ReplyText="Success"><COUNT Records="3"/></RETS>`))
		},
	})

	builder := &countingBuilder{}
	retsClient := newTestClient(t, fake, func(config *rets.Config) {
		config.Authorizer = builder
	})

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	resp, err := retsClient.Request(context.Background(), "/rets/search", []byte("SearchType=Property"), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), `Records="3"`)

	searches := fake.Requests("/rets/search")
	require.Len(t, searches, 2)
	assert.Equal(t, "SearchType=Property", searches[1].Body)
	assert.Len(t, fake.Requests("/rets/login"), 3)
	assert.Equal(t, []int{0, 1}, builder.Attempts())
}

func TestRequest_ReplayUnauthorized(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login":  basicLogin(capabilityBlock),
		"/rets/search": alwaysUnauthorized,
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Request(context.Background(), "/rets/search", nil, nil)
	require.ErrorIs(t, err, rets.ErrAuthorizationFailure)
	assert.Len(t, fake.Requests("/rets/search"), 2)
}

func TestRequest_NonXMLBodyIsSuccess(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/object": func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "image/jpeg")
			_, _ = writer.Write([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10})
		},
	})
	retsClient := newTestClient(t, fake)

	resp, err := retsClient.Request(context.Background(), "/rets/object", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}, resp.Body)
}

func TestRequest_TransportError(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, nil)
	loginURL := fake.LoginURL()
	fake.Close()

	retsClient, err := client.New(&rets.Config{LoginURL: loginURL})
	require.NoError(t, err)

	_, err = retsClient.Login(context.Background())
	require.Error(t, err)
	assert.False(t, rets.IsAuthorizationFailure(err))
}

func TestSession_RoundTrip(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login":  basicLogin(capabilityBlock, "RETS-Session-ID=abc123; Path=/", "JSESSIONID=xyz; Path=/rets"),
		"/rets/search": replyOK,
	})

	original := newTestClient(t, fake)

	_, err := original.Login(context.Background())
	require.NoError(t, err)

	_, err = original.Request(context.Background(), "/rets/search", nil, nil)
	require.NoError(t, err)

	session := original.Session()
	assert.Equal(t, basicUserPass, session.Authorization)
	assert.Equal(t, "RETS-Session-ID=abc123; JSESSIONID=xyz", session.Cookies)
	assert.Equal(t, "/rets/search", session.Capabilities["Search"])

	restored := newTestClient(t, fake, func(config *rets.Config) {
		config.Session = &session
	})

	_, err = restored.Request(context.Background(), "/rets/search", nil, nil)
	require.NoError(t, err)

	capabilities, err := restored.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rets.Capabilities(session.Capabilities), capabilities)

	searches := fake.Requests("/rets/search")
	require.Len(t, searches, 2)
	assert.Equal(t, searches[0].Headers.Get("Authorization"), searches[1].Headers.Get("Authorization"))
	assert.Equal(t, searches[0].Headers.Get("Cookie"), searches[1].Headers.Get("Cookie"))
	assert.Len(t, fake.Requests("/rets/login"), 2)
	assert.Equal(t, session, restored.Session())
}

func TestSession_RestoreReplacesState(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{"/rets/login": basicLogin(capabilityBlock, "A=1")})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	retsClient.Restore(rets.Session{Cookies: "B=2"})

	session := retsClient.Session()
	assert.Empty(t, session.Authorization)
	assert.Nil(t, session.Capabilities)
	assert.Equal(t, "B=2", session.Cookies)
}

func TestSessionHook(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{"/rets/login": basicLogin(capabilityBlock)})

	var saved []rets.Session

	retsClient, err := client.New(&rets.Config{
		LoginURL: fake.LoginURL(),
		Username: testUsername,
		Password: testPassword,
	}, client.WithSessionHook(func(_ context.Context, session rets.Session) {
		saved = append(saved, session)
	}))
	require.NoError(t, err)

	_, err = retsClient.Login(context.Background())
	require.NoError(t, err)

	require.Len(t, saved, 1)
	assert.Equal(t, basicUserPass, saved[0].Authorization)
	assert.Equal(t, "/rets/getmetadata", saved[0].Capabilities["GetMetadata"])
}

func TestMetadataType(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": basicLogin("GetMetadata=http://metadata.example.com:9999/rets/getmetadata\n"),
		"/rets/getmetadata": func(writer http.ResponseWriter, _ *http.Request) {
			_, _ = writer.Write([]byte(compactMetadata("SYSTEM", []string{"SystemID", "SystemDescription"}, []string{"TEST", "Test MLS"})))
		},
	})
	retsClient := newTestClient(t, fake)

	doc, err := retsClient.MetadataType(context.Background(), rets.MetadataSystem)
	require.NoError(t, err)

	columns := xmlquery.FindOne(doc, "//COLUMNS")
	require.NotNil(t, columns)
	assert.Equal(t, "\tSystemID\tSystemDescription\t", columns.InnerText())

	requests := fake.Requests("/rets/getmetadata")
	require.Len(t, requests, 1)
	assert.Equal(t, "Format=COMPACT&Type=METADATA-SYSTEM&ID=0", requests[0].Body)
	assert.Equal(t, "application/x-www-form-urlencoded", requests[0].Headers.Get("Content-Type"))
	assert.Equal(t, basicUserPass, requests[0].Headers.Get("Authorization"))
}

func TestMetadataType_Errors(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": basicLogin(capabilityBlock),
		"/rets/getmetadata": func(writer http.ResponseWriter, _ *http.Request) {
			_, _ = writer.Write([]byte("metadata unavailable"))
		},
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.MetadataType(context.Background(), rets.MetadataType("FOREIGN_KEYS"))
	require.ErrorIs(t, err, rets.ErrUnknownMetadataType)

	_, err = retsClient.MetadataType(context.Background(), rets.MetadataClass)
	require.ErrorIs(t, err, client.ErrMetadataNotXML)
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": basicLogin(capabilityBlock),
		"/rets/getmetadata": func(writer http.ResponseWriter, request *http.Request) {
			kind, err := rets.ParseMetadataType(request.PostFormValue("Type"))
			if err != nil {
				writer.WriteHeader(http.StatusBadRequest)

				return
			}

			if kind == rets.MetadataObject {
				_, _ = writer.Write([]byte(`<RETS ReplyCode="20503" ReplyText="No Metadata Found"/>`))

				return
			}

			_, _ = writer.Write([]byte(compactMetadata(string(kind),
				[]string{"Name", "Kind"},
				[]string{"first", kind.Key()},
				[]string{"second", kind.Key()},
			)))
		},
	})
	retsClient := newTestClient(t, fake)

	metadata, err := retsClient.Metadata(context.Background())
	require.NoError(t, err)

	require.Len(t, metadata, len(rets.MetadataTypes()))
	assert.Empty(t, metadata["object"])

	resources := metadata["resource"]
	require.Len(t, resources, 2)
	assert.Equal(t, compact.Row{{Name: "Name", Value: "first"}, {Name: "Kind", Value: "resource"}}, resources[0])

	value, ok := metadata["lookup_type"][1].Get("Name")
	require.True(t, ok)
	assert.Equal(t, "second", value)

	assert.Len(t, fake.Requests("/rets/getmetadata"), len(rets.MetadataTypes()))
}

func TestMetadata_InvalidDelimiter(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login": basicLogin(capabilityBlock),
		"/rets/getmetadata": func(writer http.ResponseWriter, _ *http.Request) {
			_, _ = writer.Write([]byte(`<RETS ReplyCode="0" ReplyText="ok"><DELIMITER value=""/><COLUMNS>a</COLUMNS><DATA>1</DATA></RETS>`))
		},
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Metadata(context.Background())
	require.ErrorIs(t, err, rets.ErrInvalidDelimiter)
}

func TestClient_ConcurrentUse(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{
		"/rets/login":  basicLogin(capabilityBlock),
		"/rets/search": replyOK,
	})
	retsClient := newTestClient(t, fake)

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup

	errs := make(chan error, 8)

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := retsClient.Request(context.Background(), "/rets/search", []byte(fmt.Sprintf("n=%d", i)), nil)
			if err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Len(t, fake.Requests("/rets/login"), 2)
	assert.Len(t, fake.Requests("/rets/search"), 8)
}

func TestInterceptorsAndMetrics(t *testing.T) {
	t.Parallel()

	fake := newFakeRETS(t, map[string]http.HandlerFunc{"/rets/login": basicLogin(capabilityBlock)})

	chain := rets.NewInterceptorChain()
	collector := rets.NewMetricsCollector()
	collector.Install(chain)

	retsClient := newTestClient(t, fake, func(config *rets.Config) {
		config.Interceptors = chain
	})

	_, err := retsClient.Login(context.Background())
	require.NoError(t, err)

	metrics, ok := collector.GetMetrics("POST /rets/login")
	require.True(t, ok)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalUnauthorized)
}

func TestErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	assert.False(t, errors.Is(rets.ErrCapabilityNotFound, rets.ErrAuthorizationFailure))
	assert.False(t, errors.Is(client.ErrMetadataNotXML, rets.ErrInvalidDelimiter))
}
