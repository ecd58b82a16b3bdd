// Package rets provides types, interfaces, and helpers for talking to a
// RETS (Real Estate Transaction Standard) server.
//
// # Overview
//
// The rets package defines the client interfaces, the configuration, the
// session snapshot, and the error kinds surfaced by the protocol layer. A
// concrete client is provided by the retsclient package, which wires the
// transport, the authentication cycle, cookies, and session persistence.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/LeadsPlus/rets/pkg/rets"
//	  "github.com/LeadsPlus/rets/pkg/retsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := retsclient.New(ctx, &rets.Config{
//	    LoginURL: "https://rets.example.com/rets/login",
//	    Username: "user",
//	    Password: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  caps, err := cli.Login(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = caps["GetMetadata"]
//	}
//
// # Authentication
//
// The first login request is sent without credentials. A 401 answer carries
// a WWW-Authenticate challenge which is turned into an Authorization header
// and the login is retried once. A second 401 fails with
// ErrAuthorizationFailure. A successful login body lists the capability URLs
// (Search, GetMetadata, ...) which later requests resolve against the host of
// the login URL.
//
// # Errors
//
// RETS replies carry a ReplyCode attribute on their root element. A non-zero
// code is surfaced as *ProtocolError:
//
//	if rets.IsProtocolError(err, rets.ReplyCodeNoRecordsFound) { ... }
//
// Bodies that are not XML (object payloads, for instance) are never treated
// as protocol errors.
//
// # Sessions
//
// Session captures the authorization header, capabilities, and cookies of
// a live client so that a later process can resume without logging in.
// SessionStore implementations live in internal/sessionstore and are
// selected through retsclient.NewStore.
package rets
