// Package response classifies RETS replies. Transport success and protocol
// success are different things: a 200 reply can still carry a non-zero
// ReplyCode.
package response

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/antchfx/xmlquery"
)

// Kind tags a classification.
type Kind int

const (
	// Success covers 2xx/3xx replies, replies with ReplyCode 0, empty bodies
	// and bodies that are not XML at all.
	Success Kind = iota
	// Unauthorized is an HTTP 401.
	Unauthorized
	// ProtocolFailure is a well-formed reply with a non-zero ReplyCode.
	ProtocolFailure
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Unauthorized:
		return "unauthorized"
	case ProtocolFailure:
		return "protocol-error"
	default:
		return "unknown"
	}
}

// Result is the outcome of Classify.
type Result struct {
	Kind Kind
	// Code and Text are the ReplyCode/ReplyText of the root element, when present.
	Code int
	Text string
	// Document is the parsed body, nil for empty or non-XML bodies and for
	// bodies without a root element.
	Document *xmlquery.Node
}

// Err returns the error a ProtocolFailure carries, nil otherwise.
func (r Result) Err() error {
	if r.Kind != ProtocolFailure {
		return nil
	}

	return &rets.ProtocolError{Code: r.Code, Text: r.Text}
}

// Classify inspects the transport status and body of one reply.
func Classify(status int, body []byte) Result {
	if status == http.StatusUnauthorized {
		return Result{Kind: Unauthorized}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return Result{Kind: Success}
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return Result{Kind: Success}
	}

	root := RootElement(doc)
	if root == nil {
		return Result{Kind: Success}
	}

	result := Result{Kind: Success, Document: doc}

	result.Text = root.SelectAttr("ReplyText")

	code, err := strconv.Atoi(strings.TrimSpace(root.SelectAttr("ReplyCode")))
	if err != nil {
		return result
	}

	result.Code = code
	if code != rets.ReplyCodeSuccess {
		result.Kind = ProtocolFailure
	}

	return result
}

// RootElement returns the document element of a parsed tree.
func RootElement(doc *xmlquery.Node) *xmlquery.Node {
	for node := doc.FirstChild; node != nil; node = node.NextSibling {
		if node.Type == xmlquery.ElementNode {
			return node
		}
	}

	return nil
}
