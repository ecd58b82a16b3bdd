// Package compact decodes the RETS COMPACT encoding: delimiter-separated
// COLUMNS and DATA rows wrapped in XML.
//
// A COMPACT document looks like:
//
//	<RETS ReplyCode="0" ReplyText="Success">
//	  <DELIMITER value="09"/>
//	  <COLUMNS>	ResourceID	StandardName	</COLUMNS>
//	  <DATA>	Property	Property	</DATA>
//	</RETS>
//
// The DELIMITER value is the decimal code point of the separator character.
// Servers usually frame COLUMNS and DATA with a leading and trailing
// delimiter. When COLUMNS is framed, one delimiter is stripped from each end
// of COLUMNS and of every DATA row before splitting, so no field has an
// empty name.
package compact

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
)

// Tab is the delimiter RETS servers use unless told otherwise.
const Tab = "\t"

// Static errors for err113 compliance.
var (
	ErrInvalidDelimiter = errors.New("empty delimiter found, unable to parse")
	ErrMissingDelimiter = errors.New("no DELIMITER element with a value attribute")
	ErrMissingColumns   = errors.New("DATA rows present without a COLUMNS element")
)

// Field is one column name paired with its value.
type Field struct {
	Name  string `json:"name"  yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Row is an ordered sequence of fields. Column i pairs with value i.
type Row []Field

// Get returns the value of the first field named name.
func (r Row) Get(name string) (string, bool) {
	for _, field := range r {
		if field.Name == name {
			return field.Value, true
		}
	}

	return "", false
}

// Map flattens the row into a map. Later duplicates win.
func (r Row) Map() map[string]string {
	out := make(map[string]string, len(r))
	for _, field := range r {
		out[field.Name] = field.Value
	}

	return out
}

// Parse splits columns and data on delimiter and zips them positionally.
// When the counts differ the row stops at the shorter of the two.
func Parse(columns, data, delimiter string) Row {
	if framed(columns, delimiter) {
		columns = unframe(columns, delimiter)
		data = unframe(data, delimiter)
	}

	names := strings.Split(columns, delimiter)
	values := strings.Split(data, delimiter)

	size := min(len(names), len(values))
	row := make(Row, 0, size)

	for i := range size {
		row = append(row, Field{Name: names[i], Value: values[i]})
	}

	return row
}

// Document is a parsed COMPACT payload. Its rows are decoded on demand.
type Document struct {
	delimiter string
	columns   string
	data      []*xmlquery.Node
}

// ParseDocument reads a COMPACT XML document.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing compact document: %w", err)
	}

	return FromNode(root)
}

// FromNode builds a Document from an already parsed XML tree.
func FromNode(root *xmlquery.Node) (*Document, error) {
	delimiter, err := findDelimiter(root)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		delimiter: delimiter,
		data:      xmlquery.Find(root, "//DATA"),
	}

	columns := xmlquery.FindOne(root, "//COLUMNS")
	if columns == nil {
		if len(doc.data) > 0 {
			return nil, ErrMissingColumns
		}

		return doc, nil
	}

	doc.columns = columns.InnerText()

	return doc, nil
}

// Delimiter returns the separator decoded from the DELIMITER element.
func (d *Document) Delimiter() string {
	return d.delimiter
}

// Columns returns the column names in order.
func (d *Document) Columns() []string {
	columns := d.columns
	if framed(columns, d.delimiter) {
		columns = unframe(columns, d.delimiter)
	}

	if columns == "" {
		return nil
	}

	return strings.Split(columns, d.delimiter)
}

// framed reports whether columns starts with the delimiter. Column names
// are never empty, so a leading delimiter only appears as framing.
func framed(columns, delimiter string) bool {
	return delimiter != "" && strings.HasPrefix(columns, delimiter)
}

func unframe(s, delimiter string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, delimiter), delimiter)
}

// Len returns the number of DATA rows.
func (d *Document) Len() int {
	return len(d.data)
}

// Rows yields one Row per DATA element in document order. The sequence
// may be ranged over more than once.
func (d *Document) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, node := range d.data {
			if !yield(Parse(d.columns, node.InnerText(), d.delimiter)) {
				return
			}
		}
	}
}

// All decodes every row.
func (d *Document) All() []Row {
	rows := make([]Row, 0, len(d.data))
	for row := range d.Rows() {
		rows = append(rows, row)
	}

	return rows
}

func findDelimiter(root *xmlquery.Node) (string, error) {
	node := xmlquery.FindOne(root, "//DELIMITER")
	if node == nil {
		return "", ErrMissingDelimiter
	}

	value, ok := attribute(node, "value")
	if !ok {
		return "", ErrMissingDelimiter
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrInvalidDelimiter
	}

	codepoint, err := strconv.Atoi(value)
	if err != nil || codepoint < 0 || !utf8.ValidRune(rune(codepoint)) {
		return "", fmt.Errorf("%w: %q is not a character code", ErrInvalidDelimiter, value)
	}

	return string(rune(codepoint)), nil
}

func attribute(node *xmlquery.Node, name string) (string, bool) {
	for _, attr := range node.Attr {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}

	return "", false
}
