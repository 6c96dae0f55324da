// Package richtext parses and rewrites the HTML bodies of notes: it pulls
// inline images out into attachments, collects attachment hashes and
// internal note links, and puts media back inline for publishing.
package richtext

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HashAttr marks an element that references an attachment by hash.
const HashAttr = "data-hash"

// ErrBadDataURI is reported for data URIs that are not base64 encoded.
var ErrBadDataURI = errors.New("unsupported data URI")

// SaveFunc stores decoded inline media and returns its attachment hash.
type SaveFunc func(ctx context.Context, data []byte, mimeType string) (string, error)

// Result is the outcome of Extract.
type Result struct {
	// HTML is the canonical body with inline images replaced by hash references.
	HTML string
	// Hashes lists referenced attachment hashes in document order, unique.
	Hashes []string
	// InternalLinks lists linked note ids in document order, unique.
	InternalLinks []string
	// Skipped counts inline images left in place because their data URI
	// could not be decoded.
	Skipped int
}

// Extract parses body, stores every data-URI image through save (when save
// is non-nil) and rewrites it to a data-hash reference, then collects all
// attachment hashes and internal links. Images with undecodable data URIs
// are kept as they are and counted in Result.Skipped.
func Extract(ctx context.Context, body string, save SaveFunc) (*Result, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	seenHash := map[string]struct{}{}
	seenLink := map[string]struct{}{}

	var walkErr error
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}

		if n.DataAtom == atom.Img && save != nil {
			if src, ok := attr(n, "src"); ok && strings.HasPrefix(src, "data:") {
				data, mime, err := decodeDataURI(src)
				if errors.Is(err, ErrBadDataURI) {
					res.Skipped++
					return true
				}
				if err != nil {
					walkErr = err
					return false
				}
				hash, err := save(ctx, data, mime)
				if err != nil {
					walkErr = fmt.Errorf("save inline media: %w", err)
					return false
				}
				setAttr(n, HashAttr, hash)
				setAttr(n, "data-mime", mime)
				delAttr(n, "src")
			}
		}

		if hash, ok := attr(n, HashAttr); ok && hash != "" {
			if _, dup := seenHash[hash]; !dup {
				seenHash[hash] = struct{}{}
				res.Hashes = append(res.Hashes, hash)
			}
		}

		if n.DataAtom == atom.A {
			if id, ok := internalLink(n); ok {
				if _, dup := seenLink[id]; !dup {
					seenLink[id] = struct{}{}
					res.InternalLinks = append(res.InternalLinks, id)
				}
			}
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	res.HTML, err = render(root)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Hashes returns the attachment hashes referenced by body.
func Hashes(body string) ([]string, error) {
	res, err := Extract(context.Background(), body, nil)
	if err != nil {
		return nil, err
	}
	return res.Hashes, nil
}

// InsertMedia sets the src of every hash-referencing image to the data URI
// returned by resolve. Images resolve cannot serve are left untouched.
func InsertMedia(body string, resolve func(hash string) (string, bool)) (string, error) {
	root, err := parse(body)
	if err != nil {
		return "", err
	}
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			if hash, ok := attr(n, HashAttr); ok {
				if uri, ok := resolve(hash); ok {
					setAttr(n, "src", uri)
				}
			}
		}
		return true
	})
	return render(root)
}

// RemoveAttachments strips every element referencing one of hashes.
func RemoveAttachments(body string, hashes []string) (string, error) {
	root, err := parse(body)
	if err != nil {
		return "", err
	}
	drop := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		drop[h] = struct{}{}
	}

	var victims []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if hash, ok := attr(n, HashAttr); ok {
				if _, hit := drop[hash]; hit {
					victims = append(victims, n)
					return false
				}
			}
		}
		return true
	})
	for _, n := range victims {
		n.Parent.RemoveChild(n)
	}
	return render(root)
}

// Text returns the visible text of body with block elements on separate lines.
func Text(body string) string {
	root, err := parse(body)
	if err != nil {
		return body
	}
	var b strings.Builder
	walk(root, func(n *html.Node) bool {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && isBlock(n.DataAtom) && b.Len() > 0:
			b.WriteByte('\n')
		}
		return true
	})
	return strings.TrimSpace(b.String())
}

// InternalLink builds the href for a link to another note.
func InternalLink(noteID string) string {
	return common.InternalLinkPrefix + noteID
}

func internalLink(n *html.Node) (string, bool) {
	href, ok := attr(n, "href")
	if !ok || !strings.HasPrefix(href, common.InternalLinkPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(href, common.InternalLinkPrefix)
	if i := strings.IndexAny(id, "#?"); i >= 0 {
		id = id[:i]
	}
	return id, id != ""
}

func decodeDataURI(uri string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", ErrBadDataURI
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return data, mime, nil
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func parse(body string) (*html.Node, error) {
	container := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(body), container)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		container.AppendChild(n)
	}
	return container, nil
}

func render(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

// walk visits n and its descendants depth-first; fn returning false skips
// the children of that node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func delAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Br, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Tr:
		return true
	}
	return false
}
