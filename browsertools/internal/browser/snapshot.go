package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
)

// Node is one element of a snapshot, in document order.
type Node struct {
	Ref   string `json:"ref"`
	Tag   string `json:"tag"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
	// Path is a structural CSS selector ("html > body > div:nth-of-type(2)")
	// that finds the element again on a fresh load of the page.
	Path string `json:"path"`
}

// Snapshot is the page's element tree at capture time. Refs are
// "<ID>e<n>", numbered in document order from the root element.
type Snapshot struct {
	ID    string
	URL   string
	Title string
	Nodes []Node

	index map[string]int
}

// NewSnapshot builds a Snapshot from captured nodes.
func NewSnapshot(id, pageURL, title string, nodes []Node) *Snapshot {
	s := &Snapshot{ID: id, URL: pageURL, Title: title, Nodes: nodes, index: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		s.index[n.Ref] = i
	}
	return s
}

// Node returns the node carrying ref.
func (s *Snapshot) Node(ref string) (Node, bool) {
	i, ok := s.index[ref]
	if !ok {
		return Node{}, false
	}
	return s.Nodes[i], true
}

// RefSelector is the CSS selector matching the element tagged with ref.
func RefSelector(ref string) string {
	return fmt.Sprintf("[aria-ref=%q]", ref)
}

// Render prints the tree the way agents read it:
//
//	- document [ref=s1e1]
//	  - generic [ref=s1e2]
//	    - button "Submit" [ref=s1e3]
func (s *Snapshot) Render() string {
	var b strings.Builder
	for _, n := range s.Nodes {
		b.WriteString(strings.Repeat("  ", n.Depth))
		b.WriteString("- ")
		b.WriteString(n.role())
		if n.Name != "" {
			fmt.Fprintf(&b, " %q", n.Name)
		}
		fmt.Fprintf(&b, " [ref=%s]\n", n.Ref)
	}
	return b.String()
}

func (n Node) role() string {
	if n.Role != "" {
		return n.Role
	}
	if r, ok := implicitRoles[n.Tag]; ok {
		return r
	}
	return "generic"
}

var implicitRoles = map[string]string{
	"html":     "document",
	"a":        "link",
	"button":   "button",
	"input":    "textbox",
	"textarea": "textbox",
	"select":   "combobox",
	"option":   "option",
	"img":      "img",
	"h1":       "heading",
	"h2":       "heading",
	"h3":       "heading",
	"h4":       "heading",
	"h5":       "heading",
	"h6":       "heading",
	"ul":       "list",
	"ol":       "list",
	"li":       "listitem",
	"nav":      "navigation",
	"main":     "main",
	"header":   "banner",
	"footer":   "contentinfo",
	"form":     "form",
	"table":    "table",
	"tr":       "row",
	"td":       "cell",
	"th":       "columnheader",
	"p":        "paragraph",
	"dialog":   "dialog",
}

// snapshotScript clears refs left by the previous snapshot, then tags every
// rendered element with aria-ref in document order, recording a structural
// path for each. head and non-rendered
// elements are skipped, so for <html><title>T</title><button>B</button>
// the refs are html e1, body e2, button e3.
const snapshotScript = `(id) => {
	for (const el of document.querySelectorAll('[aria-ref]')) el.removeAttribute('aria-ref');
	const skip = new Set(['HEAD', 'SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'META', 'LINK', 'TITLE']);
	const nodes = [];
	let seq = 0;
	const step = (el) => {
		const tag = el.tagName.toLowerCase();
		const parent = el.parentElement;
		if (!parent) return tag;
		const same = Array.from(parent.children).filter((c) => c.tagName === el.tagName);
		return same.length === 1 ? tag : tag + ':nth-of-type(' + (same.indexOf(el) + 1) + ')';
	};
	const walk = (el, depth, parentPath) => {
		if (skip.has(el.tagName)) return;
		const path = parentPath ? parentPath + ' > ' + step(el) : step(el);
		const ref = id + 'e' + (++seq);
		el.setAttribute('aria-ref', ref);
		let name = el.getAttribute('aria-label') || el.getAttribute('alt') ||
			el.getAttribute('title') || el.getAttribute('placeholder') || '';
		if (!name && el.children.length === 0) {
			name = (el.textContent || '').replace(/\s+/g, ' ').trim();
		}
		nodes.push({
			ref: ref,
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute('role') || '',
			name: name.slice(0, 100),
			depth: depth,
			path: path,
		});
		for (const child of el.children) walk(child, depth + 1, path);
	};
	if (document.documentElement) walk(document.documentElement, 0, '');
	return JSON.stringify(nodes);
}`

// captureSnapshot tags the page and returns its tree.
func captureSnapshot(ctx context.Context, page *rod.Page, id string) ([]Node, error) {
	res, err := page.Context(ctx).Eval(snapshotScript, id)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	var nodes []Node
	if err := json.Unmarshal([]byte(res.Value.Str()), &nodes); err != nil {
		return nil, fmt.Errorf("browser: decode snapshot: %w", err)
	}
	return nodes, nil
}
