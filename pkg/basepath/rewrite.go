package basepath

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var urlAttributes = map[string]bool{
	"href":   true,
	"src":    true,
	"poster": true,
	"action": true,
}

/*
RewriteHTML parses an HTML document, points every root-absolute href/src
at base, and makes sure the head carries a matching <base> element.
*/
func RewriteHTML(r io.Reader, base string) ([]byte, error) {
	var (
		err  error
		doc  *html.Node
		head *html.Node
		buf  bytes.Buffer
	)

	base = Normalize(base)

	if doc, err = html.Parse(r); err != nil {
		return nil, fmt.Errorf("error parsing html: %w", err)
	}

	walk(doc, func(n *html.Node) {
		if n.DataAtom == atom.Head && head == nil {
			head = n
		}

		if n.DataAtom == atom.Base {
			return
		}

		for i, attr := range n.Attr {
			if urlAttributes[attr.Key] {
				n.Attr[i].Val = Apply(base, attr.Val)
			}
		}
	})

	if head != nil {
		setBaseElement(head, base)
	}

	if err = html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("error rendering html: %w", err)
	}

	return buf.Bytes(), nil
}

/*
LocalReferences lists the root-absolute and relative href/src values in
an HTML document, without query strings or fragments. External and
protocol-relative references are skipped.
*/
func LocalReferences(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)

	if err != nil {
		return nil, fmt.Errorf("error parsing html: %w", err)
	}

	result := []string{}
	seen := map[string]bool{}

	walk(doc, func(n *html.Node) {
		if n.DataAtom == atom.Base || n.DataAtom == atom.A {
			return
		}

		for _, attr := range n.Attr {
			if !urlAttributes[attr.Key] || attr.Key == "action" {
				continue
			}

			u, err := url.Parse(attr.Val)

			if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" || strings.HasPrefix(attr.Val, "//") {
				continue
			}

			if !seen[u.Path] {
				seen[u.Path] = true
				result = append(result, u.Path)
			}
		}
	})

	return result, nil
}

/*
ValidateDist checks a built application: the entry document must exist
and every local asset it references must exist in fsys. References are
resolved relative to base. All problems found are joined into one error.
*/
func ValidateDist(fsys fs.FS, base string) error {
	var (
		err  error
		b    []byte
		refs []string
	)

	base = Normalize(base)

	if b, err = fs.ReadFile(fsys, "index.html"); err != nil {
		return fmt.Errorf("error reading entry document: %w", err)
	}

	if refs, err = LocalReferences(bytes.NewReader(b)); err != nil {
		return err
	}

	problems := []error{}

	for _, ref := range refs {
		name := ref

		if IsAbsoluteLocal(ref) {
			stripped, ok := Strip(base, ref)

			if !ok {
				problems = append(problems, fmt.Errorf("asset '%s' is outside base path '%s'", ref, base))
				continue
			}

			name = stripped
		}

		name = strings.TrimPrefix(path.Clean("/"+name), "/")

		if name == "" {
			continue
		}

		if _, err = fs.Stat(fsys, name); err != nil {
			problems = append(problems, fmt.Errorf("asset '%s' referenced by index.html is missing", ref))
		}
	}

	return errors.Join(problems...)
}

func setBaseElement(head *html.Node, base string) {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Base {
			continue
		}

		for i, attr := range c.Attr {
			if attr.Key == "href" {
				c.Attr[i].Val = base
				return
			}
		}

		c.Attr = append(c.Attr, html.Attribute{Key: "href", Val: base})
		return
	}

	baseNode := &html.Node{
		Type:     html.ElementNode,
		Data:     "base",
		DataAtom: atom.Base,
		Attr:     []html.Attribute{{Key: "href", Val: base}},
	}

	head.InsertBefore(baseNode, head.FirstChild)
}

func walk(n *html.Node, visit func(n *html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}
