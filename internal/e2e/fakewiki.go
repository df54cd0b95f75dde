package e2e

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// FakeWiki is an in-memory Trac wiki served over XML-RPC. It answers the
// wiki.* calls docsync makes and keeps every revision of every page.
type FakeWiki struct {
	mu       sync.Mutex
	pages    map[string][]string
	comments map[string][]string
}

// NewFakeWiki returns an empty wiki.
func NewFakeWiki() *FakeWiki {
	return &FakeWiki{
		pages:    make(map[string][]string),
		comments: make(map[string][]string),
	}
}

// Seed adds a revision to a page as if someone edited it in the browser.
func (w *FakeWiki) Seed(name, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[name] = append(w.pages[name], text)
	w.comments[name] = append(w.comments[name], "edited in browser")
}

// Page returns the latest text of a page.
func (w *FakeWiki) Page(name string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	revs := w.pages[name]
	if len(revs) == 0 {
		return "", false
	}
	return revs[len(revs)-1], true
}

// Versions returns how many revisions a page has.
func (w *FakeWiki) Versions(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pages[name])
}

// LastComment returns the change comment of the latest revision.
func (w *FakeWiki) LastComment(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.comments[name]
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1]
}

type rpcCall struct {
	Method string     `xml:"methodName"`
	Params []rpcValue `xml:"params>param>value"`
}

type rpcValue struct {
	String  *string     `xml:"string"`
	Int     *string     `xml:"int"`
	Members []rpcMember `xml:"struct>member"`
}

type rpcMember struct {
	Name  string   `xml:"name"`
	Value rpcValue `xml:"value"`
}

func (v rpcValue) str() string {
	if v.String == nil {
		return ""
	}
	return *v.String
}

func (v rpcValue) num() (int, bool) {
	if v.Int == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(*v.Int))
	return n, err == nil
}

func (v rpcValue) member(name string) (rpcValue, bool) {
	for _, m := range v.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return rpcValue{}, false
}

// ServeHTTP implements http.Handler.
func (w *FakeWiki) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	var call rpcCall
	if err := xml.Unmarshal(body, &call); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	arg := func(i int) rpcValue {
		if i < len(call.Params) {
			return call.Params[i]
		}
		return rpcValue{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rw.Header().Set("Content-Type", "text/xml")
	switch call.Method {
	case "wiki.getAllPages":
		names := make([]string, 0, len(w.pages))
		for name := range w.pages {
			names = append(names, name)
		}
		slices.Sort(names)
		var sb strings.Builder
		for _, name := range names {
			fmt.Fprintf(&sb, "<value><string>%s</string></value>", escape(name))
		}
		writeResult(rw, "<array><data>"+sb.String()+"</data></array>")

	case "wiki.getPage", "wiki.getPageVersion":
		name := arg(0).str()
		revs := w.pages[name]
		v, ok := arg(1).num()
		if !ok {
			v = len(revs)
		}
		if v < 1 || v > len(revs) {
			writeFault(rw, 1, fmt.Sprintf("Wiki page %q does not exist", name))
			return
		}
		writeResult(rw, "<string>"+escape(revs[v-1])+"</string>")

	case "wiki.getPageInfo", "wiki.getPageInfoVersion":
		name := arg(0).str()
		revs := w.pages[name]
		v, ok := arg(1).num()
		if !ok {
			v = len(revs)
		}
		if v < 1 || v > len(revs) {
			writeFault(rw, 1, fmt.Sprintf("Wiki page %q does not exist", name))
			return
		}
		writeResult(rw, fmt.Sprintf(`<struct>
<member><name>name</name><value><string>%s</string></value></member>
<member><name>version</name><value><int>%d</int></value></member>
<member><name>author</name><value><string>bot</string></value></member>
<member><name>lastModified</name><value><dateTime.iso8601>20260102T03:04:05</dateTime.iso8601></value></member>
</struct>`, escape(name), v))

	case "wiki.putPage":
		name := arg(0).str()
		attrs := arg(2)
		if ver, ok := attrs.member("version"); ok {
			if n, ok := ver.num(); ok && n != len(w.pages[name]) {
				writeFault(rw, 1, "The page has been modified in the meantime")
				return
			}
		}
		comment, _ := attrs.member("comment")
		w.pages[name] = append(w.pages[name], arg(1).str())
		w.comments[name] = append(w.comments[name], comment.str())
		writeResult(rw, "<boolean>1</boolean>")

	default:
		writeFault(rw, 2, "unsupported method "+call.Method)
	}
}

func writeResult(w io.Writer, value string) {
	fmt.Fprintf(w, `<?xml version="1.0"?><methodResponse><params><param><value>%s</value></param></params></methodResponse>`, value)
}

func writeFault(w io.Writer, code int, msg string) {
	fmt.Fprintf(w, `<?xml version="1.0"?><methodResponse><fault><value><struct>
<member><name>faultCode</name><value><int>%d</int></value></member>
<member><name>faultString</name><value><string>%s</string></value></member>
</struct></value></fault></methodResponse>`, code, escape(msg))
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
