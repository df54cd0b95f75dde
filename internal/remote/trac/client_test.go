package trac

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauern/docsync/internal/remote"
)

// fakeTrac is a minimal wiki XML-RPC endpoint backed by a map.
type fakeTrac struct {
	mu    sync.Mutex
	pages map[string][]string
	calls []string
	auth  string
}

type methodCall struct {
	Name   string     `xml:"methodName"`
	Params []xmlValue `xml:"params>param>value"`
}

func (f *fakeTrac) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var call methodCall
	if err := xml.Unmarshal(body, &call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call.Name)
	if user, _, ok := r.BasicAuth(); ok {
		f.auth = user
	}

	args := make([]any, 0, len(call.Params))
	for _, p := range call.Params {
		v, _ := p.native()
		args = append(args, v)
	}

	w.Header().Set("Content-Type", "text/xml")
	switch call.Name {
	case "wiki.getAllPages":
		var sb strings.Builder
		for name := range f.pages {
			fmt.Fprintf(&sb, "<value><string>%s</string></value>", name)
		}
		writeResult(w, "<array><data>"+sb.String()+"</data></array>")
	case "wiki.getPage", "wiki.getPageVersion":
		revs := f.pages[args[0].(string)]
		v := len(revs)
		if len(args) > 1 {
			v = args[1].(int)
		}
		if v < 1 || v > len(revs) {
			writeFault(w, 1, fmt.Sprintf("Wiki page %q does not exist", args[0]))
			return
		}
		writeResult(w, "<string>"+escape(revs[v-1])+"</string>")
	case "wiki.getPageInfo", "wiki.getPageInfoVersion":
		name := args[0].(string)
		revs := f.pages[name]
		if len(revs) == 0 {
			writeFault(w, 1, fmt.Sprintf("Wiki page %q does not exist", name))
			return
		}
		writeResult(w, fmt.Sprintf(`<struct>
<member><name>name</name><value><string>%s</string></value></member>
<member><name>version</name><value><int>%d</int></value></member>
<member><name>author</name><value><string>alice</string></value></member>
<member><name>lastModified</name><value><dateTime.iso8601>20260102T03:04:05</dateTime.iso8601></value></member>
</struct>`, name, len(revs)))
	case "wiki.putPage":
		name := args[0].(string)
		attrs := args[2].(map[string]any)
		if v, ok := attrs["version"].(int); ok && v != len(f.pages[name]) {
			writeFault(w, 1, "The page has been modified in the meantime; version mismatch")
			return
		}
		f.pages[name] = append(f.pages[name], args[1].(string))
		writeResult(w, "<boolean>1</boolean>")
	default:
		writeFault(w, 2, "unknown method "+call.Name)
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

func newTestClient(t *testing.T, fake *fakeTrac) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(Options{URL: srv.URL + "/rpc", Username: "bot", Password: "secret"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestRPCURL(t *testing.T) {
	tests := map[string]string{
		"https://trac.example.org/proj":           "https://trac.example.org/proj/login/rpc",
		"https://trac.example.org/proj/":          "https://trac.example.org/proj/login/rpc",
		"https://trac.example.org/proj/login/rpc": "https://trac.example.org/proj/login/rpc",
		"https://trac.example.org/proj/rpc":       "https://trac.example.org/proj/rpc",
	}
	for in, want := range tests {
		if got := RPCURL(in); got != want {
			t.Errorf("RPCURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeTrac{pages: map[string][]string{"Docs/readme": {"= Hi =", "= Hello & welcome ="}}}
	c := newTestClient(t, fake)

	names, err := c.ListNames(ctx)
	if err != nil {
		t.Fatalf("ListNames() error = %v", err)
	}
	if len(names) != 1 || names[0] != "Docs/readme" {
		t.Errorf("ListNames() = %v, want [Docs/readme]", names)
	}

	text, err := c.GetContent(ctx, "Docs/readme", nil)
	if err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if text != "= Hello & welcome =" {
		t.Errorf("GetContent() = %q", text)
	}

	info, err := c.GetInfo(ctx, "Docs/readme", nil)
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Version != 2 || info.Author != "alice" || info.LastModified.Year() != 2026 {
		t.Errorf("GetInfo() = %+v", info)
	}
	if fake.auth != "bot" {
		t.Errorf("basic auth user = %q, want bot", fake.auth)
	}
}

func TestClientVersionedContentIsCached(t *testing.T) {
	ctx := context.Background()
	fake := &fakeTrac{pages: map[string][]string{"Docs/a": {"v1", "v2"}}}
	c := newTestClient(t, fake)

	v := 1
	for range 3 {
		text, err := c.GetContent(ctx, "Docs/a", &v)
		if err != nil || text != "v1" {
			t.Fatalf("GetContent(rev 1) = %q, %v", text, err)
		}
	}

	count := 0
	for _, call := range fake.calls {
		if call == "wiki.getPageVersion" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("wiki.getPageVersion called %d times, want 1", count)
	}
}

func TestClientNotFound(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, &fakeTrac{pages: map[string][]string{}})

	_, err := c.GetContent(ctx, "Docs/missing", nil)
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("GetContent(missing) error = %v, want ErrNotFound", err)
	}
	_, err = c.GetInfo(ctx, "Docs/missing", nil)
	if !remote.IsNotFound(err) {
		t.Errorf("GetInfo(missing) error = %v, want not found", err)
	}
}

func TestClientPutContent(t *testing.T) {
	ctx := context.Background()
	fake := &fakeTrac{pages: map[string][]string{}}
	c := newTestClient(t, fake)

	info, err := c.PutContent(ctx, "Docs/new", "= New =", "Synced from new.md", nil)
	if err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}
	if info.Version != 1 {
		t.Errorf("Version = %d, want 1", info.Version)
	}

	stale := 0
	_, err = c.PutContent(ctx, "Docs/new", "= Newer =", "", &stale)
	var fault *remote.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("PutContent(stale) error = %v, want *remote.Fault", err)
	}
	if remote.IsNotFound(err) {
		t.Error("version conflict must not look like not found")
	}
}

func TestEncodeCall(t *testing.T) {
	body, err := encodeCall("wiki.putPage", "A&B", 3, true, map[string]any{"comment": "<x>", "version": 2})
	if err != nil {
		t.Fatalf("encodeCall() error = %v", err)
	}
	s := string(body)
	for _, want := range []string{
		"<methodName>wiki.putPage</methodName>",
		"<string>A&amp;B</string>",
		"<int>3</int>",
		"<boolean>1</boolean>",
		"<member><name>comment</name><value><string>&lt;x&gt;</string></value></member>",
		"<member><name>version</name><value><int>2</int></value></member>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("encodeCall() missing %s in:\n%s", want, s)
		}
	}

	if _, err := encodeCall("x", 1.5); err == nil {
		t.Error("encodeCall() with float expected error")
	}
}

func TestDecodeResponseUntypedString(t *testing.T) {
	v, err := decodeResponse([]byte(`<methodResponse><params><param><value>plain text</value></param></params></methodResponse>`))
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}
	if v != "plain text" {
		t.Errorf("decodeResponse() = %v, want plain text", v)
	}
}
