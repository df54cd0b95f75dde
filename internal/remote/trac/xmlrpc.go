package trac

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauern/docsync/internal/remote"
)

// iso8601 is the dateTime.iso8601 layout Trac emits.
const iso8601 = "20060102T15:04:05"

// encodeCall renders an XML-RPC methodCall. Supported argument types are
// string, int, bool, time.Time, map[string]any and []any.
func encodeCall(method string, args ...any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0"?>`)
	buf.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&buf, []byte(method)); err != nil {
		return nil, err
	}
	buf.WriteString("</methodName><params>")
	for _, a := range args {
		buf.WriteString("<param>")
		if err := encodeValue(&buf, a); err != nil {
			return nil, err
		}
		buf.WriteString("</param>")
	}
	buf.WriteString("</params></methodCall>")
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	buf.WriteString("<value>")
	switch t := v.(type) {
	case string:
		buf.WriteString("<string>")
		if err := xml.EscapeText(buf, []byte(t)); err != nil {
			return err
		}
		buf.WriteString("</string>")
	case int:
		fmt.Fprintf(buf, "<int>%d</int>", t)
	case bool:
		b := 0
		if t {
			b = 1
		}
		fmt.Fprintf(buf, "<boolean>%d</boolean>", b)
	case time.Time:
		fmt.Fprintf(buf, "<dateTime.iso8601>%s</dateTime.iso8601>", t.UTC().Format(iso8601))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteString("<struct>")
		for _, k := range keys {
			buf.WriteString("<member><name>")
			if err := xml.EscapeText(buf, []byte(k)); err != nil {
				return err
			}
			buf.WriteString("</name>")
			if err := encodeValue(buf, t[k]); err != nil {
				return err
			}
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")
	case []any:
		buf.WriteString("<array><data>")
		for _, item := range t {
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	default:
		return fmt.Errorf("xmlrpc: unsupported argument type %T", v)
	}
	buf.WriteString("</value>")
	return nil
}

type xmlValue struct {
	Raw      string     `xml:",chardata"`
	String   *string    `xml:"string"`
	Int      *string    `xml:"int"`
	I4       *string    `xml:"i4"`
	Boolean  *string    `xml:"boolean"`
	Double   *string    `xml:"double"`
	DateTime *string    `xml:"dateTime.iso8601"`
	Base64   *string    `xml:"base64"`
	Struct   *xmlStruct `xml:"struct"`
	Array    *xmlArray  `xml:"array"`
}

type xmlStruct struct {
	Members []xmlMember `xml:"member"`
}

type xmlMember struct {
	Name  string   `xml:"name"`
	Value xmlValue `xml:"value"`
}

type xmlArray struct {
	Values []xmlValue `xml:"data>value"`
}

type xmlResponse struct {
	XMLName xml.Name   `xml:"methodResponse"`
	Params  []xmlValue `xml:"params>param>value"`
	Fault   *xmlValue  `xml:"fault>value"`
}

// decodeResponse parses a methodResponse. A fault response is returned as
// a *remote.Fault error.
func decodeResponse(data []byte) (any, error) {
	var resp xmlResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("xmlrpc: malformed response: %w", err)
	}

	if resp.Fault != nil {
		v, err := resp.Fault.native()
		if err != nil {
			return nil, err
		}
		f := &remote.Fault{Message: "unknown error"}
		if m, ok := v.(map[string]any); ok {
			if code, ok := m["faultCode"].(int); ok {
				f.Code = code
			}
			if msg, ok := m["faultString"].(string); ok {
				f.Message = msg
			}
		}
		return nil, f
	}

	if len(resp.Params) == 0 {
		return nil, nil
	}
	return resp.Params[0].native()
}

func (v xmlValue) native() (any, error) {
	switch {
	case v.String != nil:
		return *v.String, nil
	case v.Int != nil:
		return strconv.Atoi(strings.TrimSpace(*v.Int))
	case v.I4 != nil:
		return strconv.Atoi(strings.TrimSpace(*v.I4))
	case v.Boolean != nil:
		return strings.TrimSpace(*v.Boolean) == "1", nil
	case v.Double != nil:
		return strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
	case v.DateTime != nil:
		return parseDateTime(strings.TrimSpace(*v.DateTime))
	case v.Base64 != nil:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*v.Base64))
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: bad base64 value: %w", err)
		}
		return string(b), nil
	case v.Struct != nil:
		m := make(map[string]any, len(v.Struct.Members))
		for _, mem := range v.Struct.Members {
			val, err := mem.Value.native()
			if err != nil {
				return nil, err
			}
			m[mem.Name] = val
		}
		return m, nil
	case v.Array != nil:
		items := make([]any, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			val, err := item.native()
			if err != nil {
				return nil, err
			}
			items = append(items, val)
		}
		return items, nil
	default:
		// An untyped value is a string.
		return v.Raw, nil
	}
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{iso8601, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("xmlrpc: bad dateTime value %q", s)
}
