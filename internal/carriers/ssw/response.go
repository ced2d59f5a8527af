package ssw

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Result is the decoded cotacao document.
type Result struct {
	Erro      string `xml:"erro"`
	Mensagem  string `xml:"mensagem"`
	Frete     string `xml:"frete"`
	Prazo     string `xml:"prazo"`
	Reference string `xml:"cotacao"`
}

type envelope struct {
	Body struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
		Response struct {
			Return struct {
				Text  string `xml:",chardata"`
				Inner string `xml:",innerxml"`
			} `xml:"return"`
			Result
		} `xml:",any"`
	} `xml:"Body"`
}

// ParseEnvelope extracts the cotacao result from a SOAP response. The payload
// is either an entity-escaped cotacao document inside the return element or,
// for older deployments, flat result elements directly inside the response.
func ParseEnvelope(body []byte) (Result, error) {
	var env envelope
	if err := newDecoder(body).Decode(&env); err != nil {
		return Result{}, fmt.Errorf("decode soap envelope: %w", err)
	}
	if fault := env.Body.Fault; fault != nil {
		return Result{}, fmt.Errorf("soap fault %s: %s", strings.TrimSpace(fault.Code), strings.TrimSpace(fault.String))
	}

	ret := env.Body.Response.Return
	payload := strings.TrimSpace(ret.Text)
	if inner := strings.TrimSpace(ret.Inner); strings.HasPrefix(inner, "<") && !strings.HasPrefix(inner, "<![CDATA[") {
		payload = inner
	}
	if payload == "" {
		legacy := env.Body.Response.Result
		if legacy.Frete == "" && legacy.Erro == "" {
			return Result{}, fmt.Errorf("soap response carries no cotacao payload")
		}
		return legacy, nil
	}
	if !strings.HasPrefix(payload, "<") {
		payload = DecodeEntities(payload)
	}
	return parseResult(payload)
}

func parseResult(payload string) (Result, error) {
	var doc struct {
		XMLName xml.Name `xml:"cotacao"`
		Result
	}
	if err := newDecoder([]byte(stripDeclaration(payload))).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("decode cotacao payload: %w", err)
	}
	return doc.Result, nil
}

// The embedded document is already text by the time it is extracted, so its
// declared encoding no longer applies.
func stripDeclaration(payload string) string {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "<?xml") {
		if _, rest, ok := strings.Cut(payload, "?>"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return payload
}

func newDecoder(body []byte) *xml.Decoder {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charsetReader
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	return decoder
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

// DecodeEntities unescapes one level of HTML character and entity
// references. Unknown references are left untouched.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}
