package ssw

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	soapEncodingNS = "http://schemas.xmlsoap.org/soap/encoding/"
	xsiNS          = "http://www.w3.org/2001/XMLSchema-instance"
	xsdNS          = "http://www.w3.org/2001/XMLSchema"
)

type paramKind string

const (
	kindString  paramKind = "xsd:string"
	kindDecimal paramKind = "xsd:decimal"
	kindInt     paramKind = "xsd:int"
)

type param struct {
	name  string
	kind  paramKind
	value string
}

// CotarRequest holds the typed parameters of the cotar operation.
type CotarRequest struct {
	Dominio            string
	Login              string
	Senha              string
	CNPJPagador        string
	SenhaPagador       string
	CEPOrigem          string
	CEPDestino         string
	ValorNF            decimal.Decimal
	Quantidade         int
	Peso               decimal.Decimal
	Volume             decimal.Decimal
	Mercadoria         string
	CIFFOB             string
	CNPJRemetente      string
	CNPJDestinatario   string
	Observacao         string
	TRT                bool
	Coletar            bool
	EntDificil         bool
	DestContribuinte   bool
	QtdePares          int
	Altura             decimal.Decimal
	Largura            decimal.Decimal
	Comprimento        decimal.Decimal
	FatorMultiplicador int
}

func (r CotarRequest) params() []param {
	return []param{
		{"dominio", kindString, r.Dominio},
		{"login", kindString, r.Login},
		{"senha", kindString, r.Senha},
		{"cnpjPagador", kindString, r.CNPJPagador},
		{"senhaPagador", kindString, r.SenhaPagador},
		{"cepOrigem", kindString, r.CEPOrigem},
		{"cepDestino", kindString, r.CEPDestino},
		{"valorNF", kindDecimal, r.ValorNF.StringFixed(2)},
		{"quantidade", kindInt, strconv.Itoa(r.Quantidade)},
		{"peso", kindDecimal, r.Peso.StringFixed(3)},
		{"volume", kindDecimal, r.Volume.StringFixed(6)},
		{"mercadoria", kindString, r.Mercadoria},
		{"ciffob", kindString, r.CIFFOB},
		{"cnpjRemetente", kindString, r.CNPJRemetente},
		{"cnpjDestinatario", kindString, r.CNPJDestinatario},
		{"observacao", kindString, r.Observacao},
		{"trt", kindString, flag(r.TRT)},
		{"coletar", kindString, flag(r.Coletar)},
		{"entDificil", kindString, flag(r.EntDificil)},
		{"destContribuinte", kindString, flag(r.DestContribuinte)},
		{"qtdePares", kindInt, strconv.Itoa(r.QtdePares)},
		{"altura", kindDecimal, r.Altura.StringFixed(3)},
		{"largura", kindDecimal, r.Largura.StringFixed(3)},
		{"comprimento", kindDecimal, r.Comprimento.StringFixed(3)},
		{"fatorMultiplicador", kindInt, strconv.Itoa(r.FatorMultiplicador)},
	}
}

func flag(v bool) string {
	if v {
		return "S"
	}
	return "N"
}

// Envelope renders the SOAP 1.1 envelope for the cotar call in namespace.
func (r CotarRequest) Envelope(namespace string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soapenv:Envelope xmlns:xsi="` + xsiNS + `" xmlns:xsd="` + xsdNS + `" xmlns:soapenv="` + soapEnvelopeNS + `" xmlns:urn="`)
	if err := xml.EscapeText(&buf, []byte(namespace)); err != nil {
		return nil, err
	}
	buf.WriteString(`"><soapenv:Header/><soapenv:Body><urn:cotar soapenv:encodingStyle="` + soapEncodingNS + `">`)
	for _, p := range r.params() {
		buf.WriteString("<" + p.name + ` xsi:type="` + string(p.kind) + `">`)
		if err := xml.EscapeText(&buf, []byte(p.value)); err != nil {
			return nil, err
		}
		buf.WriteString("</" + p.name + ">")
	}
	buf.WriteString(`</urn:cotar></soapenv:Body></soapenv:Envelope>`)
	return buf.Bytes(), nil
}
