// Package soap implements the Web Connector's SOAP transport: envelope
// decoding into typed per-method requests, protocol-exact reply encoding,
// and the http.Handler tying them to the dispatcher.
package soap

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Inbound request bodies. Every field is optional: a missing element decodes
// to the zero value rather than failing the call.
type (
	serverVersionReq struct{}

	clientVersionReq struct {
		StrVersion string `xml:"strVersion"`
	}

	authenticateReq struct {
		StrUserName string `xml:"strUserName"`
		StrPassword string `xml:"strPassword"`
	}

	sendRequestXMLReq struct {
		Ticket         string `xml:"ticket"`
		StrHCPResponse string `xml:"strHCPResponse"`
		StrCompanyFile string `xml:"strCompanyFileName"`
		QBXMLCountry   string `xml:"qbXMLCountry"`
		QBXMLMajorVers string `xml:"qbXMLMajorVers"`
		QBXMLMinorVers string `xml:"qbXMLMinorVers"`
	}

	receiveResponseXMLReq struct {
		Ticket   string `xml:"ticket"`
		Response string `xml:"response"`
		HResult  string `xml:"hresult"`
		Message  string `xml:"message"`
	}

	connectionErrorReq struct {
		Ticket  string `xml:"ticket"`
		HResult string `xml:"hresult"`
		Message string `xml:"message"`
	}

	getLastErrorReq struct {
		Ticket string `xml:"ticket"`
	}

	closeConnectionReq struct {
		Ticket string `xml:"ticket"`
	}
)

// requestEnvelope decodes any inbound call; exactly one body pointer is
// non-nil for a well-formed request.
type requestEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		ServerVersion      *serverVersionReq      `xml:"serverVersion"`
		ClientVersion      *clientVersionReq      `xml:"clientVersion"`
		Authenticate       *authenticateReq       `xml:"authenticate"`
		SendRequestXML     *sendRequestXMLReq     `xml:"sendRequestXML"`
		ReceiveResponseXML *receiveResponseXMLReq `xml:"receiveResponseXML"`
		ConnectionError    *connectionErrorReq    `xml:"connectionError"`
		GetLastError       *getLastErrorReq       `xml:"getLastError"`
		CloseConnection    *closeConnectionReq    `xml:"closeConnection"`
	} `xml:"Body"`
}

// decodeEnvelope parses the raw SOAP request. This is the one place a
// malformed request is allowed to surface as an error.
func decodeEnvelope(data []byte) (*requestEnvelope, error) {
	var env requestEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &env, nil
}

const (
	qbwcNamespace = "http://developer.intuit.com/"
	envelopeOpen  = `<?xml version="1.0" encoding="utf-8"?>` + "\n" + `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema"><soap:Body>`
	envelopeClose = `</soap:Body></soap:Envelope>`
)

// escape renders s as XML character data.
func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// encodeScalar wraps a single string result in the method-specific
// <method>Response / <method>Result pair the agent expects.
func encodeScalar(method, value string) string {
	return fmt.Sprintf("%s<%sResponse xmlns=%q><%sResult>%s</%sResult></%sResponse>%s",
		envelopeOpen, method, qbwcNamespace, method, escape(value), method, method, envelopeClose)
}

// encodeStringArray wraps an ordered pair as two <string> array elements.
// Only authenticate uses this shape, and it must be preserved exactly.
func encodeStringArray(method string, values [2]string) string {
	return fmt.Sprintf("%s<%sResponse xmlns=%q><%sResult><string>%s</string><string>%s</string></%sResult></%sResponse>%s",
		envelopeOpen, method, qbwcNamespace, method,
		escape(values[0]), escape(values[1]), method, method, envelopeClose)
}

// encodeFault renders a minimal SOAP fault. Used only for calls outside any
// handler (unknown method); handler faults never reach here.
func encodeFault(code, message string) string {
	return fmt.Sprintf("%s<soap:Fault><faultcode>%s</faultcode><faultstring>%s</faultstring></soap:Fault>%s",
		envelopeOpen, escape(code), escape(message), envelopeClose)
}
