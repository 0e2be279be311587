package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const soapPrefix = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`
const soapSuffix = `</soap:Body></soap:Envelope>`

func TestDecodeAuthenticate(t *testing.T) {
	raw := soapPrefix +
		`<authenticate xmlns="http://developer.intuit.com/"><strUserName>svc</strUserName><strPassword>p@ss</strPassword></authenticate>` +
		soapSuffix

	env, err := decodeEnvelope([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, env.Body.Authenticate)
	assert.Equal(t, "svc", env.Body.Authenticate.StrUserName)
	assert.Equal(t, "p@ss", env.Body.Authenticate.StrPassword)
	assert.Nil(t, env.Body.SendRequestXML)
}

func TestDecodeMissingFieldsDefaultEmpty(t *testing.T) {
	raw := soapPrefix +
		`<sendRequestXML xmlns="http://developer.intuit.com/"><ticket>T-1</ticket></sendRequestXML>` +
		soapSuffix

	env, err := decodeEnvelope([]byte(raw))
	require.NoError(t, err)
	req := env.Body.SendRequestXML
	require.NotNil(t, req)
	assert.Equal(t, "T-1", req.Ticket)
	assert.Equal(t, "", req.StrCompanyFile)
	assert.Equal(t, "", req.QBXMLMajorVers)
	assert.Equal(t, "", req.QBXMLMinorVers)
}

func TestDecodeMalformedEnvelope(t *testing.T) {
	_, err := decodeEnvelope([]byte("not xml at all <"))
	assert.Error(t, err)
}

func TestEncodeScalar(t *testing.T) {
	out := encodeScalar("receiveResponseXML", "1")
	assert.Contains(t, out, `<receiveResponseXMLResponse xmlns="http://developer.intuit.com/">`)
	assert.Contains(t, out, `<receiveResponseXMLResult>1</receiveResponseXMLResult>`)
	assert.Contains(t, out, `<soap:Envelope`)
}

func TestEncodeScalarEscapesPayload(t *testing.T) {
	out := encodeScalar("sendRequestXML", `<?qbxml version="13.0"?><QBXML/>`)
	assert.Contains(t, out, "&lt;?qbxml")
	assert.NotContains(t, out, `<sendRequestXMLResult><?qbxml`)
}

func TestEncodeAuthenticateArrayShape(t *testing.T) {
	out := encodeStringArray("authenticate", [2]string{"T-123", ""})
	assert.Contains(t, out,
		`<authenticateResult><string>T-123</string><string></string></authenticateResult>`)

	out = encodeStringArray("authenticate", [2]string{"", "nvu"})
	assert.Contains(t, out,
		`<authenticateResult><string></string><string>nvu</string></authenticateResult>`)
}
