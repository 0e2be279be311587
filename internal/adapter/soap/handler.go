package soap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxRequestBytes bounds inbound envelopes. qbXML responses for large
// company files run to a few megabytes; anything past this is hostile.
const maxRequestBytes = 8 << 20

// Dispatcher is the protocol state machine the transport hands calls to.
type Dispatcher interface {
	ServerVersion(ctx context.Context) string
	ClientVersion(ctx context.Context, version string) string
	Authenticate(ctx context.Context, username, password string) [2]string
	SendRequestXML(ctx context.Context, ticket, companyFile, country, majorVers, minorVers string) string
	ReceiveResponseXML(ctx context.Context, ticket, response, hresult, message string) string
	ConnectionError(ctx context.Context, ticket, hresult, message string) string
	GetLastError(ctx context.Context, ticket string) string
	CloseConnection(ctx context.Context, ticket string) string
}

// Handler serves the Web Connector SOAP endpoint. Every recognized method
// answers 200 with a well-formed envelope; only an unparseable envelope or
// an unknown method produces a non-200.
type Handler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	appName    string
}

// NewHandler builds the SOAP endpoint handler.
func NewHandler(dispatcher Dispatcher, appName string, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger, appName: appName}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		// The connector only POSTs; a browser GET gets a status line.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%s QBWC endpoint\n", h.appName)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "read request", http.StatusBadRequest)
		return
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		h.logger.Warn("malformed soap envelope", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "malformed envelope", http.StatusBadRequest)
		return
	}

	reply, ok := h.dispatch(r.Context(), env)
	if !ok {
		h.logger.Warn("unknown soap method", "remote", r.RemoteAddr)
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, encodeFault("soap:Client", "unknown method"))
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	io.WriteString(w, reply)
}

// dispatch routes the decoded envelope to the dispatcher and encodes the
// method-specific reply shape. Returns ok=false when no known method body
// was present.
func (h *Handler) dispatch(ctx context.Context, env *requestEnvelope) (string, bool) {
	b := env.Body
	switch {
	case b.ServerVersion != nil:
		return encodeScalar("serverVersion", h.dispatcher.ServerVersion(ctx)), true

	case b.ClientVersion != nil:
		return encodeScalar("clientVersion", h.dispatcher.ClientVersion(ctx, b.ClientVersion.StrVersion)), true

	case b.Authenticate != nil:
		result := h.dispatcher.Authenticate(ctx, b.Authenticate.StrUserName, b.Authenticate.StrPassword)
		return encodeStringArray("authenticate", result), true

	case b.SendRequestXML != nil:
		req := b.SendRequestXML
		reply := h.dispatcher.SendRequestXML(ctx, req.Ticket, req.StrCompanyFile,
			req.QBXMLCountry, req.QBXMLMajorVers, req.QBXMLMinorVers)
		return encodeScalar("sendRequestXML", reply), true

	case b.ReceiveResponseXML != nil:
		req := b.ReceiveResponseXML
		reply := h.dispatcher.ReceiveResponseXML(ctx, req.Ticket, req.Response, req.HResult, req.Message)
		return encodeScalar("receiveResponseXML", reply), true

	case b.ConnectionError != nil:
		req := b.ConnectionError
		return encodeScalar("connectionError", h.dispatcher.ConnectionError(ctx, req.Ticket, req.HResult, req.Message)), true

	case b.GetLastError != nil:
		return encodeScalar("getLastError", h.dispatcher.GetLastError(ctx, b.GetLastError.Ticket)), true

	case b.CloseConnection != nil:
		return encodeScalar("closeConnection", h.dispatcher.CloseConnection(ctx, b.CloseConnection.Ticket)), true
	}
	return "", false
}
