package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"crewdesk/internal/domain"
	"crewdesk/internal/infra/tracer"
)

// Protocol sentinel replies. The Web Connector interprets these literals as
// instructions; their exact values must not change.
const (
	replyNoWork      = ""     // sendRequestXML: no work / unknown session
	replyAbort       = "-1"   // receiveResponseXML: unknown session
	replyDone        = "0"    // receiveResponseXML: no more work
	replyMoreWork    = "1"    // receiveResponseXML: pending work remains
	replyConnErrDone = "done" // connectionError: stop this cycle
	replyClosedOK    = "OK"   // closeConnection
	authInvalidUser  = "nvu"  // authenticate: not a valid user
)

// DispatcherDeps holds the collaborators the protocol core calls into.
type DispatcherDeps struct {
	Sessions    *SessionRegistry
	Credentials domain.CredentialValidator
	Queue       domain.WorkQueue
	Connections domain.ConnectionStore
	SyncLog     domain.SyncLog
	Payloads    domain.PayloadBuilder
	Directory   domain.DirectoryQueryBuilder
	Responses   domain.ResponseInterpreter
	Refs        domain.ExternalRefRecorder // can be nil (ref recording disabled)
	Logger      *slog.Logger

	ServerVersion    string
	MinClientVersion float64
}

// Dispatcher is the QBWC protocol state machine. Each exported method maps
// to one SOAP method; every business-level fault is absorbed and converted
// to that method's protocol sentinel so the agent's polling loop is never
// broken by a transport error.
type Dispatcher struct {
	deps DispatcherDeps
}

// NewDispatcher wires the protocol core.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.ServerVersion == "" {
		deps.ServerVersion = "1.0.0"
	}
	if deps.MinClientVersion == 0 {
		deps.MinClientVersion = 2.0
	}
	return &Dispatcher{deps: deps}
}

// guard absorbs panics from collaborator calls, mapping them to the
// method's fallback sentinel. The transport must always answer 200.
func (d *Dispatcher) guard(method, fallback string, out *string) func() {
	return func() {
		if r := recover(); r != nil {
			d.deps.Logger.Error("handler panic absorbed", "method", method, "panic", fmt.Sprint(r))
			*out = fallback
		}
	}
}

// ServerVersion reports the fixed server version string. No session required.
func (d *Dispatcher) ServerVersion(ctx context.Context) string {
	_, span := tracer.StartSpan(ctx, "qbwc.serverVersion")
	defer span.End()
	return d.deps.ServerVersion
}

// ClientVersion validates the agent's version. Below the minimum the reply
// carries the "E:" prefix the agent treats as fatal; otherwise an empty
// string lets it proceed without a warning.
func (d *Dispatcher) ClientVersion(ctx context.Context, version string) string {
	_, span := tracer.StartSpan(ctx, "qbwc.clientVersion")
	defer span.End()

	v, err := strconv.ParseFloat(strings.TrimSpace(version), 64)
	if err != nil {
		d.deps.Logger.Warn("unparseable client version", "version", version)
		return fmt.Sprintf("E:unrecognized Web Connector version %q", version)
	}
	if v < d.deps.MinClientVersion {
		d.deps.Logger.Warn("client below minimum version",
			"version", version, "minimum", d.deps.MinClientVersion,
			"code", domain.ErrorCodeOf(domain.ErrClientTooOld))
		return fmt.Sprintf("E:Web Connector %s is below the minimum supported version %.1f",
			version, d.deps.MinClientVersion)
	}
	return ""
}

// Authenticate checks connector credentials. On success it issues a ticket
// and returns [ticket, ""]; on failure ["", "nvu"] without creating a
// session.
func (d *Dispatcher) Authenticate(ctx context.Context, username, password string) (result [2]string) {
	ctx, span := tracer.StartSpan(ctx, "qbwc.authenticate")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			d.deps.Logger.Error("handler panic absorbed", "method", "authenticate", "panic", fmt.Sprint(r))
			result = [2]string{"", authInvalidUser}
		}
	}()

	conn, err := d.deps.Credentials.Validate(ctx, username, password)
	if err != nil {
		d.deps.Logger.Warn("authentication failed", "username", username)
		d.appendLog(ctx, "", "authenticate", domain.DirInbound, domain.SyncFailed, "invalid credentials for "+username)
		return [2]string{"", authInvalidUser}
	}

	sess := d.deps.Sessions.Create(username)
	span.SetAttributes(attribute.String("qbwc.ticket", sess.Ticket))

	d.appendLog(ctx, sess.Ticket, "authenticate", domain.DirInbound, domain.SyncOK, "session opened for "+username)
	if err := d.deps.Connections.UpdateStatus(ctx, domain.ConnConnected, ""); err != nil {
		d.deps.Logger.Error("update connection status", "error", err)
	}

	d.deps.Logger.Info("session authenticated",
		"username", username, "ticket", sess.Ticket, "app", conn.AppName)
	return [2]string{sess.Ticket, ""}
}

// SendRequestXML hands the agent its next unit of work, or an empty string
// when there is none (or the ticket is unknown). At most one unit is
// outstanding per session.
func (d *Dispatcher) SendRequestXML(ctx context.Context, ticket, companyFile, country, majorVers, minorVers string) (out string) {
	ctx, span := tracer.StartSpan(ctx, "qbwc.sendRequestXML")
	defer span.End()
	defer d.guard("sendRequestXML", replyNoWork, &out)()

	err := d.deps.Sessions.With(ticket, func(sess *domain.Session) error {
		// First dispatch may carry the company file and product version.
		if sess.RequestCount == 0 && companyFile != "" && sess.CompanyFile == "" {
			sess.CompanyFile = companyFile
			version := strings.TrimSpace(majorVers + "." + minorVers)
			if version == "." {
				version = ""
			}
			if err := d.deps.Connections.SetCompanyFile(ctx, companyFile, version); err != nil {
				d.deps.Logger.Error("record company file", "error", err)
			}
		}

		if !sess.Work.None() {
			// Out-of-order or retried request; degrade, never throw.
			verr := domain.NewDomainError("dispatcher.sendRequestXML",
				domain.ErrWorkOutstanding, string(sess.Work.Kind))
			d.deps.Logger.Warn("dispatch requested while awaiting response",
				"ticket", ticket, "item", sess.Work.ItemID,
				"error", verr, "code", domain.ErrorCodeOf(verr))
			out = replyNoWork
			return nil
		}

		items, err := d.deps.Queue.PeekNext(ctx, 1)
		if err != nil {
			d.deps.Logger.Error("peek queue", "error", err, "code", domain.ErrorCodeOf(err))
			out = replyNoWork
			return nil
		}

		if len(items) == 0 {
			out = d.dispatchDirectory(ctx, sess)
			return nil
		}

		out = d.dispatchItem(ctx, sess, items[0])
		return nil
	})
	if err != nil {
		// Unknown ticket: the empty string is the protocol's end signal.
		d.deps.Logger.Warn("dispatch for unknown session", "ticket", ticket)
		return replyNoWork
	}
	return out
}

// dispatchDirectory issues the one-shot employee directory pull if the
// connection enables it and this is the session's very first work slot.
func (d *Dispatcher) dispatchDirectory(ctx context.Context, sess *domain.Session) string {
	if sess.RequestCount != 0 {
		return replyNoWork
	}
	conn, err := d.deps.Connections.Get(ctx)
	if err != nil || !conn.DirectorySync {
		return replyNoWork
	}

	body, err := d.deps.Directory.Build(ctx)
	if err != nil {
		d.deps.Logger.Error("build directory query", "error", err)
		return replyNoWork
	}

	sess.Work = domain.DispatchedWork{Kind: domain.WorkDirectoryQuery}
	sess.RequestCount++
	d.appendLog(ctx, sess.Ticket, "directory_query", domain.DirOutbound, domain.SyncOK, "")
	d.deps.Logger.Info("dispatched directory query", "ticket", sess.Ticket)
	return body
}

// dispatchItem marks the item processing, builds its payload and hands it
// out. A failed payload build is recorded back to the queue so the item is
// not silently stuck.
func (d *Dispatcher) dispatchItem(ctx context.Context, sess *domain.Session, item domain.QueueItem) string {
	if err := d.deps.Queue.MarkProcessing(ctx, item.ID); err != nil {
		d.deps.Logger.Error("mark processing", "item", item.ID, "error", err)
		return replyNoWork
	}

	body, err := d.deps.Payloads.Build(ctx, item)
	if err != nil || body == "" {
		if err == nil {
			err = domain.ErrPayloadBuild
		}
		d.deps.Logger.Error("build payload",
			"item", item.ID, "type", item.Type, "error", err, "code", domain.ErrorCodeOf(err))
		if ferr := d.deps.Queue.MarkFailed(ctx, item.ID, err.Error()); ferr != nil {
			d.deps.Logger.Error("mark failed after build error", "item", item.ID, "error", ferr)
		}
		d.appendLog(ctx, sess.Ticket, string(item.Type), domain.DirOutbound, domain.SyncFailed, err.Error())
		return replyNoWork
	}

	sess.Work = domain.DispatchedWork{Kind: domain.WorkQueueItem, ItemID: item.ID}
	sess.RequestCount++
	d.appendLog(ctx, sess.Ticket, string(item.Type), domain.DirOutbound, domain.SyncOK, "item "+item.ID)
	d.deps.Logger.Info("dispatched queue item",
		"ticket", sess.Ticket, "item", item.ID, "type", item.Type, "request", sess.RequestCount)
	return body
}

// ReceiveResponseXML reconciles the agent's reported outcome into the queue
// and tells the agent whether more work remains: "1" if so, "0" if not,
// "-1" for an unknown ticket.
func (d *Dispatcher) ReceiveResponseXML(ctx context.Context, ticket, response, hresult, message string) (out string) {
	ctx, span := tracer.StartSpan(ctx, "qbwc.receiveResponseXML")
	defer span.End()
	defer d.guard("receiveResponseXML", replyDone, &out)()

	err := d.deps.Sessions.With(ticket, func(sess *domain.Session) error {
		success := d.deps.Responses.Succeeded(hresult)

		status := domain.SyncOK
		detail := ""
		if !success {
			status = domain.SyncFailed
			detail = fmt.Sprintf("hresult=%s message=%s", hresult, message)
		}
		d.appendLog(ctx, ticket, "receive_response", domain.DirInbound, status, detail)

		switch sess.Work.Kind {
		case domain.WorkDirectoryQuery:
			entries := d.deps.Responses.ParseDirectory(response)
			d.deps.Logger.Info("directory response",
				"ticket", ticket, "employees", len(entries), "success", success)

		case domain.WorkQueueItem:
			d.settleItem(ctx, sess, response, message, success)

		default:
			// Response with nothing outstanding: agent retry after a
			// timeout. Nothing to reconcile.
			d.deps.Logger.Warn("response with no dispatched work", "ticket", ticket)
		}

		sess.Work = domain.DispatchedWork{Kind: domain.WorkNone}

		more, err := d.deps.Queue.HasPending(ctx)
		if err != nil {
			d.deps.Logger.Error("check pending", "error", err)
			out = replyDone
			return nil
		}
		if more {
			out = replyMoreWork
		} else {
			out = replyDone
		}
		return nil
	})
	if err != nil {
		return replyAbort
	}
	return out
}

// settleItem completes or fails the dispatched queue item and records any
// extracted QuickBooks identifier. Extraction failure is not an error.
func (d *Dispatcher) settleItem(ctx context.Context, sess *domain.Session, response, message string, success bool) {
	itemID := sess.Work.ItemID

	if !success {
		if err := d.deps.Queue.MarkFailed(ctx, itemID, message); err != nil {
			d.deps.Logger.Error("mark failed", "item", itemID, "error", err)
		}
		return
	}

	if err := d.deps.Queue.MarkCompleted(ctx, itemID, response); err != nil {
		d.deps.Logger.Error("mark completed", "item", itemID, "error", err)
		return
	}

	item, err := d.itemType(ctx, itemID)
	if err != nil {
		return
	}
	if ref, ok := d.deps.Responses.ExtractRef(item, response); ok && d.deps.Refs != nil {
		ref.ItemID = itemID
		if err := d.deps.Refs.RecordRef(ctx, ref); err != nil {
			d.deps.Logger.Warn("record external ref", "item", itemID, "error", err)
		}
	}
}

// itemGetter is implemented by queues that can look an item back up; the
// sqlite store does. Used only for ref extraction, so absence is fine.
type itemGetter interface {
	GetItem(ctx context.Context, id string) (*domain.QueueItem, error)
}

func (d *Dispatcher) itemType(ctx context.Context, itemID string) (domain.ItemType, error) {
	g, ok := d.deps.Queue.(itemGetter)
	if !ok {
		return "", domain.ErrQueueItemNotFound
	}
	item, err := g.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	return item.Type, nil
}

// ConnectionError records the agent-reported connection failure. The session
// stays alive, but any dispatched queue item is failed so it cannot sit in
// processing forever.
func (d *Dispatcher) ConnectionError(ctx context.Context, ticket, hresult, message string) (out string) {
	ctx, span := tracer.StartSpan(ctx, "qbwc.connectionError")
	defer span.End()
	defer d.guard("connectionError", replyConnErrDone, &out)()

	detail := fmt.Sprintf("hresult=%s message=%s", hresult, message)
	if err := d.deps.Connections.UpdateStatus(ctx, domain.ConnError, detail); err != nil {
		d.deps.Logger.Error("update connection status", "error", err)
	}
	d.appendLog(ctx, ticket, "connection_error", domain.DirInbound, domain.SyncFailed, detail)

	err := d.deps.Sessions.With(ticket, func(sess *domain.Session) error {
		if sess.Work.Kind == domain.WorkQueueItem {
			if err := d.deps.Queue.MarkFailed(ctx, sess.Work.ItemID, "connection error: "+message); err != nil {
				d.deps.Logger.Error("fail item on connection error", "item", sess.Work.ItemID, "error", err)
			}
		}
		sess.Work = domain.DispatchedWork{Kind: domain.WorkNone}
		return nil
	})
	if err != nil {
		d.deps.Logger.Warn("connection error for unknown session", "ticket", ticket)
	}

	return replyConnErrDone
}

// GetLastError always returns an empty string. No per-session error channel
// is kept; failures surface through the connection status and sync log.
func (d *Dispatcher) GetLastError(ctx context.Context, ticket string) string {
	_, span := tracer.StartSpan(ctx, "qbwc.getLastError")
	defer span.End()
	return ""
}

// CloseConnection tears down the session. Idempotent: an unknown or already
// closed ticket still yields "OK".
func (d *Dispatcher) CloseConnection(ctx context.Context, ticket string) (out string) {
	ctx, span := tracer.StartSpan(ctx, "qbwc.closeConnection")
	defer span.End()
	defer d.guard("closeConnection", replyClosedOK, &out)()

	if sess, ok := d.deps.Sessions.Get(ticket); ok {
		d.appendLog(ctx, ticket, "close_connection", domain.DirInbound, domain.SyncOK,
			fmt.Sprintf("requests=%d", sess.RequestCount))
		if err := d.deps.Connections.UpdateStatus(ctx, domain.ConnDisconnected, ""); err != nil {
			d.deps.Logger.Error("update connection status", "error", err)
		}
		d.deps.Sessions.Delete(ticket)
		d.deps.Logger.Info("session closed", "ticket", ticket, "requests", sess.RequestCount)
	}
	return replyClosedOK
}

// appendLog writes a sync log entry; failures are logged and swallowed so
// history bookkeeping never breaks the protocol loop.
func (d *Dispatcher) appendLog(ctx context.Context, ticket, operation string, dir domain.SyncDirection, status domain.SyncStatus, detail string) {
	entry := domain.SyncEntry{
		SessionTicket: ticket,
		Operation:     operation,
		Direction:     dir,
		Status:        status,
		Detail:        detail,
	}
	if err := d.deps.SyncLog.Append(ctx, entry); err != nil {
		d.deps.Logger.Error("sync log append",
			"operation", operation, "error", err, "code", domain.ErrorCodeOf(err))
	}
}
