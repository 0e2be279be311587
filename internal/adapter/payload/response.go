package payload

import (
	"encoding/xml"
	"regexp"
	"strings"

	"crewdesk/internal/domain"
)

// Interpreter implements domain.ResponseInterpreter over the package's
// response functions, so the protocol core stays decoupled from this package.
type Interpreter struct{}

// NewInterpreter returns the qbXML response interpreter.
func NewInterpreter() *Interpreter { return &Interpreter{} }

func (*Interpreter) Succeeded(hresult string) bool { return Succeeded(hresult) }

func (*Interpreter) ExtractRef(itemType domain.ItemType, payload string) (domain.ExternalRef, bool) {
	return ExtractRef(itemType, payload)
}

func (*Interpreter) ParseDirectory(payload string) []domain.DirectoryEntry {
	return ParseDirectory(payload)
}

// Succeeded classifies an agent-reported hresult. The Web Connector sends an
// empty string or "0" on success and a COM error code otherwise.
func Succeeded(hresult string) bool {
	h := strings.TrimSpace(hresult)
	return h == "" || h == "0"
}

// Per-type matchers for the secondary identifier a success response carries.
// Transactions get a TxnID, list objects a ListID. qbXML responses are not
// schema-validated here; a loose regexp match is deliberate since extraction
// is best-effort.
var (
	txnIDRe  = regexp.MustCompile(`<TxnID>([^<]+)</TxnID>`)
	listIDRe = regexp.MustCompile(`<ListID>([^<]+)</ListID>`)
)

// refMatchers maps item types to the identifier kind their responses carry.
var refMatchers = map[domain.ItemType]struct {
	re  *regexp.Regexp
	typ domain.RefType
}{
	domain.ItemTimeEntry: {txnIDRe, domain.RefTxnID},
	domain.ItemInvoice:   {txnIDRe, domain.RefTxnID},
	domain.ItemEmployee:  {listIDRe, domain.RefListID},
	domain.ItemCustomer:  {listIDRe, domain.RefListID},
}

// ExtractRef pulls the QuickBooks identifier out of a success payload.
// Returns ok=false when the payload carries none; that is not an error.
func ExtractRef(itemType domain.ItemType, payload string) (domain.ExternalRef, bool) {
	m, known := refMatchers[itemType]
	if !known {
		return domain.ExternalRef{}, false
	}
	match := m.re.FindStringSubmatch(payload)
	if match == nil {
		return domain.ExternalRef{}, false
	}
	return domain.ExternalRef{Type: m.typ, Value: match[1]}, true
}

type employeeQueryRs struct {
	XMLName   xml.Name `xml:"QBXML"`
	Employees []struct {
		ListID string `xml:"ListID"`
		Name   string `xml:"Name"`
	} `xml:"QBXMLMsgsRs>EmployeeQueryRs>EmployeeRet"`
}

// ParseDirectory extracts id + display name pairs from a directory query
// response. Used for logging and metrics only.
func ParseDirectory(payload string) []domain.DirectoryEntry {
	var rs employeeQueryRs
	if err := xml.Unmarshal([]byte(payload), &rs); err != nil {
		return nil
	}
	entries := make([]domain.DirectoryEntry, 0, len(rs.Employees))
	for _, e := range rs.Employees {
		if e.ListID == "" && e.Name == "" {
			continue
		}
		entries = append(entries, domain.DirectoryEntry{ListID: e.ListID, Name: e.Name})
	}
	return entries
}
