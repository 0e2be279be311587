// Package payload generates outbound qbXML requests and interprets the
// connector's qbXML responses.
package payload

import (
	"context"
	"encoding/xml"
	"fmt"

	"crewdesk/internal/domain"
)

const qbxmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n" +
	`<?qbxml version="13.0"?>` + "\n"

type generator func(item domain.QueueItem) (any, error)

// Builder implements domain.PayloadBuilder with one generator per item type.
type Builder struct {
	generators map[domain.ItemType]generator
}

// NewBuilder returns a Builder covering every queue item type the back
// office produces.
func NewBuilder() *Builder {
	return &Builder{
		generators: map[domain.ItemType]generator{
			domain.ItemTimeEntry: timeEntryRequest,
			domain.ItemEmployee:  employeeRequest,
			domain.ItemCustomer:  customerRequest,
			domain.ItemInvoice:   invoiceRequest,
		},
	}
}

// Build renders the qbXML request for the given item.
func (b *Builder) Build(_ context.Context, item domain.QueueItem) (string, error) {
	gen, ok := b.generators[item.Type]
	if !ok {
		return "", domain.NewDomainError("payload.Build", domain.ErrPayloadUnknownType, string(item.Type))
	}
	req, err := gen(item)
	if err != nil {
		return "", domain.NewDomainError("payload.Build", domain.ErrPayloadBuild, err.Error())
	}
	return render(req)
}

// qbxmlRequest is the fixed outer envelope of every outbound request.
type qbxmlRequest struct {
	XMLName xml.Name `xml:"QBXML"`
	MsgsRq  msgsRq   `xml:"QBXMLMsgsRq"`
}

type msgsRq struct {
	OnError string `xml:"onError,attr"`
	Body    any
}

func render(body any) (string, error) {
	doc := qbxmlRequest{MsgsRq: msgsRq{OnError: "stopOnError", Body: body}}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", domain.NewDomainError("payload.render", domain.ErrPayloadBuild, err.Error())
	}
	return qbxmlHeader + string(out), nil
}

type timeTrackingAddRq struct {
	XMLName   xml.Name `xml:"TimeTrackingAddRq"`
	RequestID string   `xml:"requestID,attr"`
	Add       timeTrackingAdd
}

type timeTrackingAdd struct {
	XMLName xml.Name `xml:"TimeTrackingAdd"`
	Entity  fullName `xml:"EntityRef"`
	Notes   string   `xml:"Notes,omitempty"`
}

type fullName struct {
	FullName string `xml:"FullName"`
}

func timeEntryRequest(item domain.QueueItem) (any, error) {
	if item.ReferenceID == "" {
		return nil, fmt.Errorf("time entry %s has no reference", item.ID)
	}
	return timeTrackingAddRq{
		RequestID: item.ID,
		Add: timeTrackingAdd{
			Entity: fullName{FullName: item.ReferenceID},
			Notes:  "crewdesk:" + item.ID,
		},
	}, nil
}

type employeeQueryRq struct {
	XMLName   xml.Name `xml:"EmployeeQueryRq"`
	RequestID string   `xml:"requestID,attr"`
	FullName  string   `xml:"FullName,omitempty"`
	MaxRet    int      `xml:"MaxReturned,omitempty"`
}

func employeeRequest(item domain.QueueItem) (any, error) {
	if item.ReferenceID == "" {
		return nil, fmt.Errorf("employee %s has no reference", item.ID)
	}
	return employeeQueryRq{RequestID: item.ID, FullName: item.ReferenceID}, nil
}

type customerAddRq struct {
	XMLName   xml.Name    `xml:"CustomerAddRq"`
	RequestID string      `xml:"requestID,attr"`
	Add       customerAdd `xml:"CustomerAdd"`
}

type customerAdd struct {
	Name string `xml:"Name"`
}

func customerRequest(item domain.QueueItem) (any, error) {
	if item.ReferenceID == "" {
		return nil, fmt.Errorf("customer %s has no reference", item.ID)
	}
	return customerAddRq{RequestID: item.ID, Add: customerAdd{Name: item.ReferenceID}}, nil
}

type invoiceQueryRq struct {
	XMLName   xml.Name `xml:"InvoiceQueryRq"`
	RequestID string   `xml:"requestID,attr"`
	RefNumber string   `xml:"RefNumber,omitempty"`
}

func invoiceRequest(item domain.QueueItem) (any, error) {
	if item.ReferenceID == "" {
		return nil, fmt.Errorf("invoice %s has no reference", item.ID)
	}
	return invoiceQueryRq{RequestID: item.ID, RefNumber: item.ReferenceID}, nil
}

// DirectoryQuery implements domain.DirectoryQueryBuilder with a full
// employee pull, bounded so a large company file cannot stall the agent.
type DirectoryQuery struct {
	MaxReturned int
}

// NewDirectoryQuery returns the one-shot directory query builder.
func NewDirectoryQuery() *DirectoryQuery {
	return &DirectoryQuery{MaxReturned: 500}
}

// Build renders the EmployeeQueryRq used for the directory pull.
func (d *DirectoryQuery) Build(_ context.Context) (string, error) {
	return render(employeeQueryRq{RequestID: "directory", MaxRet: d.MaxReturned})
}
