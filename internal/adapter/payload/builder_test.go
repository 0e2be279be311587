package payload

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewdesk/internal/domain"
)

func TestBuildPerItemType(t *testing.T) {
	b := NewBuilder()
	ctx := context.Background()

	cases := []struct {
		itemType domain.ItemType
		ref      string
		wantTag  string
	}{
		{domain.ItemTimeEntry, "Jane Doe", "TimeTrackingAddRq"},
		{domain.ItemEmployee, "Jane Doe", "EmployeeQueryRq"},
		{domain.ItemCustomer, "Acme Corp", "CustomerAddRq"},
		{domain.ItemInvoice, "INV-42", "InvoiceQueryRq"},
	}

	for _, tc := range cases {
		t.Run(string(tc.itemType), func(t *testing.T) {
			body, err := b.Build(ctx, domain.QueueItem{
				ID: "item-1", Type: tc.itemType, ReferenceID: tc.ref,
			})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(body, `<?xml version="1.0" encoding="utf-8"?>`))
			assert.Contains(t, body, `<?qbxml version="13.0"?>`)
			assert.Contains(t, body, tc.wantTag)
			assert.Contains(t, body, tc.ref)
			assert.Contains(t, body, `onError="stopOnError"`)
		})
	}
}

func TestBuildUnknownType(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(context.Background(), domain.QueueItem{ID: "x", Type: "vendor_bill"})
	assert.ErrorIs(t, err, domain.ErrPayloadUnknownType)
}

func TestBuildMissingReference(t *testing.T) {
	b := NewBuilder()
	for _, itemType := range []domain.ItemType{
		domain.ItemTimeEntry, domain.ItemEmployee, domain.ItemCustomer, domain.ItemInvoice,
	} {
		_, err := b.Build(context.Background(), domain.QueueItem{ID: "x", Type: itemType})
		assert.ErrorIs(t, err, domain.ErrPayloadBuild, "type %s", itemType)
	}
}

func TestBuildEscapesReference(t *testing.T) {
	b := NewBuilder()
	body, err := b.Build(context.Background(), domain.QueueItem{
		ID: "item-1", Type: domain.ItemCustomer, ReferenceID: `O'Brien & Sons <Ltd>`,
	})
	require.NoError(t, err)
	assert.Contains(t, body, "O&#39;Brien &amp; Sons &lt;Ltd&gt;")
}

func TestDirectoryQuery(t *testing.T) {
	body, err := NewDirectoryQuery().Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, body, "EmployeeQueryRq")
	assert.Contains(t, body, "<MaxReturned>500</MaxReturned>")
}
