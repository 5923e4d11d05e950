package domain

import (
	"github.com/smallbiznis/invoiceflow/internal/invoice/snapshot"
)

// InvoiceDetail is the read model handed to renderers: the header, its lines,
// per-rate tax, status history and the decoded snapshots.
type InvoiceDetail struct {
	Invoice            Invoice                `json:"invoice"`
	Items              []InvoiceItem          `json:"items"`
	TaxLines           []InvoiceTaxLine       `json:"tax_lines"`
	History            []InvoiceStatusHistory `json:"history"`
	FreelancerSnapshot *snapshot.Freelancer   `json:"freelancer_snapshot,omitempty"`
	CompanySnapshot    *snapshot.Company      `json:"company_snapshot,omitempty"`
}

func NewInvoiceDetail(inv Invoice, items []InvoiceItem, taxLines []InvoiceTaxLine, history []InvoiceStatusHistory) (InvoiceDetail, error) {
	freelancer, err := snapshot.Decode[snapshot.Freelancer](inv.FreelancerSnapshot)
	if err != nil {
		return InvoiceDetail{}, err
	}
	company, err := snapshot.Decode[snapshot.Company](inv.CompanySnapshot)
	if err != nil {
		return InvoiceDetail{}, err
	}
	return InvoiceDetail{
		Invoice:            inv,
		Items:              items,
		TaxLines:           taxLines,
		History:            history,
		FreelancerSnapshot: freelancer,
		CompanySnapshot:    company,
	}, nil
}
