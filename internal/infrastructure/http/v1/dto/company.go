package dto

import (
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/company"
)

// CompanyTransactionRequest posts to the company ledger.
type CompanyTransactionRequest struct {
	Type        company.EntryType `json:"type" binding:"required,oneof=incoming expenditure"`
	Amount      types.Money       `json:"amount" binding:"money_pos"`
	SiteID      *id.ID            `json:"siteId"`
	Description string            `json:"description" binding:"max=500"`
}

func (r CompanyTransactionRequest) ToInput() company.PostInput {
	return company.PostInput{
		Type:        r.Type,
		Amount:      r.Amount,
		SiteID:      r.SiteID,
		Description: r.Description,
	}
}

// CompanyEntryQuery filters GET /company/entries.
type CompanyEntryQuery struct {
	PageQuery
	SiteID string `form:"siteId" binding:"omitempty,uuid"`
}
