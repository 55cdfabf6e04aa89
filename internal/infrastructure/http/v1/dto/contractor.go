package dto

import (
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/contractor"
)

// CreateContractorRequest registers a contractor.
type CreateContractorRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	Phone     string `json:"phone" binding:"max=50"`
	Specialty string `json:"specialty" binding:"max=100"`
}

func (r CreateContractorRequest) ToInput() contractor.CreateInput {
	return contractor.CreateInput{Name: r.Name, Phone: r.Phone, Specialty: r.Specialty}
}

// AssignSiteRequest links a contractor to a site.
type AssignSiteRequest struct {
	ContractorID id.ID `json:"contractorId" binding:"required"`
	SiteID       id.ID `json:"siteId" binding:"required"`
}

// AssignSiteResponse reports whether the link was new.
type AssignSiteResponse struct {
	*contractor.Assignment
	Created bool `json:"created"`
}

// ContractorTransactionRequest posts against an assignment.
type ContractorTransactionRequest struct {
	ContractorID id.ID             `json:"contractorId" binding:"required"`
	SiteID       id.ID             `json:"siteId" binding:"required"`
	Type         contractor.TxType `json:"type" binding:"required,oneof=advance expense additional_payment"`
	Amount       types.Money       `json:"amount" binding:"money_pos"`
	Description  string            `json:"description" binding:"max=500"`
}

func (r ContractorTransactionRequest) ToInput() contractor.PostInput {
	return contractor.PostInput{
		ContractorID: r.ContractorID,
		SiteID:       r.SiteID,
		Type:         r.Type,
		Amount:       r.Amount,
		Description:  r.Description,
	}
}

// ContractorListQuery filters GET /contractors.
type ContractorListQuery struct {
	PageQuery
	SiteID string `form:"siteId" binding:"omitempty,uuid"`
	Search string `form:"search"`
}

// BalanceResponse is the recomputed balance of an assignment.
type BalanceResponse struct {
	ContractorID id.ID       `json:"contractorId"`
	SiteID       id.ID       `json:"siteId"`
	Balance      types.Money `json:"balance"`
}
