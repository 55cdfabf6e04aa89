package dto

import (
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/siteledger"
)

// CreateSiteRequest creates a site.
type CreateSiteRequest struct {
	Name      string             `json:"name" binding:"required,max=200"`
	Location  string             `json:"location" binding:"max=500"`
	Budget    types.Money        `json:"budget" binding:"money_nonneg"`
	ManagerID *id.ID             `json:"managerId"`
	Phases    []siteledger.Phase `json:"phases"`
}

func (r CreateSiteRequest) ToInput() siteledger.CreateSiteInput {
	return siteledger.CreateSiteInput{
		Name:      r.Name,
		Location:  r.Location,
		Budget:    r.Budget,
		ManagerID: r.ManagerID,
		Phases:    r.Phases,
	}
}

// ChangeSiteStatusRequest moves a site along its lifecycle.
type ChangeSiteStatusRequest struct {
	Status siteledger.Status `json:"status" binding:"required,oneof=planning active on_hold completed"`
}

// SiteListQuery filters GET /sites.
type SiteListQuery struct {
	PageQuery
	Status    string `form:"status" binding:"omitempty,oneof=planning active on_hold completed"`
	ManagerID string `form:"managerId" binding:"omitempty,uuid"`
}

// EntryListQuery filters GET /sites/:id/entries.
type EntryListQuery struct {
	Type    string `form:"type" binding:"omitempty,oneof=purchase rental attendance stock_transfer"`
	FromSeq int64  `form:"fromSeq" binding:"omitempty,min=0"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=5000"`
}

// ReconcileRequest asks for a repair when drift is found.
type ReconcileRequest struct {
	Repair bool `json:"repair"`
}
