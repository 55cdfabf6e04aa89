package dto

import (
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/procurement"
)

// PurchaseItemRequest is one purchased line.
type PurchaseItemRequest struct {
	Name      string         `json:"name" binding:"required,max=200"`
	Category  string         `json:"category" binding:"max=100"`
	Unit      string         `json:"unit" binding:"max=32"`
	Quantity  types.Quantity `json:"quantity" binding:"qty_pos"`
	UnitPrice types.Money    `json:"unitPrice" binding:"money_nonneg"`
	Stocked   bool           `json:"stocked"`
}

// CreatePurchaseRequest records a vendor purchase.
type CreatePurchaseRequest struct {
	SiteID  id.ID                 `json:"siteId" binding:"required"`
	Vendor  string                `json:"vendor" binding:"required,max=200"`
	Items   []PurchaseItemRequest `json:"items" binding:"required,min=1,dive"`
	Payment procurement.Payment   `json:"payment"`
}

func (r CreatePurchaseRequest) ToInput() procurement.CreatePurchaseInput {
	items := make([]procurement.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = procurement.Item{
			Name:      it.Name,
			Category:  it.Category,
			Unit:      it.Unit,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Stocked:   it.Stocked,
		}
	}
	return procurement.CreatePurchaseInput{
		SiteID:  r.SiteID,
		Vendor:  r.Vendor,
		Items:   items,
		Payment: r.Payment,
	}
}

// CreateRentalRequest records a machinery rental.
type CreateRentalRequest struct {
	SiteID    *id.ID      `json:"siteId"`
	Machinery string      `json:"machinery" binding:"required,max=200"`
	Vendor    string      `json:"vendor" binding:"required,max=200"`
	StartDate Date        `json:"startDate"`
	EndDate   *Date       `json:"endDate"`
	Amount    types.Money `json:"amount" binding:"money_pos"`
}

func (r CreateRentalRequest) ToInput() procurement.CreateRentalInput {
	return procurement.CreateRentalInput{
		SiteID:    r.SiteID,
		Machinery: r.Machinery,
		Vendor:    r.Vendor,
		StartDate: r.StartDate.Time,
		EndDate:   r.EndDate.TimePtr(),
		Amount:    r.Amount,
	}
}

// ProcurementListQuery filters purchases and rentals.
type ProcurementListQuery struct {
	PageQuery
	SiteID string `form:"siteId" binding:"omitempty,uuid"`
	Status string `form:"status" binding:"omitempty,oneof=pending verified"`
}
