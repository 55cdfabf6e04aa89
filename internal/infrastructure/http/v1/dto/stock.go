package dto

import (
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/stock"
)

// ReceiveStockRequest credits material at a site or in the pool.
type ReceiveStockRequest struct {
	SiteID   *id.ID         `json:"siteId"`
	Name     string         `json:"name" binding:"required,max=200"`
	Category string         `json:"category" binding:"max=100"`
	Unit     string         `json:"unit" binding:"required,max=32"`
	Quantity types.Quantity `json:"quantity" binding:"qty_pos"`
	UnitCost types.Money    `json:"unitCost" binding:"money_nonneg"`
	Note     string         `json:"note" binding:"max=500"`
}

func (r ReceiveStockRequest) ToInput() stock.ReceiveInput {
	return stock.ReceiveInput{
		SiteID:   r.SiteID,
		Name:     r.Name,
		Category: r.Category,
		Unit:     r.Unit,
		Quantity: r.Quantity,
		UnitCost: r.UnitCost,
		Note:     r.Note,
	}
}

// ConsumeStockRequest takes quantity off a line.
type ConsumeStockRequest struct {
	Quantity types.Quantity `json:"quantity" binding:"qty_pos"`
	Note     string         `json:"note" binding:"max=500"`
}

// StockListQuery filters GET /stock.
type StockListQuery struct {
	PageQuery
	SiteID   string `form:"siteId" binding:"omitempty,uuid"`
	Pool     bool   `form:"pool"`
	Category string `form:"category"`
}

// RequestTransferRequest opens a transfer.
type RequestTransferRequest struct {
	StockID    id.ID          `json:"stockId" binding:"required"`
	Quantity   types.Quantity `json:"quantity" binding:"qty_pos"`
	FromSiteID *id.ID         `json:"fromSiteId"`
	ToSiteID   id.ID          `json:"toSiteId" binding:"required"`
	Note       string         `json:"note" binding:"max=500"`
}

func (r RequestTransferRequest) ToInput() stock.RequestTransferInput {
	return stock.RequestTransferInput{
		StockID:    r.StockID,
		Quantity:   r.Quantity,
		FromSiteID: r.FromSiteID,
		ToSiteID:   r.ToSiteID,
		Note:       r.Note,
	}
}

// DecideTransferRequest approves or rejects a transfer.
type DecideTransferRequest struct {
	Decision stock.Decision `json:"decision" binding:"required,oneof=approve reject"`
	Note     string         `json:"note" binding:"max=500"`
}

// TransferListQuery filters GET /stock-transfers.
type TransferListQuery struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,oneof=requested approved rejected"`
	SiteID string `form:"siteId" binding:"omitempty,uuid"`
}

// StockDetail is a line with its recent movements.
type StockDetail struct {
	*stock.Stock
	Movements []*stock.Movement `json:"movements"`
}
