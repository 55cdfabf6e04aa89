package dto

import "buildledger/internal/domain/notification"

// ResolveNotificationRequest sets the outcome of a pending notification.
type ResolveNotificationRequest struct {
	Status notification.Status `json:"status" binding:"required,oneof=approved rejected"`
}

// NotificationListQuery filters GET /notifications.
type NotificationListQuery struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}
