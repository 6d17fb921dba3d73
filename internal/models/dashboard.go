package models

import "time"

// Dashboard is the persisted record for one dashboard document.
// Schema holds the serialized Document blob; the store never looks inside it.
type Dashboard struct {
	DashboardID string    `firestore:"dashboardId" json:"dashboardId"`
	Name        string    `firestore:"name" json:"name"`
	Schema      string    `firestore:"schema" json:"schema"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt" json:"updatedAt"`
}
