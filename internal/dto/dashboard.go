package dto

import "github.com/clinpath/logbook-api/internal/models"

// RAGStatus is the red/amber/green submission-timeliness indicator.
type RAGStatus string

const (
	RAGGreen RAGStatus = "GREEN"
	RAGAmber RAGStatus = "AMBER"
	RAGRed   RAGStatus = "RED"
)

// DashboardRow combines a logbook with its derived timeliness status.
type DashboardRow struct {
	Logbook models.Logbook `json:"logbook"`
	RAG     RAGStatus      `json:"rag"`
}
