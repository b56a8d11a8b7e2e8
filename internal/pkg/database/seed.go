package database

import (
	"fmt"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SeedAgents installs the built-in agent catalog when the table is empty.
func SeedAgents(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.AgentDefinition{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count agent definitions: %w", err)
	}
	if count > 0 {
		return nil
	}

	agents := builtinAgents()
	if err := db.Create(&agents).Error; err != nil {
		return fmt.Errorf("failed to seed agent definitions: %w", err)
	}

	log.Info().Int("count", len(agents)).Msg("Seeded agent catalog")
	return nil
}

func builtinAgents() []models.AgentDefinition {
	return []models.AgentDefinition{
		{
			ID:          "llm.writer",
			Name:        "Content Writer",
			Description: "Generates long-form text from a prompt",
			Category:    models.AgentCategoryLLM,
			InputSchema: models.PortSchemaList{
				{Name: "prompt", Type: models.DataTypeString, Required: true},
				{Name: "context", Type: models.DataTypeString, Required: false},
			},
			OutputSchema: models.PortSchemaList{
				{Name: "text", Type: models.DataTypeString, Required: true},
			},
			DefaultConfig: models.JSON{"model": "gpt-4", "temperature": 0.7},
			Cacheable:     true,
			RetryPolicy:   models.DefaultRetryPolicy,
		},
		{
			ID:          "llm.summarizer",
			Name:        "Summarizer",
			Description: "Condenses text into a short summary",
			Category:    models.AgentCategoryLLM,
			InputSchema: models.PortSchemaList{
				{Name: "text", Type: models.DataTypeString, Required: true},
			},
			OutputSchema: models.PortSchemaList{
				{Name: "summary", Type: models.DataTypeString, Required: true},
			},
			Cacheable:   true,
			RetryPolicy: models.DefaultRetryPolicy,
		},
		{
			ID:          "retrieval.vector-search",
			Name:        "Vector Search",
			Description: "Retrieves documents relevant to a query",
			Category:    models.AgentCategoryRetrieval,
			InputSchema: models.PortSchemaList{
				{Name: "query", Type: models.DataTypeString, Required: true},
			},
			OutputSchema: models.PortSchemaList{
				{Name: "documents", Type: models.DataTypeArray, Required: true},
			},
			Cacheable:   true,
			RetryPolicy: models.DefaultRetryPolicy,
		},
		{
			ID:          "transform.json-reshape",
			Name:        "JSON Reshape",
			Description: "Maps an object into a new shape",
			Category:    models.AgentCategoryTransform,
			InputSchema: models.PortSchemaList{
				{Name: "data", Type: models.DataTypeObject, Required: true},
			},
			OutputSchema: models.PortSchemaList{
				{Name: "result", Type: models.DataTypeObject, Required: true},
			},
			Cacheable:   true,
			RetryPolicy: models.RetryPolicy{MaxRetries: 1, BackoffMs: 200, BackoffMultiplier: 1.0},
		},
		{
			ID:          "integration.http-request",
			Name:        "HTTP Request",
			Description: "Calls an external HTTP API",
			Category:    models.AgentCategoryIntegration,
			InputSchema: models.PortSchemaList{
				{Name: "url", Type: models.DataTypeString, Required: true},
				{Name: "body", Type: models.DataTypeObject, Required: false},
			},
			OutputSchema: models.PortSchemaList{
				{Name: "response", Type: models.DataTypeObject, Required: true},
				{Name: "status", Type: models.DataTypeNumber, Required: true},
			},
			Cacheable:   false,
			RetryPolicy: models.RetryPolicy{MaxRetries: 5, BackoffMs: 500, BackoffMultiplier: 2.0},
		},
		{
			ID:          "logic.router",
			Name:        "Router",
			Description: "Routes data based on a boolean condition",
			Category:    models.AgentCategoryLogic,
			InputSchema: models.PortSchemaList{
				{Name: "condition", Type: models.DataTypeBoolean, Required: true},
				{Name: "value", Type: models.DataTypeObject, Required: false},
			},
			OutputSchema: models.PortSchemaList{
				{Name: "matched", Type: models.DataTypeBoolean, Required: true},
			},
			Cacheable:   false,
			RetryPolicy: models.RetryPolicy{MaxRetries: 0, BackoffMs: 0, BackoffMultiplier: 1.0},
		},
	}
}
